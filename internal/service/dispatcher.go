package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/laundry-marketplace/internal/clients"
	"github.com/laundry-marketplace/internal/metrics"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// NotificationStore persists notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, recipient model.Identity, bookingID *int64, title, message string) (*model.Notification, error)
}

// TokenStore reads and prunes push device tokens
type TokenStore interface {
	ActiveTokens(ctx context.Context, owner model.Identity) ([]string, error)
	DeleteToken(ctx context.Context, token string) error
}

// Pusher delivers one push message to one device
type Pusher interface {
	Push(ctx context.Context, msg clients.PushMessage) error
}

// NotificationRequest describes one notification to persist and optionally push
type NotificationRequest struct {
	Recipient   model.Identity
	BookingID   *int64
	Title       string
	Message     string
	DeviceToken string
}

// NotificationDispatcher persists notifications and pushes them to devices.
// The stored row is authoritative; push delivery is best effort.
type NotificationDispatcher struct {
	store       NotificationStore
	tokens      TokenStore
	pusher      Pusher
	logger      *zap.Logger
	metrics     *metrics.Metrics
	pushTimeout time.Duration
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(store NotificationStore, tokens TokenStore, pusher Pusher, pushTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *NotificationDispatcher {
	if pushTimeout <= 0 {
		pushTimeout = 10 * time.Second
	}
	return &NotificationDispatcher{
		store:       store,
		tokens:      tokens,
		pusher:      pusher,
		logger:      logger.Named("dispatcher"),
		metrics:     m,
		pushTimeout: pushTimeout,
	}
}

// Dispatch stores a notification and, when a device token is given, attempts exactly one push.
// Only a storage failure is returned.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, req NotificationRequest) (*model.Notification, error) {
	n, err := d.store.CreateNotification(ctx, req.Recipient, req.BookingID, req.Title, req.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	d.metrics.RecordNotification()

	if req.DeviceToken != "" {
		_ = d.push(ctx, req.DeviceToken, n)
	}

	return n, nil
}

// PushAll pushes a stored notification to every active device of its recipient and
// returns the number of successful pushes. Each device fails independently.
func (d *NotificationDispatcher) PushAll(ctx context.Context, n *model.Notification) int {
	tokens, err := d.tokens.ActiveTokens(ctx, n.Recipient())
	if err != nil {
		d.logger.Error("Failed to load device tokens",
			zap.Stringer("recipient", n.Recipient()),
			zap.Error(err),
		)
		return 0
	}

	sent := 0
	for _, token := range tokens {
		if d.push(ctx, token, n) == nil {
			sent++
		}
	}
	return sent
}

func (d *NotificationDispatcher) push(ctx context.Context, token string, n *model.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, d.pushTimeout)
	defer cancel()

	err := d.pusher.Push(ctx, pushMessage(token, n))
	if err == nil {
		d.metrics.RecordPush("sent")
		return nil
	}

	if errors.Is(err, clients.ErrTokenInvalid) {
		d.metrics.RecordPush("invalid_token")
		d.logger.Info("Removing invalid device token",
			zap.Stringer("recipient", n.Recipient()),
			zap.String("token", truncateToken(token)),
		)
		if delErr := d.tokens.DeleteToken(context.WithoutCancel(ctx), token); delErr != nil {
			d.logger.Error("Failed to delete invalid device token", zap.Error(delErr))
		}
		return err
	}

	d.metrics.RecordPush("failed")
	d.logger.Warn("Failed to send push",
		zap.Stringer("recipient", n.Recipient()),
		zap.Int64("notificationId", n.ID),
		zap.Error(err),
	)
	return err
}

func pushMessage(token string, n *model.Notification) clients.PushMessage {
	bookingID := ""
	if n.BookingID != nil {
		bookingID = strconv.FormatInt(*n.BookingID, 10)
	}
	return clients.PushMessage{
		Token: token,
		Title: n.Title,
		Body:  n.Message,
		Data: map[string]string{
			"bookingId":      bookingID,
			"accountType":    string(n.AccountType),
			"notificationId": strconv.FormatInt(n.ID, 10),
		},
	}
}

func truncateToken(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
