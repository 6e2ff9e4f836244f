package service

import (
	"context"

	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

// Notifier runs the full notification path: persist, emit to the recipient channel, push to every device
type Notifier struct {
	dispatcher  *NotificationDispatcher
	broadcaster *EventBroadcaster
	logger      *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(dispatcher *NotificationDispatcher, broadcaster *EventBroadcaster, logger *zap.Logger) *Notifier {
	return &Notifier{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger.Named("notifier"),
	}
}

// Notify stores a notification and delivers it in real time and by push
func (n *Notifier) Notify(ctx context.Context, recipient model.Identity, bookingID *int64, title, message string) (*model.Notification, error) {
	saved, err := n.dispatcher.Dispatch(ctx, NotificationRequest{
		Recipient: recipient,
		BookingID: bookingID,
		Title:     title,
		Message:   message,
	})
	if err != nil {
		return nil, err
	}

	n.broadcaster.NotificationCreated(saved)
	n.dispatcher.PushAll(ctx, saved)
	return saved, nil
}

// NotifyDevice stores a notification, emits it to the recipient channel and pushes it to one device only
func (n *Notifier) NotifyDevice(ctx context.Context, recipient model.Identity, bookingID *int64, title, message, token string) (*model.Notification, error) {
	saved, err := n.dispatcher.Dispatch(ctx, NotificationRequest{
		Recipient:   recipient,
		BookingID:   bookingID,
		Title:       title,
		Message:     message,
		DeviceToken: token,
	})
	if err != nil {
		return nil, err
	}

	n.broadcaster.NotificationCreated(saved)
	return saved, nil
}

// notifyQuietly is Notify for workflow side effects: failures are logged and dropped
func (n *Notifier) notifyQuietly(ctx context.Context, recipient model.Identity, bookingID *int64, msg notice) {
	if _, err := n.Notify(ctx, recipient, bookingID, msg.Title, msg.Message); err != nil {
		n.logger.Error("Failed to notify",
			zap.Stringer("recipient", recipient),
			zap.String("title", msg.Title),
			zap.Error(err),
		)
	}
}
