package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrTokenInvalid is returned when the provider reports a device token as permanently unusable
var ErrTokenInvalid = errors.New("device token is invalid or unregistered")

// androidIcon is the small icon resource bundled with the mobile app
const androidIcon = "ic_stat_elaba"

// PushMessage is a single push to one device
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// sender is the part of *messaging.Client the FCM client uses
type sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMClient delivers push notifications through Firebase Cloud Messaging
type FCMClient struct {
	client sender
	logger *zap.Logger
}

// NewFCMClient creates a new FCM client from a service account credentials file
func NewFCMClient(ctx context.Context, credentialsFile string, logger *zap.Logger) (*FCMClient, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return &FCMClient{client: client, logger: logger.Named("fcm")}, nil
}

// Push sends one message. It returns ErrTokenInvalid when the token should be discarded.
func (c *FCMClient) Push(ctx context.Context, msg PushMessage) error {
	id, err := c.client.Send(ctx, buildMessage(msg))
	if err != nil {
		if isTokenError(err) {
			return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		return fmt.Errorf("failed to send push: %w", err)
	}

	c.logger.Debug("Push sent", zap.String("messageId", id))
	return nil
}

// isTokenError reports whether FCM rejected the device token itself. Other invalid
// argument errors point at the payload and leave the token in place.
func isTokenError(err error) bool {
	if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
		return true
	}
	return messaging.IsInvalidArgument(err) && mentionsRegistrationToken(err.Error())
}

func mentionsRegistrationToken(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "registration token")
}

func buildMessage(msg PushMessage) *messaging.Message {
	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Icon: androidIcon,
			},
		},
		Data: msg.Data,
	}
}

// LogPusher stands in for a push provider when push is disabled
type LogPusher struct {
	logger *zap.Logger
}

// NewLogPusher creates a pusher that only logs
func NewLogPusher(logger *zap.Logger) *LogPusher {
	return &LogPusher{logger: logger.Named("push")}
}

// Push logs the message and reports success
func (p *LogPusher) Push(_ context.Context, msg PushMessage) error {
	p.logger.Info("Push disabled, skipping delivery",
		zap.String("title", msg.Title),
		zap.String("bookingId", msg.Data["bookingId"]),
	)
	return nil
}
