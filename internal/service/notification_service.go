package service

import (
	"context"
	"errors"
	"strings"

	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/internal/repository"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// NotificationReader reads and updates stored notifications
type NotificationReader interface {
	ListNotifications(ctx context.Context, recipient model.Identity, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error)
}

// DeviceTokenManager manages push registrations
type DeviceTokenManager interface {
	UpsertToken(ctx context.Context, owner model.Identity, shopID *int64, token string) error
	DeactivateToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context, token string) error
	LatestToken(ctx context.Context, owner model.Identity) (string, error)
	ListTokens(ctx context.Context, owner model.Identity) ([]*model.DeviceToken, error)
}

// NotificationService exposes the in-app notification inbox and device registration
type NotificationService struct {
	reader   NotificationReader
	tokens   DeviceTokenManager
	shops    ShopDirectory
	notifier *Notifier
}

// NewNotificationService creates a new notification service
func NewNotificationService(reader NotificationReader, tokens DeviceTokenManager, shops ShopDirectory, notifier *Notifier) *NotificationService {
	return &NotificationService{
		reader:   reader,
		tokens:   tokens,
		shops:    shops,
		notifier: notifier,
	}
}

// List returns the newest notifications of an identity
func (s *NotificationService) List(ctx context.Context, recipient model.Identity, limit int) ([]*model.Notification, error) {
	if err := validateIdentity(recipient); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	notifications, err := s.reader.ListNotifications(ctx, recipient, limit)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list notifications: %v", err)
	}
	return notifications, nil
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id int64) error {
	if err := s.reader.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return status.Errorf(codes.NotFound, "notification not found")
		}
		return status.Errorf(codes.Internal, "failed to mark notification read: %v", err)
	}
	return nil
}

// MarkAllRead marks every notification of an identity as read
func (s *NotificationService) MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error) {
	if err := validateIdentity(recipient); err != nil {
		return 0, err
	}
	n, err := s.reader.MarkAllRead(ctx, recipient)
	if err != nil {
		return 0, status.Errorf(codes.Internal, "failed to mark notifications read: %v", err)
	}
	return n, nil
}

// RegisterToken saves or reactivates a device token for an identity
func (s *NotificationService) RegisterToken(ctx context.Context, owner model.Identity, shopID *int64, token string) error {
	if err := validateIdentity(owner); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return status.Errorf(codes.InvalidArgument, "token is required")
	}
	if err := s.tokens.UpsertToken(ctx, owner, shopID, token); err != nil {
		return status.Errorf(codes.Internal, "failed to register device token: %v", err)
	}
	return nil
}

// DeactivateToken stops pushes to a device, typically on logout
func (s *NotificationService) DeactivateToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return status.Errorf(codes.InvalidArgument, "token is required")
	}
	if err := s.tokens.DeactivateToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrDeviceTokenNotFound) {
			return status.Errorf(codes.NotFound, "device token not found")
		}
		return status.Errorf(codes.Internal, "failed to deactivate device token: %v", err)
	}
	return nil
}

// DeleteToken removes a device registration
func (s *NotificationService) DeleteToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return status.Errorf(codes.InvalidArgument, "token is required")
	}
	if err := s.tokens.DeleteToken(ctx, token); err != nil {
		return status.Errorf(codes.Internal, "failed to delete device token: %v", err)
	}
	return nil
}

// Tokens lists the device registrations of an identity
func (s *NotificationService) Tokens(ctx context.Context, owner model.Identity) ([]*model.DeviceToken, error) {
	if err := validateIdentity(owner); err != nil {
		return nil, err
	}
	tokens, err := s.tokens.ListTokens(ctx, owner)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list device tokens: %v", err)
	}
	return tokens, nil
}

// SendTest sends a test notification to the most recently active device of an identity
func (s *NotificationService) SendTest(ctx context.Context, owner model.Identity, bookingID *int64) (*model.Notification, error) {
	if err := validateIdentity(owner); err != nil {
		return nil, err
	}

	token, err := s.tokens.LatestToken(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceTokenNotFound) {
			return nil, status.Errorf(codes.NotFound, "no device token found")
		}
		return nil, status.Errorf(codes.Internal, "failed to get device token: %v", err)
	}

	n, err := s.notifier.NotifyDevice(ctx, owner, bookingID, "Test Notification", "This is a test notification", token)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to send notification: %v", err)
	}
	return n, nil
}

// SendToShop notifies the admin owning a shop
func (s *NotificationService) SendToShop(ctx context.Context, shopID int64, bookingID *int64, title, message string) (*model.Notification, error) {
	if err := validateNotice(title, message); err != nil {
		return nil, err
	}

	adminID, err := s.shops.ShopAdminID(ctx, shopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			return nil, status.Errorf(codes.NotFound, "shop not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to resolve shop admin: %v", err)
	}

	return s.send(ctx, model.NewIdentity(model.AccountAdmin, adminID), bookingID, title, message)
}

// SendToCustomer notifies a customer
func (s *NotificationService) SendToCustomer(ctx context.Context, customerID int64, bookingID *int64, title, message string) (*model.Notification, error) {
	if err := validateNotice(title, message); err != nil {
		return nil, err
	}
	if customerID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "customerId is required")
	}

	return s.send(ctx, model.NewIdentity(model.AccountCustomer, customerID), bookingID, title, message)
}

func (s *NotificationService) send(ctx context.Context, recipient model.Identity, bookingID *int64, title, message string) (*model.Notification, error) {
	n, err := s.notifier.Notify(ctx, recipient, bookingID, title, message)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to send notification: %v", err)
	}
	return n, nil
}

func validateIdentity(id model.Identity) error {
	if id.AccountID <= 0 || !id.AccountType.Valid() {
		return status.Errorf(codes.InvalidArgument, "accountId and a valid accountType are required")
	}
	return nil
}

func validateNotice(title, message string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return status.Errorf(codes.InvalidArgument, "title and message are required")
	}
	return nil
}
