package service

import (
	"context"
	"errors"
	"strings"

	"github.com/laundry-marketplace/internal/metrics"
	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DeliveryStore is the persistence the delivery workflow needs
type DeliveryStore interface {
	CreateDelivery(ctx context.Context, d *model.Delivery) error
	GetDeliveryByID(ctx context.Context, id int64) (*model.Delivery, error)
	UpdateDeliveryStatus(ctx context.Context, id int64, status model.DeliveryStatus) error
}

// BookingSyncer mirrors a delivery status onto its booking
type BookingSyncer interface {
	SyncBookingStatus(ctx context.Context, id int64, status model.BookingStatus) (bool, error)
}

// DeliveryService handles delivery status changes and their side effects
type DeliveryService struct {
	deliveries  DeliveryStore
	bookings    BookingSyncer
	broadcaster *EventBroadcaster
	notifier    *Notifier
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(
	deliveries DeliveryStore,
	bookings BookingSyncer,
	broadcaster *EventBroadcaster,
	notifier *Notifier,
	logger *zap.Logger,
	m *metrics.Metrics,
) *DeliveryService {
	return &DeliveryService{
		deliveries:  deliveries,
		bookings:    bookings,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      logger.Named("delivery"),
		metrics:     m,
	}
}

// CreateDelivery stores a new delivery and announces it
func (s *DeliveryService) CreateDelivery(ctx context.Context, d *model.Delivery) (*model.Delivery, error) {
	if d.BookingID <= 0 || d.CustomerID <= 0 || d.ShopID <= 0 || d.ServiceID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "bookingId, customerId, shopId and serviceId are required")
	}
	if strings.TrimSpace(d.PickupAddress) == "" || strings.TrimSpace(d.DeliveryAddress) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "pickupAddress and deliveryAddress are required")
	}
	if d.DeliveryTime.IsZero() {
		return nil, status.Errorf(codes.InvalidArgument, "deliveryTime is required")
	}
	if d.Status == "" {
		d.Status = model.DeliveryPending
	}
	if !d.Status.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid status %q", d.Status)
	}

	if err := s.deliveries.CreateDelivery(ctx, d); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create delivery: %v", err)
	}

	s.broadcaster.DeliveryCreated(ctx, d)
	return d, nil
}

// UpdateStatus sets a delivery status, mirrors it onto the booking when a mapping exists,
// then broadcasts and notifies the customer.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id int64, raw string) (*model.Delivery, error) {
	next := model.DeliveryStatus(strings.ToLower(strings.TrimSpace(raw)))
	if next == "" {
		return nil, status.Errorf(codes.InvalidArgument, "status is required")
	}
	if !next.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid status %q", raw)
	}

	d, err := s.deliveries.GetDeliveryByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDeliveryNotFound) {
			return nil, status.Errorf(codes.NotFound, "delivery not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to get delivery: %v", err)
	}

	if err := s.deliveries.UpdateDeliveryStatus(ctx, id, next); err != nil {
		if errors.Is(err, repository.ErrDeliveryNotFound) {
			return nil, status.Errorf(codes.NotFound, "delivery not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to update delivery status: %v", err)
	}
	d.Status = next
	s.metrics.RecordStatusChange("delivery", string(next))

	s.syncBooking(ctx, d)
	s.broadcaster.DeliveryUpdated(ctx, d)
	s.notifier.notifyQuietly(ctx, model.NewIdentity(model.AccountCustomer, d.CustomerID), &d.BookingID, deliveryNotice(d))

	return d, nil
}

func (s *DeliveryService) syncBooking(ctx context.Context, d *model.Delivery) {
	target, ok := d.Status.BookingStatus()
	if !ok {
		return
	}

	changed, err := s.bookings.SyncBookingStatus(ctx, d.BookingID, target)
	if err != nil {
		s.logger.Error("Failed to sync booking status",
			zap.Int64("deliveryId", d.ID),
			zap.Int64("bookingId", d.BookingID),
			zap.String("status", string(target)),
			zap.Error(err),
		)
		return
	}
	if !changed {
		s.logger.Info("Booking status left unchanged",
			zap.Int64("bookingId", d.BookingID),
			zap.String("status", string(target)),
		)
	}
}
