package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/laundry-marketplace/internal/metrics"
	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BookingStore is the persistence the booking workflow needs
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *model.Booking) error
	GetBookingByID(ctx context.Context, id int64) (*model.Booking, error)
	GetBookingContext(ctx context.Context, id int64) (*model.BookingContext, error)
	GetShopID(ctx context.Context, id int64) (int64, error)
	UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus, from []model.BookingStatus) error
	RescheduleBooking(ctx context.Context, id int64, date time.Time) error
	DeleteBooking(ctx context.Context, id int64) error
}

// bookingDateLayouts are the accepted reschedule date formats, tried in order
var bookingDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BookingService handles booking status transitions and their side effects
type BookingService struct {
	bookings    BookingStore
	broadcaster *EventBroadcaster
	notifier    *Notifier
	logger      *zap.Logger
	metrics     *metrics.Metrics
	loc         *time.Location
}

// NewBookingService creates a new booking service. loc is used to render and parse booking dates.
func NewBookingService(
	bookings BookingStore,
	broadcaster *EventBroadcaster,
	notifier *Notifier,
	loc *time.Location,
	logger *zap.Logger,
	m *metrics.Metrics,
) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		bookings:    bookings,
		broadcaster: broadcaster,
		notifier:    notifier,
		logger:      logger.Named("booking"),
		metrics:     m,
		loc:         loc,
	}
}

// CreateBooking stores a new booking and tells the shop about it
func (s *BookingService) CreateBooking(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	// Validate the request
	if strings.TrimSpace(booking.BookingType) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "bookingType is required")
	}
	if booking.ShopID <= 0 || booking.ServiceID <= 0 || booking.CustomerID <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "shopId, serviceId and customerId are required")
	}
	if booking.BookingDate.IsZero() {
		return nil, status.Errorf(codes.InvalidArgument, "bookingDate is required")
	}
	if booking.TotalAmount < 0 {
		return nil, status.Errorf(codes.InvalidArgument, "totalAmount must not be negative")
	}
	if booking.Status == "" {
		booking.Status = model.BookingPending
	}
	if !booking.Status.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "invalid status %q", booking.Status)
	}

	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create booking: %v", err)
	}

	bc, ok := s.loadContext(ctx, booking.ID)
	if !ok {
		return booking, nil
	}

	s.broadcaster.BookingCreated(ctx, shopRef(bc), booking)
	s.notifier.notifyQuietly(ctx, adminOf(bc), &booking.ID, newBookingNotice(booking, s.loc))

	return booking, nil
}

// UpdateStatus moves a booking to a new status, then broadcasts and notifies.
// Only validation and persistence failures are returned.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, raw string) (model.BookingStatus, error) {
	next := model.BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if next == "" {
		return "", status.Errorf(codes.InvalidArgument, "status is required")
	}
	if !next.Valid() {
		return "", status.Errorf(codes.InvalidArgument, "invalid status %q", raw)
	}

	err := s.bookings.UpdateBookingStatus(ctx, id, next, model.AllowedFrom(next))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return "", status.Errorf(codes.NotFound, "booking not found")
		case errors.Is(err, repository.ErrStatusConflict):
			return "", status.Errorf(codes.FailedPrecondition, "cannot change booking status to %s: %v", next, err)
		default:
			return "", status.Errorf(codes.Internal, "failed to update booking status: %v", err)
		}
	}
	s.metrics.RecordStatusChange("booking", string(next))

	bc, ok := s.loadContext(ctx, id)
	if !ok {
		return next, nil
	}

	s.broadcaster.BookingStatusChanged(ctx, shopRef(bc), id, next)

	switch next {
	case model.BookingCancelled:
		s.notifier.notifyQuietly(ctx, adminOf(bc), &id, cancellationNotice(bc))
	case model.BookingConfirmed:
		s.notifier.notifyQuietly(ctx, customerOf(bc), &id, confirmationNotice(bc, s.loc))
	}

	return next, nil
}

// Reschedule changes the date of a pending or confirmed booking
func (s *BookingService) Reschedule(ctx context.Context, id int64, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "bookingDate is required")
	}
	date, err := s.parseBookingDate(raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid bookingDate %q", raw)
	}

	err = s.bookings.RescheduleBooking(ctx, id, date)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return time.Time{}, status.Errorf(codes.NotFound, "booking not found")
		case errors.Is(err, repository.ErrStatusConflict):
			return time.Time{}, status.Errorf(codes.FailedPrecondition, "reschedule allowed only for pending or confirmed bookings")
		default:
			return time.Time{}, status.Errorf(codes.Internal, "failed to reschedule booking: %v", err)
		}
	}

	bc, ok := s.loadContext(ctx, id)
	if !ok {
		return date, nil
	}

	s.broadcaster.BookingRescheduled(ctx, shopRef(bc), id, date)
	s.notifier.notifyQuietly(ctx, adminOf(bc), &id, rescheduleNotice(bc, s.loc))

	return date, nil
}

// Get returns one booking
func (s *BookingService) Get(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.bookings.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, status.Errorf(codes.NotFound, "booking not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to get booking: %v", err)
	}
	return booking, nil
}

// Delete removes a booking with its payments and announces the removal
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	// Capture the shop before the row disappears
	shopID, err := s.bookings.GetShopID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return status.Errorf(codes.NotFound, "booking not found")
		}
		return status.Errorf(codes.Internal, "failed to get booking: %v", err)
	}

	if err := s.bookings.DeleteBooking(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return status.Errorf(codes.NotFound, "booking not found")
		}
		return status.Errorf(codes.Internal, "failed to delete booking: %v", err)
	}

	s.broadcaster.BookingDeleted(ctx, ShopRef{ShopID: shopID}, id)
	return nil
}

// loadContext re-reads the booking for fan-out. A failure only suppresses the fan-out.
func (s *BookingService) loadContext(ctx context.Context, id int64) (*model.BookingContext, bool) {
	bc, err := s.bookings.GetBookingContext(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load booking context, skipping fan-out",
			zap.Int64("bookingId", id),
			zap.Error(err),
		)
		return nil, false
	}
	return bc, true
}

func (s *BookingService) parseBookingDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range bookingDateLayouts {
		t, err := time.ParseInLocation(layout, raw, s.loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func shopRef(bc *model.BookingContext) ShopRef {
	return ShopRef{ShopID: bc.ShopID, AdminID: bc.AdminID}
}

func adminOf(bc *model.BookingContext) model.Identity {
	return model.NewIdentity(model.AccountAdmin, bc.AdminID)
}

func customerOf(bc *model.BookingContext) model.Identity {
	return model.NewIdentity(model.AccountCustomer, bc.CustomerID)
}
