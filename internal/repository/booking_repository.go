package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/pkg/database"
)

// BookingRepository handles database operations for bookings
type BookingRepository struct {
	db *database.PostgresDB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *database.PostgresDB) *BookingRepository {
	return &BookingRepository{
		db: db,
	}
}

// CreateBooking inserts a booking and fills in its generated id and creation time
func (r *BookingRepository) CreateBooking(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO booking (booking_type, booking_date, status, total_amount, shop_id, service_id, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING booking_id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		booking.BookingType,
		booking.BookingDate,
		string(booking.Status),
		booking.TotalAmount,
		booking.ShopID,
		booking.ServiceID,
		booking.CustomerID,
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetBookingByID retrieves a booking by its ID
func (r *BookingRepository) GetBookingByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT booking_id, booking_type, booking_date, status, total_amount, shop_id, service_id, customer_id, created_at
		FROM booking
		WHERE booking_id = $1
	`

	var (
		b      model.Booking
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.BookingType,
		&b.BookingDate,
		&status,
		&b.TotalAmount,
		&b.ShopID,
		&b.ServiceID,
		&b.CustomerID,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	b.Status = model.BookingStatus(status)

	return &b, nil
}

// GetBookingStatus returns the current status of a booking
func (r *BookingRepository) GetBookingStatus(ctx context.Context, id int64) (model.BookingStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM booking WHERE booking_id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrBookingNotFound
		}
		return "", fmt.Errorf("failed to get booking status: %w", err)
	}
	return model.BookingStatus(status), nil
}

// GetShopID returns the shop a booking belongs to
func (r *BookingRepository) GetShopID(ctx context.Context, id int64) (int64, error) {
	var shopID int64
	err := r.db.QueryRowContext(ctx, `SELECT shop_id FROM booking WHERE booking_id = $1`, id).Scan(&shopID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrBookingNotFound
		}
		return 0, fmt.Errorf("failed to get booking shop: %w", err)
	}
	return shopID, nil
}

// GetBookingContext loads a booking with the shop owner, customer name and service name
func (r *BookingRepository) GetBookingContext(ctx context.Context, id int64) (*model.BookingContext, error) {
	query := `
		SELECT b.booking_id, b.booking_type, b.booking_date, b.status, b.total_amount,
		       b.shop_id, b.service_id, b.customer_id, b.created_at,
		       s.admin_id,
		       COALESCE(c.first_name, ''), COALESCE(c.last_name, ''),
		       COALESCE(srv.name, '')
		FROM booking b
		JOIN shop s ON b.shop_id = s.shop_id
		LEFT JOIN customer c ON b.customer_id = c.customer_id
		LEFT JOIN services srv ON b.service_id = srv.service_id
		WHERE b.booking_id = $1
	`

	var (
		bc     model.BookingContext
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&bc.ID,
		&bc.BookingType,
		&bc.BookingDate,
		&status,
		&bc.TotalAmount,
		&bc.ShopID,
		&bc.ServiceID,
		&bc.CustomerID,
		&bc.CreatedAt,
		&bc.AdminID,
		&bc.CustomerFirstName,
		&bc.CustomerLastName,
		&bc.ServiceName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking context: %w", err)
	}
	bc.Status = model.BookingStatus(status)

	return &bc, nil
}

// UpdateBookingStatus moves a booking to status only if its current status is one of from.
// It returns ErrBookingNotFound when the booking does not exist and ErrStatusConflict
// when the current status is outside from.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id int64, status model.BookingStatus, from []model.BookingStatus) error {
	query := `
		UPDATE booking
		SET status = $2
		WHERE booking_id = $1 AND status = ANY($3)
	`

	tag, err := r.db.ExecContext(ctx, query, id, string(status), statusStrings(from))
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.explainMiss(ctx, id)
	}

	return nil
}

// RescheduleBooking changes the booking date while the booking is pending or confirmed
func (r *BookingRepository) RescheduleBooking(ctx context.Context, id int64, date time.Time) error {
	query := `
		UPDATE booking
		SET booking_date = $2
		WHERE booking_id = $1 AND status = ANY($3)
	`

	tag, err := r.db.ExecContext(ctx, query, id, date, statusStrings(model.ReschedulableStatuses))
	if err != nil {
		return fmt.Errorf("failed to reschedule booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.explainMiss(ctx, id)
	}

	return nil
}

// SyncBookingStatus sets a booking status from its delivery without leaving a cancelled booking.
// It reports whether a row changed.
func (r *BookingRepository) SyncBookingStatus(ctx context.Context, id int64, status model.BookingStatus) (bool, error) {
	query := `
		UPDATE booking
		SET status = $2
		WHERE booking_id = $1 AND status <> $3
	`

	tag, err := r.db.ExecContext(ctx, query, id, string(status), string(model.BookingCancelled))
	if err != nil {
		return false, fmt.Errorf("failed to sync booking status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteBooking removes a booking and its payments in one transaction
func (r *BookingRepository) DeleteBooking(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payment WHERE booking_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete booking payments: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM booking WHERE booking_id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete booking: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBookingNotFound
		}
		return nil
	})
}

// explainMiss tells a missing booking apart from one whose status blocked a guarded update
func (r *BookingRepository) explainMiss(ctx context.Context, id int64) error {
	current, err := r.GetBookingStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: booking is %s", ErrStatusConflict, current)
}

func statusStrings(statuses []model.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
