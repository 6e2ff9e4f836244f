package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/pkg/database"
)

// DeliveryRepository handles database operations for deliveries
type DeliveryRepository struct {
	db *database.PostgresDB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *database.PostgresDB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// CreateDelivery inserts a delivery and fills in its generated id
func (r *DeliveryRepository) CreateDelivery(ctx context.Context, d *model.Delivery) error {
	query := `
		INSERT INTO delivery (booking_id, customer_id, shop_id, service_id, pickup_address, delivery_address, delivery_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING delivery_id
	`

	err := r.db.QueryRowContext(ctx, query,
		d.BookingID,
		d.CustomerID,
		d.ShopID,
		d.ServiceID,
		d.PickupAddress,
		d.DeliveryAddress,
		d.DeliveryTime,
		string(d.Status),
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}

	return nil
}

// GetDeliveryByID retrieves a delivery by its ID
func (r *DeliveryRepository) GetDeliveryByID(ctx context.Context, id int64) (*model.Delivery, error) {
	query := `
		SELECT delivery_id, booking_id, customer_id, shop_id, service_id,
		       pickup_address, delivery_address, delivery_time, status
		FROM delivery
		WHERE delivery_id = $1
	`

	var (
		d      model.Delivery
		status string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.BookingID,
		&d.CustomerID,
		&d.ShopID,
		&d.ServiceID,
		&d.PickupAddress,
		&d.DeliveryAddress,
		&d.DeliveryTime,
		&status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeliveryNotFound
		}
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	d.Status = model.DeliveryStatus(status)

	return &d, nil
}

// UpdateDeliveryStatus sets the status column of a delivery
func (r *DeliveryRepository) UpdateDeliveryStatus(ctx context.Context, id int64, status model.DeliveryStatus) error {
	tag, err := r.db.ExecContext(ctx, `UPDATE delivery SET status = $2 WHERE delivery_id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}
