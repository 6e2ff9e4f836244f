package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/pkg/database"
)

const notificationColumns = `notification_id, account_id, account_type, booking_id, title, message, is_read, created_at`

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *database.PostgresDB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateNotification inserts a notification and returns the stored record
func (r *NotificationRepository) CreateNotification(ctx context.Context, recipient model.Identity, bookingID *int64, title, message string) (*model.Notification, error) {
	query := `
		INSERT INTO notifications (account_id, account_type, booking_id, title, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + notificationColumns

	n, err := scanNotification(r.db.QueryRowContext(ctx, query,
		recipient.AccountID,
		string(recipient.AccountType),
		bookingID,
		title,
		message,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// GetNotificationByID retrieves a notification by its ID
func (r *NotificationRepository) GetNotificationByID(ctx context.Context, id int64) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE notification_id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns the notifications of an identity, newest first
func (r *NotificationRepository) ListNotifications(ctx context.Context, recipient model.Identity, limit int) ([]*model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE account_id = $1 AND account_type = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, recipient.AccountID, string(recipient.AccountType), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead marks one notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE notification_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of an identity as read and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipient model.Identity) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE account_id = $1 AND account_type = $2 AND is_read = FALSE
	`

	tag, err := r.db.ExecContext(ctx, query, recipient.AccountID, string(recipient.AccountType))
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var (
		n           model.Notification
		accountType string
	)
	err := row.Scan(
		&n.ID,
		&n.AccountID,
		&accountType,
		&n.BookingID,
		&n.Title,
		&n.Message,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.AccountType = model.AccountType(accountType)
	return &n, nil
}
