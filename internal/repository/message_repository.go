package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/laundry-marketplace/internal/model"
	"github.com/laundry-marketplace/pkg/database"
)

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *database.PostgresDB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *database.PostgresDB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateMessage stores a chat message, assigning id and creation time when unset
func (r *MessageRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (message_id, sender_type, sender_id, receiver_type, receiver_id, shop_id, message_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		string(m.SenderType),
		m.SenderID,
		string(m.ReceiverType),
		m.ReceiverID,
		m.ShopID,
		m.Body,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// Conversation returns the messages exchanged between a customer and an admin about a shop, oldest first
func (r *MessageRepository) Conversation(ctx context.Context, shopID, customerID, adminID int64) ([]*model.Message, error) {
	query := `
		SELECT message_id, sender_type, sender_id, receiver_type, receiver_id, shop_id, message_text, is_read, created_at
		FROM messages
		WHERE shop_id = $1
		  AND ((sender_type = 'customer' AND sender_id = $2 AND receiver_type = 'admin' AND receiver_id = $3)
		    OR (sender_type = 'admin' AND sender_id = $3 AND receiver_type = 'customer' AND receiver_id = $2))
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, shopID, customerID, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return scanMessages(rows)
}

// ShopMessages returns every message about a shop, newest first
func (r *MessageRepository) ShopMessages(ctx context.Context, shopID int64) ([]*model.Message, error) {
	query := `
		SELECT message_id, sender_type, sender_id, receiver_type, receiver_id, shop_id, message_text, is_read, created_at
		FROM messages
		WHERE shop_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop messages: %w", err)
	}
	return scanMessages(rows)
}

// MarkRead flags the unread messages selected by the receipt as read and returns how many changed
func (r *MessageRepository) MarkRead(ctx context.Context, receipt model.ReadReceipt) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE shop_id = $1
		  AND sender_id = $2 AND ($3 = '' OR sender_type = $3)
		  AND receiver_id = $4 AND ($5 = '' OR receiver_type = $5)
		  AND is_read = FALSE
	`

	result, err := r.db.ExecContext(ctx, query,
		receipt.ShopID,
		receipt.SenderID,
		string(receipt.SenderType),
		receipt.ReceiverID,
		string(receipt.ReceiverType),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages as read: %w", err)
	}

	return result.RowsAffected(), nil
}

// Conversations lists one row per shop and contact the user has exchanged messages with,
// most recent first. Contact names come from the customer or shop record.
func (r *MessageRepository) Conversations(ctx context.Context, user model.Identity) ([]*model.ConversationSummary, error) {
	query := `
		WITH mine AS (
			SELECT shop_id,
			       CASE WHEN sender_type = $1 AND sender_id = $2 THEN receiver_type ELSE sender_type END AS contact_type,
			       CASE WHEN sender_type = $1 AND sender_id = $2 THEN receiver_id ELSE sender_id END AS contact_id,
			       message_text,
			       created_at,
			       (receiver_type = $1 AND receiver_id = $2 AND NOT is_read) AS unread
			FROM messages
			WHERE (sender_type = $1 AND sender_id = $2) OR (receiver_type = $1 AND receiver_id = $2)
		), ranked AS (
			SELECT mine.*,
			       SUM(CASE WHEN unread THEN 1 ELSE 0 END) OVER w AS unread_count,
			       ROW_NUMBER() OVER (w ORDER BY created_at DESC) AS rn
			FROM mine
			WINDOW w AS (PARTITION BY shop_id, contact_type, contact_id)
		)
		SELECT r.shop_id, r.contact_type, r.contact_id,
		       COALESCE(CASE WHEN r.contact_type = 'customer'
		                     THEN TRIM(c.first_name || ' ' || c.last_name)
		                     ELSE s.name END, '') AS contact_name,
		       r.message_text, r.created_at, r.unread_count
		FROM ranked r
		LEFT JOIN customer c ON r.contact_type = 'customer' AND c.customer_id = r.contact_id
		LEFT JOIN shop s ON s.shop_id = r.shop_id
		WHERE r.rn = 1
		ORDER BY r.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, string(user.AccountType), user.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]*model.ConversationSummary, 0)
	for rows.Next() {
		var (
			cs          model.ConversationSummary
			contactType string
		)
		if err := rows.Scan(
			&cs.ShopID,
			&contactType,
			&cs.ContactID,
			&cs.ContactName,
			&cs.LastMessage,
			&cs.LastMessageTime,
			&cs.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		cs.ContactType = model.AccountType(contactType)
		summaries = append(summaries, &cs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return summaries, nil
}

func scanMessages(rows pgx.Rows) ([]*model.Message, error) {
	defer rows.Close()

	messages := make([]*model.Message, 0)
	for rows.Next() {
		var (
			m                        model.Message
			senderType, receiverType string
		)
		if err := rows.Scan(
			&m.ID,
			&senderType,
			&m.SenderID,
			&receiverType,
			&m.ReceiverID,
			&m.ShopID,
			&m.Body,
			&m.IsRead,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.SenderType = model.AccountType(senderType)
		m.ReceiverType = model.AccountType(receiverType)
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
