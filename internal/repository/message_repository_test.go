package repository

import (
	"context"
	"testing"
	"time"

	"github.com/laundry-marketplace/internal/model"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_CreateMessageAssignsID(t *testing.T) {
	mock, db := setupMockDB(t)
	shopID := int64(11)
	msg := &model.Message{
		SenderType:   model.AccountCustomer,
		SenderID:     3,
		ReceiverType: model.AccountAdmin,
		ReceiverID:   5,
		ShopID:       &shopID,
		Body:         "hello",
	}
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(pgxmock.AnyArg(), "customer", int64(3), "admin", int64(5), &shopID, "hello", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewMessageRepository(db).CreateMessage(context.Background(), msg)

	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_Conversation(t *testing.T) {
	mock, db := setupMockDB(t)
	shopID := int64(11)
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM messages").
		WithArgs(int64(11), int64(3), int64(5)).
		WillReturnRows(mock.NewRows([]string{
			"message_id", "sender_type", "sender_id", "receiver_type", "receiver_id", "shop_id", "message_text", "is_read", "created_at",
		}).
			AddRow("m1", "customer", int64(3), "admin", int64(5), &shopID, "hi", true, t0).
			AddRow("m2", "admin", int64(5), "customer", int64(3), &shopID, "hello", false, t0.Add(time.Minute)))

	got, err := NewMessageRepository(db).Conversation(context.Background(), 11, 3, 5)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.NewIdentity(model.AccountCustomer, 3), got[0].Sender())
	assert.Equal(t, model.NewIdentity(model.AccountCustomer, 3), got[1].Receiver())
	assert.Equal(t, "hello", got[1].Body)
}

func TestMessageRepository_ShopMessages(t *testing.T) {
	mock, db := setupMockDB(t)
	shopID := int64(11)
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE shop_id = \\$1\\s+ORDER BY created_at DESC").
		WithArgs(int64(11)).
		WillReturnRows(mock.NewRows([]string{
			"message_id", "sender_type", "sender_id", "receiver_type", "receiver_id", "shop_id", "message_text", "is_read", "created_at",
		}).
			AddRow("m2", "admin", int64(5), "customer", int64(7), &shopID, "ready", false, t0.Add(time.Hour)).
			AddRow("m1", "customer", int64(3), "admin", int64(5), &shopID, "hi", true, t0))

	got, err := NewMessageRepository(db).ShopMessages(context.Background(), 11)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m2", got[0].ID)
	assert.Equal(t, model.NewIdentity(model.AccountCustomer, 7), got[0].Receiver())
	assert.True(t, got[1].IsRead)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_MarkRead(t *testing.T) {
	mock, db := setupMockDB(t)
	mock.ExpectExec("UPDATE messages").
		WithArgs(int64(11), int64(3), "customer", int64(5), "admin").
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := NewMessageRepository(db).MarkRead(context.Background(), model.ReadReceipt{
		SenderType:   model.AccountCustomer,
		SenderID:     3,
		ReceiverType: model.AccountAdmin,
		ReceiverID:   5,
		ShopID:       11,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_MarkReadAnyType(t *testing.T) {
	mock, db := setupMockDB(t)
	mock.ExpectExec("UPDATE messages").
		WithArgs(int64(11), int64(3), "", int64(5), "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	n, err := NewMessageRepository(db).MarkRead(context.Background(), model.ReadReceipt{SenderID: 3, ReceiverID: 5, ShopID: 11})

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_Conversations(t *testing.T) {
	mock, db := setupMockDB(t)
	shopID := int64(11)
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WITH mine AS").
		WithArgs("admin", int64(5)).
		WillReturnRows(mock.NewRows([]string{
			"shop_id", "contact_type", "contact_id", "contact_name", "message_text", "created_at", "unread_count",
		}).
			AddRow(&shopID, "customer", int64(3), "Ana Cruz", "is it ready?", t0.Add(time.Hour), int64(2)).
			AddRow(&shopID, "customer", int64(7), "", "thanks", t0, int64(0)))

	got, err := NewMessageRepository(db).Conversations(context.Background(), model.NewIdentity(model.AccountAdmin, 5))

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.AccountCustomer, got[0].ContactType)
	assert.Equal(t, "Ana Cruz", got[0].ContactName)
	assert.Equal(t, int64(2), got[0].UnreadCount)
	assert.Equal(t, t0, got[1].LastMessageTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}
