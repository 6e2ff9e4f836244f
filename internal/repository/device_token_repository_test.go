package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/laundry-marketplace/internal/model"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTokenRepository_UpsertToken(t *testing.T) {
	mock, db := setupMockDB(t)
	shopID := int64(11)
	mock.ExpectExec("INSERT INTO device_tokens").
		WithArgs(int64(5), "admin", &shopID, "fcm-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := NewDeviceTokenRepository(db).UpsertToken(context.Background(), model.NewIdentity(model.AccountAdmin, 5), &shopID, "fcm-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeviceTokenRepository_SetActive(t *testing.T) {
	mock, db := setupMockDB(t)
	mock.ExpectExec("UPDATE device_tokens").
		WithArgs(int64(5), "admin", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewDeviceTokenRepository(db).SetActive(context.Background(), model.NewIdentity(model.AccountAdmin, 5), false)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDeviceTokenRepository_DeactivateToken(t *testing.T) {
	mock, db := setupMockDB(t)
	repo := NewDeviceTokenRepository(db)
	mock.ExpectExec("UPDATE device_tokens").WithArgs("known").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE device_tokens").WithArgs("unknown").WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.DeactivateToken(context.Background(), "known"))
	assert.ErrorIs(t, repo.DeactivateToken(context.Background(), "unknown"), ErrDeviceTokenNotFound)
}

func TestDeviceTokenRepository_ActiveTokens(t *testing.T) {
	mock, db := setupMockDB(t)
	mock.ExpectQuery("SELECT token").
		WithArgs(int64(3), "customer").
		WillReturnRows(mock.NewRows([]string{"token"}).AddRow("phone").AddRow("tablet"))

	tokens, err := NewDeviceTokenRepository(db).ActiveTokens(context.Background(), model.NewIdentity(model.AccountCustomer, 3))

	require.NoError(t, err)
	assert.Equal(t, []string{"phone", "tablet"}, tokens)
}

func TestDeviceTokenRepository_LatestToken(t *testing.T) {
	mock, db := setupMockDB(t)
	repo := NewDeviceTokenRepository(db)
	mock.ExpectQuery("LIMIT 1").WithArgs(int64(3), "customer").
		WillReturnRows(mock.NewRows([]string{"token"}).AddRow("phone"))
	mock.ExpectQuery("LIMIT 1").WithArgs(int64(4), "customer").
		WillReturnError(pgx.ErrNoRows)

	token, err := repo.LatestToken(context.Background(), model.NewIdentity(model.AccountCustomer, 3))
	require.NoError(t, err)
	assert.Equal(t, "phone", token)

	_, err = repo.LatestToken(context.Background(), model.NewIdentity(model.AccountCustomer, 4))
	assert.ErrorIs(t, err, ErrDeviceTokenNotFound)
}

func TestDeviceTokenRepository_PruneInactive(t *testing.T) {
	mock, db := setupMockDB(t)
	cutoff := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("DELETE FROM device_tokens").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := NewDeviceTokenRepository(db).PruneInactive(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestDeviceTokenRepository_ListTokens(t *testing.T) {
	mock, db := setupMockDB(t)
	shopID := int64(11)
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, account_id, account_type, shop_id, token").
		WithArgs(int64(5), "admin").
		WillReturnRows(mock.NewRows([]string{
			"id", "account_id", "account_type", "shop_id", "token", "is_active", "created_at", "updated_at",
		}).
			AddRow(int64(2), int64(5), "admin", &shopID, "tablet", true, t0, t0.Add(time.Hour)).
			AddRow(int64(1), int64(5), "admin", nil, "old-phone", false, t0, t0))

	tokens, err := NewDeviceTokenRepository(db).ListTokens(context.Background(), model.NewIdentity(model.AccountAdmin, 5))

	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "tablet", tokens[0].Token)
	assert.Equal(t, model.AccountAdmin, tokens[0].AccountType)
	assert.Equal(t, &shopID, tokens[0].ShopID)
	assert.Nil(t, tokens[1].ShopID)
	assert.False(t, tokens[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
