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

// DeviceTokenRepository handles database operations for push device tokens
type DeviceTokenRepository struct {
	db *database.PostgresDB
}

// NewDeviceTokenRepository creates a new device token repository
func NewDeviceTokenRepository(db *database.PostgresDB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// UpsertToken registers a token for an identity, reactivating it if it already exists
func (r *DeviceTokenRepository) UpsertToken(ctx context.Context, owner model.Identity, shopID *int64, token string) error {
	query := `
		INSERT INTO device_tokens (account_id, account_type, shop_id, token, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (token) DO UPDATE
		SET account_id = EXCLUDED.account_id,
		    account_type = EXCLUDED.account_type,
		    shop_id = EXCLUDED.shop_id,
		    is_active = TRUE,
		    updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, owner.AccountID, string(owner.AccountType), shopID, token); err != nil {
		return fmt.Errorf("failed to upsert device token: %w", err)
	}
	return nil
}

// SetActive flips is_active on every token of an identity and returns how many rows changed
func (r *DeviceTokenRepository) SetActive(ctx context.Context, owner model.Identity, active bool) (int64, error) {
	query := `
		UPDATE device_tokens
		SET is_active = $3, updated_at = NOW()
		WHERE account_id = $1 AND account_type = $2
	`

	tag, err := r.db.ExecContext(ctx, query, owner.AccountID, string(owner.AccountType), active)
	if err != nil {
		return 0, fmt.Errorf("failed to set device token activity: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeactivateToken marks a single token inactive
func (r *DeviceTokenRepository) DeactivateToken(ctx context.Context, token string) error {
	tag, err := r.db.ExecContext(ctx, `UPDATE device_tokens SET is_active = FALSE, updated_at = NOW() WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate device token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceTokenNotFound
	}
	return nil
}

// DeleteToken removes a token row
func (r *DeviceTokenRepository) DeleteToken(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}

// ActiveTokens returns every active token of an identity
func (r *DeviceTokenRepository) ActiveTokens(ctx context.Context, owner model.Identity) ([]string, error) {
	query := `
		SELECT token
		FROM device_tokens
		WHERE account_id = $1 AND account_type = $2 AND is_active = TRUE
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, owner.AccountID, string(owner.AccountType))
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}

	return tokens, nil
}

// LatestToken returns the most recently updated active token of an identity
func (r *DeviceTokenRepository) LatestToken(ctx context.Context, owner model.Identity) (string, error) {
	query := `
		SELECT token
		FROM device_tokens
		WHERE account_id = $1 AND account_type = $2 AND is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var token string
	err := r.db.QueryRowContext(ctx, query, owner.AccountID, string(owner.AccountType)).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrDeviceTokenNotFound
		}
		return "", fmt.Errorf("failed to get device token: %w", err)
	}
	return token, nil
}

// ListTokens returns every registration of an identity, most recently updated first
func (r *DeviceTokenRepository) ListTokens(ctx context.Context, owner model.Identity) ([]*model.DeviceToken, error) {
	query := `
		SELECT id, account_id, account_type, shop_id, token, is_active, created_at, updated_at
		FROM device_tokens
		WHERE account_id = $1 AND account_type = $2
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, owner.AccountID, string(owner.AccountType))
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]*model.DeviceToken, 0)
	for rows.Next() {
		var (
			t           model.DeviceToken
			accountType string
		)
		if err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&accountType,
			&t.ShopID,
			&t.Token,
			&t.IsActive,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		t.AccountType = model.AccountType(accountType)
		tokens = append(tokens, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}

	return tokens, nil
}

// PruneInactive deletes inactive tokens not touched since cutoff
func (r *DeviceTokenRepository) PruneInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE is_active = FALSE AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune device tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
