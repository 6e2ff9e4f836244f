package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/laundry-marketplace/pkg/database"
)

// ShopRepository resolves shop ownership
type ShopRepository struct {
	db *database.PostgresDB
}

// NewShopRepository creates a new shop repository
func NewShopRepository(db *database.PostgresDB) *ShopRepository {
	return &ShopRepository{db: db}
}

// ShopAdminID returns the admin account owning a shop
func (r *ShopRepository) ShopAdminID(ctx context.Context, shopID int64) (int64, error) {
	var adminID int64
	err := r.db.QueryRowContext(ctx, `SELECT admin_id FROM shop WHERE shop_id = $1`, shopID).Scan(&adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrShopNotFound
		}
		return 0, fmt.Errorf("failed to get shop admin: %w", err)
	}
	return adminID, nil
}
