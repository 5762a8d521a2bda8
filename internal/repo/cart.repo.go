package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type CartItem struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ProductID string
	Quantity  int
}

type CartRepo interface {
	AddItem(ctx context.Context, tx *sql.Tx, item *CartItem) error
	EmptyCart(ctx context.Context, tx *sql.Tx, userId uuid.UUID) error
	CountItems(ctx context.Context, userId uuid.UUID) (int, error)
}

type cartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) CartRepo {
	return &cartRepo{db: db}
}

func (r *cartRepo) AddItem(ctx context.Context, tx *sql.Tx, item *CartItem) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO cart_items (id, user_id, product_id, quantity) VALUES ($1, $2, $3, $4)",
		item.ID, item.UserID, item.ProductID, item.Quantity,
	)
	return err
}

func (r *cartRepo) EmptyCart(ctx context.Context, tx *sql.Tx, userId uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userId)
	return err
}

func (r *cartRepo) CountItems(ctx context.Context, userId uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM cart_items WHERE user_id = $1", userId).Scan(&n)
	return n, err
}
