package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"pallapay-bridge/internal/domain"
)

type OrderRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	// TransitionStatus moves the order to `to` only if its current status is in
	// `from`. It reports whether a row changed.
	TransitionStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error)
	AddNote(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, note string) error
	FindNotes(ctx context.Context, orderId uuid.UUID) ([]domain.OrderNote, error)
	FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, total, currency, status, billing_email, billing_first_name, billing_last_name, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, order *domain.Order) error {
	return row.Scan(
		&order.ID,
		&order.UserID,
		&order.Total,
		&order.Currency,
		&order.Status,
		&order.BillingEmail,
		&order.BillingFirstName,
		&order.BillingLastName,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id), &order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		order.ID, order.UserID, order.Total, order.Currency, order.Status,
		order.BillingEmail, order.BillingFirstName, order.BillingLastName,
		order.CreatedAt, order.UpdatedAt,
	)
	return err
}

func (r *orderRepo) TransitionStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = now() WHERE id = $2 AND status = ANY($3)",
		to, id, allowed,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *orderRepo) AddNote(ctx context.Context, tx *sql.Tx, orderId uuid.UUID, note string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO order_notes (id, order_id, note, created_at) VALUES ($1, $2, $3, now())",
		uuid.New(), orderId, note,
	)
	return err
}

func (r *orderRepo) FindNotes(ctx context.Context, orderId uuid.UUID) ([]domain.OrderNote, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, order_id, note, created_at FROM order_notes WHERE order_id = $1 ORDER BY created_at, id",
		orderId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// FindStuckOrders returns pending orders untouched for longer than olderThan.
func (r *orderRepo) FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT $3",
		domain.OrderPending, time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
