package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"pallapay-bridge/internal/domain"
)

type PaymentRepo interface {
	CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error
	FindByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.Payment, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) CreatePayment(ctx context.Context, tx *sql.Tx, payment *domain.Payment) error {
	query := `INSERT INTO payments (id, order_id, ref_id, amount, status, created_at) VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.ExecContext(
		ctx, query, payment.ID, payment.OrderID, payment.RefID, payment.Amount, payment.Status, payment.CreatedAt,
	)
	return err
}

func (r *paymentRepo) FindByOrder(ctx context.Context, orderId uuid.UUID) ([]domain.Payment, error) {
	query := `SELECT id, order_id, ref_id, amount, status, created_at FROM payments WHERE order_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, orderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		err := rows.Scan(
			&p.ID,
			&p.OrderID,
			&p.RefID,
			&p.Amount,
			&p.Status,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
