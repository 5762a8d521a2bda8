package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/logging"
	"pallapay-bridge/internal/monitoring"
)

const (
	sweepBatchSize   = 100
	unpaidCancelNote = "Unpaid order cancelled - time limit reached."
)

type StuckOrderStore interface {
	FindStuckOrders(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
	Settle(ctx context.Context, st domain.Settlement) (bool, error)
}

// UnpaidOrderSweeper cancels pending orders that never received a payment
// callback within ttl.
type UnpaidOrderSweeper struct {
	store    StuckOrderStore
	ttl      time.Duration
	interval time.Duration
}

func NewUnpaidOrderSweeper(store StuckOrderStore, ttl, interval time.Duration) *UnpaidOrderSweeper {
	return &UnpaidOrderSweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
	}
}

func (w *UnpaidOrderSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logging.Info("Unpaid order sweeper started",
		zap.Duration("ttl", w.ttl),
		zap.Duration("interval", w.interval),
	)

	for {
		select {
		case <-ctx.Done():
			logging.Info("Unpaid order sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				logging.Error("Unpaid order sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep cancels one batch of expired pending orders and returns how many were cancelled.
// Orders settled by a callback in the meantime are left alone.
func (w *UnpaidOrderSweeper) Sweep(ctx context.Context) (int, error) {
	stuckOrders, err := w.store.FindStuckOrders(ctx, w.ttl, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(stuckOrders) == 0 {
		return 0, nil
	}

	logging.Info("Found unpaid orders", zap.Int("count", len(stuckOrders)))

	cancelled := 0
	for _, order := range stuckOrders {
		applied, err := w.cancel(ctx, order.ID)
		if err != nil {
			logging.Error("Failed to cancel unpaid order",
				zap.Error(err),
				zap.String("order_id", order.ID.String()),
			)
			continue
		}
		if applied {
			cancelled++
		}
	}

	monitoring.SweptOrders.Add(ctx, int64(cancelled))
	return cancelled, nil
}

func (w *UnpaidOrderSweeper) cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	return w.store.Settle(ctx, domain.Settlement{
		OrderID: id,
		From:    []domain.OrderStatus{domain.OrderPending},
		To:      domain.OrderCancelled,
		Note:    unpaidCancelNote,
	})
}
