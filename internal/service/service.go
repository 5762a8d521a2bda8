package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"pallapay-bridge/internal/domain"
)

var (
	ErrGatewayDisabled = errors.New("pallapay gateway is disabled")
	ErrOrderNotPayable = errors.New("order is not awaiting payment")
)

// OrderStore is the part of the order system the payment flows depend on.
type OrderStore interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Settle(ctx context.Context, st domain.Settlement) (bool, error)
}

// SettlementError wraps a store failure while writing an order transition.
// The transition is rolled back when this is returned.
type SettlementError struct {
	OrderID uuid.UUID
	Err     error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settle order %s: %v", e.OrderID, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
