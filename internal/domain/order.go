package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderOnHold     OrderStatus = "on-hold"
)

var ErrOrderNotFound = errors.New("order not found")

// SettleableStatuses are the only statuses a payment callback may move an order out of.
var SettleableStatuses = []OrderStatus{OrderPending, OrderFailed}

type Order struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Total            decimal.Decimal
	Currency         string
	Status           OrderStatus
	BillingEmail     string
	BillingFirstName string
	BillingLastName  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Settleable reports whether the order may still be paid or declined by the processor.
func (o *Order) Settleable() bool {
	for _, s := range SettleableStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

type OrderNote struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Note      string
	CreatedAt time.Time
}
