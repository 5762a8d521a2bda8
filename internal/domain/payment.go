package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment records a verified processor callback that settled an order.
type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	RefID     string
	Amount    decimal.Decimal
	Status    PaymentStatus
	CreatedAt time.Time
}
