package domain

import "github.com/google/uuid"

// Settlement is one atomic order transition. The status only changes when the
// order is currently in one of From; every other write is skipped otherwise.
type Settlement struct {
	OrderID uuid.UUID
	From    []OrderStatus
	To      OrderStatus
	Note    string

	// EmptyCartFor clears the cart of this user when set.
	EmptyCartFor *uuid.UUID

	// Payment is recorded alongside the transition when set.
	Payment *Payment
}
