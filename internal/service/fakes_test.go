package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pallapay-bridge/internal/domain"
)

type fakeStore struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*domain.Order
	notes      map[uuid.UUID][]string
	cartItems  map[uuid.UUID]int
	cartClears int
	payments   []domain.Payment

	settleCalls int
	findErr     error
	settleErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:    make(map[uuid.UUID]*domain.Order),
		notes:     make(map[uuid.UUID][]string),
		cartItems: make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) add(order *domain.Order, cartItems int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := *order
	f.orders[o.ID] = &o
	f.cartItems[o.UserID] = cartItems
}

func (f *fakeStore) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) Settle(ctx context.Context, st domain.Settlement) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settleCalls++
	if f.settleErr != nil {
		return false, f.settleErr
	}

	o, ok := f.orders[st.OrderID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range st.From {
		if o.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}

	o.Status = st.To
	o.UpdatedAt = time.Now()
	if st.Note != "" {
		f.notes[o.ID] = append(f.notes[o.ID], st.Note)
	}
	if st.EmptyCartFor != nil {
		f.cartItems[*st.EmptyCartFor] = 0
		f.cartClears++
	}
	if st.Payment != nil {
		f.payments = append(f.payments, *st.Payment)
	}
	return true, nil
}

func (f *fakeStore) status(id uuid.UUID) domain.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

func (f *fakeStore) notesFor(id uuid.UUID) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notes[id]...)
}

type fakeGateway struct {
	mu    sync.Mutex
	link  string
	err   error
	calls int
}

func (g *fakeGateway) CreatePaymentLink(ctx context.Context, order *domain.Order) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.link, g.err
}

func pendingOrder(total string) *domain.Order {
	return &domain.Order{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		Total:            decimal.RequireFromString(total),
		Currency:         "USD",
		Status:           domain.OrderPending,
		BillingEmail:     "alice@example.com",
		BillingFirstName: "Alice",
		BillingLastName:  "Liddell",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}
