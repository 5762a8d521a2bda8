package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/infrastructure/pallapay"
)

func TestCheckout_ReturnsPaymentLink(t *testing.T) {
	store := newFakeStore()
	order := pendingOrder("10.00")
	store.add(order, 1)
	gateway := &fakeGateway{link: "https://app.pallapay.com/pay/abc"}
	svc := NewCheckoutService(store, gateway, true, false)

	link, err := svc.Checkout(context.Background(), order.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://app.pallapay.com/pay/abc", link)
	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, domain.OrderPending, store.status(order.ID))
	assert.Zero(t, store.settleCalls)
}

func TestCheckout_FailedOrderCanRetry(t *testing.T) {
	store := newFakeStore()
	order := pendingOrder("10.00")
	order.Status = domain.OrderFailed
	store.add(order, 1)
	svc := NewCheckoutService(store, &fakeGateway{link: "https://pay"}, true, false)

	link, err := svc.Checkout(context.Background(), order.ID)

	require.NoError(t, err)
	assert.Equal(t, "https://pay", link)
}

func TestCheckout_Preconditions(t *testing.T) {
	t.Run("disabled gateway", func(t *testing.T) {
		store := newFakeStore()
		order := pendingOrder("10.00")
		store.add(order, 1)
		gateway := &fakeGateway{link: "https://pay"}

		_, err := NewCheckoutService(store, gateway, false, false).Checkout(context.Background(), order.ID)

		assert.ErrorIs(t, err, ErrGatewayDisabled)
		assert.Zero(t, gateway.calls)
	})

	t.Run("unknown order", func(t *testing.T) {
		gateway := &fakeGateway{link: "https://pay"}

		_, err := NewCheckoutService(newFakeStore(), gateway, true, false).Checkout(context.Background(), uuid.New())

		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
		assert.Zero(t, gateway.calls)
	})

	t.Run("completed order", func(t *testing.T) {
		store := newFakeStore()
		order := pendingOrder("10.00")
		order.Status = domain.OrderCompleted
		store.add(order, 0)
		gateway := &fakeGateway{link: "https://pay"}

		_, err := NewCheckoutService(store, gateway, true, false).Checkout(context.Background(), order.ID)

		assert.ErrorIs(t, err, ErrOrderNotPayable)
		assert.Zero(t, gateway.calls)
	})
}

func TestCheckout_UpstreamFailureMarksOrderFailed(t *testing.T) {
	upstream := &pallapay.UpstreamError{StatusCode: 200, Body: []byte(`{"is_successful":false,"message":"bad key"}`)}

	t.Run("production message", func(t *testing.T) {
		store := newFakeStore()
		order := pendingOrder("10.00")
		store.add(order, 1)
		svc := NewCheckoutService(store, &fakeGateway{err: upstream}, true, false)

		link, err := svc.Checkout(context.Background(), order.ID)

		assert.Empty(t, link)
		var checkoutErr *CheckoutError
		require.ErrorAs(t, err, &checkoutErr)
		assert.Equal(t, checkoutFailedMessage, checkoutErr.Message)
		assert.NotContains(t, checkoutErr.Message, "bad key")

		var upstreamErr *pallapay.UpstreamError
		assert.ErrorAs(t, err, &upstreamErr)

		assert.Equal(t, domain.OrderFailed, store.status(order.ID))
		assert.Equal(t, []string{checkoutFailedMessage}, store.notesFor(order.ID))
	})

	t.Run("debug message", func(t *testing.T) {
		store := newFakeStore()
		order := pendingOrder("10.00")
		store.add(order, 1)
		svc := NewCheckoutService(store, &fakeGateway{err: upstream}, true, true)

		_, err := svc.Checkout(context.Background(), order.ID)

		var checkoutErr *CheckoutError
		require.ErrorAs(t, err, &checkoutErr)
		assert.Contains(t, checkoutErr.Message, "bad key")
		assert.Equal(t, domain.OrderFailed, store.status(order.ID))
	})

	t.Run("store failure is reported", func(t *testing.T) {
		store := newFakeStore()
		order := pendingOrder("10.00")
		store.add(order, 1)
		store.settleErr = errors.New("connection reset")
		svc := NewCheckoutService(store, &fakeGateway{err: upstream}, true, false)

		_, err := svc.Checkout(context.Background(), order.ID)

		var settlementErr *SettlementError
		assert.ErrorAs(t, err, &settlementErr)
		var checkoutErr *CheckoutError
		require.ErrorAs(t, err, &checkoutErr)
		assert.Equal(t, checkoutFailedMessage, checkoutErr.Message)
	})
}
