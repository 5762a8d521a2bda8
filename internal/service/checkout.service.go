package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/infrastructure/pallapay"
	"pallapay-bridge/internal/logging"
	"pallapay-bridge/internal/monitoring"
)

const checkoutFailedMessage = "Order payment failed. Please try again later."

// CheckoutError is returned when a payment link could not be created. Message
// is safe to show to the buyer.
type CheckoutError struct {
	OrderID uuid.UUID
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout order %s: %v", e.OrderID, e.Err)
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

type CheckoutService interface {
	// Checkout returns the Pallapay URL the buyer should be redirected to.
	Checkout(ctx context.Context, orderId uuid.UUID) (string, error)
}

type checkoutService struct {
	store   OrderStore
	gateway pallapay.PaymentGateway
	enabled bool
	debug   bool
}

func NewCheckoutService(store OrderStore, gateway pallapay.PaymentGateway, enabled, debug bool) CheckoutService {
	return &checkoutService{
		store:   store,
		gateway: gateway,
		enabled: enabled,
		debug:   debug,
	}
}

func (s *checkoutService) Checkout(ctx context.Context, orderId uuid.UUID) (string, error) {
	ctx, span := monitoring.Tracer.Start(ctx, "checkout")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderId.String()))
	logger := logging.WithTraceContext(span)

	if !s.enabled {
		return "", ErrGatewayDisabled
	}

	order, err := s.store.FindById(ctx, orderId)
	if err != nil {
		return "", err
	}

	if !order.Settleable() {
		return "", ErrOrderNotPayable
	}

	link, err := s.gateway.CreatePaymentLink(ctx, order)
	if err == nil {
		s.count(ctx, "success")
		logger.Info("Payment link created", zap.String("order_id", order.ID.String()))
		return link, nil
	}

	s.count(ctx, "failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, "payment link not created")
	logger.Error("Payment link creation failed",
		zap.Error(err),
		zap.String("order_id", order.ID.String()),
	)

	message := checkoutFailedMessage
	if s.debug {
		message = err.Error()
	}

	if _, serr := s.store.Settle(ctx, domain.Settlement{
		OrderID: order.ID,
		From:    domain.SettleableStatuses,
		To:      domain.OrderFailed,
		Note:    message,
	}); serr != nil {
		logger.Error("Failed to mark order failed",
			zap.Error(serr),
			zap.String("order_id", order.ID.String()),
		)
		err = errors.Join(err, &SettlementError{OrderID: order.ID, Err: serr})
	}

	return "", &CheckoutError{OrderID: order.ID, Message: message, Err: err}
}

func (s *checkoutService) count(ctx context.Context, outcome string) {
	monitoring.CheckoutCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
