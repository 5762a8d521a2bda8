package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/infrastructure/pallapay"
	"pallapay-bridge/internal/logging"
	"pallapay-bridge/internal/monitoring"
)

const statusPaid = "PAID"

// CallbackResult is the outcome of a payment callback. String gives the
// plain-text response body.
type CallbackResult int

const (
	// CallbackIgnored means the body was not a payment callback; nothing is written back.
	CallbackIgnored CallbackResult = iota
	CallbackOK
	CallbackInvalid
	CallbackError
)

func (r CallbackResult) String() string {
	switch r {
	case CallbackOK:
		return "OK"
	case CallbackInvalid:
		return "Invalid Request"
	case CallbackError:
		return "Error"
	default:
		return ""
	}
}

func (r CallbackResult) label() string {
	if r == CallbackIgnored {
		return "ignored"
	}
	return r.String()
}

type CallbackService interface {
	// HandleCallback verifies a Pallapay callback and settles the order it refers to.
	HandleCallback(ctx context.Context, body []byte) CallbackResult
}

type callbackService struct {
	store     OrderStore
	secretKey string
	now       func() time.Time
}

func NewCallbackService(store OrderStore, secretKey string) CallbackService {
	return &callbackService{
		store:     store,
		secretKey: secretKey,
		now:       time.Now,
	}
}

type callback struct {
	data         map[string]any
	approvalHash string
}

func (c *callback) field(key string) string {
	return pallapay.ScalarString(c.data[key])
}

func (s *callbackService) HandleCallback(ctx context.Context, body []byte) CallbackResult {
	ctx, span := monitoring.Tracer.Start(ctx, "pallapay.callback")
	defer span.End()

	result := s.handle(ctx, body)

	span.SetAttributes(attribute.String("callback.result", result.label()))
	if result == CallbackError {
		span.SetStatus(codes.Error, "callback not processed")
	}
	monitoring.CallbackCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result.label())),
	)
	return result
}

func (s *callbackService) handle(ctx context.Context, body []byte) CallbackResult {
	logger := logging.WithTraceContext(trace.SpanFromContext(ctx))

	cb, ok := parseCallback(body)
	if !ok {
		logger.Debug("Ignoring request without callback payload")
		return CallbackIgnored
	}

	note := cb.field("note")
	if note == "" {
		logger.Debug("Ignoring callback without order reference")
		return CallbackIgnored
	}

	// The signature is checked before the order is read so a forged payload
	// gets the same answer whatever order it names.
	if !pallapay.VerifyCallback(s.secretKey, cb.data, cb.approvalHash) {
		logger.Warn("Rejected callback with invalid approval hash")
		return CallbackInvalid
	}

	logger = logger.With(zap.String("order_id", note), zap.String("ref_id", cb.field("ref_id")))

	orderID, err := uuid.Parse(note)
	if err != nil {
		logger.Error("Callback references a malformed order id", zap.Error(err))
		return CallbackError
	}

	order, err := s.store.FindById(ctx, orderID)
	if err != nil {
		logger.Error("Callback order lookup failed", zap.Error(err))
		return CallbackError
	}

	status := cb.field("status")
	if !order.Settleable() {
		if status == statusPaid && order.Status != domain.OrderCompleted {
			logger.Warn("Payment received for an order that can no longer be completed",
				zap.String("status", string(order.Status)),
				zap.String("payment_amount", parseAmount(cb.data["payment_amount"]).String()),
			)
			return CallbackOK
		}
		logger.Info("Order already settled, callback skipped", zap.String("status", string(order.Status)))
		return CallbackOK
	}

	amount := parseAmount(cb.data["payment_amount"])
	st := s.settlement(order, cb, status, amount)

	applied, err := s.store.Settle(ctx, st)
	if err != nil {
		serr := &SettlementError{OrderID: order.ID, Err: err}
		logger.Error("Settlement failed", zap.Error(serr))
		return CallbackError
	}
	if !applied {
		logger.Info("Order settled by a concurrent callback")
		return CallbackOK
	}

	logger.Info("Order settled",
		zap.String("status", string(st.To)),
		zap.String("callback_status", status),
		zap.String("payment_amount", amount.String()),
	)
	return CallbackOK
}

func (s *callbackService) settlement(order *domain.Order, cb *callback, status string, amount decimal.Decimal) domain.Settlement {
	refID := cb.field("ref_id")
	payment := &domain.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		RefID:     refID,
		Amount:    amount,
		CreatedAt: s.now(),
	}

	if status == statusPaid && amount.Equal(order.Total) {
		payment.Status = domain.PaymentSucceeded
		userID := order.UserID
		return domain.Settlement{
			OrderID:      order.ID,
			From:         domain.SettleableStatuses,
			To:           domain.OrderCompleted,
			Note:         "Pallapay payment successful. Pallapay Payment Ref ID: " + refID,
			EmptyCartFor: &userID,
			Payment:      payment,
		}
	}

	payment.Status = domain.PaymentFailed
	return domain.Settlement{
		OrderID: order.ID,
		From:    domain.SettleableStatuses,
		To:      domain.OrderFailed,
		Note:    fmt.Sprintf("Pallapay transaction declined (status %q, amount %s). Pallapay Payment Ref ID: %s", status, amount.String(), refID),
		Payment: payment,
	}
}

// parseCallback accepts a body carrying both a data object and an approval_hash.
func parseCallback(body []byte) (*callback, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}

	rawData, ok := envelope["data"]
	if !ok || isNull(rawData) {
		return nil, false
	}
	rawHash, ok := envelope["approval_hash"]
	if !ok || isNull(rawHash) {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(rawData))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil || data == nil {
		return nil, false
	}

	var hash any
	if err := json.Unmarshal(rawHash, &hash); err != nil {
		return nil, false
	}

	return &callback{data: data, approvalHash: pallapay.ScalarString(hash)}, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// parseAmount reads payment_amount, which may arrive as a JSON number or a
// numeric string. Anything unparseable counts as zero.
func parseAmount(v any) decimal.Decimal {
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = strings.TrimSpace(val)
	default:
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
