package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pallapay-bridge/internal/config"
	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/service"
)

type stubCheckout struct {
	link string
	err  error
	got  uuid.UUID
}

func (s *stubCheckout) Checkout(_ context.Context, orderId uuid.UUID) (string, error) {
	s.got = orderId
	return s.link, s.err
}

type stubCallbacks struct {
	result service.CallbackResult
	body   []byte
	calls  int
}

func (s *stubCallbacks) HandleCallback(_ context.Context, body []byte) service.CallbackResult {
	s.calls++
	s.body = body
	return s.result
}

type stubHealth map[string]string

func (s stubHealth) Health(context.Context) map[string]string { return s }

func newTestRouter(checkout *stubCheckout, callbacks *stubCallbacks, health HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	gw := config.Gateway{Enabled: true, Title: "Pallapay", Description: "Pay with crypto"}
	return NewRouter(
		RouterConfig{ServiceName: "test", CORSAllowedOrigins: []string{"https://shop.example"}},
		NewPaymentHandler(checkout, callbacks),
		NewGatewayHandler(gw, health),
	)
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckout_Success(t *testing.T) {
	checkout := &stubCheckout{link: "https://app.pallapay.com/pay/abc"}
	r := newTestRouter(checkout, &stubCallbacks{}, nil)
	id := uuid.New()

	w := do(r, http.MethodPost, "/checkout/"+id.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "success", got["result"])
	assert.Equal(t, "https://app.pallapay.com/pay/abc", got["redirect"])
	assert.Equal(t, id, checkout.got)
}

func TestCheckout_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "gateway failure shows buyer message",
			err:     &service.CheckoutError{Message: "Order payment failed. Please try again later.", Err: errors.New("boom")},
			status:  http.StatusBadGateway,
			message: "Order payment failed. Please try again later.",
		},
		{name: "unknown order", err: domain.ErrOrderNotFound, status: http.StatusNotFound, message: "order not found"},
		{name: "already paid", err: service.ErrOrderNotPayable, status: http.StatusConflict, message: "order is not awaiting payment"},
		{name: "disabled", err: service.ErrGatewayDisabled, status: http.StatusServiceUnavailable, message: "payment method is not available"},
		{name: "unexpected", err: errors.New("db down"), status: http.StatusInternalServerError, message: "Order payment failed. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubCheckout{err: tt.err}, &stubCallbacks{}, nil)

			w := do(r, http.MethodPost, "/checkout/"+uuid.NewString(), "")

			assert.Equal(t, tt.status, w.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, "failure", got["result"])
			assert.Equal(t, tt.message, got["message"])
		})
	}
}

func TestCheckout_InvalidOrderID(t *testing.T) {
	checkout := &stubCheckout{}
	r := newTestRouter(checkout, &stubCallbacks{}, nil)

	w := do(r, http.MethodPost, "/checkout/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, uuid.Nil, checkout.got)
}

func TestCallback_ResponseBodies(t *testing.T) {
	tests := []struct {
		result service.CallbackResult
		status int
		body   string
	}{
		{service.CallbackOK, http.StatusOK, "OK"},
		{service.CallbackInvalid, http.StatusBadRequest, "Invalid Request"},
		{service.CallbackError, http.StatusInternalServerError, "Error"},
		{service.CallbackIgnored, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.result.String(), func(t *testing.T) {
			callbacks := &stubCallbacks{result: tt.result}
			r := newTestRouter(&stubCheckout{}, callbacks, nil)

			w := do(r, http.MethodPost, CallbackPath, `{"data":{},"approval_hash":"x"}`)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
			assert.Equal(t, `{"data":{},"approval_hash":"x"}`, string(callbacks.body))
		})
	}
}

func TestCallback_LegacyRoute(t *testing.T) {
	for _, target := range []string{"/?wc-api=wc_pallapay", "/?wc-api=WC_Pallapay_PPG"} {
		callbacks := &stubCallbacks{result: service.CallbackOK}
		r := newTestRouter(&stubCheckout{}, callbacks, nil)

		w := do(r, http.MethodPost, target, `{}`)

		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, "OK", w.Body.String(), target)
		assert.Equal(t, 1, callbacks.calls, target)
	}

	callbacks := &stubCallbacks{result: service.CallbackOK}
	r := newTestRouter(&stubCheckout{}, callbacks, nil)
	w := do(r, http.MethodPost, "/?wc-api=something_else", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, callbacks.calls)
}

func TestGatewayDescriptor(t *testing.T) {
	r := newTestRouter(&stubCheckout{}, &stubCallbacks{}, nil)

	w := do(r, http.MethodGet, "/gateway", "")

	require.Equal(t, http.StatusOK, w.Code)
	var got GatewayDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, GatewayDescriptor{
		ID:          "pallapay",
		Title:       "Pallapay",
		Description: "Pay with crypto",
		Supports:    []string{"pre-orders", "products"},
		Active:      true,
	}, got)
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(&stubCheckout{}, &stubCallbacks{}, stubHealth{"status": "up"})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)

	r = newTestRouter(&stubCheckout{}, &stubCallbacks{}, stubHealth{"status": "down", "error": "db down"})
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(&stubCheckout{}, &stubCallbacks{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/gateway", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&stubCheckout{}, &stubCallbacks{}, nil)

	w := do(r, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
}
