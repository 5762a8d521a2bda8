package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/logging"
	"pallapay-bridge/internal/service"
)

const maxCallbackBytes = 1 << 20

// legacyCallbackMarkers are the wc-api query values older webhook URLs carry.
var legacyCallbackMarkers = []string{"wc_pallapay", "wc_pallapay_ppg"}

// PaymentHandler handles checkout and Pallapay callback requests
type PaymentHandler struct {
	checkout  service.CheckoutService
	callbacks service.CallbackService
}

func NewPaymentHandler(checkout service.CheckoutService, callbacks service.CallbackService) *PaymentHandler {
	return &PaymentHandler{
		checkout:  checkout,
		callbacks: callbacks,
	}
}

// Checkout starts a payment for the order and returns where to send the buyer.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"result": "failure", "message": "invalid order id"})
		return
	}

	link, err := h.checkout.Checkout(ctx, orderID)
	if err != nil {
		status, message := checkoutFailure(err)
		if status >= http.StatusInternalServerError {
			logging.WithTraceContext(trace.SpanFromContext(ctx)).Error("Checkout failed",
				zap.Error(err),
				zap.String("order_id", orderID.String()),
			)
		}
		c.JSON(status, gin.H{"result": "failure", "message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "redirect": link})
}

func checkoutFailure(err error) (int, string) {
	var checkoutErr *service.CheckoutError
	switch {
	case errors.As(err, &checkoutErr):
		return http.StatusBadGateway, checkoutErr.Message
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrOrderNotPayable):
		return http.StatusConflict, "order is not awaiting payment"
	case errors.Is(err, service.ErrGatewayDisabled):
		return http.StatusServiceUnavailable, "payment method is not available"
	default:
		return http.StatusInternalServerError, "Order payment failed. Please try again later."
	}
}

// Callback receives the Pallapay payment callback. The response body is plain
// text and the request ends here.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	result := h.callbacks.HandleCallback(c.Request.Context(), body)
	c.Data(callbackStatus(result), "text/plain; charset=utf-8", []byte(result.String()))
	c.Abort()
}

// LegacyCallback serves callbacks posted to the site root with a wc-api marker.
func (h *PaymentHandler) LegacyCallback(c *gin.Context) {
	marker := strings.ToLower(c.Query("wc-api"))
	for _, m := range legacyCallbackMarkers {
		if marker == m {
			h.Callback(c)
			return
		}
	}
	c.AbortWithStatus(http.StatusNotFound)
}

func callbackStatus(result service.CallbackResult) int {
	switch result {
	case service.CallbackInvalid:
		return http.StatusBadRequest
	case service.CallbackError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
