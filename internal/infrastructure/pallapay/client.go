package pallapay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"pallapay-bridge/internal/domain"
	"pallapay-bridge/internal/monitoring"
)

const (
	DefaultBaseURL = "https://app.pallapay.com"
	PaymentsPath   = "/api/v1/api/payments"

	HeaderAPIKey    = "X-Palla-Api-Key"
	HeaderSign      = "X-Palla-Sign"
	HeaderTimestamp = "X-Palla-Timestamp"

	OrderIDPlaceholder = "{order_id}"
)

var (
	errNotSuccessful  = errors.New("is_successful is false")
	errNoPaymentLink  = errors.New("response has no payment_link")
	errMalformedReply = errors.New("malformed response")
)

type PaymentGateway interface {
	// CreatePaymentLink registers a hosted payment for order and returns the buyer redirect URL.
	CreatePaymentLink(ctx context.Context, order *domain.Order) (string, error)
}

type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Timeout   time.Duration

	// WebhookURL is where Pallapay posts the payment callback.
	WebhookURL string
	// SuccessURLTemplate and FailedURLTemplate may contain {order_id}.
	SuccessURLTemplate string
	FailedURLTemplate  string

	// Transport defaults to http.DefaultTransport; it is always wrapped by otelhttp.
	Transport http.RoundTripper
	// Now defaults to time.Now.
	Now func() time.Time
}

// PaymentRequest is the body of the payment creation call.
type PaymentRequest struct {
	Symbol            string `json:"symbol"`
	Amount            string `json:"amount"`
	WebhookURL        string `json:"webhook_url"`
	IPNSuccessURL     string `json:"ipn_success_url"`
	IPNFailedURL      string `json:"ipn_failed_url"`
	PayerEmailAddress string `json:"payer_email_address"`
	PayerFirstName    string `json:"payer_first_name"`
	PayerLastName     string `json:"payer_last_name"`
	Note              string `json:"note"`
}

type paymentResponse struct {
	IsSuccessful any             `json:"is_successful"`
	Data         json.RawMessage `json:"data"`
}

type paymentData struct {
	PaymentLink string `json:"payment_link"`
}

type Client struct {
	rc        *resty.Client
	apiKey    string
	secretKey string
	cfg       Config
	now       func() time.Time
}

var _ PaymentGateway = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetTransport(otelhttp.NewTransport(transport))

	return &Client{
		rc:        rc,
		apiKey:    cfg.APIKey,
		secretKey: cfg.SecretKey,
		cfg:       cfg,
		now:       now,
	}
}

// NewPaymentRequest builds the payment creation body for order. The order id
// travels in Note and comes back as data.note in the callback.
func (c *Client) NewPaymentRequest(order *domain.Order) PaymentRequest {
	id := order.ID.String()
	return PaymentRequest{
		Symbol:            order.Currency,
		Amount:            order.Total.StringFixed(2),
		WebhookURL:        c.cfg.WebhookURL,
		IPNSuccessURL:     strings.ReplaceAll(c.cfg.SuccessURLTemplate, OrderIDPlaceholder, id),
		IPNFailedURL:      strings.ReplaceAll(c.cfg.FailedURLTemplate, OrderIDPlaceholder, id),
		PayerEmailAddress: order.BillingEmail,
		PayerFirstName:    order.BillingFirstName,
		PayerLastName:     order.BillingLastName,
		Note:              id,
	}
}

func (c *Client) CreatePaymentLink(ctx context.Context, order *domain.Order) (string, error) {
	ctx, span := monitoring.Tracer.Start(ctx, "pallapay.create_payment")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.String("order.currency", order.Currency),
	)

	body, err := json.Marshal(c.NewPaymentRequest(order))
	if err != nil {
		return "", err
	}

	timestamp := c.now().Unix()
	signature := RequestSignature(c.secretKey, http.MethodPost, PaymentsPath, timestamp)

	start := time.Now()
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderAPIKey, c.apiKey).
		SetHeader(HeaderSign, signature).
		SetHeader(HeaderTimestamp, strconv.FormatInt(timestamp, 10)).
		SetBody(body).
		Post(PaymentsPath)
	duration := time.Since(start).Seconds()

	if err != nil {
		c.recordCall(ctx, duration, "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return "", &UpstreamError{Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	link, err := parsePaymentResponse(resp.StatusCode(), resp.Body())
	if err != nil {
		c.recordCall(ctx, duration, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "payment not created")
		return "", err
	}

	c.recordCall(ctx, duration, "success")
	return link, nil
}

func (c *Client) recordCall(ctx context.Context, seconds float64, status string) {
	monitoring.ExternalCallDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

func parsePaymentResponse(statusCode int, body []byte) (string, error) {
	if statusCode < 200 || statusCode > 299 {
		return "", &UpstreamError{StatusCode: statusCode, Body: body}
	}

	var pr paymentResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", &UpstreamError{StatusCode: statusCode, Body: body, Err: errMalformedReply}
	}
	if !truthy(pr.IsSuccessful) {
		return "", &UpstreamError{StatusCode: statusCode, Body: body, Err: errNotSuccessful}
	}

	var data paymentData
	if err := json.Unmarshal(pr.Data, &data); err != nil {
		return "", &UpstreamError{StatusCode: statusCode, Body: body, Err: errMalformedReply}
	}
	if data.PaymentLink == "" {
		return "", &UpstreamError{StatusCode: statusCode, Body: body, Err: errNoPaymentLink}
	}
	return data.PaymentLink, nil
}

// truthy follows loose boolean semantics so is_successful may arrive as a bool,
// number, string or collection. Empty collections are false.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != "" && val != "0"
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
