package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pallapay-bridge/internal/logging"
)

const instrumentationName = "pallapay-bridge"

// Tracer and the instruments below go through the otel globals, so they are
// usable before InitTracer/InitMeter run and pick up the real providers after.
var (
	Tracer trace.Tracer = otel.Tracer(instrumentationName)

	CheckoutCounter      metric.Int64Counter
	CallbackCounter      metric.Int64Counter
	SweptOrders          metric.Int64Counter
	ExternalCallDuration metric.Float64Histogram
	HTTPServerDuration   metric.Float64Histogram
)

func init() {
	if err := registerInstruments(otel.Meter(instrumentationName)); err != nil {
		panic(fmt.Sprintf("monitoring: register instruments: %v", err))
	}
}

func registerInstruments(meter metric.Meter) error {
	var err error

	CheckoutCounter, err = meter.Int64Counter(
		"pallapay_checkouts_total",
		metric.WithDescription("Payment links requested from Pallapay, by outcome"),
	)
	if err != nil {
		return err
	}

	CallbackCounter, err = meter.Int64Counter(
		"pallapay_callbacks_total",
		metric.WithDescription("Payment callbacks received, by response"),
	)
	if err != nil {
		return err
	}

	SweptOrders, err = meter.Int64Counter(
		"unpaid_orders_cancelled_total",
		metric.WithDescription("Pending orders cancelled by the unpaid order sweeper"),
	)
	if err != nil {
		return err
	}

	ExternalCallDuration, err = meter.Float64Histogram(
		"pallapay_request_duration_seconds",
		metric.WithDescription("Duration of payment creation calls to Pallapay"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP server request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
}

// InitTracer initializes OpenTelemetry tracing. Spans are only exported when an
// OTLP endpoint is configured.
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint != "" {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logging.Info("Tracing initialized",
		zap.String("service_name", serviceName),
		zap.Bool("exporting", endpoint != ""),
	)
	return tp, nil
}

// InitMeter initializes OpenTelemetry metrics backed by the Prometheus exporter,
// scraped through promhttp on /metrics.
func InitMeter(ctx context.Context, serviceName string) (*sdkmetric.MeterProvider, error) {
	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logging.Info("Metrics initialized with Prometheus exporter")
	return mp, nil
}
