package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// DefaultServiceName is reported when TracingOptions.ServiceName is empty.
const DefaultServiceName = "bucketwalk"

// TracingOptions controls tracing initialization.
type TracingOptions struct {
	Enabled bool
	// Endpoint is the OTLP gRPC collector (host:port or URL).
	Endpoint    string
	SampleRatio float64
	ServiceName string
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// InitTracing configures the global tracer provider and propagators.
//
// Disabled tracing installs a noop provider. Enabled tracing without an
// endpoint samples spans but exports nothing.
func InitTracing(ctx context.Context, opt TracingOptions, logger *zap.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	if !opt.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	svc := strings.TrimSpace(opt.ServiceName)
	if svc == "" {
		svc = DefaultServiceName
	}
	res, err := resource.New(ctx,
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(attribute.String("service.name", svc)),
	)
	if err != nil {
		logger.Warn("tracing resource init failed", zap.Error(err))
		res = resource.Empty()
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opt.SampleRatio)),
	}

	if ep := strings.TrimSpace(opt.Endpoint); ep != "" {
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(stripScheme(ep))}
		if isInsecure(ep) {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		))
	} else {
		logger.Info("tracing enabled without endpoint; spans will not be exported")
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// TracingMiddleware starts a server span per request. Health and metrics
// paths are skipped.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/3leaps/bucketwalk/internal/server")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}

		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.EscapedPath(),
			trace.WithSpanKind(trace.SpanKindServer),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.RequestURI()),
			attribute.Int("http.status_code", rec.status),
		)
	})
}

func isInsecure(endpoint string) bool {
	ep := strings.ToLower(endpoint)
	return strings.HasPrefix(ep, "http://") ||
		strings.Contains(ep, "localhost") ||
		strings.Contains(ep, "127.0.0.1")
}

func stripScheme(endpoint string) string {
	lower := strings.ToLower(endpoint)
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, scheme) {
			return endpoint[len(scheme):]
		}
	}
	return endpoint
}
