// Package tracing OpenTelemetry 追踪
// 服务代码通过 StartSpan 使用全局 TracerProvider，未启用追踪时为空操作
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/dumeirei/funzone-backend/internal/common/config"
)

const instrumentation = "github.com/dumeirei/funzone-backend"

// 导出器
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Provider 持有 SDK provider，未启用时 sdk 为 nil
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// Init 按配置安装全局 TracerProvider 与 W3C 传播器
func Init(cfg *config.TracingConfig, version, env string) (*Provider, error) {
	if cfg == nil || !cfg.Enabled {
		return &Provider{}, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
		semconv.DeploymentEnvironment(env),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	return &Provider{sdk: sdk}, nil
}

func newExporter(cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch cfg.Exporter {
	case ExporterOTLP:
		exp, err = otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
	case ExporterStdout, "":
		exp, err = stdouttrace.New()
	default:
		return nil, fmt.Errorf("tracing: unsupported exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("tracing: %s exporter: %w", cfg.Exporter, err)
	}
	return exp, nil
}

// newSampler 比例采样尊重上游的采样决定
func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Enabled 是否安装了 SDK provider
func (p *Provider) Enabled() bool {
	return p != nil && p.sdk != nil
}

// Shutdown 刷出未导出的 span
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
}

func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetError 记录错误并把 span 标为失败，err 为 nil 时忽略
func SetError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// 业务属性

func WithUserID(id int64) attribute.KeyValue      { return attribute.Int64("user.id", id) }
func WithTicketID(id int64) attribute.KeyValue    { return attribute.Int64("ticket.id", id) }
func WithPromotionID(id int64) attribute.KeyValue { return attribute.Int64("promotion.id", id) }
func WithChallengeID(id int64) attribute.KeyValue { return attribute.Int64("challenge.id", id) }
func WithAmount(vnd int64) attribute.KeyValue     { return attribute.Int64("order.amount", vnd) }
func WithTier(tier string) attribute.KeyValue     { return attribute.String("member.tier", tier) }
