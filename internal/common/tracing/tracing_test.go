package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dumeirei/funzone-backend/internal/common/config"
)

func TestInit_Disabled(t *testing.T) {
	p, err := Init(&config.TracingConfig{ServiceName: "off"}, "dev", "test")
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := StartSpan(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestInit_StdoutExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	p, err := Init(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "funzone-test",
		Exporter:    ExporterStdout,
		SampleRate:  1,
	}, "1.0.0", "test")
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := StartSpan(context.Background(), "ticket.Book")
	assert.True(t, span.IsRecording())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := Init(&config.TracingConfig{Enabled: true, ServiceName: "x", Exporter: "zipkin"}, "", "")
	assert.Error(t, err)
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), newSampler(0).Description())
	assert.Contains(t, newSampler(0.5).Description(), "TraceIDRatioBased")
}

func TestSpanHelpers_RecordOnRealSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "promotion.resolve", WithAmount(120000), WithTier("GOLD"))
	SetAttributes(ctx, WithPromotionID(3), WithTicketID(8))
	AddEvent(ctx, "best.selected", WithUserID(4))
	SetError(ctx, errors.New("boom"))
	SetError(ctx, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "promotion.resolve", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	require.Len(t, got.Events(), 2) // best.selected + exception

	attrs := map[string]interface{}{}
	for _, kv := range got.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(120000), attrs["order.amount"])
	assert.Equal(t, "GOLD", attrs["member.tier"])
	assert.Equal(t, int64(3), attrs["promotion.id"])
}

func TestSpanHelpers_NoSpanInContext(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		AddEvent(ctx, "x")
		SetAttributes(ctx, WithUserID(1), WithChallengeID(2))
		SetError(ctx, errors.New("ignored"))
	})
}
