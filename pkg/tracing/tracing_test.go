package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "rillcast", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTraceWebRTC_RecordsAttributesAndErrors(t *testing.T) {
	rec := withRecorder(t)

	ctx, span := TraceWebRTC(context.Background(), "start_broadcast", "Demo User-host", "stream-1")
	AddSpanAttributes(ctx, attribute.Int("attempt", 1))
	RecordError(ctx, errors.New("join failed"))
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "webrtc.start_broadcast", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), RoomIDKey.String("stream-1"))
}

func TestTraceSignalMessage(t *testing.T) {
	rec := withRecorder(t)

	_, out := TraceSignalMessage(context.Background(), "out", "join_room")
	out.End()
	_, in := TraceSignalMessage(context.Background(), "in", "room_joined")
	in.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "signal.join_room", spans[0].Name())
	assert.Equal(t, trace.SpanKindProducer, spans[0].SpanKind())
	assert.Contains(t, spans[0].Attributes(), MessageTypeKey.String("join_room"))
	assert.Equal(t, trace.SpanKindConsumer, spans[1].SpanKind())
	assert.Contains(t, spans[1].Attributes(), DirectionKey.String("in"))
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
