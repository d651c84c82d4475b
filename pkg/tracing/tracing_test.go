package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "roomchat", cfg.ServiceName)
	assert.Equal(t, "http://localhost:14268/api/traces", cfg.JaegerURL)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSpanHelpers_NoProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test")
	require.NotNil(t, span)
	defer span.End()

	AddSpanAttributes(ctx, attribute.String("test.key", "test.value"))
	RecordError(ctx, errors.New("test error"))
	MeasureDuration(ctx, time.Now(), "test.operation")
}

func TestTraceHelpers(t *testing.T) {
	ctx := context.Background()

	_, span := TraceHTTPRequest(ctx, "GET", "/api/v1/rooms/:room/online")
	require.NotNil(t, span)
	span.End()

	_, span = TraceWebSocketMessage(ctx, "message", "r1", "conn-1")
	require.NotNil(t, span)
	span.End()

	_, span = TraceRepositoryOperation(ctx, "redis", "getdel")
	require.NotNil(t, span)
	span.End()
}
