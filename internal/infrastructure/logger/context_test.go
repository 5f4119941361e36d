package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func TestWithContext(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	ctxWithLogger := WithContext(ctx, logger)

	retrievedLogger := FromContext(ctxWithLogger)
	assert.NotNil(t, retrievedLogger)
}

func TestFromContext_NotFound(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// Should return a no-op logger
	assert.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	requestID := "req-123"

	newCtx, newLogger := WithRequestID(ctx, logger, requestID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, requestID, GetRequestID(newCtx))
}

func TestWithActorID(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	actorID := "actor-789"

	newCtx, newLogger := WithActorID(ctx, logger, actorID)

	assert.NotNil(t, newCtx)
	assert.NotNil(t, newLogger)
	assert.Equal(t, actorID, GetActorID(newCtx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	ctx := context.Background()
	requestID := GetRequestID(ctx)
	assert.Empty(t, requestID)
}

func TestGetActorID_NotFound(t *testing.T) {
	ctx := context.Background()
	actorID := GetActorID(ctx)
	assert.Empty(t, actorID)
}

func TestContextChaining(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()

	// Chain multiple context enrichments
	ctx, logger = WithRequestID(ctx, logger, "req-1")
	ctx, logger = WithActorID(ctx, logger, "actor-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "actor-1", GetActorID(ctx))
	assert.NotNil(t, logger)
}

func TestContextKeys(t *testing.T) {
	// Verify context keys are unique
	assert.NotEqual(t, LoggerKey, RequestIDKey)
	assert.NotEqual(t, RequestIDKey, ActorIDKey)
	assert.NotEqual(t, LoggerKey, ActorIDKey)
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	logger := FromContext(ctx)

	// Should return a no-op logger when value is wrong type
	assert.NotNil(t, logger)
	// The no-op logger should not panic when used
	logger.Info("test")
}

func TestLoggerFromEnrichedContext(t *testing.T) {
	baseLogger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()
	ctx, enrichedLogger := WithRequestID(ctx, baseLogger, "req-test")

	// The logger in context should be the enriched one
	ctxLogger := FromContext(ctx)
	assert.NotNil(t, ctxLogger)

	// Verify it's the enriched logger, not the base logger
	assert.NotEqual(t, baseLogger, enrichedLogger)
}

func TestMultipleWithRequestID(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()

	// First call
	ctx, _ = WithRequestID(ctx, logger, "first-id")
	assert.Equal(t, "first-id", GetRequestID(ctx))

	// Second call should override
	ctx, _ = WithRequestID(ctx, logger, "second-id")
	assert.Equal(t, "second-id", GetRequestID(ctx))
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	ctx := context.Background()
	logger := FromContext(ctx)

	// These should not panic
	assert.NotPanics(t, func() {
		logger.Info("test message")
		logger.Debug("debug message")
		logger.Warn("warn message")
		logger.Error("error message")
		logger.With(zap.String("key", "value")).Info("with field")
	})
}

// createContextWithSpan creates a context with an active span for testing.
func createContextWithSpan(t *testing.T) (context.Context, trace.Span) {
	t.Helper()
	tp := noop.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracer := tp.Tracer("test-tracer")
	return tracer.Start(context.Background(), "test-span")
}

func TestGetTraceID_NoSpan(t *testing.T) {
	ctx := context.Background()
	traceID := GetTraceID(ctx)
	assert.Empty(t, traceID)
}

func TestGetTraceID_InvalidSpanContext(t *testing.T) {
	ctx, span := createContextWithSpan(t)
	defer span.End()

	// Noop tracer creates spans with invalid context
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	assert.False(t, spanCtx.IsValid())

	// GetTraceID should return empty for invalid span context
	traceID := GetTraceID(ctx)
	assert.Empty(t, traceID)
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	baseLogger := zap.NewNop()
	ctx := context.Background()

	enrichedLogger := WithTraceContext(ctx, baseLogger)

	// Without a span, should return the same logger
	assert.Equal(t, baseLogger, enrichedLogger)
}

func TestWithTraceContext_InvalidSpanContext(t *testing.T) {
	ctx, span := createContextWithSpan(t)
	defer span.End()

	baseLogger := zap.NewNop()

	// WithTraceContext should return original logger for invalid span context
	enrichedLogger := WithTraceContext(ctx, baseLogger)
	assert.Equal(t, baseLogger, enrichedLogger)
}
