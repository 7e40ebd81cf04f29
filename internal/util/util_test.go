package util

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := tracer
	tracer = tp.Tracer("test")
	t.Cleanup(func() {
		tracer = previous
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestTraceFieldsOutsideSpan(t *testing.T) {
	assert.Nil(t, TraceFields(context.Background()))
}

func TestTraceFieldsMatchSpan(t *testing.T) {
	recordSpans(t)

	ctx, span := StartSpan(context.Background(), "SessionManager.AddItem")
	defer span.End()

	fields := TraceFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, span.SpanContext().TraceID().String(), fields[0].String)
	assert.Equal(t, "span_id", fields[1].Key)
	assert.Equal(t, span.SpanContext().SpanID().String(), fields[1].String)
}

func TestStartSpanRecordsSessionAttributes(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "EmailDraftService.RegenerateDrafts",
		OwnerIDKey.String("owner-1"), SessionIDKey.String("s-1"))
	err := FailSpan(span, errors.New("draft store unavailable"))
	span.End()

	assert.EqualError(t, err, "draft store unavailable")
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), OwnerIDKey.String("owner-1"))
	assert.Contains(t, ended[0].Attributes(), SessionIDKey.String("s-1"))
}

func TestFailSpanIgnoresNil(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "SessionManager.StartSession")
	assert.NoError(t, FailSpan(span, nil))
	span.End()

	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}
