//go:build unit

package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	t.Cleanup(func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	return provider, recorder
}

func eventAttributes(span sdktrace.ReadOnlySpan, eventName string) (map[string]string, bool) {
	for _, event := range span.Events() {
		if event.Name != eventName {
			continue
		}

		attrs := make(map[string]string)
		for _, attr := range event.Attributes {
			attrs[string(attr.Key)] = attr.Value.AsString()
		}

		return attrs, true
	}

	return nil, false
}

func TestErrPanic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "panic", ErrPanic.Error())
}

func TestPanicSpanEventName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "panic.recovered", PanicSpanEventName)
}

func TestRecordPanicToSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		panicValue    any
		stack         []byte
		goroutineName string
		wantMessage   string
	}{
		{
			name:          "string panic value",
			panicValue:    "something went wrong",
			stack:         []byte("goroutine 1 [running]:\nmain.main()"),
			goroutineName: "worker-1",
			wantMessage:   "panic recovered in worker-1",
		},
		{
			name:          "error panic value",
			panicValue:    assert.AnError,
			stack:         []byte("stack trace here"),
			goroutineName: "handler",
			wantMessage:   "panic recovered in handler",
		},
		{
			name:          "nil panic value",
			panicValue:    nil,
			stack:         []byte("some stack"),
			goroutineName: "main",
			wantMessage:   "panic recovered in main",
		},
		{
			name:          "empty goroutine name",
			panicValue:    "panic!",
			stack:         []byte("trace"),
			goroutineName: "",
			wantMessage:   "panic recovered in ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider, recorder := newTestTracerProvider(t)
			tracer := provider.Tracer("test")
			ctx, span := tracer.Start(context.Background(), "test-span")

			RecordPanicToSpan(ctx, tt.panicValue, tt.stack, tt.goroutineName)
			span.End()

			spans := recorder.Ended()
			require.Len(t, spans, 1)

			attrs, found := eventAttributes(spans[0], PanicSpanEventName)
			require.True(t, found, "panic.recovered event not found")

			assert.Contains(t, attrs, "panic.value")
			assert.Equal(t, string(tt.stack), attrs["panic.stack"])
			assert.Equal(t, tt.goroutineName, attrs["panic.goroutine_name"])
			assert.NotContains(t, attrs, "panic.component")

			assert.Equal(t, codes.Error, spans[0].Status().Code)
			assert.Equal(t, tt.wantMessage, spans[0].Status().Description)
		})
	}
}

func TestRecordPanicToSpanWithComponent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		component     string
		goroutineName string
		wantMessage   string
		wantComponent bool
	}{
		{
			name:          "with component",
			component:     "ledger",
			goroutineName: "IssueCredits",
			wantMessage:   "panic recovered in ledger/IssueCredits",
			wantComponent: true,
		},
		{
			name:          "empty component",
			component:     "",
			goroutineName: "handler",
			wantMessage:   "panic recovered in handler",
		},
		{
			name:          "empty goroutine name with component",
			component:     "auth",
			goroutineName: "",
			wantMessage:   "panic recovered in auth/",
			wantComponent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider, recorder := newTestTracerProvider(t)
			tracer := provider.Tracer("test")
			ctx, span := tracer.Start(context.Background(), "test-span")

			RecordPanicToSpanWithComponent(ctx, "panic error", []byte("stack trace"), tt.component, tt.goroutineName)
			span.End()

			spans := recorder.Ended()
			require.Len(t, spans, 1)

			attrs, found := eventAttributes(spans[0], PanicSpanEventName)
			require.True(t, found, "panic.recovered event not found")

			assert.Equal(t, tt.goroutineName, attrs["panic.goroutine_name"])

			if tt.wantComponent {
				assert.Equal(t, tt.component, attrs["panic.component"])
			} else {
				assert.NotContains(t, attrs, "panic.component")
			}

			assert.Equal(t, codes.Error, spans[0].Status().Code)
			assert.Equal(t, tt.wantMessage, spans[0].Status().Description)
		})
	}
}

func TestRecordPanicToSpan_NoActiveSpan(t *testing.T) {
	t.Parallel()

	require.NotPanics(t, func() {
		RecordPanicToSpan(context.Background(), "panic value", []byte("stack"), "goroutine")
	})

	require.NotPanics(t, func() {
		RecordPanicToSpanWithComponent(context.Background(), "panic value", []byte("stack"), "component", "goroutine")
	})
}

func TestRecordPanicToSpan_RecordsException(t *testing.T) {
	t.Parallel()

	provider, recorder := newTestTracerProvider(t)
	tracer := provider.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")

	RecordPanicToSpan(ctx, "test panic", []byte("stack trace"), "worker")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	attrs, found := eventAttributes(spans[0], "exception")
	require.True(t, found, "expected exception event from RecordError")
	assert.Contains(t, attrs["exception.message"], "panic")
	assert.Contains(t, attrs["exception.message"], "test panic")

	_, found = eventAttributes(spans[0], PanicSpanEventName)
	assert.True(t, found)
}

func TestRecordPanicToSpan_ComplexPanicValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		panicValue any
		wantValue  string
	}{
		{
			name:       "struct panic value",
			panicValue: struct{ Message string }{Message: "error"},
			wantValue:  "{error}",
		},
		{
			name:       "slice panic value",
			panicValue: []string{"a", "b", "c"},
			wantValue:  "[a b c]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider, recorder := newTestTracerProvider(t)
			tracer := provider.Tracer("test")
			ctx, span := tracer.Start(context.Background(), "test-span")

			RecordPanicToSpan(ctx, tt.panicValue, []byte("stack"), "goroutine")
			span.End()

			spans := recorder.Ended()
			require.Len(t, spans, 1)

			attrs, found := eventAttributes(spans[0], PanicSpanEventName)
			require.True(t, found)
			assert.Equal(t, tt.wantValue, attrs["panic.value"])
		})
	}
}
