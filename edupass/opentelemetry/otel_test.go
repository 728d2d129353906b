//go:build unit

package opentelemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// ===========================================================================
// 1. InitializeTelemetryWithError validation
// ===========================================================================

func TestInitializeTelemetryWithError_NilConfig(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(nil)
	require.ErrorIs(t, err, ErrNilTelemetryConfig)
	assert.Nil(t, tl)
}

func TestInitializeTelemetryWithError_NilLogger(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(&TelemetryConfig{
		EnableTelemetry: false,
	})
	require.ErrorIs(t, err, ErrNilTelemetryLogger)
	assert.Nil(t, tl)
}

func TestInitializeTelemetryWithError_DisabledReturnsNoopProviders(t *testing.T) {
	t.Parallel()

	tl, err := InitializeTelemetryWithError(&TelemetryConfig{
		LibraryName:     "edupass-ledger/test",
		ServiceName:     "edupass-ledger",
		ServiceVersion:  "0.0.1",
		DeploymentEnv:   "test",
		EnableTelemetry: false,
		Logger:          log.NewNop(),
	})
	require.NoError(t, err)
	require.NotNil(t, tl)
	assert.NotNil(t, tl.TracerProvider)
	assert.NotNil(t, tl.MetricProvider)
	assert.NotNil(t, tl.LoggerProvider)
	assert.NotPanics(t, tl.ShutdownTelemetry)
}

// ===========================================================================
// 2. Span helpers
// ===========================================================================

func startRecordedSpan(t *testing.T) (trace.Span, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := provider.Tracer("test").Start(context.Background(), "operation")

	return span, recorder
}

func TestHandleSpanError(t *testing.T) {
	t.Parallel()

	span, recorder := startRecordedSpan(t)

	HandleSpanError(&span, "transfer credits", errors.New("store unavailable"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "transfer credits: store unavailable", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestHandleSpanError_NilInputs(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		HandleSpanError(nil, "message", errors.New("boom"))
	})

	span, recorder := startRecordedSpan(t)

	HandleSpanError(&span, "message", nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestHandleSpanBusinessErrorEvent(t *testing.T) {
	t.Parallel()

	span, recorder := startRecordedSpan(t)

	HandleSpanBusinessErrorEvent(&span, "insufficient_balance", errors.New("0004: account balance cannot cover the transfer (from)"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "insufficient_balance", spans[0].Events()[0].Name)
}

func TestSetSpanAttributesFromStruct(t *testing.T) {
	t.Parallel()

	span, recorder := startRecordedSpan(t)

	payload := struct {
		Beneficiary string `json:"beneficiary"`
		Amount      string `json:"amount"`
	}{Beneficiary: "student-1", Amount: "1000"}

	require.NoError(t, SetSpanAttributesFromStruct(&span, "app.request.payload", payload))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Attributes(), 1)
	assert.Equal(t, `{"beneficiary":"student-1","amount":"1000"}`, spans[0].Attributes()[0].Value.AsString())
}

func TestSetSpanAttributesFromStruct_MarshalError(t *testing.T) {
	t.Parallel()

	span, _ := startRecordedSpan(t)
	defer span.End()

	assert.Error(t, SetSpanAttributesFromStruct(&span, "key", make(chan int)))
}

// ===========================================================================
// 3. Context extraction
// ===========================================================================

func TestGetTraceIDFromContext(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetTraceIDFromContext(context.Background()))

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := provider.Tracer("test").Start(context.Background(), "operation")

	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceIDFromContext(ctx))
}

func TestExtractHTTPContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	app := fiber.New()
	c := app.AcquireCtx(&fasthttp.RequestCtx{})

	defer app.ReleaseCtx(c)

	c.Request().Header.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")

	ctx := ExtractHTTPContext(c)
	spanContext := trace.SpanContextFromContext(ctx)

	require.True(t, spanContext.IsValid())
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", spanContext.TraceID().String())
	assert.Equal(t, "b7ad6b7169203331", spanContext.SpanID().String())
}
