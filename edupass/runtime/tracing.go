package runtime

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPanic marks errors synthesized from recovered panic values.
var ErrPanic = errors.New("panic")

// PanicSpanEventName is the span event recorded for a recovered panic.
const PanicSpanEventName = "panic.recovered"

// RecordPanicToSpan records a recovered panic on the span active in ctx.
// It is a no-op when no recording span is active.
func RecordPanicToSpan(ctx context.Context, panicValue any, stack []byte, goroutineName string) {
	recordPanic(ctx, panicValue, stack, "", goroutineName)
}

// RecordPanicToSpanWithComponent is RecordPanicToSpan with a component
// attribute so traces can be sliced per subsystem.
func RecordPanicToSpanWithComponent(ctx context.Context, panicValue any, stack []byte, component, goroutineName string) {
	recordPanic(ctx, panicValue, stack, component, goroutineName)
}

func recordPanic(ctx context.Context, panicValue any, stack []byte, component, goroutineName string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("panic.value", fmt.Sprintf("%v", panicValue)),
		attribute.String("panic.stack", string(stack)),
		attribute.String("panic.goroutine_name", goroutineName),
	}

	name := goroutineName
	if component != "" {
		attrs = append(attrs, attribute.String("panic.component", component))
		name = component + "/" + goroutineName
	}

	span.AddEvent(PanicSpanEventName, trace.WithAttributes(attrs...))
	span.RecordError(fmt.Errorf("%w: %v", ErrPanic, panicValue))
	span.SetStatus(codes.Error, "panic recovered in "+name)
}
