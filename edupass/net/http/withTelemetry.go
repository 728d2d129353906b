package http

import (
	"strings"

	"github.com/edupass/edupass-ledger/edupass"
	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryMiddleware adds tracing to HTTP requests.
type TelemetryMiddleware struct {
	Telemetry *opentelemetry.Telemetry
}

// NewTelemetryMiddleware creates a new instance of TelemetryMiddleware.
func NewTelemetryMiddleware(tl *opentelemetry.Telemetry) *TelemetryMiddleware {
	return &TelemetryMiddleware{Telemetry: tl}
}

// WithTelemetry starts a server span per request, stores the tracer in the
// request context so downstream operations nest under it, and exposes the
// trace identifier on the response.
func (tm *TelemetryMiddleware) WithTelemetry(excludedRoutes ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(excludedRoutes) > 0 && tm.isRouteExcluded(c, excludedRoutes) {
			return c.Next()
		}

		setRequestHeaderID(c)

		tracer := otel.Tracer(tm.Telemetry.LibraryName)
		routePathWithMethod := c.Method() + " " + c.Route().Path

		traceCtx := opentelemetry.ExtractHTTPContext(c)

		ctx, span := tracer.Start(traceCtx, routePathWithMethod, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		// Query strings are left out of span attributes; they can carry tokens.
		span.SetAttributes(
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", c.Path()),
			attribute.String("http.route", c.Route().Path),
			attribute.String("http.scheme", c.Protocol()),
			attribute.String("http.host", c.Hostname()),
			attribute.String("http.user_agent", c.Get(constant.HeaderUserAgent)),
		)

		ctx = edupass.ContextWithTracer(ctx, tracer)
		c.SetUserContext(ctx)

		if traceID := opentelemetry.GetTraceIDFromContext(ctx); traceID != "" {
			c.Response().Header.Set(constant.HeaderTraceID, traceID)
		}

		err := c.Next()

		span.SetAttributes(
			attribute.Int("http.status_code", c.Response().StatusCode()),
		)

		return err
	}
}

func (tm *TelemetryMiddleware) isRouteExcluded(c *fiber.Ctx, excludedRoutes []string) bool {
	for _, route := range excludedRoutes {
		if strings.HasPrefix(c.Path(), route) {
			return true
		}
	}

	return false
}
