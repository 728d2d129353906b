package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edupass/edupass-ledger/edupass"
	"github.com/edupass/edupass-ledger/edupass/auth"
	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/log"
	"github.com/edupass/edupass-ledger/edupass/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
)

// Ping returns HTTP Status 200 with response "pong".
func Ping(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// Version returns HTTP Status 200 with the running service version.
func Version(c *fiber.Ctx) error {
	return OK(c, fiber.Map{
		"version":     edupass.GetenvOrDefault("VERSION", "0.0.0"),
		"requestDate": time.Now().UTC(),
	})
}

// Welcome returns HTTP Status 200 with service info.
func Welcome(service string, description string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":     service,
			"description": description,
		})
	}
}

// DependencyCheck names a dependency probed by the health endpoint.
type DependencyCheck struct {
	// Name identifies the dependency in the health response.
	Name string

	// HealthCheck reports whether the dependency is currently healthy.
	HealthCheck func() bool
}

// DependencyStatus is the per-dependency entry in the health response.
type DependencyStatus struct {
	Healthy bool `json:"healthy"`
}

// HealthWithDependencies creates a handler that reports overall service
// health. It returns HTTP 200 (status "available") when every dependency is
// healthy, or HTTP 503 (status "degraded") when any dependency fails.
func HealthWithDependencies(dependencies ...DependencyCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		overallStatus := constant.DataSourceStatusAvailable
		httpStatus := fiber.StatusOK

		depStatuses := make(map[string]*DependencyStatus)

		for _, dep := range dependencies {
			status := &DependencyStatus{Healthy: true}

			if dep.HealthCheck != nil {
				status.Healthy = dep.HealthCheck()
			}

			if !status.Healthy {
				overallStatus = constant.DataSourceStatusDegraded
				httpStatus = fiber.StatusServiceUnavailable
			}

			depStatuses[dep.Name] = status
		}

		return c.Status(httpStatus).JSON(fiber.Map{
			"status":       overallStatus,
			"dependencies": depStatuses,
		})
	}
}

// ExtractTokenFromHeader extracts the authentication token from the
// Authorization header. It handles both "Bearer TOKEN" format and raw
// token format.
func ExtractTokenFromHeader(c *fiber.Ctx) string {
	authHeader := c.Get(fiber.HeaderAuthorization)

	if authHeader == "" {
		return ""
	}

	splitToken := strings.Split(authHeader, " ")

	if len(splitToken) > 1 && strings.EqualFold(splitToken[0], constant.Bearer) {
		return strings.TrimSpace(splitToken[1])
	}

	return strings.TrimSpace(splitToken[0])
}

// WithTokenFromHeader lifts the Authorization header token into the request
// context, where the identity verifier picks it up.
func WithTokenFromHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := ExtractTokenFromHeader(c); token != "" {
			c.SetUserContext(auth.ContextWithToken(c.UserContext(), token))
		}

		return c.Next()
	}
}

// FiberErrorHandler is the canonical Fiber error handler. It records the
// failure on the active span and uses the structured logger from the request
// context so error details pass through the sanitization pipeline.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	ctx := c.UserContext()
	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		opentelemetry.HandleSpanError(&span, "handler error", err)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return JSONResponse(c, fe.Code, edupass.Response{
			Code:    strconv.Itoa(fe.Code),
			Title:   http.StatusText(fe.Code),
			Message: fe.Message,
		})
	}

	if ctx == nil {
		ctx = context.Background()
	}

	logger := edupass.NewLoggerFromContext(ctx)
	logger.Log(ctx, log.LevelError, "handler error",
		log.String("method", c.Method()),
		log.String("path", log.SanitizeString(c.Path())),
		log.Err(err),
	)

	return WithError(c, err, constant.EntityLedger)
}
