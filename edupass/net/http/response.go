// Package http provides the Fiber HTTP surface of the credit ledger:
// response helpers, the domain error mapping, middleware, and route handlers.
package http

import (
	"errors"
	"net/http"

	"github.com/edupass/edupass-ledger/edupass"
	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/gofiber/fiber/v2"
)

// OK sends an HTTP 200 OK response with a custom body.
func OK(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusOK).JSON(s)
}

// Created sends an HTTP 201 Created response with a custom body.
func Created(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusCreated).JSON(s)
}

// NoContent sends an HTTP 204 No Content response without a body.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// BadRequest sends an HTTP 400 Bad Request response with a custom body.
func BadRequest(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusBadRequest).JSON(s)
}

// Unauthorized sends an HTTP 401 Unauthorized response with a custom code, title and message.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(edupass.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// Forbidden sends an HTTP 403 Forbidden response with a custom code, title and message.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusForbidden).JSON(edupass.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// NotFound sends an HTTP 404 Not Found response with a custom code, title and message.
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusNotFound).JSON(edupass.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// Conflict sends an HTTP 409 Conflict response with a custom code, title and message.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusConflict).JSON(edupass.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// UnprocessableEntity sends an HTTP 422 Unprocessable Entity response with a custom code, title and message.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(edupass.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// InternalServerError sends an HTTP 500 Internal Server Error response.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusInternalServerError).JSON(edupass.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// ServiceUnavailable sends an HTTP 503 Service Unavailable response with a custom body.
func ServiceUnavailable(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusServiceUnavailable).JSON(s)
}

// JSONResponse sends a custom status code and body as a JSON response.
func JSONResponse(c *fiber.Ctx, status int, s any) error {
	return c.Status(status).JSON(s)
}

// WithError translates a ledger error into the matching HTTP response.
// Domain errors map onto their business payload and status code; anything
// else becomes a generic 500 so internal details never reach clients.
// entityType names the entity the failed operation was acting on.
func WithError(c *fiber.Ctx, err error, entityType string) error {
	var domainErr ledger.DomainError
	if !errors.As(err, &domainErr) {
		return InternalServerError(c,
			constant.DefaultInternalErrorCode,
			"Internal Server Error",
			constant.DefaultInternalErrorMessage,
		)
	}

	business := edupass.ValidateBusinessError(constant.FromCode(string(domainErr.Code)), entityType)

	var resp edupass.Response
	if !errors.As(business, &resp) {
		return InternalServerError(c,
			constant.DefaultInternalErrorCode,
			"Internal Server Error",
			constant.DefaultInternalErrorMessage,
		)
	}

	return JSONResponse(c, statusForCode(domainErr.Code), resp)
}

// statusForCode maps ledger error codes onto HTTP status codes.
func statusForCode(code ledger.ErrorCode) int {
	switch code {
	case ledger.ErrorAlreadyInitialized:
		return http.StatusConflict
	case ledger.ErrorUnauthorized:
		return http.StatusUnauthorized
	case ledger.ErrorInvalidAmount, ledger.ErrorInsufficientBalance, ledger.ErrorOverflow:
		return http.StatusUnprocessableEntity
	case ledger.ErrorInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
