//go:build unit

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/edupass/edupass-ledger/edupass/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code ledger.ErrorCode
		want int
	}{
		{code: ledger.ErrorAlreadyInitialized, want: http.StatusConflict},
		{code: ledger.ErrorUnauthorized, want: http.StatusUnauthorized},
		{code: ledger.ErrorInvalidAmount, want: http.StatusUnprocessableEntity},
		{code: ledger.ErrorInsufficientBalance, want: http.StatusUnprocessableEntity},
		{code: ledger.ErrorOverflow, want: http.StatusUnprocessableEntity},
		{code: ledger.ErrorInvalidInput, want: http.StatusBadRequest},
		{code: ledger.ErrorCode("9999"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, statusForCode(tt.code))
		})
	}
}

func testErrorResponse(t *testing.T, handlerErr error, entityType string) (int, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return WithError(c, handlerErr, entityType)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return resp.StatusCode, body
}

func TestWithError_DomainError(t *testing.T) {
	t.Parallel()

	domainErr := ledger.NewDomainError(ledger.ErrorUnauthorized, "from", "identity not proven")

	status, body := testErrorResponse(t, domainErr, constant.EntityAccount)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "0002", body["code"])
	assert.Equal(t, constant.EntityAccount, body["entityType"])
	assert.Equal(t, "Unauthorized Operation", body["title"])
	assert.NotEmpty(t, body["message"])
}

func TestWithError_WrappedDomainError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("apply transfer: %w",
		ledger.NewDomainError(ledger.ErrorInsufficientBalance, "from", "balance cannot cover the transfer"))

	status, body := testErrorResponse(t, wrapped, constant.EntityAccount)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "0004", body["code"])
}

func TestWithError_UnknownErrorHidesDetails(t *testing.T) {
	t.Parallel()

	status, body := testErrorResponse(t, errors.New("pq: connection refused"), constant.EntityLedger)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, constant.DefaultInternalErrorCode, body["code"])
	assert.Equal(t, constant.DefaultInternalErrorMessage, body["message"])
	assert.NotContains(t, body["message"], "connection refused")
}

func TestResponseHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    fiber.Handler
		wantStatus int
	}{
		{
			name:       "ok",
			handler:    func(c *fiber.Ctx) error { return OK(c, fiber.Map{"ok": true}) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "created",
			handler:    func(c *fiber.Ctx) error { return Created(c, fiber.Map{"id": "x"}) },
			wantStatus: http.StatusCreated,
		},
		{
			name:       "no content",
			handler:    NoContent,
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "bad request",
			handler:    func(c *fiber.Ctx) error { return BadRequest(c, fiber.Map{"code": "0006"}) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthorized",
			handler:    func(c *fiber.Ctx) error { return Unauthorized(c, "0002", "Unauthorized", "no") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forbidden",
			handler:    func(c *fiber.Ctx) error { return Forbidden(c, "0002", "Forbidden", "no") },
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "not found",
			handler:    func(c *fiber.Ctx) error { return NotFound(c, "0404", "Not Found", "gone") },
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict",
			handler:    func(c *fiber.Ctx) error { return Conflict(c, "0001", "Conflict", "dup") },
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unprocessable entity",
			handler:    func(c *fiber.Ctx) error { return UnprocessableEntity(c, "0003", "Invalid", "bad") },
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "internal server error",
			handler:    func(c *fiber.Ctx) error { return InternalServerError(c, "0000", "Internal", "boom") },
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "service unavailable",
			handler:    func(c *fiber.Ctx) error { return ServiceUnavailable(c, fiber.Map{"status": "degraded"}) },
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := fiber.New()
			app.Get("/", tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { require.NoError(t, resp.Body.Close()) }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
