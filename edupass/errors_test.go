package edupass

import (
	"errors"
	"testing"

	constant "github.com/edupass/edupass-ledger/edupass/constants"
	"github.com/stretchr/testify/assert"
)

func TestResponse_Error(t *testing.T) {
	tests := []struct {
		name     string
		response Response
		expected string
	}{
		{
			name: "response with message",
			response: Response{
				EntityType: "Account",
				Code:       "0004",
				Title:      "Insufficient Balance",
				Message:    "The source account does not hold enough credits",
			},
			expected: "The source account does not hold enough credits",
		},
		{
			name: "response with empty message",
			response: Response{
				EntityType: "Account",
				Code:       "0004",
				Title:      "Insufficient Balance",
				Message:    "",
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.response.Error()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateBusinessError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		entityType string
		validate   func(t *testing.T, result error)
	}{
		{
			name:       "already initialized error",
			err:        constant.ErrAlreadyInitialized,
			entityType: constant.EntityLedger,
			validate: func(t *testing.T, result error) {
				response, ok := result.(Response)
				assert.True(t, ok)
				assert.Equal(t, constant.EntityLedger, response.EntityType)
				assert.Equal(t, constant.ErrAlreadyInitialized.Error(), response.Code)
				assert.Equal(t, "Ledger Already Initialized", response.Title)
				assert.Contains(t, response.Message, "already been initialized")
			},
		},
		{
			name:       "unauthorized error",
			err:        constant.ErrUnauthorized,
			entityType: constant.EntityAccount,
			validate: func(t *testing.T, result error) {
				response, ok := result.(Response)
				assert.True(t, ok)
				assert.Equal(t, constant.EntityAccount, response.EntityType)
				assert.Equal(t, constant.ErrUnauthorized.Error(), response.Code)
				assert.Equal(t, "Unauthorized Operation", response.Title)
				assert.Contains(t, response.Message, "not authorized")
			},
		},
		{
			name:       "invalid amount error",
			err:        constant.ErrInvalidAmount,
			entityType: constant.EntityAllocation,
			validate: func(t *testing.T, result error) {
				response, ok := result.(Response)
				assert.True(t, ok)
				assert.Equal(t, constant.EntityAllocation, response.EntityType)
				assert.Equal(t, constant.ErrInvalidAmount.Error(), response.Code)
				assert.Equal(t, "Invalid Amount", response.Title)
				assert.Contains(t, response.Message, "positive whole number")
			},
		},
		{
			name:       "insufficient balance error",
			err:        constant.ErrInsufficientBalance,
			entityType: constant.EntityAccount,
			validate: func(t *testing.T, result error) {
				response, ok := result.(Response)
				assert.True(t, ok)
				assert.Equal(t, constant.EntityAccount, response.EntityType)
				assert.Equal(t, constant.ErrInsufficientBalance.Error(), response.Code)
				assert.Contains(t, response.Message, "enough credits")
			},
		},
		{
			name:       "overflow error",
			err:        constant.ErrOverflowInt128,
			entityType: constant.EntityAccount,
			validate: func(t *testing.T, result error) {
				response, ok := result.(Response)
				assert.True(t, ok)
				assert.Equal(t, constant.EntityAccount, response.EntityType)
				assert.Equal(t, constant.ErrOverflowInt128.Error(), response.Code)
				assert.Contains(t, response.Message, "representable range")
			},
		},
		{
			name:       "invalid input error",
			err:        constant.ErrInvalidInput,
			entityType: constant.EntityLedger,
			validate: func(t *testing.T, result error) {
				response, ok := result.(Response)
				assert.True(t, ok)
				assert.Equal(t, constant.EntityLedger, response.EntityType)
				assert.Equal(t, constant.ErrInvalidInput.Error(), response.Code)
			},
		},
		{
			name:       "unknown error - return as is",
			err:        errors.New("unknown error"),
			entityType: "unknown",
			validate: func(t *testing.T, result error) {
				assert.Equal(t, "unknown error", result.Error())
			},
		},
		{
			name:       "nil error - return as is",
			err:        nil,
			entityType: "test",
			validate: func(t *testing.T, result error) {
				assert.Nil(t, result)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateBusinessError(tt.err, tt.entityType)
			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestValidateBusinessError_WithArgs(t *testing.T) {
	// Variadic args are accepted even though no message currently formats them.
	result := ValidateBusinessError(constant.ErrUnauthorized, constant.EntityAccount, "arg1", "arg2")

	response, ok := result.(Response)
	assert.True(t, ok)
	assert.Equal(t, constant.EntityAccount, response.EntityType)
}
