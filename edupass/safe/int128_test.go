//go:build unit

package safe

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckInt128(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   decimal.Decimal
		wantErr error
	}{
		{
			name:    "zero",
			value:   decimal.Zero,
			wantErr: nil,
		},
		{
			name:    "positive integer",
			value:   decimal.NewFromInt(1000),
			wantErr: nil,
		},
		{
			name:    "negative integer",
			value:   decimal.NewFromInt(-1000),
			wantErr: nil,
		},
		{
			name:    "max int128",
			value:   MaxInt128,
			wantErr: nil,
		},
		{
			name:    "min int128",
			value:   MinInt128,
			wantErr: nil,
		},
		{
			name:    "fractional value",
			value:   decimal.RequireFromString("10.5"),
			wantErr: ErrNotInteger,
		},
		{
			name:    "above max",
			value:   MaxInt128.Add(decimal.NewFromInt(1)),
			wantErr: ErrInt128Range,
		},
		{
			name:    "below min",
			value:   MinInt128.Sub(decimal.NewFromInt(1)),
			wantErr: ErrInt128Range,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckInt128(tt.value)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddInt128(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a       decimal.Decimal
		b       decimal.Decimal
		want    decimal.Decimal
		wantErr error
	}{
		{
			name:    "simple addition",
			a:       decimal.NewFromInt(500),
			b:       decimal.NewFromInt(1000),
			want:    decimal.NewFromInt(1500),
			wantErr: nil,
		},
		{
			name:    "negative operand",
			a:       decimal.NewFromInt(500),
			b:       decimal.NewFromInt(-200),
			want:    decimal.NewFromInt(300),
			wantErr: nil,
		},
		{
			name:    "sum reaches max exactly",
			a:       MaxInt128.Sub(decimal.NewFromInt(1)),
			b:       decimal.NewFromInt(1),
			want:    MaxInt128,
			wantErr: nil,
		},
		{
			name:    "positive overflow",
			a:       MaxInt128,
			b:       decimal.NewFromInt(1),
			want:    decimal.Zero,
			wantErr: ErrInt128Range,
		},
		{
			name:    "negative overflow",
			a:       MinInt128,
			b:       decimal.NewFromInt(-1),
			want:    decimal.Zero,
			wantErr: ErrInt128Range,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := AddInt128(tt.a, tt.b)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.True(t, got.Equal(tt.want), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestSubInt128(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a       decimal.Decimal
		b       decimal.Decimal
		want    decimal.Decimal
		wantErr error
	}{
		{
			name:    "simple subtraction",
			a:       decimal.NewFromInt(1000),
			b:       decimal.NewFromInt(400),
			want:    decimal.NewFromInt(600),
			wantErr: nil,
		},
		{
			name:    "result goes negative",
			a:       decimal.NewFromInt(400),
			b:       decimal.NewFromInt(1000),
			want:    decimal.NewFromInt(-600),
			wantErr: nil,
		},
		{
			name:    "difference reaches min exactly",
			a:       MinInt128.Add(decimal.NewFromInt(1)),
			b:       decimal.NewFromInt(1),
			want:    MinInt128,
			wantErr: nil,
		},
		{
			name:    "negative overflow",
			a:       MinInt128,
			b:       decimal.NewFromInt(1),
			want:    decimal.Zero,
			wantErr: ErrInt128Range,
		},
		{
			name:    "positive overflow",
			a:       MaxInt128,
			b:       decimal.NewFromInt(-1),
			want:    decimal.Zero,
			wantErr: ErrInt128Range,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SubInt128(tt.a, tt.b)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.True(t, got.Equal(tt.want), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestInt128Bounds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "170141183460469231731687303715884105727", MaxInt128.String())
	assert.Equal(t, "-170141183460469231731687303715884105728", MinInt128.String())
}
