package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityConversions(t *testing.T) {
	q := NewQuantityFromFloat64(12.5)
	assert.Equal(t, int64(125_000), q.Int64Scaled())
	assert.Equal(t, 12.5, q.Float64())
	assert.Equal(t, "12.5000", q.String())
	assert.Equal(t, "12.5", q.Decimal().String())

	neg := NewQuantityFromFloat64(-0.25)
	assert.Equal(t, "-0.2500", neg.String())
	assert.True(t, neg.IsNegative())
	assert.Equal(t, NewQuantityFromFloat64(0.25), neg.Abs())
	assert.Equal(t, neg, neg.Abs().Neg())

	assert.True(t, Quantity(0).IsZero())
	assert.True(t, Quantity(1).IsPositive())
}

func TestQuantityJSON(t *testing.T) {
	data, err := json.Marshal(NewQuantityFromFloat64(3.75))
	require.NoError(t, err)
	assert.Equal(t, "3.7500", string(data))

	tests := []struct {
		name  string
		input string
		want  Quantity
	}{
		{"number", `3.75`, NewQuantityFromFloat64(3.75)},
		{"string", `"3.75"`, NewQuantityFromFloat64(3.75)},
		{"integer", `100`, NewQuantityFromFloat64(100)},
		{"negative", `-1.5`, NewQuantityFromFloat64(-1.5)},
		{"null", `null`, 0},
		{"extra digits truncated", `1.23456`, Quantity(12345)},
		{"exponent", `1e2`, NewQuantityFromFloat64(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quantity
			require.NoError(t, json.Unmarshal([]byte(tt.input), &q))
			assert.Equal(t, tt.want, q)
		})
	}

	var q Quantity
	require.Error(t, json.Unmarshal([]byte(`"abc"`), &q))
}

func TestQuantitySummationStaysExact(t *testing.T) {
	// 0.1 + 0.2 famously fails in binary floating point.
	sum := NewQuantityFromFloat64(0.1) + NewQuantityFromFloat64(0.2)
	assert.Equal(t, NewQuantityFromFloat64(0.3), sum)
}

func TestWeightDerivations(t *testing.T) {
	net := MustWeight("70")
	assert.True(t, CartonWeight(net).Equal(MustWeight("45.5")))
	assert.True(t, GrossWeight(net).Equal(MustWeight("115.5")))
	assert.True(t, CartonWeight(ZeroWeight()).IsZero())
}
