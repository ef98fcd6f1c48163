package types

import (
	"github.com/shopspring/decimal"
)

// Weight represents kilograms with full precision.
// Weight figures are derived (quantity × unit weight) and feed financial
// reporting, so decimal.Decimal is used instead of float64.
type Weight = decimal.Decimal

// CartonCoefficient is the fixed carton-weight coefficient applied to net
// weight on customs declarations: carton = 0.65 × net, gross = net + carton.
var CartonCoefficient = decimal.NewFromFloat(0.65)

// NewWeightFromString creates a Weight from a string.
// Preferred constructor for values entered by users.
func NewWeightFromString(s string) (Weight, error) {
	return decimal.NewFromString(s)
}

// MustWeight creates a Weight from a string, panics on error.
// Use only for constants and tests.
func MustWeight(s string) Weight {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroWeight returns the zero Weight value.
func ZeroWeight() Weight {
	return decimal.Zero
}

// CartonWeight derives the carton weight for a given net weight.
func CartonWeight(net Weight) Weight {
	return net.Mul(CartonCoefficient)
}

// GrossWeight derives the gross weight for a given net weight.
func GrossWeight(net Weight) Weight {
	return net.Add(CartonWeight(net))
}
