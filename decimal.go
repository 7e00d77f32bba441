package stockmarket

import "github.com/cockroachdb/apd"

// PriceScale is the fixed number of decimal places of every monetary value.
const PriceScale = 4

// decimalCtx performs all monetary arithmetic in the package. Precision is
// large enough that running sums and VWAP products of 4-decimal prices never
// round before an explicit quantize.
var decimalCtx = apd.Context{
	Precision:   50,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Rounding:    apd.RoundHalfEven,
	Traps:       apd.DefaultTraps,
}

// roundToScale quantizes value to PriceScale decimal places, half-to-even.
func roundToScale(value *apd.Decimal) (apd.Decimal, error) {
	var out apd.Decimal
	if _, err := decimalCtx.Quantize(&out, value, -PriceScale); err != nil {
		return apd.Decimal{}, err
	}
	return out, nil
}
