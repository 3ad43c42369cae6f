// Package numfmt implements Kabap's only numeric primitive: parsing a
// string into a double and formatting a double back into a string at a
// configured decimal scale with HALF_UP rounding.
//
// Kabap's variable store, extension messages and tokens are all
// strings; every arithmetic or comparison operator decodes its
// operands through Parse and re-encodes its result through Format (see
// internal/executor). There is no persistent numeric type anywhere in
// the engine.
package numfmt

import (
	"math/big"
	"strconv"
	"strings"
)

// Parse attempts a locale-independent decimal-double parse of s. On
// failure it returns def, matching the executor's "string default is
// 0" convention for operands that don't look numeric.
func Parse(s string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return v
}

// Format renders value at scale decimal digits using HALF_UP rounding.
// Integer results carry no decimal point; trailing fractional zeros are
// stripped (so Format(10, 2) is "10", not "10.00").
//
// Rounding is done over math/big.Float at high precision rather than
// with fmt's banker's-rounding-adjacent float formatting, since the
// contract requires HALF_UP specifically (standard %.*f rounding in Go
// is round-to-even on ties for some inputs).
func Format(value float64, scale int) string {
	if scale < 0 {
		scale = 0
	}

	neg := value < 0 || (value == 0 && strconv.FormatFloat(value, 'f', -1, 64)[0] == '-')

	const prec = 200
	abs := new(big.Float).SetPrec(prec).SetFloat64(value)
	abs.Abs(abs)

	factor := new(big.Float).SetPrec(prec).SetInt(pow10(scale))
	scaled := new(big.Float).SetPrec(prec).Mul(abs, factor)
	scaled.Add(scaled, big.NewFloat(0.5)) // HALF_UP: bias then truncate

	rounded, _ := scaled.Int(nil) // truncates toward zero; operand is non-negative
	digits := rounded.String()

	for len(digits) < scale+1 {
		digits = "0" + digits
	}

	intPart := digits[:len(digits)-scale]
	fracPart := digits[len(digits)-scale:]
	fracPart = strings.TrimRight(fracPart, "0")

	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg && rounded.Sign() != 0 {
		out = "-" + out
	}
	return out
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
