// Package numfmt renders numbers for display.
package numfmt

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Fixed formats v with exactly digits decimals.
//
// Rounding is done on the exact binary value, so 2.675 (stored as
// 2.67499...) gives "2.67". Exact ties round away from zero: 0.125 gives "0.13".
func Fixed(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || digits < 0 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', digits, 64)
	if n, ok := tieAwayFromZero(v, digits); ok {
		s = n
	}

	if strings.Trim(s, "-0.") == "" {
		s = strings.TrimPrefix(s, "-") // drop negative zero
	}
	return s
}

// tieAwayFromZero reports whether v sits exactly halfway between two
// representable results and, if so, returns the one further from zero.
// FormatFloat would round such ties to even.
func tieAwayFromZero(v float64, digits int) (string, bool) {
	const prec = 256

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	scaled := new(big.Float).SetPrec(prec).SetFloat64(math.Abs(v))
	scaled.Mul(scaled, new(big.Float).SetPrec(prec).SetInt(scale))

	whole, _ := scaled.Int(nil)
	frac := new(big.Float).SetPrec(prec).Sub(scaled, new(big.Float).SetPrec(prec).SetInt(whole))
	if frac.Cmp(big.NewFloat(0.5)) != 0 {
		return "", false
	}

	whole.Add(whole, big.NewInt(1))
	str := whole.String()
	if digits > 0 {
		if len(str) <= digits {
			str = strings.Repeat("0", digits-len(str)+1) + str
		}
		str = str[:len(str)-digits] + "." + str[len(str)-digits:]
	}
	if v < 0 {
		str = "-" + str
	}
	return str, true
}

// Percent formats a 0..1 fraction as a whole percentage, e.g. 0.35 -> "35%".
func Percent(frac float64) string {
	return Fixed(frac*100, 0) + "%"
}

// Money formats an amount in dollars with two decimals.
func Money(v float64) string {
	if v < 0 {
		return "-$" + Fixed(-v, 2)
	}
	return "$" + Fixed(v, 2)
}
