package billing

import (
	"math"
	"strconv"
	"strings"
)

// FormatCurrency renders integer cents as a display string with the Swiss
// convention: apostrophe thousands separator and exactly two decimals,
// prefixed with the currency code. Example: FormatCurrency(123456, "CHF")
// returns "CHF 1'234.56".
func FormatCurrency(cents int64, currency Currency) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}

	units := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i := 0; i < len(units); i++ {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte('\'')
		}
		b.WriteByte(units[i])
	}
	b.WriteByte('.')

	rem := cents % 100
	b.WriteByte(byte('0' + rem/10))
	b.WriteByte(byte('0' + rem%10))

	return string(currency) + " " + b.String()
}

// ParseCurrency converts a formatted amount back to integer cents. It strips
// every character except digits and the decimal point, then rounds to the
// nearest cent. Malformed input resolves to 0 rather than failing: an
// invoice render must never crash over a bad string.
func ParseCurrency(s string) int64 {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteByte(c)
		}
	}

	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Round(f * 100))
}
