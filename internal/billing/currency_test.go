package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name     string
		cents    int64
		currency Currency
		want     string
	}{
		{"thousands-apostrophe", 123456, CurrencyCHF, "CHF 1'234.56"},
		{"millions", 123456789, CurrencyCHF, "CHF 1'234'567.89"},
		{"eur-uses-same-convention", 123456, CurrencyEUR, "EUR 1'234.56"},
		{"zero", 0, CurrencyCHF, "CHF 0.00"},
		{"sub-franc", 5, CurrencyCHF, "CHF 0.05"},
		{"exact-units", 100000, CurrencyCHF, "CHF 1'000.00"},
		{"no-separator-below-thousand", 99999, CurrencyCHF, "CHF 999.99"},
		{"negative", -123456, CurrencyCHF, "CHF -1'234.56"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.cents, tt.currency))
		})
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"formatted-chf", "CHF 1'234.56", 123456},
		{"plain-decimal", "1234.56", 123456},
		{"no-decimals", "1500", 150000},
		{"rounds-to-nearest-cent", "10.006", 1001},
		{"strips-noise", "total: 1'000.00 francs", 100000},
		{"empty", "", 0},
		{"garbage", "not a number", 0},
		{"two-decimal-points", "1.2.3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCurrency(tt.input))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 999999, 123456789} {
		got := ParseCurrency(FormatCurrency(cents, CurrencyCHF))
		assert.Equal(t, cents, got, "round trip of %d", cents)
	}
}
