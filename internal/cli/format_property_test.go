package cli

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var (
	indianPattern    = regexp.MustCompile(`^(\d{1,2},)*\d{1,3}$`)
	thousandsPattern = regexp.MustCompile(`^\d{1,3}(,\d{3})*$`)
)

// For any amount, FormatCurrency should:
// 1. Start with the symbol (or -symbol for negative)
// 2. Have exactly 2 decimal places
// 3. Group digits by the symbol's numbering system
// 4. Preserve the numeric value when parsed back
func TestCurrencyFormattingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	for _, tc := range []struct {
		symbol  string
		pattern *regexp.Regexp
	}{
		{RupeeSymbol, indianPattern},
		{"$", thousandsPattern},
	} {
		symbol, pattern := tc.symbol, tc.pattern

		properties.Property(symbol+" formatting is well formed", prop.ForAll(
			func(amount float64) bool {
				formatted := FormatCurrency(amount, symbol)

				prefix := symbol
				if amount < 0 {
					prefix = "-" + symbol
				}
				if !strings.HasPrefix(formatted, prefix) {
					t.Logf("Expected %s prefix for %f, got %s", prefix, amount, formatted)
					return false
				}

				intPart, decPart, ok := strings.Cut(strings.TrimPrefix(formatted, prefix), ".")
				if !ok || len(decPart) != 2 {
					t.Logf("Expected 2 decimal places for %f, got %s", amount, formatted)
					return false
				}
				if !pattern.MatchString(intPart) {
					t.Logf("Invalid grouping for %f: %s", amount, formatted)
					return false
				}
				return true
			},
			gen.Float64Range(-1e12, 1e12),
		))

		properties.Property(symbol+" formatting preserves value", prop.ForAll(
			func(amount float64) bool {
				formatted := FormatCurrency(amount, symbol)
				parsed := parseCurrency(formatted, symbol)

				rounded := math.Round(amount*100) / 100
				if math.Abs(parsed-rounded) > 0.01 {
					t.Logf("Value not preserved: original=%f, formatted=%s, parsed=%f", amount, formatted, parsed)
					return false
				}
				return true
			},
			gen.Float64Range(-1e9, 1e9),
		))
	}

	properties.Property("FormatBar has a fixed width", prop.ForAll(
		func(pct float64, width int) bool {
			return len([]rune(FormatBar(pct, width))) == width
		},
		gen.Float64Range(-50, 250),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

// parseCurrency parses a formatted amount back to float64.
func parseCurrency(s, symbol string) float64 {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, symbol)
	s = strings.ReplaceAll(s, ",", "")

	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	if negative {
		parsed = -parsed
	}
	return parsed
}

func TestIndianNumberFormatExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "₹0.00"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},      // 1 lakh
		{10000000, "₹1,00,00,000.00"}, // 1 crore
		{-1234.56, "-₹1,234.56"},
		{12345678.90, "₹1,23,45,678.90"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := FormatCurrency(tc.amount, RupeeSymbol)
			if result != tc.expected {
				t.Errorf("FormatCurrency(%f) = %s, want %s", tc.amount, result, tc.expected)
			}
		})
	}
}

func TestThousandsFormatExamples(t *testing.T) {
	testCases := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{999.5, "$999.50"},
		{1000, "$1,000.00"},
		{100000, "$100,000.00"},
		{-1234567.891, "-$1,234,567.89"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := FormatCurrency(tc.amount, "$")
			if result != tc.expected {
				t.Errorf("FormatCurrency(%f) = %s, want %s", tc.amount, result, tc.expected)
			}
		})
	}
}

func TestFormatPnLAndScore(t *testing.T) {
	score := 87
	pnl := -12.5

	cases := []struct {
		got, want string
	}{
		{FormatPnL(150, "$"), "+$150.00"},
		{FormatPnL(-20, "€"), "-€20.00"},
		{FormatPnL(0, "$"), "$0.00"},
		{FormatOptionalPnL(nil, "$"), "-"},
		{FormatOptionalPnL(&pnl, "$"), "-$12.50"},
		{FormatScore(&score), "87"},
		{FormatScore(nil), "-"},
		{TruncateString("Wait for it", 8), "Wait ..."},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}
