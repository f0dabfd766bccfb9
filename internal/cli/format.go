package cli

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RupeeSymbol switches currency formatting to Indian digit grouping.
const RupeeSymbol = "₹"

// FormatCurrency formats an amount with two decimals and digit grouping.
// Rupee amounts use the Indian system (lakhs, crores), everything else
// groups by thousands.
func FormatCurrency(amount float64, symbol string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	intPart, decPart, _ := strings.Cut(str, ".")

	var grouped string
	if symbol == RupeeSymbol {
		grouped = formatIndianNumber(intPart)
	} else {
		grouped = formatThousands(intPart)
	}

	result := symbol + grouped + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right (hundreds)
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2 (thousands, lakhs, crores)
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

func formatThousands(s string) string {
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

// FormatPnL formats P&L with sign.
func FormatPnL(pnl float64, symbol string) string {
	formatted := FormatCurrency(pnl, symbol)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatOptionalPnL formats a P&L that may be missing.
func FormatOptionalPnL(pnl *float64, symbol string) string {
	if pnl == nil {
		return "-"
	}
	return FormatPnL(*pnl, symbol)
}

// FormatScore formats a discipline score, or a dash when there is none.
func FormatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *score)
}

// FormatTime formats a clock time in loc.
func FormatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatBar renders a fixed-width usage bar for pct in [0, 100].
func FormatBar(pct float64, width int) string {
	pct = math.Max(0, math.Min(pct, 100))
	filled := int(math.Round(pct / 100 * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
