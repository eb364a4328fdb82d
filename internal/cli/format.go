package cli

import (
	"fmt"
	"strings"
)

// FormatCurrency formats a number as US-dollar currency with thousands
// separators. Negative values render as -$1,234.56.
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	result := "$" + groupThousands(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts a comma every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	return groupThousands(s[:n-3]) + "," + s[n-3:]
}

// FormatPercent formats a percentage with an explicit sign for gains.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatSignedCurrency prefixes gains with a plus sign.
func FormatSignedCurrency(amount float64) string {
	formatted := FormatCurrency(amount)
	if amount > 0 {
		return "+" + formatted
	}
	return formatted
}
