package money

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatMinorUnits renders a minor-unit amount as a human-readable
// string with a thousands separator, e.g. 1234550 -> "$12,345.50".
// All rendering surfaces format persisted integers through this
// function so their output can never drift apart.
func FormatMinorUnits(v int64, symbol string) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, symbol, groupThousands(v/100), v%100)
}

// groupThousands formats a non-negative integer with comma separators.
func groupThousands(v int64) string {
	s := strconv.FormatInt(v, 10)

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent renders a stored tax rate for display, trimming
// trailing zeros: 500 -> "5%", 525 -> "5.25%".
func FormatPercent(taxRateUnits int64) string {
	whole := taxRateUnits / 100
	frac := taxRateUnits % 100
	if frac == 0 {
		return fmt.Sprintf("%d%%", whole)
	}
	s := fmt.Sprintf("%d.%02d", whole, frac)
	s = strings.TrimRight(s, "0")
	return s + "%"
}
