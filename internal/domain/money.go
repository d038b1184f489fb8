package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount as dollars with thousands separators,
// e.g. $12,500 or $1,234.50.
func FormatMoney(d decimal.Decimal) string {
	neg := d.IsNegative()
	d = d.Abs().Round(2)

	whole := d.Truncate(0)
	frac := d.Sub(whole)

	digits := whole.String()
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := "$" + b.String()
	if !frac.IsZero() {
		out += fmt.Sprintf(".%02d", frac.Shift(2).IntPart())
	}
	if neg {
		out = "-" + out
	}
	return out
}
