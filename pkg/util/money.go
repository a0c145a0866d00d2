package util

import (
	"strings"

	"github.com/shopspring/decimal"
)

var cents = decimal.NewFromInt(100)

// FormatCents renders an integer cent amount as a CAD currency string,
// e.g. 150000 -> "$1,500.00". Negative amounts keep the sign ahead of
// the dollar symbol.
func FormatCents(amount int64) string {
	d := decimal.NewFromInt(amount).Div(cents)

	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)

	parts := strings.SplitN(fixed, ".", 2)
	whole := parts[0]

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	out := "$" + b.String() + "." + parts[1]
	if neg {
		out = "-" + out
	}
	return out
}
