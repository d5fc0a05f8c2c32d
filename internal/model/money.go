package model

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// moneyPrinter formats amounts with locale-stable grouping and two fraction
// digits, used when composing payment descriptions (e.g. "surcharge 3.50").
var moneyPrinter = message.NewPrinter(language.English)

// FormatAmount renders amount as a fixed two-decimal string ("3.50"), used
// by Payment.Description. The teacher's own golang.org/x/text usage is
// unicode/norm for filename normalization, an unrelated concern — this
// repurposes the same dependency for its message/number formatting
// subpackages instead of hand-rolling strconv.FormatFloat rounding.
func FormatAmount(amount float64) string {
	return moneyPrinter.Sprintf("%v", number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}
