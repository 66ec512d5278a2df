// Package money is the single source of truth for quotation arithmetic.
// Amounts are integers in minor currency units (cents); tax rates are
// integers carrying two implied decimal digits of a percentage, so a
// stored rate of 525 means 5.25%. Every rounding step in this package
// rounds half away from zero, and each derived value is rounded exactly
// once. The list page, detail page, PDF, and email all render from the
// integers computed here, never from their own float math.
package money

import "math"

// Financials holds the derived totals persisted on a quotation,
// all in minor units.
type Financials struct {
	Subtotal  int64 `json:"subtotal"`
	TaxAmount int64 `json:"tax_amount"`
	Total     int64 `json:"total_amount"`
}

// LineItem is the arithmetic view of a quotation line. Quantity and
// UnitPrice are validated non-negative by the caller before they reach
// this package.
type LineItem struct {
	ProductName string
	Quantity    int64
	UnitPrice   int64 // minor units
	Taxable     bool
}

// taxRateScale is the divisor applied when deriving tax from a stored
// rate: rate 500 over scale 10000 is 5%.
const taxRateScale = 10000

// ToMinorUnits converts a user-entered decimal amount (e.g. 19.99) to
// integer minor units, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ToTaxRateUnits converts a user-entered percentage (e.g. 5 or 5.25) to
// the stored integer rate, rounding half away from zero.
func ToTaxRateUnits(percent float64) int64 {
	return int64(math.Round(percent * 100))
}

// ToPercent is the display-only inverse of ToTaxRateUnits.
func ToPercent(taxRateUnits int64) float64 {
	return float64(taxRateUnits) / 100
}

// Compute derives subtotal, tax, and total for a set of line items and a
// stored tax rate. The subtotal is pure integer accumulation; tax is
// rounded once on the aggregate subtotal, never per line, so repeated
// calls with identical inputs always agree.
//
// The Taxable flag on line items is persisted and echoed back to
// clients but deliberately not consulted here: the tax applies to the
// full subtotal. Line-level exemption needs a product decision before
// it changes the arithmetic.
func Compute(items []LineItem, taxRateUnits int64) Financials {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Quantity * it.UnitPrice
	}

	// Integer half-away-from-zero rounding; operands are non-negative.
	taxAmount := (subtotal*taxRateUnits + taxRateScale/2) / taxRateScale

	return Financials{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal + taxAmount,
	}
}
