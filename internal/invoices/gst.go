package invoices

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// ValidGSTRates are the slab rates (percent) an invoice may carry.
var ValidGSTRates = []decimal.Decimal{
	decimal.NewFromInt(0),
	decimal.NewFromInt(5),
	decimal.NewFromInt(12),
	decimal.NewFromInt(18),
	decimal.NewFromInt(28),
}

// LineInput is one billable row as entered.
type LineInput struct {
	Description string          `json:"description" validate:"required,max=300"`
	SACCode     string          `json:"sac_code,omitempty" validate:"omitempty,max=10"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Line is a priced row.
type Line struct {
	LineInput
	Amount decimal.Decimal `json:"amount"`
}

// Totals is the GST breakup of an invoice. Intra-state supplies split the tax
// into CGST and SGST; inter-state supplies carry IGST only.
type Totals struct {
	Lines      []Line          `json:"lines"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	GSTRate    decimal.Decimal `json:"gst_rate"`
	IntraState bool            `json:"intra_state"`
	CGST       decimal.Decimal `json:"cgst"`
	SGST       decimal.Decimal `json:"sgst"`
	IGST       decimal.Decimal `json:"igst"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	Total      decimal.Decimal `json:"total"`
}

// ParseGSTRate validates a slab rate.
func ParseGSTRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid gst rate %q", raw)
	}
	if !IsValidGSTRate(rate) {
		return decimal.Zero, fmt.Errorf("gst rate must be one of 0, 5, 12, 18, 28")
	}
	return rate, nil
}

func IsValidGSTRate(rate decimal.Decimal) bool {
	for _, candidate := range ValidGSTRates {
		if candidate.Equal(rate) {
			return true
		}
	}
	return false
}

// SameState reports whether supplier and place of supply are the same state.
// States compare by trimmed, case-insensitive name or two-digit GST code.
func SameState(supplierState, placeOfSupply string) bool {
	return normalizeState(supplierState) == normalizeState(placeOfSupply)
}

func normalizeState(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ComputeTotals prices lines and applies GST. Every amount is rounded half-up
// to two places.
func ComputeTotals(lines []LineInput, rate decimal.Decimal, supplierState, placeOfSupply string) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, fmt.Errorf("at least one line item is required")
	}
	if !IsValidGSTRate(rate) {
		return Totals{}, fmt.Errorf("gst rate must be one of 0, 5, 12, 18, 28")
	}

	out := Totals{
		Lines:      make([]Line, 0, len(lines)),
		Subtotal:   decimal.Zero,
		GSTRate:    rate,
		IntraState: SameState(supplierState, placeOfSupply),
		CGST:       decimal.Zero,
		SGST:       decimal.Zero,
		IGST:       decimal.Zero,
	}
	for i, in := range lines {
		if !in.Quantity.IsPositive() {
			return Totals{}, fmt.Errorf("line %d: quantity must be positive", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("line %d: unit price cannot be negative", i+1)
		}
		amount := roundMoney(in.Quantity.Mul(in.UnitPrice))
		out.Lines = append(out.Lines, Line{LineInput: in, Amount: amount})
		out.Subtotal = out.Subtotal.Add(amount)
	}

	if out.IntraState {
		half := rate.Div(two)
		out.CGST = roundMoney(out.Subtotal.Mul(half).Div(hundred))
		out.SGST = out.CGST
	} else {
		out.IGST = roundMoney(out.Subtotal.Mul(rate).Div(hundred))
	}
	out.TaxTotal = out.CGST.Add(out.SGST).Add(out.IGST)
	out.Total = out.Subtotal.Add(out.TaxTotal)
	return out, nil
}

// roundMoney rounds half away from zero, which is half-up for the
// non-negative amounts invoices carry.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
