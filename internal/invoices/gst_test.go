package invoices

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotalsIntraStateSplitsCGSTAndSGST(t *testing.T) {
	totals, err := ComputeTotals([]LineInput{
		{Description: "Website design", Quantity: dec("1"), UnitPrice: dec("25000")},
		{Description: "Hosting setup", Quantity: dec("2"), UnitPrice: dec("1499.50")},
	}, dec("18"), "Karnataka", " karnataka ")
	require.NoError(t, err)

	assert.True(t, totals.IntraState)
	assert.Equal(t, "27999.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "2519.91", totals.CGST.StringFixed(2))
	assert.Equal(t, "2519.91", totals.SGST.StringFixed(2))
	assert.True(t, totals.IGST.IsZero())
	assert.Equal(t, "33038.82", totals.Total.StringFixed(2))
	assert.Equal(t, "2999.00", totals.Lines[1].Amount.StringFixed(2))
}

func TestComputeTotalsInterStateChargesIGST(t *testing.T) {
	totals, err := ComputeTotals([]LineInput{
		{Description: "Copywriting", Quantity: dec("3"), UnitPrice: dec("333.33")},
	}, dec("18"), "Maharashtra", "Delhi")
	require.NoError(t, err)

	assert.False(t, totals.IntraState)
	assert.Equal(t, "999.99", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "180.00", totals.IGST.StringFixed(2))
	assert.True(t, totals.CGST.IsZero())
	assert.Equal(t, "1179.99", totals.Total.StringFixed(2))
}

func TestComputeTotalsRoundsHalfUp(t *testing.T) {
	totals, err := ComputeTotals([]LineInput{
		{Description: "Consulting", Quantity: dec("1"), UnitPrice: dec("10.05")},
	}, dec("5"), "Goa", "Kerala")
	require.NoError(t, err)
	// 10.05 * 5% = 0.5025
	assert.Equal(t, "0.50", totals.IGST.StringFixed(2))

	totals, err = ComputeTotals([]LineInput{
		{Description: "Consulting", Quantity: dec("1"), UnitPrice: dec("0.50")},
	}, dec("5"), "Goa", "Kerala")
	require.NoError(t, err)
	// 0.025 rounds up, not to even
	assert.Equal(t, "0.03", totals.IGST.StringFixed(2))
}

func TestComputeTotalsZeroRated(t *testing.T) {
	totals, err := ComputeTotals([]LineInput{
		{Description: "Export of services", Quantity: dec("1"), UnitPrice: dec("1000")},
	}, dec("0"), "Karnataka", "Karnataka")
	require.NoError(t, err)
	assert.True(t, totals.TaxTotal.IsZero())
	assert.Equal(t, "1000.00", totals.Total.StringFixed(2))
}

func TestComputeTotalsValidation(t *testing.T) {
	_, err := ComputeTotals(nil, dec("18"), "A", "A")
	assert.Error(t, err)

	_, err = ComputeTotals([]LineInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("1")}}, dec("15"), "A", "A")
	assert.Error(t, err)

	_, err = ComputeTotals([]LineInput{{Description: "x", Quantity: dec("0"), UnitPrice: dec("1")}}, dec("18"), "A", "A")
	assert.Error(t, err)

	_, err = ComputeTotals([]LineInput{{Description: "x", Quantity: dec("1"), UnitPrice: dec("-1")}}, dec("18"), "A", "A")
	assert.Error(t, err)
}

func TestParseGSTRate(t *testing.T) {
	rate, err := ParseGSTRate("12%")
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("12")))

	_, err = ParseGSTRate("7")
	assert.Error(t, err)
	_, err = ParseGSTRate("abc")
	assert.Error(t, err)
}
