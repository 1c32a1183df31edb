package invoices

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pdfMargin       = 15.0
	pdfContentWidth = 210.0 - 2*pdfMargin
)

// RenderPDF lays out an A4 tax invoice. Amounts are printed with an "INR"
// prefix because the core fonts carry no rupee glyph.
func RenderPDF(view View, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle("Tax Invoice "+view.InvoiceNumber, true)
	pdf.SetAuthor(view.SellerName, true)
	pdf.SetCreator("GigDesk", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("%s  |  page %d", view.InvoiceNumber, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	writeHeader(pdf, tr, view)
	writeParties(pdf, tr, view)
	writeLines(pdf, tr, view.Totals)
	writeTotals(pdf, view.Totals)

	if view.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(view.Notes), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("pdf generation error: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output error: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *fpdf.Fpdf, tr func(string) string, view View) {
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(pdfContentWidth/2, 10, "TAX INVOICE", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pdfContentWidth/2, 10, string(view.Status), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	meta := []string{
		"Invoice No: " + view.InvoiceNumber,
		"Issue date: " + view.IssueDate,
	}
	if view.DueDate != "" {
		meta = append(meta, "Due date: "+view.DueDate)
	}
	if view.DueText != "" {
		meta = append(meta, view.DueText)
	}
	for _, line := range meta {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writeParties(pdf *fpdf.Fpdf, tr func(string) string, view View) {
	half := pdfContentWidth / 2
	top := pdf.GetY()

	writeParty(pdf, tr, pdfMargin, top, half, "From", view.SellerName, view.SellerGSTIN, view.SupplierState)
	writeParty(pdf, tr, pdfMargin+half, top, half, "Bill to", view.BuyerName, view.BuyerGSTIN, view.PlaceOfSupply)

	pdf.SetXY(pdfMargin, top+28)
}

func writeParty(pdf *fpdf.Fpdf, tr func(string) string, x, y, w float64, title, name, gstin, state string) {
	pdf.SetXY(x, y)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w, 6, title, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(w, 5, tr(name), "", 2, "L", false, 0, "")
	if gstin != "" {
		pdf.CellFormat(w, 5, "GSTIN: "+gstin, "", 2, "L", false, 0, "")
	}
	pdf.CellFormat(w, 5, tr("State: "+state), "", 2, "L", false, 0, "")
}

var lineColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Description", 78, "L"},
	{"SAC", 20, "C"},
	{"Qty", 18, "R"},
	{"Rate", 27, "R"},
	{"Amount", 27, "R"},
}

func writeLines(pdf *fpdf.Fpdf, tr func(string) string, totals Totals) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(226, 232, 240)
	for _, col := range lineColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, line := range totals.Lines {
		cells := []string{
			fmt.Sprintf("%d", i+1),
			truncate(line.Description, 48),
			line.SACCode,
			line.Quantity.String(),
			line.UnitPrice.StringFixed(2),
			line.Amount.StringFixed(2),
		}
		for j, col := range lineColumns {
			pdf.CellFormat(col.width, 6, tr(cells[j]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}

func writeTotals(pdf *fpdf.Fpdf, totals Totals) {
	labelWidth := 40.0
	valueWidth := 35.0
	offset := pdfContentWidth - labelWidth - valueWidth

	row := func(label string, amount decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.SetX(pdfMargin + offset)
		pdf.CellFormat(labelWidth, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueWidth, 6, "INR "+amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	rate := totals.GSTRate
	row("Subtotal", totals.Subtotal, false)
	if totals.IntraState {
		half := rate.Div(two)
		row(fmt.Sprintf("CGST @ %s%%", half.String()), totals.CGST, false)
		row(fmt.Sprintf("SGST @ %s%%", half.String()), totals.SGST, false)
	} else {
		row(fmt.Sprintf("IGST @ %s%%", rate.String()), totals.IGST, false)
	}
	row("Total", totals.Total, true)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
