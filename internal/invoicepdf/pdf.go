// Package invoicepdf renders sponsorship invoices as PDF documents.
package invoicepdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/zurich-js/zurichjs-conf-sub007/internal/billing"
)

// Color scheme - ZurichJS yellow on dark slate
var (
	colorPrimary    = [3]int{24, 24, 27}    // Near-black slate
	colorAccent     = [3]int{241, 190, 36}  // ZurichJS yellow
	colorTextDark   = [3]int{44, 62, 80}    // Dark text
	colorTextMuted  = [3]int{127, 140, 141} // Muted text
	colorTableAlt   = [3]int{248, 249, 250} // Alternating row
	colorTotalsLine = [3]int{220, 220, 220} // Separator lines
)

// InvoiceData carries everything the renderer needs; it performs no I/O and
// no recomputation beyond display formatting.
type InvoiceData struct {
	Number      string
	IssuedAt    time.Time
	SponsorName string
	Address     string
	VATNumber   string
	Currency    billing.Currency
	Items       []billing.LineItem
	Totals      billing.Totals
	TierName    string
}

// Generator renders invoice PDFs.
type Generator struct{}

// NewGenerator creates an invoice PDF generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Render produces a single-page A4 invoice document.
func (g *Generator) Render(data InvoiceData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AddPage()

	g.writeHeader(pdf, data)
	g.writeBillTo(pdf, data)
	g.writeItemsTable(pdf, data)
	g.writeTotals(pdf, data)
	g.writeFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeHeader(pdf *fpdf.Fpdf, data InvoiceData) {
	pageWidth, _ := pdf.GetPageSize()

	// Top accent bar
	pdf.SetFillColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.Rect(0, 0, pageWidth, 6, "F")

	pdf.SetY(20)
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 12, "ZurichJS Conference 2026", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 5, "ZurichJS Association - Zurich, Switzerland", "", 1, "L", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(100, 8, fmt.Sprintf("Invoice %s", data.Number), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 8, data.IssuedAt.Format("2 January 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func (g *Generator) writeBillTo(pdf *fpdf.Fpdf, data InvoiceData) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, "BILL TO", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 6, data.SponsorName, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if data.Address != "" {
		pdf.MultiCell(0, 5, data.Address, "", "L", false)
	}
	if data.VATNumber != "" {
		pdf.CellFormat(0, 5, "VAT: "+data.VATNumber, "", 1, "L", false, 0, "")
	}
	if data.TierName != "" {
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 5, "Sponsorship package: "+data.TierName, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (g *Generator) writeItemsTable(pdf *fpdf.Fpdf, data InvoiceData) {
	const (
		descWidth   = 90
		qtyWidth    = 15
		unitWidth   = 30
		amountWidth = 35
	)

	// Header row
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(descWidth, 8, "Description", "", 0, "L", true, 0, "")
	pdf.CellFormat(qtyWidth, 8, "Qty", "", 0, "C", true, 0, "")
	pdf.CellFormat(unitWidth, 8, "Unit price", "", 0, "R", true, 0, "")
	pdf.CellFormat(amountWidth, 8, "Amount", "", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])

	for i, item := range data.Items {
		fill := i%2 == 1
		if fill {
			pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		}

		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}

		desc := item.Description
		if desc == "" {
			desc = defaultDescription(item.Type)
		}
		if item.Type == billing.LineItemAddon && item.UsesCredit {
			desc += " (credit-eligible)"
		}

		pdf.CellFormat(descWidth, 7, desc, "", 0, "L", fill, 0, "")
		pdf.CellFormat(qtyWidth, 7, fmt.Sprintf("%d", qty), "", 0, "C", fill, 0, "")
		pdf.CellFormat(unitWidth, 7, billing.FormatCurrency(item.UnitPrice, data.Currency), "", 0, "R", fill, 0, "")
		pdf.CellFormat(amountWidth, 7, billing.FormatCurrency(item.UnitPrice*qty, data.Currency), "", 1, "R", fill, 0, "")
	}
	pdf.Ln(2)
}

func (g *Generator) writeTotals(pdf *fpdf.Fpdf, data InvoiceData) {
	pageWidth, _ := pdf.GetPageSize()
	labelX := pageWidth - 20 - 85

	line := func(label, value string, bold bool) {
		pdf.SetX(labelX)
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(50, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, value, "", 1, "R", false, 0, "")
	}

	pdf.SetDrawColor(colorTotalsLine[0], colorTotalsLine[1], colorTotalsLine[2])
	pdf.Line(labelX, pdf.GetY(), pageWidth-20, pdf.GetY())

	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	line("Subtotal", billing.FormatCurrency(data.Totals.Subtotal, data.Currency), false)
	if data.Totals.CreditApplied > 0 {
		line("Tier credit applied", billing.FormatCurrency(-data.Totals.CreditApplied, data.Currency), false)
	}
	if data.Totals.AdjustmentsTotal != 0 {
		line("Adjustments", billing.FormatCurrency(data.Totals.AdjustmentsTotal, data.Currency), false)
	}

	pdf.Line(labelX, pdf.GetY(), pageWidth-20, pdf.GetY())
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	line("Total due", billing.FormatCurrency(data.Totals.Total, data.Currency), true)
}

func (g *Generator) writeFooter(pdf *fpdf.Fpdf) {
	_, pageHeight := pdf.GetPageSize()
	pdf.SetY(pageHeight - 30)
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 4, "Payment terms: 30 days net. Please reference the invoice number with your payment.", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 4, "ZurichJS Association - hello@zurichjs.com", "", 1, "C", false, 0, "")
}

func defaultDescription(t billing.LineItemType) string {
	switch t {
	case billing.LineItemTierBase:
		return "Sponsorship package"
	case billing.LineItemAddon:
		return "Add-on"
	case billing.LineItemAdjustment:
		return "Adjustment"
	default:
		return string(t)
	}
}
