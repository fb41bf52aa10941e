// Package report projects parsed invoices into flat rows for display and
// export. Every figure is recomputed from invoice components rather than
// read from stored totals.
package report

import (
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/edi"
)

// SummaryRow is the per-invoice projection with the recomputed financial
// breakdown.
type SummaryRow struct {
	InvoiceNumber   string
	InvoiceDate     string // YYYY-MM-DD
	PONumber        string
	TransactionType string
	Currency        string
	SenderID        string
	ReceiverID      string
	ControlNumber   string
	VendorName      string
	BuyerName       string
	ShipToName      string
	BillToName      string
	ShipFromName    string
	GLAccount       string

	// TotalAmount is the declared TDS total as parsed.
	TotalAmount        decimal.Decimal
	LineItemsSubtotal  decimal.Decimal
	LineItemAllowances decimal.Decimal
	LineItemTaxes      decimal.Decimal
	InvoiceAllowances  decimal.Decimal
	InvoiceTaxes       decimal.Decimal
	TotalAllowances    decimal.Decimal
	TotalTaxes         decimal.Decimal
	TotalDiscount      decimal.Decimal
	CalculatedTotal    decimal.Decimal
}

// LineRow is the per-line-item projection.
type LineRow struct {
	InvoiceNumber string
	LineNumber    string
	ProductCode   string
	Description   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	UOM           string
	LineAmount    decimal.Decimal
	Allowances    decimal.Decimal
	Tax           decimal.Decimal
	NetAmount     decimal.Decimal
	GLAccount     string
}

// Summarize builds one summary row per invoice, in input order.
func Summarize(invoices []*edi.Invoice) []SummaryRow {
	rows := make([]SummaryRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, summarize(inv))
	}
	return rows
}

func summarize(inv *edi.Invoice) SummaryRow {
	var base, lineAllowances, lineTaxes decimal.Decimal
	for _, item := range inv.LineItems {
		base = base.Add(item.Quantity.Mul(item.UnitPrice))
		lineAllowances = lineAllowances.Add(sumAmounts(item.Allowances))
		lineTaxes = lineTaxes.Add(sumAmounts(item.Taxes))
	}

	invoiceAllowances := sumAmounts(inv.Allowances)
	invoiceTaxes := sumAmounts(inv.Taxes)
	if inv.TotalTax.IsPositive() {
		invoiceTaxes = inv.TotalTax
	}

	// Credit transactions carry every sub-total with negative magnitude
	// so the breakdown stays consistent with the negated total.
	if inv.IsCredit() {
		base = negMagnitude(base)
		lineAllowances = negMagnitude(lineAllowances)
		lineTaxes = negMagnitude(lineTaxes)
		invoiceAllowances = negMagnitude(invoiceAllowances)
		invoiceTaxes = negMagnitude(invoiceTaxes)
	}

	return SummaryRow{
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceDate:     inv.InvoiceDate.Format("2006-01-02"),
		PONumber:        inv.PONumber,
		TransactionType: inv.TransactionType,
		Currency:        inv.Currency,
		SenderID:        inv.SenderID,
		ReceiverID:      inv.ReceiverID,
		ControlNumber:   inv.InterchangeControlNumber,
		VendorName:      inv.VendorName,
		BuyerName:       inv.BuyerName,
		ShipToName:      inv.ShipToName,
		BillToName:      inv.BillToName,
		ShipFromName:    inv.ShipFromName,
		GLAccount:       inv.GLAccount,

		TotalAmount:        inv.TotalAmount,
		LineItemsSubtotal:  base,
		LineItemAllowances: lineAllowances,
		LineItemTaxes:      lineTaxes,
		InvoiceAllowances:  invoiceAllowances,
		InvoiceTaxes:       invoiceTaxes,
		TotalAllowances:    lineAllowances.Add(invoiceAllowances),
		TotalTaxes:         lineTaxes.Add(invoiceTaxes),
		TotalDiscount:      inv.TotalDiscount,
		CalculatedTotal:    inv.CalculateTotal(),
	}
}

// LineItems flattens every line item into one row per item, invoices in
// input order.
func LineItems(invoices []*edi.Invoice) []LineRow {
	var rows []LineRow
	for _, inv := range invoices {
		for _, item := range inv.LineItems {
			rows = append(rows, LineRow{
				InvoiceNumber: inv.InvoiceNumber,
				LineNumber:    item.LineNumber,
				ProductCode:   item.ProductCode,
				Description:   item.Description,
				Quantity:      item.Quantity,
				UnitPrice:     item.UnitPrice,
				UOM:           item.UOM,
				LineAmount:    item.BaseAmount(),
				Allowances:    sumAmounts(item.Allowances),
				Tax:           sumAmounts(item.Taxes),
				NetAmount:     item.TotalAmount,
				GLAccount:     item.GLAccount,
			})
		}
	}
	return rows
}

func sumAmounts(adjs []edi.Adjustment) decimal.Decimal {
	var total decimal.Decimal
	for _, a := range adjs {
		total = total.Add(a.Amount)
	}
	return total
}

func negMagnitude(d decimal.Decimal) decimal.Decimal {
	return d.Abs().Neg()
}
