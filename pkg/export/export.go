// Package export writes invoice summaries and line items to Excel
// workbooks and CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/edi-gateway/pkg/report"
)

const (
	summarySheet = "Invoices"
	lineSheet    = "Line Items"
)

var summaryHeader = []string{
	"Invoice Number", "Invoice Date", "PO Number", "Transaction Type",
	"Sender ID", "Receiver ID", "Control Number", "Currency",
	"Total Amount", "Line Items Subtotal",
	"Line Item Allowances", "Line Item Taxes",
	"Invoice Allowances", "Invoice Taxes",
	"Total Allowances", "Total Taxes", "Total TDS Discounts", "Calculated Total",
	"Vendor Name", "Buyer Name", "Ship To Name", "Bill To Name", "Ship From Name",
	"GL Account",
}

var lineHeader = []string{
	"Invoice Number", "Line Number", "Product Code", "Description",
	"Quantity", "Unit Price", "UOM",
	"Line Amount", "Allowances", "Sales Tax", "Net Amount",
	"GL Account",
}

// WriteWorkbook writes an Excel workbook with an Invoices sheet and a
// Line Items sheet.
func WriteWorkbook(path string, summaries []report.SummaryRow, lines []report.LineRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(lineSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", lineSheet, err)
	}

	if err := writeSheet(f, summarySheet, summaryHeader, summaryCells(summaries)); err != nil {
		return err
	}
	if err := writeSheet(f, lineSheet, lineHeader, lineCells(lines)); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell for row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d for %s: %w", i+2, sheet, err)
		}
	}
	return nil
}

func summaryCells(rows []report.SummaryRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, []interface{}{
			r.InvoiceNumber, r.InvoiceDate, r.PONumber, r.TransactionType,
			r.SenderID, r.ReceiverID, r.ControlNumber, r.Currency,
			amount(r.TotalAmount), amount(r.LineItemsSubtotal),
			amount(r.LineItemAllowances), amount(r.LineItemTaxes),
			amount(r.InvoiceAllowances), amount(r.InvoiceTaxes),
			amount(r.TotalAllowances), amount(r.TotalTaxes),
			amount(r.TotalDiscount), amount(r.CalculatedTotal),
			r.VendorName, r.BuyerName, r.ShipToName, r.BillToName, r.ShipFromName,
			r.GLAccount,
		})
	}
	return out
}

func lineCells(rows []report.LineRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, []interface{}{
			r.InvoiceNumber, r.LineNumber, r.ProductCode, r.Description,
			amount(r.Quantity), amount(r.UnitPrice), r.UOM,
			amount(r.LineAmount), amount(r.Allowances), amount(r.Tax),
			amount(r.NetAmount), r.GLAccount,
		})
	}
	return out
}

// amount converts a decimal to the float64 value stored in a cell.
func amount(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// WriteSummaryCSV writes one CSV row per invoice.
func WriteSummaryCSV(path string, rows []report.SummaryRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, summaryHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.InvoiceNumber, r.InvoiceDate, r.PONumber, r.TransactionType,
			r.SenderID, r.ReceiverID, r.ControlNumber, r.Currency,
			r.TotalAmount.StringFixed(2), r.LineItemsSubtotal.StringFixed(2),
			r.LineItemAllowances.StringFixed(2), r.LineItemTaxes.StringFixed(2),
			r.InvoiceAllowances.StringFixed(2), r.InvoiceTaxes.StringFixed(2),
			r.TotalAllowances.StringFixed(2), r.TotalTaxes.StringFixed(2),
			r.TotalDiscount.StringFixed(2), r.CalculatedTotal.StringFixed(2),
			r.VendorName, r.BuyerName, r.ShipToName, r.BillToName, r.ShipFromName,
			r.GLAccount,
		})
	}
	return writeCSV(path, records)
}

// WriteLinesCSV writes one CSV row per line item.
func WriteLinesCSV(path string, rows []report.LineRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, lineHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.InvoiceNumber, r.LineNumber, r.ProductCode, r.Description,
			r.Quantity.String(), r.UnitPrice.String(), r.UOM,
			r.LineAmount.StringFixed(2), r.Allowances.StringFixed(2), r.Tax.StringFixed(2),
			r.NetAmount.StringFixed(2),
			r.GLAccount,
		})
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
