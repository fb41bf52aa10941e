// Package edi parses X12 EDI 810 invoice documents into invoices and line
// items, and captures the envelope segments needed to acknowledge them.
package edi

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	centsPerUnit = decimal.NewFromInt(100)

	// reconcileTolerance is the largest accepted difference between the
	// declared TDS total and the recomputed total.
	reconcileTolerance = decimal.New(2, -2)

	// totalTaxCodes are the TXI codes that set the invoice's
	// authoritative total tax instead of accumulating in the tax list.
	totalTaxCodes = map[string]bool{"TX": true, "ST": true}
)

// Diagnostic records a non-fatal problem found while parsing one segment.
// Malformed segments and reconciliation mismatches are reported here;
// neither aborts the parse.
type Diagnostic struct {
	Segment int // zero-based position in the tokenized document
	Tag     string
	Message string
	Err     error
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("segment %d (%s): %s: %v", d.Segment, d.Tag, d.Message, d.Err)
	}
	return fmt.Sprintf("segment %d (%s): %s", d.Segment, d.Tag, d.Message)
}

// Envelope holds the header segments captured verbatim, terminator
// included, for 997 generation. When a document carries several
// interchanges the last seen segment of each kind wins.
type Envelope struct {
	ISA string
	GS  string
	ST  string
	GE  string
}

// Complete reports whether every segment required for 997 generation was
// captured.
func (e Envelope) Complete() bool {
	return e.ISA != "" && e.GS != "" && e.ST != ""
}

// ParseResult is the output of one parse pass.
type ParseResult struct {
	Invoices    []*Invoice
	Envelope    Envelope
	Delimiters  Delimiters
	Diagnostics []Diagnostic
}

// parserState threads the fold over the segment sequence. current and
// currentItem index into the growing invoice and line item slices, -1 when
// nothing is open.
type parserState struct {
	invoices    []*Invoice
	current     int
	currentItem int

	sender        string
	receiver      string
	controlNumber string

	envelope Envelope
	delims   Delimiters
}

// Parse tokenizes content and folds the segments into invoices, captured
// envelope segments and a diagnostics list. Each call uses fresh state, so
// concurrent parses of distinct documents are safe.
func Parse(content string) *ParseResult {
	segments, delims := Tokenize(content)

	st := parserState{current: -1, currentItem: -1, delims: delims}
	var diags []Diagnostic
	for i, seg := range segments {
		if diag := st.apply(seg); diag != nil {
			diag.Segment = i
			diags = append(diags, *diag)
		}
	}

	return &ParseResult{
		Invoices:    st.invoices,
		Envelope:    st.envelope,
		Delimiters:  delims,
		Diagnostics: diags,
	}
}

// apply dispatches one segment to its tag handler. Unknown tags are
// ignored. A returned diagnostic never stops the walk.
func (st *parserState) apply(seg Segment) *Diagnostic {
	var diag *Diagnostic
	var err error
	switch seg.Tag {
	case "ISA":
		err = st.applyISA(seg)
	case "GS":
		st.envelope.GS = seg.Raw + st.delims.Segment
	case "ST":
		st.envelope.ST = seg.Raw + st.delims.Segment
	case "GE":
		st.envelope.GE = seg.Raw + st.delims.Segment
	case "BIG":
		err = st.applyBIG(seg)
	case "N1":
		st.applyN1(seg)
	case "IT1":
		err = st.applyIT1(seg)
	case "PID":
		st.applyPID(seg)
	case "SAC":
		err = st.applySAC(seg)
	case "TXI":
		err = st.applyTXI(seg)
	case "REF":
		st.applyREF(seg)
	case "TDS":
		diag, err = st.applyTDS(seg)
	}
	if err != nil {
		return &Diagnostic{Tag: seg.Tag, Message: "malformed segment", Err: err}
	}
	return diag
}

func (st *parserState) currentInvoice() *Invoice {
	if st.current < 0 {
		return nil
	}
	return st.invoices[st.current]
}

func (st *parserState) currentLineItem() *LineItem {
	inv := st.currentInvoice()
	if inv == nil || st.currentItem < 0 {
		return nil
	}
	return inv.LineItems[st.currentItem]
}

// applyISA captures the interchange header and the identifiers every
// invoice in the interchange inherits. The raw segment is captured even
// when extraction fails so a 997 can still echo it.
func (st *parserState) applyISA(seg Segment) error {
	st.envelope.ISA = seg.Raw + st.delims.Segment
	if len(seg.Elements) < 14 {
		return fmt.Errorf("interchange header has %d elements, expected at least 14", len(seg.Elements))
	}
	st.sender = seg.Elements[6]
	st.receiver = seg.Elements[8]
	st.controlNumber = seg.Elements[13]
	return nil
}

// applyBIG opens a new invoice. The line item pointer resets so stray
// adjustment segments cannot attach to a previous invoice's line.
func (st *parserState) applyBIG(seg Segment) error {
	if len(seg.Elements) < 3 {
		return fmt.Errorf("invoice header has %d elements, expected at least 3", len(seg.Elements))
	}
	date, err := parseDate(seg.Elements[1])
	if err != nil {
		return fmt.Errorf("invalid invoice date %q: %w", seg.Elements[1], err)
	}
	inv := &Invoice{
		InvoiceNumber:            seg.Elements[2],
		InvoiceDate:              date,
		PONumber:                 seg.Element(4),
		TransactionType:          seg.Element(7),
		Currency:                 "USD",
		SenderID:                 st.sender,
		ReceiverID:               st.receiver,
		InterchangeControlNumber: st.controlNumber,
	}
	st.invoices = append(st.invoices, inv)
	st.current = len(st.invoices) - 1
	st.currentItem = -1
	return nil
}

func (st *parserState) applyN1(seg Segment) {
	inv := st.currentInvoice()
	if inv == nil || len(seg.Elements) < 3 {
		return
	}
	name := seg.Elements[2]
	switch seg.Elements[1] {
	case "SE":
		inv.VendorName = name
	case "BY":
		inv.BuyerName = name
	case "ST":
		inv.ShipToName = name
	case "BT":
		inv.BillToName = name
	case "SF":
		inv.ShipFromName = name
	}
}

func (st *parserState) applyIT1(seg Segment) error {
	inv := st.currentInvoice()
	if inv == nil {
		return nil
	}
	if len(seg.Elements) < 8 {
		return fmt.Errorf("line item has %d elements, expected at least 8", len(seg.Elements))
	}
	quantity, err := decimal.NewFromString(seg.Elements[2])
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", seg.Elements[2], err)
	}
	unitPrice, err := decimal.NewFromString(seg.Elements[4])
	if err != nil {
		return fmt.Errorf("invalid unit price %q: %w", seg.Elements[4], err)
	}
	item := NewLineItem(seg.Elements[1], quantity, unitPrice, seg.Elements[3], seg.Elements[7], seg.Element(9), inv.IsCredit())
	inv.LineItems = append(inv.LineItems, item)
	st.currentItem = len(inv.LineItems) - 1
	return nil
}

// applyPID replaces the line item description with the richer PID text.
func (st *parserState) applyPID(seg Segment) {
	item := st.currentLineItem()
	if item == nil || len(seg.Elements) < 6 {
		return
	}
	item.Description = seg.Elements[5]
}

// applySAC routes an allowance or charge to the open line item, falling
// back to the invoice when no line is open. Sales tax charges land in the
// tax list, everything else in the allowance list.
func (st *parserState) applySAC(seg Segment) error {
	adj, ok, err := parseSAC(seg)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if item := st.currentLineItem(); item != nil {
		if adj.Description == "SALES TAX" {
			item.AddTax(adj)
		} else {
			item.AddAllowance(adj)
		}
		return nil
	}
	if inv := st.currentInvoice(); inv != nil {
		if adj.Description == "SALES TAX" {
			inv.AddTax(adj)
		} else {
			inv.AddAllowance(adj)
		}
	}
	return nil
}

// parseSAC decodes a service/promotion/allowance/charge segment. Amounts
// are always cents. Segments without an A or C indicator and an amount do
// not qualify and yield ok == false.
func parseSAC(seg Segment) (adj Adjustment, ok bool, err error) {
	if len(seg.Elements) < 6 {
		return Adjustment{}, false, nil
	}
	indicator := seg.Elements[1]
	if indicator != "A" && indicator != "C" {
		return Adjustment{}, false, nil
	}
	amount, err := decimal.NewFromString(seg.Elements[5])
	if err != nil {
		return Adjustment{}, false, fmt.Errorf("invalid allowance amount %q: %w", seg.Elements[5], err)
	}
	amount = amount.Div(centsPerUnit).Round(2)
	if indicator == "A" {
		amount = amount.Neg()
	}

	description := "PROMOTIONAL ALLOWANCE"
	if indicator == "C" && seg.Elements[2] == "H850" {
		description = "SALES TAX"
	} else if desc := seg.Element(15); desc != "" {
		description = desc
	}

	return Adjustment{Code: seg.Elements[2], Amount: amount, Description: description}, true, nil
}

// applyTXI records tax information at the invoice level. An override code
// replaces the authoritative total tax, last occurrence wins; any other
// code accumulates in the tax list. Tax never attaches to a line item
// here, SAC sales tax does that.
func (st *parserState) applyTXI(seg Segment) error {
	inv := st.currentInvoice()
	if inv == nil || len(seg.Elements) < 3 {
		return nil
	}
	code := seg.Elements[1]
	raw := seg.Elements[2]
	if totalTaxCodes[code] {
		amount, err := parseAmount(raw)
		if err != nil {
			return fmt.Errorf("invalid tax amount %q: %w", raw, err)
		}
		inv.TotalTax = amount
		return nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid tax amount %q: %w", raw, err)
	}
	inv.AddTax(Adjustment{Code: code, Amount: amount.Div(centsPerUnit), Description: "Tax"})
	return nil
}

// applyREF assigns a GL account reference to the open line item, or to the
// invoice when no line is open.
func (st *parserState) applyREF(seg Segment) {
	if len(seg.Elements) < 2 {
		return
	}
	qualifier := seg.Elements[1]
	if qualifier != "PG" && qualifier != "CR" {
		return
	}
	account := seg.Element(2)
	if item := st.currentLineItem(); item != nil {
		item.GLAccount = account
	} else if inv := st.currentInvoice(); inv != nil {
		inv.GLAccount = account
	}
}

// applyTDS records the declared totals and reconciles them against the
// recomputed total. A mismatch beyond the tolerance is a diagnostic, not
// an error: the declared total stands either way.
func (st *parserState) applyTDS(seg Segment) (*Diagnostic, error) {
	inv := st.currentInvoice()
	if inv == nil || len(seg.Elements) < 2 {
		return nil, nil
	}
	total, err := parseAmount(seg.Elements[1])
	if err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", seg.Elements[1], err)
	}
	if inv.IsCredit() {
		total = total.Abs().Neg()
	}
	inv.TotalAmount = total

	if raw := seg.Element(4); raw != "" {
		discount, err := parseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid discount amount %q: %w", raw, err)
		}
		inv.TotalDiscount = discount
	}

	calculated := inv.CalculateTotal()
	if calculated.Sub(total).Abs().GreaterThan(reconcileTolerance) {
		return &Diagnostic{
			Tag: seg.Tag,
			Message: fmt.Sprintf("total mismatch for invoice %s: declared %s, calculated %s",
				inv.InvoiceNumber, total.StringFixed(2), calculated.StringFixed(2)),
		}, nil
	}
	return nil, nil
}

// parseAmount reads a monetary element that is cents unless the raw value
// already carries a decimal point.
func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !strings.Contains(raw, ".") {
		d = d.Div(centsPerUnit)
	}
	return d.Round(2), nil
}

// parseDate accepts YYYYMMDD, falling back to the last six digits read as
// YYMMDD.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("20060102", s); err == nil {
		return t, nil
	}
	if len(s) >= 6 {
		if t, err := time.Parse("060102", s[len(s)-6:]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
