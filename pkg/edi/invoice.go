package edi

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentKind distinguishes the two kinds of monetary adjustment an
// invoice or line item can carry.
type AdjustmentKind int

const (
	KindAllowance AdjustmentKind = iota
	KindTax
)

func (k AdjustmentKind) String() string {
	switch k {
	case KindAllowance:
		return "allowance"
	case KindTax:
		return "tax"
	}
	return "unknown"
}

// Adjustment is a monetary adjustment parsed from a SAC or TXI segment.
// Amounts are stored sign-correct: allowances negative, charges and taxes
// positive unless the transaction is a credit.
type Adjustment struct {
	Kind        AdjustmentKind
	Code        string
	Amount      decimal.Decimal
	Description string
}

// LineItem is one IT1 line of an invoice. TotalAmount is maintained
// incrementally and is valid after construction and after every added
// adjustment.
type LineItem struct {
	LineNumber  string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	UOM         string
	ProductCode string
	Description string
	GLAccount   string
	Allowances  []Adjustment
	Taxes       []Adjustment
	TotalAmount decimal.Decimal

	credit bool
}

// NewLineItem seeds TotalAmount with quantity times unit price. For credit
// transactions the seed is forced negative and every later adjustment is
// stored with negative magnitude.
func NewLineItem(lineNumber string, quantity, unitPrice decimal.Decimal, uom, productCode, description string, credit bool) *LineItem {
	total := quantity.Mul(unitPrice)
	if credit {
		total = total.Abs().Neg()
	}
	return &LineItem{
		LineNumber:  lineNumber,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		UOM:         uom,
		ProductCode: productCode,
		Description: description,
		TotalAmount: total,
		credit:      credit,
	}
}

// AddAllowance appends an allowance and folds it into TotalAmount.
func (li *LineItem) AddAllowance(adj Adjustment) {
	adj.Kind = KindAllowance
	adj.Amount = li.signed(adj.Amount)
	li.Allowances = append(li.Allowances, adj)
	li.TotalAmount = li.TotalAmount.Add(adj.Amount)
}

// AddTax appends a tax and folds it into TotalAmount. The amount is taken
// as given; callers own any cents conversion.
func (li *LineItem) AddTax(adj Adjustment) {
	adj.Kind = KindTax
	adj.Amount = li.signed(adj.Amount)
	li.Taxes = append(li.Taxes, adj)
	li.TotalAmount = li.TotalAmount.Add(adj.Amount)
}

// BaseAmount returns quantity times unit price, negated for credit
// transactions.
func (li *LineItem) BaseAmount() decimal.Decimal {
	base := li.Quantity.Mul(li.UnitPrice)
	if li.credit {
		base = base.Abs().Neg()
	}
	return base
}

// IsCredit reports whether the item belongs to a credit transaction.
func (li *LineItem) IsCredit() bool { return li.credit }

func (li *LineItem) signed(amount decimal.Decimal) decimal.Decimal {
	if li.credit {
		return amount.Abs().Neg()
	}
	return amount
}

// CreditTransactionType is the BIG07 code marking a credit memo. Amounts on
// credit invoices are stored and reported with inverted sign.
const CreditTransactionType = "CR"

// Invoice is one 810 transaction, opened by a BIG segment and populated by
// the segments that follow it.
type Invoice struct {
	InvoiceNumber            string
	InvoiceDate              time.Time
	PONumber                 string
	TransactionType          string
	Currency                 string
	SenderID                 string
	ReceiverID               string
	InterchangeControlNumber string
	VendorName               string
	BuyerName                string
	ShipToName               string
	BillToName               string
	ShipFromName             string
	GLAccount                string

	// TotalAmount is the declared TDS total, zero when no TDS was seen.
	TotalAmount decimal.Decimal
	// TotalTax is the authoritative total tax set by an override TXI code.
	TotalTax decimal.Decimal
	// TotalDiscount is the TDS discounted amount, reporting only.
	TotalDiscount decimal.Decimal

	LineItems  []*LineItem
	Allowances []Adjustment
	Taxes      []Adjustment
}

// IsCredit reports whether the invoice is a credit transaction.
func (inv *Invoice) IsCredit() bool {
	return inv.TransactionType == CreditTransactionType
}

// AddAllowance appends an invoice-level allowance. The amount keeps the
// sign it was parsed with.
func (inv *Invoice) AddAllowance(adj Adjustment) {
	adj.Kind = KindAllowance
	inv.Allowances = append(inv.Allowances, adj)
}

// AddTax appends an invoice-level tax. The amount keeps the sign it was
// parsed with.
func (inv *Invoice) AddTax(adj Adjustment) {
	adj.Kind = KindTax
	inv.Taxes = append(inv.Taxes, adj)
}

// CalculateTotal recomputes the invoice total from its components: line
// bases plus line and invoice allowances plus tax. A positive TotalTax
// overrides the accumulated tax list. Line item taxes are excluded; they
// are detail under the authoritative total. The result is negated for
// credit transactions and rounded to cents, half away from zero.
func (inv *Invoice) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range inv.LineItems {
		total = total.Add(item.Quantity.Mul(item.UnitPrice))
		for _, a := range item.Allowances {
			total = total.Add(a.Amount)
		}
	}
	for _, a := range inv.Allowances {
		total = total.Add(a.Amount)
	}
	if inv.TotalTax.IsPositive() {
		total = total.Add(inv.TotalTax)
	} else {
		for _, t := range inv.Taxes {
			total = total.Add(t.Amount)
		}
	}
	if inv.IsCredit() {
		total = total.Neg()
	}
	return total.Round(2)
}
