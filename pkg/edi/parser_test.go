package edi

import (
	"strings"
	"testing"
	"time"
)

const sample810 = "ISA*00*          *00*          *ZZ*SENDER         *ZZ*RECEIVER       *231213*1129*U*00401*000000001*0*P*>~\n" +
	"GS*IN*SENDER*RECEIVER*20231213*1129*1*X*004010~\n" +
	"ST*810*0001~\n" +
	"BIG*20231213*INV001*20231213*PO001~\n" +
	"N1*ST*BUYER NAME*92*BUYER~\n" +
	"N1*SE*VENDOR NAME*92*VENDOR~\n" +
	"IT1*1*10*EA*100.00**BP*PROD001*UA*DESC001~\n" +
	"TXI*ST*1000~\n" +
	"SAC*A*C310*VP*01*500~\n" +
	"IT1*2*5*EA*200.00**BP*PROD002*UA*DESC002~\n" +
	"TXI*ST*2000~\n" +
	"SAC*A*C310*VP*01*1000~\n" +
	"CTT*2~\n" +
	"SE*13*0001~\n" +
	"GE*1*1~\n" +
	"IEA*1*000000001~"

func buildDoc(segments ...string) string {
	return strings.Join(segments, "~\n") + "~"
}

func TestParseSampleDocument(t *testing.T) {
	result := Parse(sample810)

	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", result.Diagnostics)
	}
	if len(result.Invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(result.Invoices))
	}

	inv := result.Invoices[0]
	if inv.InvoiceNumber != "INV001" {
		t.Errorf("InvoiceNumber = %q, expected %q", inv.InvoiceNumber, "INV001")
	}
	if inv.PONumber != "PO001" {
		t.Errorf("PONumber = %q, expected %q", inv.PONumber, "PO001")
	}
	if want := time.Date(2023, 12, 13, 0, 0, 0, 0, time.UTC); !inv.InvoiceDate.Equal(want) {
		t.Errorf("InvoiceDate = %v, expected %v", inv.InvoiceDate, want)
	}
	if inv.Currency != "USD" {
		t.Errorf("Currency = %q, expected USD", inv.Currency)
	}

	// Interchange identifiers keep their fixed-width padding.
	if inv.SenderID != "SENDER         " {
		t.Errorf("SenderID = %q, expected fixed-width sender", inv.SenderID)
	}
	if inv.ReceiverID != "RECEIVER       " {
		t.Errorf("ReceiverID = %q, expected fixed-width receiver", inv.ReceiverID)
	}
	if inv.InterchangeControlNumber != "000000001" {
		t.Errorf("InterchangeControlNumber = %q, expected %q", inv.InterchangeControlNumber, "000000001")
	}

	if inv.VendorName != "VENDOR NAME" {
		t.Errorf("VendorName = %q, expected %q", inv.VendorName, "VENDOR NAME")
	}
	if inv.ShipToName != "BUYER NAME" {
		t.Errorf("ShipToName = %q, expected %q", inv.ShipToName, "BUYER NAME")
	}
	if inv.BuyerName != "" {
		t.Errorf("BuyerName = %q, expected empty, no N1*BY present", inv.BuyerName)
	}

	if len(inv.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(inv.LineItems))
	}

	first := inv.LineItems[0]
	if first.ProductCode != "PROD001" || first.Description != "DESC001" || first.UOM != "EA" {
		t.Errorf("unexpected first line item: %+v", first)
	}
	if !first.Quantity.Equal(dec("10")) || !first.UnitPrice.Equal(dec("100.00")) {
		t.Errorf("first line quantity/price = %s/%s", first.Quantity, first.UnitPrice)
	}
	if len(first.Allowances) != 1 || !first.Allowances[0].Amount.Equal(dec("-5.00")) {
		t.Errorf("first line allowances = %+v, expected one -5.00 entry", first.Allowances)
	}
	if len(first.Taxes) != 0 {
		t.Errorf("first line taxes = %+v, expected none", first.Taxes)
	}
	if !first.TotalAmount.Equal(dec("995.00")) {
		t.Errorf("first line TotalAmount = %s, expected 995.00", first.TotalAmount)
	}

	second := inv.LineItems[1]
	if !second.TotalAmount.Equal(dec("990.00")) {
		t.Errorf("second line TotalAmount = %s, expected 990.00", second.TotalAmount)
	}

	// The last TXI override wins and nothing accumulates in the tax list.
	if !inv.TotalTax.Equal(dec("20.00")) {
		t.Errorf("TotalTax = %s, expected 20.00", inv.TotalTax)
	}
	if len(inv.Taxes) != 0 {
		t.Errorf("invoice taxes = %+v, expected none", inv.Taxes)
	}

	if got := inv.CalculateTotal(); !got.Equal(dec("2005.00")) {
		t.Errorf("CalculateTotal() = %s, expected 2005.00", got)
	}
}

func TestParseEnvelopeCapture(t *testing.T) {
	result := Parse(sample810)

	env := result.Envelope
	if !env.Complete() {
		t.Fatalf("envelope incomplete: %+v", env)
	}
	if !strings.HasPrefix(env.ISA, "ISA*00*") || !strings.HasSuffix(env.ISA, "~") {
		t.Errorf("ISA captured as %q", env.ISA)
	}
	if env.GS != "GS*IN*SENDER*RECEIVER*20231213*1129*1*X*004010~" {
		t.Errorf("GS captured as %q", env.GS)
	}
	if env.ST != "ST*810*0001~" {
		t.Errorf("ST captured as %q", env.ST)
	}
	if env.GE != "GE*1*1~" {
		t.Errorf("GE captured as %q", env.GE)
	}
}

func TestParseOneInvoicePerBIG(t *testing.T) {
	doc := buildDoc(
		"ISA*00*          *00*          *ZZ*S*ZZ*R*231213*1129*U*00401*000000042*0*P*>",
		"GS*IN*S*R*20231213*1129*1*X*004010",
		"ST*810*0001",
		"BIG*20231213*INV001",
		"BIG*20231214*INV002",
		"BIG*20231215*INV003",
		"SE*5*0001",
	)

	result := Parse(doc)
	if len(result.Invoices) != 3 {
		t.Fatalf("expected 3 invoices, got %d", len(result.Invoices))
	}
	for i, want := range []string{"INV001", "INV002", "INV003"} {
		if result.Invoices[i].InvoiceNumber != want {
			t.Errorf("invoice %d = %q, expected %q", i, result.Invoices[i].InvoiceNumber, want)
		}
	}
	// All invoices inherit the interchange identifiers.
	if result.Invoices[2].InterchangeControlNumber != "000000042" {
		t.Errorf("control number = %q, expected 000000042", result.Invoices[2].InterchangeControlNumber)
	}
}

func TestParseMalformedSegments(t *testing.T) {
	tests := []struct {
		name         string
		doc          string
		wantInvoices int
		wantItems    int
		wantDiagTag  string
	}{
		{
			name: "bad line item quantity",
			doc: buildDoc(
				"BIG*20231213*INV001",
				"IT1*1*BAD*EA*100.00**BP*P1",
				"IT1*2*5*EA*20.00**BP*P2",
			),
			wantInvoices: 1,
			wantItems:    1,
			wantDiagTag:  "IT1",
		},
		{
			name: "short line item",
			doc: buildDoc(
				"BIG*20231213*INV001",
				"IT1*1*10",
			),
			wantInvoices: 1,
			wantItems:    0,
			wantDiagTag:  "IT1",
		},
		{
			name: "bad invoice date",
			doc: buildDoc(
				"BIG*NOTADATE*INV001",
				"IT1*1*10*EA*100.00**BP*P1",
			),
			wantInvoices: 0,
			wantItems:    0,
			wantDiagTag:  "BIG",
		},
		{
			name: "short interchange header",
			doc: buildDoc(
				"ISA*00*TOOSHORT",
				"BIG*20231213*INV001",
			),
			wantInvoices: 1,
			wantItems:    0,
			wantDiagTag:  "ISA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.doc)

			if len(result.Invoices) != tt.wantInvoices {
				t.Errorf("invoices = %d, expected %d", len(result.Invoices), tt.wantInvoices)
			}
			items := 0
			for _, inv := range result.Invoices {
				items += len(inv.LineItems)
			}
			if items != tt.wantItems {
				t.Errorf("line items = %d, expected %d", items, tt.wantItems)
			}
			if len(result.Diagnostics) != 1 {
				t.Fatalf("diagnostics = %v, expected exactly one", result.Diagnostics)
			}
			if result.Diagnostics[0].Tag != tt.wantDiagTag {
				t.Errorf("diagnostic tag = %q, expected %q", result.Diagnostics[0].Tag, tt.wantDiagTag)
			}
			if result.Diagnostics[0].Err == nil {
				t.Error("diagnostic should carry the underlying error")
			}
		})
	}
}

func TestParseShortISAStillCapturesEnvelope(t *testing.T) {
	result := Parse(buildDoc("ISA*00*TOOSHORT", "BIG*20231213*INV001"))

	if result.Envelope.ISA != "ISA*00*TOOSHORT~" {
		t.Errorf("ISA = %q, expected raw capture despite the element count error", result.Envelope.ISA)
	}
}

func TestParseTotalReconciliation(t *testing.T) {
	// One line of 10 x 100.00 plus a 5.00 total tax: calculated 1005.00.
	base := []string{
		"ISA*00*          *00*          *ZZ*S*ZZ*R*231213*1129*U*00401*000000001*0*P*>",
		"GS*IN*S*R*20231213*1129*1*X*004010",
		"ST*810*0001",
		"BIG*20231213*INV001",
		"IT1*1*10*EA*100.00**BP*P1",
		"TXI*ST*500",
	}

	tests := []struct {
		name        string
		tds         string
		wantTotal   string
		wantMissing bool
	}{
		{name: "exact match", tds: "TDS*100500", wantTotal: "1005.00", wantMissing: true},
		{name: "difference of exactly 0.02 is tolerated", tds: "TDS*100502", wantTotal: "1005.02", wantMissing: true},
		{name: "difference of 0.03 is reported", tds: "TDS*100503", wantTotal: "1005.03", wantMissing: false},
		{name: "decimal point amount is taken as dollars", tds: "TDS*1005.00", wantTotal: "1005.00", wantMissing: true},
		{name: "large mismatch is reported", tds: "TDS*999999", wantTotal: "9999.99", wantMissing: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := buildDoc(append(append([]string{}, base...), tt.tds, "SE*8*0001")...)
			result := Parse(doc)

			if len(result.Invoices) != 1 {
				t.Fatalf("expected 1 invoice, got %d", len(result.Invoices))
			}
			inv := result.Invoices[0]
			if !inv.TotalAmount.Equal(dec(tt.wantTotal)) {
				t.Errorf("TotalAmount = %s, expected %s", inv.TotalAmount, tt.wantTotal)
			}

			var mismatch *Diagnostic
			for i := range result.Diagnostics {
				if strings.Contains(result.Diagnostics[i].Message, "total mismatch") {
					mismatch = &result.Diagnostics[i]
				}
			}
			if tt.wantMissing && mismatch != nil {
				t.Errorf("unexpected mismatch diagnostic: %v", mismatch)
			}
			if !tt.wantMissing && mismatch == nil {
				t.Errorf("expected a mismatch diagnostic, got %v", result.Diagnostics)
			}
		})
	}
}

func TestParseTDSDiscount(t *testing.T) {
	doc := buildDoc(
		"BIG*20231213*INV001",
		"IT1*1*10*EA*100.00**BP*P1",
		"TDS*100000*100000*99000*1000",
	)

	result := Parse(doc)
	if len(result.Invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(result.Invoices))
	}
	if got := result.Invoices[0].TotalDiscount; !got.Equal(dec("10.00")) {
		t.Errorf("TotalDiscount = %s, expected 10.00", got)
	}
}

func TestParseCreditInvoice(t *testing.T) {
	doc := buildDoc(
		"ISA*00*          *00*          *ZZ*S*ZZ*R*231213*1129*U*00401*000000001*0*P*>",
		"GS*IN*S*R*20231213*1129*1*X*004010",
		"ST*810*0001",
		"BIG*20231213*CM100*20231213*PO9***CR",
		"IT1*1*2*EA*50.00**BP*P1",
		"TXI*ST*1000",
		"TDS*11000",
		"SE*7*0001",
	)

	result := Parse(doc)
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %v", result.Diagnostics)
	}
	inv := result.Invoices[0]

	if !inv.IsCredit() {
		t.Fatal("expected a credit invoice")
	}
	if !inv.TotalAmount.Equal(dec("-110.00")) {
		t.Errorf("TotalAmount = %s, expected -110.00", inv.TotalAmount)
	}
	if !inv.LineItems[0].TotalAmount.Equal(dec("-100.00")) {
		t.Errorf("line TotalAmount = %s, expected -100.00", inv.LineItems[0].TotalAmount)
	}
	if got := inv.CalculateTotal(); !got.Equal(dec("-110.00")) {
		t.Errorf("CalculateTotal() = %s, expected -110.00", got)
	}
}

func TestParseTXIRouting(t *testing.T) {
	t.Run("override codes replace rather than accumulate", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "TXI*ST*1000", "TXI*TX*2000")
		inv := Parse(doc).Invoices[0]

		if !inv.TotalTax.Equal(dec("20.00")) {
			t.Errorf("TotalTax = %s, expected 20.00 from the last override", inv.TotalTax)
		}
		if len(inv.Taxes) != 0 {
			t.Errorf("taxes = %+v, expected none", inv.Taxes)
		}
	})

	t.Run("override amount with decimal point is taken as dollars", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "TXI*TX*25.50")
		inv := Parse(doc).Invoices[0]

		if !inv.TotalTax.Equal(dec("25.50")) {
			t.Errorf("TotalTax = %s, expected 25.50", inv.TotalTax)
		}
	})

	t.Run("other codes accumulate in the tax list", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "TXI*GS*150", "TXI*LS*250")
		inv := Parse(doc).Invoices[0]

		if !inv.TotalTax.IsZero() {
			t.Errorf("TotalTax = %s, expected zero", inv.TotalTax)
		}
		if len(inv.Taxes) != 2 {
			t.Fatalf("taxes = %+v, expected two entries", inv.Taxes)
		}
		if !inv.Taxes[0].Amount.Equal(dec("1.50")) || !inv.Taxes[1].Amount.Equal(dec("2.50")) {
			t.Errorf("tax amounts = %s, %s, expected 1.50, 2.50", inv.Taxes[0].Amount, inv.Taxes[1].Amount)
		}
	})

	t.Run("tax never attaches to an open line item", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "IT1*1*10*EA*100.00**BP*P1", "TXI*GS*150")
		inv := Parse(doc).Invoices[0]

		if len(inv.LineItems[0].Taxes) != 0 {
			t.Errorf("line taxes = %+v, expected none", inv.LineItems[0].Taxes)
		}
		if len(inv.Taxes) != 1 {
			t.Errorf("invoice taxes = %+v, expected one entry", inv.Taxes)
		}
	})
}

func TestParseSACRouting(t *testing.T) {
	t.Run("allowance attaches to the open line item", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "IT1*1*10*EA*100.00**BP*P1", "SAC*A*C310*VP*01*500")
		inv := Parse(doc).Invoices[0]

		item := inv.LineItems[0]
		if len(item.Allowances) != 1 || !item.Allowances[0].Amount.Equal(dec("-5.00")) {
			t.Errorf("line allowances = %+v, expected one -5.00 entry", item.Allowances)
		}
		if len(inv.Allowances) != 0 {
			t.Errorf("invoice allowances = %+v, expected none", inv.Allowances)
		}
	})

	t.Run("falls back to the invoice when no line is open", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "SAC*A*C310*VP*01*500")
		inv := Parse(doc).Invoices[0]

		if len(inv.Allowances) != 1 || !inv.Allowances[0].Amount.Equal(dec("-5.00")) {
			t.Errorf("invoice allowances = %+v, expected one -5.00 entry", inv.Allowances)
		}
	})

	t.Run("H850 charge is sales tax", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "IT1*1*10*EA*100.00**BP*P1", "SAC*C*H850*VP*01*750")
		item := Parse(doc).Invoices[0].LineItems[0]

		if len(item.Taxes) != 1 {
			t.Fatalf("line taxes = %+v, expected one entry", item.Taxes)
		}
		tax := item.Taxes[0]
		if tax.Description != "SALES TAX" || !tax.Amount.Equal(dec("7.50")) {
			t.Errorf("tax = %+v, expected SALES TAX of 7.50", tax)
		}
		if !item.TotalAmount.Equal(dec("1007.50")) {
			t.Errorf("line TotalAmount = %s, expected 1007.50", item.TotalAmount)
		}
	})

	t.Run("description comes from element 15 when present", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "SAC*A*C310*VP*01*500**********EARLY PAY DISCOUNT")
		inv := Parse(doc).Invoices[0]

		if inv.Allowances[0].Description != "EARLY PAY DISCOUNT" {
			t.Errorf("description = %q, expected element 15 text", inv.Allowances[0].Description)
		}
	})

	t.Run("non qualifying indicator is ignored", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "SAC*N*C310*VP*01*500")
		result := Parse(doc)

		inv := result.Invoices[0]
		if len(inv.Allowances) != 0 || len(inv.Taxes) != 0 {
			t.Errorf("adjustments = %+v / %+v, expected none", inv.Allowances, inv.Taxes)
		}
		if len(result.Diagnostics) != 0 {
			t.Errorf("diagnostics = %v, expected none", result.Diagnostics)
		}
	})

	t.Run("bad amount is a diagnostic", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "SAC*A*C310*VP*01*NOTANUMBER")
		result := Parse(doc)

		if len(result.Diagnostics) != 1 || result.Diagnostics[0].Tag != "SAC" {
			t.Errorf("diagnostics = %v, expected one SAC entry", result.Diagnostics)
		}
	})
}

func TestParseREFRouting(t *testing.T) {
	t.Run("assigns to the open line item", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "IT1*1*10*EA*100.00**BP*P1", "REF*PG*6010")
		inv := Parse(doc).Invoices[0]

		if inv.LineItems[0].GLAccount != "6010" {
			t.Errorf("line GLAccount = %q, expected 6010", inv.LineItems[0].GLAccount)
		}
		if inv.GLAccount != "" {
			t.Errorf("invoice GLAccount = %q, expected empty", inv.GLAccount)
		}
	})

	t.Run("falls back to the invoice", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "REF*CR*4000")
		inv := Parse(doc).Invoices[0]

		if inv.GLAccount != "4000" {
			t.Errorf("invoice GLAccount = %q, expected 4000", inv.GLAccount)
		}
	})

	t.Run("other qualifiers are ignored", func(t *testing.T) {
		doc := buildDoc("BIG*20231213*INV001", "REF*DP*12345")
		inv := Parse(doc).Invoices[0]

		if inv.GLAccount != "" {
			t.Errorf("invoice GLAccount = %q, expected empty", inv.GLAccount)
		}
	})
}

func TestParsePIDDescription(t *testing.T) {
	doc := buildDoc(
		"BIG*20231213*INV001",
		"IT1*1*10*EA*100.00**BP*P1*UA*SHORT",
		"PID*F****LONG PRODUCT DESCRIPTION",
	)
	item := Parse(doc).Invoices[0].LineItems[0]

	if item.Description != "LONG PRODUCT DESCRIPTION" {
		t.Errorf("Description = %q, expected the PID text", item.Description)
	}
}

func TestParseDateFallback(t *testing.T) {
	doc := buildDoc("BIG*231213*INV001")
	result := Parse(doc)

	if len(result.Invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %v", result.Diagnostics)
	}
	want := time.Date(2023, 12, 13, 0, 0, 0, 0, time.UTC)
	if !result.Invoices[0].InvoiceDate.Equal(want) {
		t.Errorf("InvoiceDate = %v, expected %v", result.Invoices[0].InvoiceDate, want)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	result := Parse("")

	if len(result.Invoices) != 0 {
		t.Errorf("invoices = %d, expected none", len(result.Invoices))
	}
	if result.Envelope.Complete() {
		t.Error("envelope should be incomplete for an empty document")
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v, expected none", result.Diagnostics)
	}
}

func TestParseMultipleInterchanges(t *testing.T) {
	doc := buildDoc(
		"ISA*00*          *00*          *ZZ*FIRST*ZZ*R1*231213*1129*U*00401*000000001*0*P*>",
		"GS*IN*FIRST*R1*20231213*1129*1*X*004010",
		"ST*810*0001",
		"BIG*20231213*INV001",
		"SE*2*0001",
		"GE*1*1",
		"IEA*1*000000001",
		"ISA*00*          *00*          *ZZ*SECOND*ZZ*R2*231213*1129*U*00401*000000002*0*P*>",
		"GS*IN*SECOND*R2*20231213*1129*2*X*004010",
		"ST*810*0002",
		"BIG*20231214*INV002",
		"SE*2*0002",
		"GE*1*2",
		"IEA*1*000000002",
	)

	result := Parse(doc)
	if len(result.Invoices) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(result.Invoices))
	}

	// Each invoice inherits the identifiers of its own interchange; the
	// captured envelope keeps the last seen segments.
	if result.Invoices[0].SenderID != "FIRST" || result.Invoices[1].SenderID != "SECOND" {
		t.Errorf("senders = %q, %q", result.Invoices[0].SenderID, result.Invoices[1].SenderID)
	}
	if !strings.Contains(result.Envelope.ISA, "SECOND") {
		t.Errorf("envelope ISA = %q, expected the second interchange", result.Envelope.ISA)
	}
	if result.Envelope.ST != "ST*810*0002~" {
		t.Errorf("envelope ST = %q, expected the second transaction", result.Envelope.ST)
	}
}
