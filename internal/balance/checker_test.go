package balance

import (
	"testing"

	"github.com/govalues/decimal"

	"github.com/tinoosan/paytrace/internal/voucher"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"100.00", "100.00", true},
		{"100.00", "100.01", true},  // exactly at tolerance
		{"100.00", "99.99", true},
		{"100.00", "100.02", false},
		{"100.00", "99.98", false},
		{"0", "0", true},
		{"-5.00", "-5.005", true},
	}
	for _, tt := range tests {
		if got := WithinTolerance(dec(t, tt.a), dec(t, tt.b)); got != tt.want {
			t.Fatalf("WithinTolerance(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckRecord(t *testing.T) {
	r := voucher.PaymentRecord{
		ID:     "r1",
		Credit: voucher.CreditSummary{Amount: dec(t, "300.00")},
		Debits: []voucher.LegFragment{
			{Amount: dec(t, "120.00")},
			{Amount: dec(t, "80.00")},
			{Amount: dec(t, "100.00")},
		},
	}
	if !CheckRecord(r) {
		t.Fatalf("balanced record flagged")
	}
	r.Debits[2].Amount = dec(t, "150.00")
	if CheckRecord(r) {
		t.Fatalf("unbalanced record passed")
	}
}

func TestCheckRecordsReport(t *testing.T) {
	good := voucher.PaymentRecord{
		ID:     "good",
		Credit: voucher.CreditSummary{Amount: dec(t, "50")},
		Debits: []voucher.LegFragment{{Amount: dec(t, "50")}},
	}
	bad := voucher.PaymentRecord{
		ID:     "bad",
		Credit: voucher.CreditSummary{Amount: dec(t, "50")},
		Debits: []voucher.LegFragment{{Amount: dec(t, "49")}},
	}
	rep := CheckRecords([]voucher.PaymentRecord{good, bad})
	if rep.Checked != 2 || rep.Balanced != 1 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.OK() || len(rep.Unbalanced) != 1 || rep.Unbalanced[0] != "bad" {
		t.Fatalf("report = %+v", rep)
	}
}

func TestCheckVoucher(t *testing.T) {
	g := voucher.Group{
		Key: voucher.Key{Month: 1, Day: 2, VoucherNo: "银付3"},
		Credits: []voucher.Line{
			{Side: voucher.SideCredit, Amount: dec(t, "100")},
			{Side: voucher.SideCredit, Amount: dec(t, "200")},
		},
	}
	records := []voucher.PaymentRecord{
		{Credit: voucher.CreditSummary{Amount: dec(t, "100")}},
		{Credit: voucher.CreditSummary{Amount: dec(t, "200")}},
	}
	if err := CheckVoucher(g, records); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	records[1].Credit.Amount = dec(t, "150")
	if err := CheckVoucher(g, records); err == nil {
		t.Fatalf("expected voucher-level mismatch")
	}
}

func TestDatasetConsistency(t *testing.T) {
	groups := []voucher.Group{{
		Debits:  []voucher.Line{{Amount: dec(t, "300")}},
		Credits: []voucher.Line{{Amount: dec(t, "300")}},
	}}
	records := []voucher.PaymentRecord{{
		Credit: voucher.CreditSummary{Amount: dec(t, "300")},
		Debits: []voucher.LegFragment{{Amount: dec(t, "120")}, {Amount: dec(t, "180")}},
	}}
	in := TotalsOfGroups(groups)
	out := TotalsOfRecords(records)
	if !Consistent(in, out) {
		t.Fatalf("totals should match: in=%+v out=%+v", in, out)
	}
	records[0].Debits[0].Amount = dec(t, "100")
	if Consistent(in, TotalsOfRecords(records)) {
		t.Fatalf("drifted totals should not match")
	}
}
