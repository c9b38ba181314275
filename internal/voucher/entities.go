package voucher

import (
    "fmt"

    "github.com/govalues/decimal"

    "github.com/tinoosan/paytrace/internal/auxtag"
    "github.com/tinoosan/paytrace/internal/meta"
)

// Side represents the accounting position of a journal line.
type Side string

const (
	// SideDebit records value flowing into an account.
	SideDebit Side = "debit"
	// SideCredit records value flowing out of an account.
	SideCredit Side = "credit"
)

// Key identifies one voucher: all lines sharing a posting date and voucher
// number belong to the same document.
type Key struct {
	Month     int
	Day       int
	VoucherNo string
}

// Ref renders the key the way downstream reports reference a voucher,
// e.g. "3月15日-银付0012".
func (k Key) Ref() string {
	return fmt.Sprintf("%d月%d日-%s", k.Month, k.Day, k.VoucherNo)
}

func (k Key) String() string { return k.Ref() }

// RecordID renders a payment record id for the credit leg at entryNo.
func (k Key) RecordID(entryNo int) string {
	return fmt.Sprintf("%d月%d日-%s-分录%d", k.Month, k.Day, k.VoucherNo, entryNo)
}

// Line is a single debit or credit leg of a voucher. Amount is always
// non-negative; the side carries the sign. A line is created once per source
// row and never mutated afterwards; the allocation engine derives fragments
// (copies with a reduced amount) instead of touching the original.
type Line struct {
	Side      Side
	Account   string
	Amount    decimal.Decimal
	Summary   string
	Auxiliary string
	Tags      []auxtag.Tag
	EntryNo   int
}

// Group collects all legs of one voucher, split by side in input order.
// Read-only once built.
type Group struct {
	Key     Key
	Debits  []Line
	Credits []Line
}

// CreditSummary describes the credit leg (or credit-leg fragment) a payment
// record is rooted at.
type CreditSummary struct {
	Account     string
	Amount      decimal.Decimal
	Summary     string
	BankAccount string
}

// LegFragment is a portion of a debit leg consumed by one payment record.
// Tags and summary come through from the source leg unmodified for
// provenance; Extra carries the enrichment attributes (department, customer,
// employee, classification labels).
type LegFragment struct {
	Account string
	Amount  decimal.Decimal
	Summary string
	Tags    []auxtag.Tag
	Extra   meta.Metadata
}

// Extra attribute keys used on LegFragment.
const (
	AttrDepartment = "department"
	AttrCustomer   = "customer"
	AttrEmployee   = "employee"
	AttrPurpose    = "purpose"
	AttrCashFlow   = "cash_flow"
)

// PaymentRecord pairs one credit leg (or fragment of one) with the debit
// fragments it funded. Fragment amounts sum to the credit amount within
// tolerance whenever BalanceOK holds.
type PaymentRecord struct {
	ID             string
	VoucherRef     string
	Key            Key
	Credit         CreditSummary
	Debits         []LegFragment
	Topology       Topology
	SequenceIndex  int // 1-based position among sibling records, 0 when n/a
	TotalInVoucher int // sibling record count, 0 when n/a
	BalanceOK      bool
}

// DebitTotal sums the record's fragment amounts.
func (r PaymentRecord) DebitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, f := range r.Debits {
		if v, err := total.Add(f.Amount); err == nil {
			total = v
		}
	}
	return total
}
