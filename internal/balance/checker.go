package balance

// Package balance holds the tolerance-based comparisons used at leg, record,
// voucher and dataset level. Everything runs on decimal arithmetic; binary
// floats drift over thousands of vouchers.

import (
	"fmt"

	"github.com/govalues/decimal"

	"github.com/tinoosan/paytrace/internal/voucher"
)

// Tolerance is the maximum absolute difference, in currency units, between
// two amounts still considered balanced.
var Tolerance = decimal.MustNew(1, 2) // 0.01

// WithinTolerance reports whether |a-b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	diff, err := a.Sub(b)
	if err != nil {
		return false
	}
	return diff.Abs().Cmp(Tolerance) <= 0
}

// SumLines adds the amounts of a set of legs.
func SumLines(lines []voucher.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if v, err := total.Add(l.Amount); err == nil {
			total = v
		}
	}
	return total
}

// SumFragments adds the amounts of a set of debit fragments.
func SumFragments(fragments []voucher.LegFragment) decimal.Decimal {
	total := decimal.Zero
	for _, f := range fragments {
		if v, err := total.Add(f.Amount); err == nil {
			total = v
		}
	}
	return total
}

// CheckRecord verifies one record: fragment amounts sum to the credit amount.
func CheckRecord(r voucher.PaymentRecord) bool {
	return WithinTolerance(SumFragments(r.Debits), r.Credit.Amount)
}

// Report summarizes a post-hoc audit pass over produced records.
type Report struct {
	Checked    int      `json:"checked"`
	Balanced   int      `json:"balanced"`
	Unbalanced []string `json:"unbalanced,omitempty"` // record ids
}

// OK reports whether every checked record balanced.
func (r Report) OK() bool { return len(r.Unbalanced) == 0 }

// CheckRecords audits every record individually.
func CheckRecords(records []voucher.PaymentRecord) Report {
	rep := Report{Checked: len(records)}
	for _, r := range records {
		if CheckRecord(r) {
			rep.Balanced++
			continue
		}
		rep.Unbalanced = append(rep.Unbalanced, r.ID)
	}
	return rep
}

// CheckVoucher verifies that the credit amounts of a voucher's records sum to
// the group's total credit within tolerance.
func CheckVoucher(g voucher.Group, records []voucher.PaymentRecord) error {
	total := decimal.Zero
	for _, r := range records {
		if v, err := total.Add(r.Credit.Amount); err == nil {
			total = v
		}
	}
	want := SumLines(g.Credits)
	if !WithinTolerance(total, want) {
		return fmt.Errorf("voucher %s: records credit total %s != group credit total %s",
			g.Key.Ref(), total, want)
	}
	return nil
}

// Totals carries aggregate debit/credit sums for a set of vouchers.
type Totals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add merges another totals value into t.
func (t Totals) Add(o Totals) Totals {
	if v, err := t.Debit.Add(o.Debit); err == nil {
		t.Debit = v
	}
	if v, err := t.Credit.Add(o.Credit); err == nil {
		t.Credit = v
	}
	return t
}

// TotalsOfGroups computes aggregate totals directly from unprocessed input.
func TotalsOfGroups(groups []voucher.Group) Totals {
	var out Totals
	for _, g := range groups {
		out = out.Add(Totals{Debit: SumLines(g.Debits), Credit: SumLines(g.Credits)})
	}
	return out
}

// TotalsOfRecords computes aggregate totals from produced payment records.
func TotalsOfRecords(records []voucher.PaymentRecord) Totals {
	var out Totals
	for _, r := range records {
		out = out.Add(Totals{Debit: SumFragments(r.Debits), Credit: r.Credit.Amount})
	}
	return out
}

// Consistent is the dataset-level reconciliation primitive: both sides of two
// aggregate totals must match within tolerance.
func Consistent(a, b Totals) bool {
	return WithinTolerance(a.Debit, b.Debit) && WithinTolerance(a.Credit, b.Credit)
}
