package alloc

// Package alloc reconstructs which credit leg(s) funded which debit leg(s) of
// a voucher. Allocation is greedy and strictly left-to-right in input order,
// with the last leg absorbing any remainder. When voucher legs do not map 1:1
// onto real transfers this ordering is an approximation of provenance, kept
// for compatibility with the historical reports rather than derived from
// business semantics.

import (
	"fmt"

	"github.com/govalues/decimal"

	"github.com/tinoosan/paytrace/internal/auxtag"
	"github.com/tinoosan/paytrace/internal/balance"
	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/meta"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// Allocate decomposes a classified voucher group into payment records. The
// group must balance before allocation begins: an unbalanced group fails as a
// whole and produces no records. All state is local to the call.
func Allocate(g voucher.Group, topology voucher.Topology) ([]voucher.PaymentRecord, error) {
	if topology == voucher.TopologyInvalid {
		return nil, fmt.Errorf("%w: voucher %s has %d debit and %d credit legs",
			errs.ErrInvalidTopology, g.Key.Ref(), len(g.Debits), len(g.Credits))
	}

	debitTotal := balance.SumLines(g.Debits)
	creditTotal := balance.SumLines(g.Credits)
	if !balance.WithinTolerance(debitTotal, creditTotal) {
		return nil, fmt.Errorf("%w: voucher %s debit total %s != credit total %s",
			errs.ErrUnbalanced, g.Key.Ref(), debitTotal, creditTotal)
	}

	switch topology {
	case voucher.TopologyOneToOne:
		return oneToOne(g), nil
	case voucher.TopologyOneCreditManyDebit:
		return oneCreditManyDebit(g), nil
	case voucher.TopologyManyCreditOneDebit:
		return manyCreditOneDebit(g), nil
	case voucher.TopologyManyCreditManyDebit:
		return manyCreditManyDebit(g), nil
	default:
		return nil, fmt.Errorf("%w: unknown topology %q", errs.ErrInvalid, topology)
	}
}

// oneToOne pairs the single credit leg with the full debit amount.
func oneToOne(g voucher.Group) []voucher.PaymentRecord {
	cl, dl := g.Credits[0], g.Debits[0]
	rec := newRecord(g, cl, cl.Amount, voucher.TopologyOneToOne, 0, 0)
	rec.Debits = []voucher.LegFragment{fragment(dl, dl.Amount)}
	rec.BalanceOK = balance.CheckRecord(rec)
	return []voucher.PaymentRecord{rec}
}

// oneCreditManyDebit distributes the single credit across the debit legs in
// input order. Every leg but the last takes min(remaining, leg amount); the
// last absorbs whatever credit remains, so the fragments always sum to the
// credit amount even when the inputs carry rounding drift.
func oneCreditManyDebit(g voucher.Group) []voucher.PaymentRecord {
	cl := g.Credits[0]
	remaining := cl.Amount

	fragments := make([]voucher.LegFragment, 0, len(g.Debits))
	for i, dl := range g.Debits {
		take := remaining
		if i < len(g.Debits)-1 {
			take = minD(dl.Amount, remaining)
		}
		if take.IsPos() {
			fragments = append(fragments, fragment(dl, take))
			remaining = sub(remaining, take)
		}
	}

	rec := newRecord(g, cl, cl.Amount, voucher.TopologyOneCreditManyDebit, 0, 0)
	rec.Debits = fragments
	rec.BalanceOK = balance.CheckRecord(rec)
	return []voucher.PaymentRecord{rec}
}

// manyCreditOneDebit splits the single debit across credit legs in input
// order. Each credit leg yields its own record, so one debit leg appears
// fragmented across several records; sequence fields keep the sibling
// position traceable.
func manyCreditOneDebit(g voucher.Group) []voucher.PaymentRecord {
	dl := g.Debits[0]
	remaining := dl.Amount

	records := make([]voucher.PaymentRecord, 0, len(g.Credits))
	for i, cl := range g.Credits {
		take := remaining
		if i < len(g.Credits)-1 {
			take = minD(cl.Amount, remaining)
		}
		if !take.IsPos() {
			continue
		}
		rec := newRecord(g, cl, take, voucher.TopologyManyCreditOneDebit, i+1, len(g.Credits))
		rec.Debits = []voucher.LegFragment{fragment(dl, take)}
		rec.BalanceOK = balance.CheckRecord(rec)
		records = append(records, rec)
		remaining = sub(remaining, take)
	}
	return records
}

// manyCreditManyDebit walks the credit legs in order, consuming from a
// working pool of debit legs owned by this call. A pool leg partially
// consumed by one credit splits into a fragment plus a remainder that
// re-enters the pool for the next credit; legs a credit never reaches carry
// forward untouched. Each pool leg splits at most once per credit, so the
// whole pass is O(legs) amortized.
func manyCreditManyDebit(g voucher.Group) []voucher.PaymentRecord {
	pool := make([]voucher.Line, len(g.Debits))
	copy(pool, g.Debits)

	records := make([]voucher.PaymentRecord, 0, len(g.Credits))
	for _, cl := range g.Credits {
		remaining := cl.Amount
		fragments := make([]voucher.LegFragment, 0, 2)
		next := make([]voucher.Line, 0, len(pool))

		for i, dl := range pool {
			if !remaining.IsPos() {
				next = append(next, pool[i:]...)
				break
			}
			take := remaining
			if i < len(pool)-1 {
				take = minD(dl.Amount, remaining)
			}
			if take.IsPos() {
				fragments = append(fragments, fragment(dl, take))
				rest := sub(dl.Amount, take)
				if rest.Cmp(balance.Tolerance) > 0 {
					leftover := dl
					leftover.Amount = rest
					next = append(next, leftover)
				}
				remaining = sub(remaining, take)
			}
		}
		pool = next

		rec := newRecord(g, cl, cl.Amount, voucher.TopologyManyCreditManyDebit, len(records)+1, len(g.Credits))
		rec.Debits = fragments
		rec.BalanceOK = balance.CheckRecord(rec)
		records = append(records, rec)
	}
	return records
}

func newRecord(g voucher.Group, cl voucher.Line, creditAmount decimal.Decimal, t voucher.Topology, seq, total int) voucher.PaymentRecord {
	return voucher.PaymentRecord{
		ID:         g.Key.RecordID(cl.EntryNo),
		VoucherRef: g.Key.Ref(),
		Key:        g.Key,
		Credit: voucher.CreditSummary{
			Account:     cl.Account,
			Amount:      creditAmount,
			Summary:     cl.Summary,
			BankAccount: auxtag.BankAccount(cl.Tags),
		},
		Topology:       t,
		SequenceIndex:  seq,
		TotalInVoucher: total,
	}
}

// fragment derives a debit fragment carrying the source leg's tags and
// summary unmodified, plus the enrichment attributes pulled from the tags.
func fragment(dl voucher.Line, amount decimal.Decimal) voucher.LegFragment {
	extra := meta.New(nil)
	if v := auxtag.Department(dl.Tags); v != "" {
		extra.Set(voucher.AttrDepartment, v)
	}
	if v := auxtag.Customer(dl.Tags); v != "" {
		extra.Set(voucher.AttrCustomer, v)
	}
	if v := auxtag.Employee(dl.Tags); v != "" {
		extra.Set(voucher.AttrEmployee, v)
	}
	return voucher.LegFragment{
		Account: dl.Account,
		Amount:  amount,
		Summary: dl.Summary,
		Tags:    dl.Tags,
		Extra:   extra,
	}
}

func minD(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func sub(a, b decimal.Decimal) decimal.Decimal {
	v, err := a.Sub(b)
	if err != nil {
		return a
	}
	return v
}
