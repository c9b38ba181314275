package alloc

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/govalues/decimal"

	"github.com/tinoosan/paytrace/internal/balance"
	"github.com/tinoosan/paytrace/internal/errs"
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

func debit(t *testing.T, account, amount string, entry int) voucher.Line {
	t.Helper()
	return voucher.Line{Side: voucher.SideDebit, Account: account, Amount: dec(t, amount), EntryNo: entry}
}

func credit(t *testing.T, account, amount string, entry int) voucher.Line {
	t.Helper()
	return voucher.Line{Side: voucher.SideCredit, Account: account, Amount: dec(t, amount), EntryNo: entry}
}

func key() voucher.Key { return voucher.Key{Month: 3, Day: 15, VoucherNo: "银付0012"} }

func TestAllocateOneToOne(t *testing.T) {
	g := voucher.Group{
		Key:     key(),
		Debits:  []voucher.Line{debit(t, "管理费用", "1000.50", 1)},
		Credits: []voucher.Line{credit(t, "银行存款", "1000.50", 2)},
	}
	records, err := Allocate(g, voucher.Classify(g))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if !r.BalanceOK {
		t.Fatalf("record must balance: %+v", r)
	}
	if r.ID != "3月15日-银付0012-分录2" {
		t.Fatalf("id = %q", r.ID)
	}
	if r.Credit.Account != "银行存款" || len(r.Debits) != 1 || r.Debits[0].Account != "管理费用" {
		t.Fatalf("record = %+v", r)
	}
	if r.Debits[0].Amount.Cmp(dec(t, "1000.50")) != 0 {
		t.Fatalf("fragment amount = %s", r.Debits[0].Amount)
	}
}

func TestAllocateOneCreditManyDebit(t *testing.T) {
	g := voucher.Group{
		Key: key(),
		Debits: []voucher.Line{
			debit(t, "a", "120", 1),
			debit(t, "b", "80", 2),
			debit(t, "c", "100", 3),
		},
		Credits: []voucher.Line{credit(t, "银行存款", "300", 4)},
	}
	records, err := Allocate(g, voucher.Classify(g))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	want := []string{"120", "80", "100"}
	if len(r.Debits) != len(want) {
		t.Fatalf("fragments = %+v", r.Debits)
	}
	for i, w := range want {
		if r.Debits[i].Amount.Cmp(dec(t, w)) != 0 {
			t.Fatalf("fragment %d = %s, want %s", i, r.Debits[i].Amount, w)
		}
	}
	if got := r.DebitTotal(); got.Cmp(dec(t, "300")) != 0 {
		t.Fatalf("fragment sum = %s", got)
	}
	if !r.BalanceOK {
		t.Fatalf("record must balance")
	}
}

func TestAllocateRejectsUnbalancedVoucher(t *testing.T) {
	g := voucher.Group{
		Key: key(),
		Debits: []voucher.Line{
			debit(t, "a", "120", 1),
			debit(t, "b", "80", 2),
			debit(t, "c", "150", 3),
		},
		Credits: []voucher.Line{credit(t, "银行存款", "300", 4)},
	}
	records, err := Allocate(g, voucher.Classify(g))
	if !errors.Is(err, errs.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
	if records != nil {
		t.Fatalf("unbalanced voucher must produce no records")
	}
}

func TestAllocateInvalidTopology(t *testing.T) {
	g := voucher.Group{Key: key(), Debits: []voucher.Line{debit(t, "a", "10", 1)}}
	if _, err := Allocate(g, voucher.Classify(g)); !errors.Is(err, errs.ErrInvalidTopology) {
		t.Fatalf("expected ErrInvalidTopology, got %v", err)
	}
}

func TestAllocateManyCreditOneDebit(t *testing.T) {
	g := voucher.Group{
		Key:    key(),
		Debits: []voucher.Line{debit(t, "在建工程", "500", 1)},
		Credits: []voucher.Line{
			credit(t, "银行存款A", "200", 2),
			credit(t, "银行存款B", "300", 3),
		},
	}
	records, err := Allocate(g, voucher.Classify(g))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for i, r := range records {
		if r.SequenceIndex != i+1 || r.TotalInVoucher != 2 {
			t.Fatalf("record %d sequence = %d/%d", i, r.SequenceIndex, r.TotalInVoucher)
		}
		if len(r.Debits) != 1 || r.Debits[0].Account != "在建工程" {
			t.Fatalf("record %d = %+v", i, r)
		}
		if !r.BalanceOK {
			t.Fatalf("record %d must balance", i)
		}
	}
	if records[0].Credit.Amount.Cmp(dec(t, "200")) != 0 || records[1].Credit.Amount.Cmp(dec(t, "300")) != 0 {
		t.Fatalf("credit split = %s, %s", records[0].Credit.Amount, records[1].Credit.Amount)
	}
}

func TestAllocateManyCreditManyDebitSplitsPoolLeg(t *testing.T) {
	g := voucher.Group{
		Key: key(),
		Debits: []voucher.Line{
			debit(t, "d1", "250", 1),
			debit(t, "d2", "50", 2),
		},
		Credits: []voucher.Line{
			credit(t, "c1", "100", 3),
			credit(t, "c2", "200", 4),
		},
	}
	records, err := Allocate(g, voucher.Classify(g))
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// c1 consumes 100 of d1; the 150 remainder re-enters the pool for c2.
	r0 := records[0]
	if len(r0.Debits) != 1 || r0.Debits[0].Amount.Cmp(dec(t, "100")) != 0 {
		t.Fatalf("record 0 fragments = %+v", r0.Debits)
	}
	r1 := records[1]
	if len(r1.Debits) != 2 {
		t.Fatalf("record 1 fragments = %+v", r1.Debits)
	}
	if r1.Debits[0].Amount.Cmp(dec(t, "150")) != 0 || r1.Debits[1].Amount.Cmp(dec(t, "50")) != 0 {
		t.Fatalf("record 1 fragments = %s, %s", r1.Debits[0].Amount, r1.Debits[1].Amount)
	}
	for _, r := range records {
		if !r.BalanceOK {
			t.Fatalf("record %s must balance", r.ID)
		}
	}
}

// Randomized conservation check: every debit leg's consumed total equals its
// original amount and the fragment grand total equals the credit grand total.
func TestManyCreditManyDebitConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 200; iter++ {
		nd := 2 + rng.Intn(4)
		nc := 2 + rng.Intn(4)

		// Integer cent amounts; credits re-slice the same total.
		debits := make([]voucher.Line, nd)
		total := int64(0)
		for i := range debits {
			cents := int64(1 + rng.Intn(100000))
			total += cents
			debits[i] = voucher.Line{
				Side: voucher.SideDebit, Account: "d" + string(rune('A'+i)), EntryNo: i + 1,
				Amount: decimal.MustNew(cents, 2),
			}
		}
		credits := make([]voucher.Line, nc)
		remaining := total
		for i := range credits {
			cents := remaining / int64(nc-i)
			if i < nc-1 && remaining > int64(nc-i-1) {
				cents = 1 + rng.Int63n(remaining-int64(nc-i-1))
			}
			if i == nc-1 {
				cents = remaining
			}
			remaining -= cents
			credits[i] = voucher.Line{
				Side: voucher.SideCredit, Account: "c", EntryNo: nd + i + 1,
				Amount: decimal.MustNew(cents, 2),
			}
		}

		g := voucher.Group{Key: key(), Debits: debits, Credits: credits}
		records, err := Allocate(g, voucher.TopologyManyCreditManyDebit)
		if err != nil {
			t.Fatalf("iter %d: allocate: %v", iter, err)
		}

		// Fragment grand total vs credit grand total.
		in := balance.TotalsOfGroups([]voucher.Group{g})
		out := balance.TotalsOfRecords(records)
		if !balance.Consistent(in, out) {
			t.Fatalf("iter %d: totals drifted: in=%+v out=%+v", iter, in, out)
		}

		// Per-leg conservation: consumed per debit leg == original amount.
		consumed := make(map[string]decimal.Decimal)
		for ri, r := range records {
			if !r.BalanceOK {
				t.Fatalf("iter %d: record %d unbalanced", iter, ri)
			}
			for _, f := range r.Debits {
				prev, ok := consumed[f.Account]
				if !ok {
					prev = decimal.Zero
				}
				v, err := prev.Add(f.Amount)
				if err != nil {
					t.Fatalf("iter %d: add: %v", iter, err)
				}
				consumed[f.Account] = v
			}
		}
		for i, dl := range debits {
			got, ok := consumed[dl.Account]
			if !ok {
				got = decimal.Zero
			}
			if !balance.WithinTolerance(got, dl.Amount) {
				t.Fatalf("iter %d: leg %d consumed %s, original %s", iter, i, got, dl.Amount)
			}
		}
	}
}

func TestAllocateIdempotent(t *testing.T) {
	g := voucher.Group{
		Key: key(),
		Debits: []voucher.Line{
			debit(t, "d1", "70.25", 1),
			debit(t, "d2", "129.75", 2),
		},
		Credits: []voucher.Line{
			credit(t, "c1", "100", 3),
			credit(t, "c2", "100", 4),
		},
	}
	topology := voucher.Classify(g)
	first, err := Allocate(g, topology)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	second, err := Allocate(g, topology)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("allocation not idempotent:\n%+v\n%+v", first, second)
	}
}
