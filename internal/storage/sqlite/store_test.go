package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/meta"
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/voucher"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paytrace.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleBatch(created time.Time) tracker.Batch {
	key := voucher.Key{Month: 9, Day: 12, VoucherNo: "银付0200"}
	extra := meta.New(nil)
	extra.Set(voucher.AttrPurpose, "材料采购")
	return tracker.Batch{
		ID:        uuid.New(),
		CreatedAt: created,
		Source:    "journal.csv",
		Records: []voucher.PaymentRecord{{
			ID:         key.RecordID(2),
			VoucherRef: key.Ref(),
			Key:        key,
			Credit: voucher.CreditSummary{
				Account:     "银行存款",
				Amount:      decimal.MustParse("3500.00"),
				Summary:     "支付材料款",
				BankAccount: "建行一般户",
			},
			Debits: []voucher.LegFragment{{
				Account: "原材料",
				Amount:  decimal.MustParse("3500.00"),
				Summary: "支付材料款",
				Extra:   extra,
			}},
			Topology:  voucher.TopologyOneToOne,
			BalanceOK: true,
		}},
		Report: tracker.Report{Vouchers: 1, Processed: 1, Records: 1},
	}
}

func TestRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	b := sampleBatch(time.Now().UTC())
	if _, err := s.SaveBatch(ctx, b); err != nil {
		t.Fatalf("save batch: %v", err)
	}

	got, err := s.BatchByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got.Source != "journal.csv" || got.Report.Records != 1 {
		t.Fatalf("unexpected batch: %+v", got)
	}
	if !got.CreatedAt.Equal(b.CreatedAt) {
		t.Fatalf("created_at did not round-trip: %v vs %v", got.CreatedAt, b.CreatedAt)
	}
	r := got.Records[0]
	if r.VoucherRef != "9月12日-银付0200" {
		t.Fatalf("unexpected voucher ref %q", r.VoucherRef)
	}
	if r.Credit.Amount.Cmp(decimal.MustParse("3500.00")) != 0 {
		t.Fatalf("credit amount did not round-trip: %s", r.Credit.Amount)
	}
	if r.Debits[0].Extra.Value(voucher.AttrPurpose) != "材料采购" {
		t.Fatalf("fragment attributes did not round-trip")
	}
}

func TestListOrdered(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	base := time.Now().UTC()
	b2 := sampleBatch(base.Add(2 * time.Second))
	b1 := sampleBatch(base.Add(1 * time.Second))
	for _, b := range []tracker.Batch{b2, b1} {
		if _, err := s.SaveBatch(ctx, b); err != nil {
			t.Fatalf("save batch: %v", err)
		}
	}
	all, err := s.Batches(ctx)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(all))
	}
	if all[0].ID != b1.ID || all[1].ID != b2.ID {
		t.Fatalf("batches not in creation order")
	}
}

func TestNotFound(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	if _, err := s.BatchByID(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.RecordsByBatch(ctx, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordByID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	b := sampleBatch(time.Now().UTC())
	if _, err := s.SaveBatch(ctx, b); err != nil {
		t.Fatalf("save batch: %v", err)
	}
	r, err := s.RecordByID(ctx, "9月12日-银付0200-分录2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Credit.BankAccount != "建行一般户" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if _, err := s.RecordByID(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paytrace.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	b := sampleBatch(time.Now().UTC())
	if _, err := s.SaveBatch(ctx, b); err != nil {
		t.Fatalf("save batch: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.BatchByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if len(got.Records) != 1 {
		t.Fatalf("records lost across reopen")
	}
}
