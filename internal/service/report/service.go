// Package report aggregates produced payment records into the statistics the
// accounting team consumes: totals, per-category breakdowns and a ranked
// share analysis. All output amounts are CNY with two decimal places.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/paytrace/internal/classify"
	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// Repo defines read operations needed by the service.
type Repo interface {
	RecordsByBatch(ctx context.Context, batchID uuid.UUID) ([]voucher.PaymentRecord, error)
}

// Service computes statistics over one batch of payment records.
type Service interface {
	Stats(ctx context.Context, batchID uuid.UUID) (Stats, error)
	Analysis(ctx context.Context, batchID uuid.UUID) (Analysis, error)
	Top(ctx context.Context, batchID uuid.UUID, limit int) ([]TopPayment, error)
}

// Bucket is one aggregation cell: how many items landed in it and their
// combined amount.
type Bucket struct {
	Count  int     `json:"记录数"`
	Amount float64 `json:"金额"`
}

// Stats is the basic aggregation over a batch. Purpose and cash-flow buckets
// count debit fragments; account, month and voucher-type buckets count
// payment records.
type Stats struct {
	Records    int               `json:"总付款记录数"`
	Total      float64           `json:"总付款金额"`
	ByPurpose  map[string]Bucket `json:"按用途分类统计"`
	ByCashFlow map[string]Bucket `json:"按现金流量分类统计"`
	ByAccount  map[string]Bucket `json:"按付款账户统计"`
	ByMonth    map[string]Bucket `json:"按月份统计"`
	ByTopology map[string]Bucket `json:"按凭证类型统计"`
}

// Entry is one row of a ranked analysis table. Share is a percentage of the
// batch total, rounded to two decimals.
type Entry struct {
	Label   string  `json:"类别"`
	Count   int     `json:"记录数"`
	Amount  float64 `json:"金额"`
	Share   float64 `json:"金额占比"`
	Average float64 `json:"平均金额"`
}

// Analysis is the detailed report: basic stats plus ranked breakdowns.
// Monthly rows are in calendar order; the rest are sorted by amount
// descending.
type Analysis struct {
	GeneratedAt string  `json:"生成时间"`
	Source      string  `json:"数据源"`
	Stats       Stats   `json:"基础统计"`
	Purpose     []Entry `json:"用途分类分析"`
	CashFlow    []Entry `json:"现金流量分类分析"`
	Monthly     []Entry `json:"月度趋势分析"`
	Accounts    []Entry `json:"账户使用分析"`
	Topologies  []Entry `json:"凭证类型分析"`
}

// TopPayment is one row of the largest-payments table.
type TopPayment struct {
	ID          string  `json:"付款ID"`
	Account     string  `json:"付款账户"`
	Amount      float64 `json:"金额"`
	Summary     string  `json:"摘要"`
	VoucherType string  `json:"凭证类型"`
}

type service struct {
	repo Repo
}

func New(repo Repo) Service { return &service{repo: repo} }

// acc accumulates in whole CNY amounts to avoid float drift while summing.
type acc struct {
	count  int
	amount money.Amount
}

func zeroCNY() money.Amount {
	a, _ := money.NewAmountFromMinorUnits("CNY", 0)
	return a
}

func minorUnits(d decimal.Decimal) int64 {
	whole, frac, ok := d.Int64(2)
	if !ok {
		return 0
	}
	if whole < 0 {
		return whole*100 - abs64(frac)
	}
	return whole*100 + abs64(frac)
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func add(to map[string]*acc, key string, d decimal.Decimal) {
	a, ok := to[key]
	if !ok {
		a = &acc{amount: zeroCNY()}
		to[key] = a
	}
	a.count++
	if amt, err := money.NewAmountFromMinorUnits("CNY", minorUnits(d)); err == nil {
		if sum, err := a.amount.Add(amt); err == nil {
			a.amount = sum
		}
	}
}

func toFloat(a money.Amount) float64 {
	minor, _ := a.MinorUnits()
	return float64(minor) / 100
}

func buckets(in map[string]*acc) map[string]Bucket {
	out := make(map[string]Bucket, len(in))
	for k, a := range in {
		out[k] = Bucket{Count: a.count, Amount: toFloat(a.amount)}
	}
	return out
}

func (s *service) Stats(ctx context.Context, batchID uuid.UUID) (Stats, error) {
	if batchID == uuid.Nil {
		return Stats{}, errs.ErrInvalid
	}
	records, err := s.repo.RecordsByBatch(ctx, batchID)
	if err != nil {
		return Stats{}, err
	}
	if len(records) == 0 {
		return Stats{}, errs.ErrNoData
	}
	return computeStats(records), nil
}

func computeStats(records []voucher.PaymentRecord) Stats {
	byPurpose := make(map[string]*acc)
	byCashFlow := make(map[string]*acc)
	byAccount := make(map[string]*acc)
	byMonth := make(map[string]*acc)
	byTopology := make(map[string]*acc)

	total := zeroCNY()
	for _, r := range records {
		if amt, err := money.NewAmountFromMinorUnits("CNY", minorUnits(r.Credit.Amount)); err == nil {
			if sum, err := total.Add(amt); err == nil {
				total = sum
			}
		}

		for _, f := range r.Debits {
			purpose := f.Extra.Value(voucher.AttrPurpose)
			if purpose == "" {
				purpose = classify.DefaultPurpose
			}
			cashFlow := f.Extra.Value(voucher.AttrCashFlow)
			if cashFlow == "" {
				cashFlow = classify.DefaultCashFlow
			}
			add(byPurpose, purpose, f.Amount)
			add(byCashFlow, cashFlow, f.Amount)
		}

		account := r.Credit.BankAccount
		if account == "" {
			account = r.Credit.Account
		}
		add(byAccount, account, r.Credit.Amount)
		add(byMonth, fmt.Sprintf("%d月", r.Key.Month), r.Credit.Amount)

		topo := r.Topology.Display()
		if topo == "" {
			topo = "未知"
		}
		add(byTopology, topo, r.Credit.Amount)
	}

	return Stats{
		Records:    len(records),
		Total:      toFloat(total),
		ByPurpose:  buckets(byPurpose),
		ByCashFlow: buckets(byCashFlow),
		ByAccount:  buckets(byAccount),
		ByMonth:    buckets(byMonth),
		ByTopology: buckets(byTopology),
	}
}

func (s *service) Analysis(ctx context.Context, batchID uuid.UUID) (Analysis, error) {
	stats, err := s.Stats(ctx, batchID)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Source:      batchID.String(),
		Stats:       stats,
		Purpose:     rankByAmount(stats.ByPurpose, stats.Total),
		CashFlow:    rankByAmount(stats.ByCashFlow, stats.Total),
		Monthly:     monthlyTrend(stats.ByMonth),
		Accounts:    rankByAmount(stats.ByAccount, stats.Total),
		Topologies:  rankByAmount(stats.ByTopology, stats.Total),
	}, nil
}

// Top returns the limit largest payments of the batch by credit amount.
// limit <= 0 selects 10.
func (s *service) Top(ctx context.Context, batchID uuid.UUID, limit int) ([]TopPayment, error) {
	if batchID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	records, err := s.repo.RecordsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errs.ErrNoData
	}
	if limit <= 0 {
		limit = 10
	}
	sorted := make([]voucher.PaymentRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Credit.Amount.Cmp(sorted[j].Credit.Amount) > 0
	})
	if limit > len(sorted) {
		limit = len(sorted)
	}
	out := make([]TopPayment, 0, limit)
	for _, r := range sorted[:limit] {
		account := r.Credit.BankAccount
		if account == "" {
			account = r.Credit.Account
		}
		amount, _ := r.Credit.Amount.Float64()
		out = append(out, TopPayment{
			ID:          r.ID,
			Account:     account,
			Amount:      amount,
			Summary:     r.Credit.Summary,
			VoucherType: r.Topology.Display(),
		})
	}
	return out, nil
}

// rankByAmount flattens buckets into entries sorted by amount descending,
// with label as a deterministic tie-break.
func rankByAmount(in map[string]Bucket, total float64) []Entry {
	out := make([]Entry, 0, len(in))
	for label, b := range in {
		out = append(out, entry(label, b, total))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// monthlyTrend keeps months in calendar order rather than by amount.
func monthlyTrend(in map[string]Bucket) []Entry {
	type row struct {
		month int
		e     Entry
	}
	rows := make([]row, 0, len(in))
	for label, b := range in {
		var m int
		fmt.Sscanf(label, "%d月", &m)
		rows = append(rows, row{month: m, e: entry(label, b, 0)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].month < rows[j].month })
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.e)
	}
	return out
}

func entry(label string, b Bucket, total float64) Entry {
	e := Entry{Label: label, Count: b.Count, Amount: b.Amount}
	if total > 0 {
		e.Share = round2(b.Amount / total * 100)
	}
	if b.Count > 0 {
		e.Average = round2(b.Amount / float64(b.Count))
	}
	return e
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
