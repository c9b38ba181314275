package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/paytrace/internal/alloc"
	"github.com/tinoosan/paytrace/internal/auxtag"
	"github.com/tinoosan/paytrace/internal/balance"
	"github.com/tinoosan/paytrace/internal/classify"
	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/voucher"
)

var (
	vouchersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paytrace",
		Subsystem: "tracker",
		Name:      "vouchers_processed_total",
		Help:      "Vouchers processed, by topology.",
	}, []string{"topology"})
	vouchersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paytrace",
		Subsystem: "tracker",
		Name:      "vouchers_failed_total",
		Help:      "Vouchers that could not be allocated.",
	})
	recordsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "paytrace",
		Subsystem: "tracker",
		Name:      "records_produced_total",
		Help:      "Payment records produced by allocation.",
	})
)

// Batch is one processing run over a set of vouchers.
type Batch struct {
	ID        uuid.UUID               `json:"id"`
	CreatedAt time.Time               `json:"created_at"`
	Source    string                  `json:"source"`
	Records   []voucher.PaymentRecord `json:"records"`
	Report    Report                  `json:"report"`
}

// Report summarizes a batch run. Failed vouchers never abort the run; the
// remaining vouchers still produce records.
type Report struct {
	Vouchers  int            `json:"vouchers"`
	Processed int            `json:"processed"`
	Records   int            `json:"records"`
	Balance   balance.Report `json:"balance"`
	Failed    []Failure      `json:"failed,omitempty"`
}

// Failure records one voucher that allocation rejected.
type Failure struct {
	Voucher string `json:"voucher"`
	Reason  string `json:"reason"`
}

// Repo defines read operations needed by the service.
type Repo interface {
	BatchByID(ctx context.Context, id uuid.UUID) (Batch, error)
	Batches(ctx context.Context) ([]Batch, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	SaveBatch(ctx context.Context, b Batch) (Batch, error)
}

// Service runs allocation over grouped vouchers and persists the results.
type Service interface {
	Process(ctx context.Context, source string, groups []voucher.Group) (Batch, error)
	Batch(ctx context.Context, id uuid.UUID) (Batch, error)
	Batches(ctx context.Context) ([]Batch, error)
}

type service struct {
	repo       Repo
	writer     Writer
	classifier classify.Classifier
	log        *slog.Logger
	workers    int
}

// New builds the tracking service. classifier may be classify.Noop when no
// provider is configured; workers <= 0 falls back to serial processing.
func New(repo Repo, writer Writer, classifier classify.Classifier, log *slog.Logger, workers int) Service {
	if classifier == nil {
		classifier = classify.Noop{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &service{repo: repo, writer: writer, classifier: classifier, log: log, workers: workers}
}

type groupResult struct {
	records []voucher.PaymentRecord
	failure *Failure
}

// Process allocates every voucher group, enriches the fragments with
// classification labels, audits the balance of the produced records and
// persists the batch. Results keep the input voucher order regardless of the
// worker count.
func (s *service) Process(ctx context.Context, source string, groups []voucher.Group) (Batch, error) {
	if len(groups) == 0 {
		return Batch{}, errs.ErrNoData
	}

	results := make([]groupResult, len(groups))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.processGroup(ctx, groups[i])
			}
		}()
	}
	for i := range groups {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	b := Batch{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Report:    Report{Vouchers: len(groups)},
	}
	for _, res := range results {
		if res.failure != nil {
			b.Report.Failed = append(b.Report.Failed, *res.failure)
			s.log.Warn("voucher rejected", "voucher", res.failure.Voucher, "reason", res.failure.Reason)
			continue
		}
		b.Report.Processed++
		b.Records = append(b.Records, res.records...)
	}
	b.Report.Records = len(b.Records)
	b.Report.Balance = balance.CheckRecords(b.Records)
	recordsProduced.Add(float64(len(b.Records)))

	if !balance.Consistent(balance.TotalsOfRecords(b.Records), totalsOfProcessed(groups, results)) {
		s.log.Error("batch totals drifted from input totals", "batch", b.ID)
	}

	saved, err := s.writer.SaveBatch(ctx, b)
	if err != nil {
		return Batch{}, err
	}
	s.log.Info("batch processed",
		"batch", saved.ID,
		"vouchers", saved.Report.Vouchers,
		"processed", saved.Report.Processed,
		"records", saved.Report.Records,
		"failed", len(saved.Report.Failed))
	return saved, nil
}

func (s *service) processGroup(ctx context.Context, g voucher.Group) groupResult {
	topo := voucher.Classify(g)
	records, err := alloc.Allocate(g, topo)
	if err != nil {
		vouchersFailed.Inc()
		return groupResult{failure: &Failure{Voucher: g.Key.Ref(), Reason: err.Error()}}
	}
	vouchersProcessed.WithLabelValues(string(topo)).Inc()
	for ri := range records {
		s.enrich(ctx, &records[ri])
	}
	return groupResult{records: records}
}

// enrich attaches purpose and cash-flow labels to each debit fragment.
// Classifier failures downgrade to the default labels and a warning; a label
// is always present on the output.
func (s *service) enrich(ctx context.Context, r *voucher.PaymentRecord) {
	for fi := range r.Debits {
		f := &r.Debits[fi]
		aux := joinTags(f.Tags)
		purpose, err := s.classifier.ClassifyPurpose(ctx, f.Summary, f.Account, aux)
		if err != nil {
			s.log.Warn("purpose classification failed", "record", r.ID, "err", err)
			purpose = classify.DefaultPurpose
		}
		cashFlow, err := s.classifier.ClassifyCashFlow(ctx, f.Summary, f.Account, aux)
		if err != nil {
			s.log.Warn("cash flow classification failed", "record", r.ID, "err", err)
			cashFlow = classify.DefaultCashFlow
		}
		f.Extra.Set(voucher.AttrPurpose, purpose)
		f.Extra.Set(voucher.AttrCashFlow, cashFlow)
	}
}

func (s *service) Batch(ctx context.Context, id uuid.UUID) (Batch, error) {
	if id == uuid.Nil {
		return Batch{}, errs.ErrInvalid
	}
	return s.repo.BatchByID(ctx, id)
}

func (s *service) Batches(ctx context.Context) ([]Batch, error) {
	return s.repo.Batches(ctx)
}

// totalsOfProcessed sums input totals for the groups that produced records,
// skipping rejected vouchers so the reconciliation compares like with like.
func totalsOfProcessed(groups []voucher.Group, results []groupResult) balance.Totals {
	var out balance.Totals
	for i, res := range results {
		if res.failure != nil {
			continue
		}
		out = out.Add(balance.Totals{
			Debit:  balance.SumLines(groups[i].Debits),
			Credit: balance.SumLines(groups[i].Credits),
		})
	}
	return out
}

// joinTags rebuilds an auxiliary string from parsed tags for the classifier
// prompt context.
func joinTags(tags []auxtag.Tag) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, t.RawType+"："+t.Value)
	}
	return strings.Join(parts, "；")
}
