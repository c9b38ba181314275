package v1

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/paytrace/internal/ingest"
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// postBatchRequest carries journal rows submitted as JSON. Amounts arrive as
// strings so thousand separators and currency symbols survive transport the
// same way they do in CSV exports.
type postBatchRequest struct {
	Source string       `json:"source"`
	Rows   []rowRequest `json:"rows"`
}

type rowRequest struct {
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	VoucherNo string `json:"voucher_no"`
	EntryNo   int    `json:"entry_no"`
	Account   string `json:"account"`
	Summary   string `json:"summary"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
	Auxiliary string `json:"auxiliary"`
}

// toRows converts request rows into ingest rows, cleaning amounts.
func toRows(reqs []rowRequest) ([]ingest.Row, error) {
	rows := make([]ingest.Row, 0, len(reqs))
	for i, rr := range reqs {
		if rr.VoucherNo == "" {
			return nil, fmt.Errorf("rows[%d]: voucher_no is required", i)
		}
		if rr.Account == "" {
			return nil, fmt.Errorf("rows[%d]: account is required", i)
		}
		debit, err := ingest.CleanAmount(rr.Debit)
		if err != nil {
			return nil, fmt.Errorf("rows[%d]: invalid debit %q", i, rr.Debit)
		}
		credit, err := ingest.CleanAmount(rr.Credit)
		if err != nil {
			return nil, fmt.Errorf("rows[%d]: invalid credit %q", i, rr.Credit)
		}
		rows = append(rows, ingest.Row{
			Month:     rr.Month,
			Day:       rr.Day,
			VoucherNo: rr.VoucherNo,
			EntryNo:   rr.EntryNo,
			Account:   rr.Account,
			Summary:   rr.Summary,
			Debit:     debit,
			Credit:    credit,
			Auxiliary: rr.Auxiliary,
		})
	}
	return rows, nil
}

// batchResponse is the batch header returned by the API. Records are exposed
// through the dedicated records endpoint in the Chinese report format.
type batchResponse struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Source    string         `json:"source"`
	Report    tracker.Report `json:"report"`
}

func toBatchResponse(b tracker.Batch) batchResponse {
	return batchResponse{ID: b.ID, CreatedAt: b.CreatedAt, Source: b.Source, Report: b.Report}
}

// recordsResponse keeps the top-level field name of the historical report files.
type recordsResponse struct {
	Records []voucher.ExportRecord `json:"付款记录"`
}

// parseTagsRequest carries one auxiliary string for ad-hoc tag parsing.
type parseTagsRequest struct {
	Text string `json:"text"`
}

type parseTagsResponse struct {
	Tags     []tagResponse `json:"tags"`
	Valid    bool          `json:"valid"`
	Problems []string      `json:"problems,omitempty"`
}

type tagResponse struct {
	RawType   string `json:"raw_type"`
	Canonical string `json:"canonical_type"`
	Display   string `json:"display_type"`
	Value     string `json:"value"`
	Truncated bool   `json:"truncated,omitempty"`
	Warning   string `json:"warning,omitempty"`
}
