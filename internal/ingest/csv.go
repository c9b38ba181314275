package ingest

// Package ingest reads sequential journal (序时账) CSV exports into voucher
// groups. The exports carry a UTF-8 BOM, quoted amounts with thousands
// separators, and one row per debit or credit leg.

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/govalues/decimal"

	"github.com/tinoosan/paytrace/internal/auxtag"
	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// Row is one raw journal row after CSV decoding and amount cleaning.
// Exactly one of Debit/Credit is non-zero on a well-formed row.
type Row struct {
	Month     int
	Day       int
	VoucherNo string
	EntryNo   int
	Account   string
	Summary   string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Auxiliary string
}

// Options controls journal reading.
type Options struct {
	// VoucherPrefix keeps only rows whose voucher number starts with the
	// prefix (e.g. 银付 for bank payment vouchers). Empty keeps everything.
	VoucherPrefix string
}

// column headers as they appear in the journal exports
const (
	colMonth     = "月"
	colDay       = "日"
	colVoucherNo = "凭证号"
	colEntryNo   = "分录号"
	colAccount   = "科目名称"
	colSummary   = "摘要"
	colDebit     = "借方"
	colCredit    = "贷方"
	colAuxiliary = "辅助项"
)

// ReadJournal decodes journal rows from r. The header row names the columns;
// order does not matter. Rows with a zero amount on both sides are skipped.
func ReadJournal(r io.Reader, opts Options) ([]Row, error) {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colMonth, colDay, colVoucherNo, colAccount, colDebit, colCredit} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", errs.ErrInvalid, required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line+1, err)
		}
		line++

		voucherNo := field(rec, colVoucherNo)
		if voucherNo == "" {
			continue
		}
		if opts.VoucherPrefix != "" && !strings.HasPrefix(voucherNo, opts.VoucherPrefix) {
			continue
		}

		month, err := strconv.Atoi(field(rec, colMonth))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad month %q", line, field(rec, colMonth))
		}
		day, err := strconv.Atoi(field(rec, colDay))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad day %q", line, field(rec, colDay))
		}
		entryNo := 0
		if s := field(rec, colEntryNo); s != "" {
			if entryNo, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("row %d: bad entry number %q", line, s)
			}
		}
		debit, err := CleanAmount(field(rec, colDebit))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		credit, err := CleanAmount(field(rec, colCredit))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if debit.IsZero() && credit.IsZero() {
			continue
		}

		rows = append(rows, Row{
			Month:     month,
			Day:       day,
			VoucherNo: voucherNo,
			EntryNo:   entryNo,
			Account:   field(rec, colAccount),
			Summary:   field(rec, colSummary),
			Debit:     debit,
			Credit:    credit,
			Auxiliary: field(rec, colAuxiliary),
		})
	}
	if len(rows) == 0 {
		return nil, errs.ErrNoData
	}
	return rows, nil
}

// CleanAmount parses a journal amount string: thousands separators, stray
// quotes and currency marks are stripped; empty strings mean zero. The
// returned decimal is non-negative as a matter of source convention, but
// signs survive when present.
func CleanAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ',', '"', '\'', '￥', '¥', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.Parse(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", errs.ErrInvalid, s)
	}
	return d, nil
}

// Group buckets rows by voucher key in first-seen order, splits legs by side
// and parses each leg's auxiliary text with the given parser. Rows stay in
// input order inside each side; allocation depends on that order.
func Group(rows []Row, parser *auxtag.Parser) []voucher.Group {
	index := make(map[voucher.Key]int)
	groups := make([]voucher.Group, 0)

	for _, row := range rows {
		k := voucher.Key{Month: row.Month, Day: row.Day, VoucherNo: row.VoucherNo}
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, voucher.Group{Key: k})
		}

		line := voucher.Line{
			Account:   row.Account,
			Summary:   row.Summary,
			Auxiliary: row.Auxiliary,
			Tags:      parser.Parse(row.Auxiliary),
			EntryNo:   row.EntryNo,
		}
		if row.Debit.IsPos() {
			line.Side = voucher.SideDebit
			line.Amount = row.Debit
			groups[gi].Debits = append(groups[gi].Debits, line)
		} else if row.Credit.IsPos() {
			line.Side = voucher.SideCredit
			line.Amount = row.Credit
			groups[gi].Credits = append(groups[gi].Credits, line)
		}
	}
	return groups
}

// skipBOM drops a leading UTF-8 byte order mark if present.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
