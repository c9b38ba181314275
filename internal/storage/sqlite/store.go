// Package sqlite provides a single-file storage backend. It mirrors the
// postgres store's behavior so either can sit behind the service interfaces;
// sqlite is the default for local runs where no database server exists.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// Store wraps a SQLite database handle.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
create table if not exists batches (
    id         text primary key,
    created_at text not null,
    source     text not null,
    report     text not null
);

create table if not exists payment_records (
    batch_id    text not null references batches(id) on delete cascade,
    position    integer not null,
    record_id   text not null,
    voucher_ref text not null,
    topology    text not null,
    balance_ok  integer not null,
    record      text not null,
    primary key (batch_id, position)
);

create index if not exists payment_records_voucher_ref_idx on payment_records (voucher_ref);
`

// Open opens (or creates) the database file, enabling WAL mode and foreign
// key constraints, and applies the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ready verifies the handle is usable.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SaveBatch inserts the batch header and its records in one transaction.
func (s *Store) SaveBatch(ctx context.Context, b tracker.Batch) (tracker.Batch, error) {
	report, err := json.Marshal(b.Report)
	if err != nil {
		return tracker.Batch{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tracker.Batch{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        insert into batches (id, created_at, source, report)
        values (?,?,?,?)
    `, b.ID.String(), b.CreatedAt.UTC().Format(time.RFC3339Nano), b.Source, string(report)); err != nil {
		return tracker.Batch{}, err
	}
	for i, r := range b.Records {
		body, err := json.Marshal(r)
		if err != nil {
			return tracker.Batch{}, err
		}
		if _, err := tx.ExecContext(ctx, `
            insert into payment_records (batch_id, position, record_id, voucher_ref, topology, balance_ok, record)
            values (?,?,?,?,?,?,?)
        `, b.ID.String(), i, r.ID, r.VoucherRef, string(r.Topology), boolInt(r.BalanceOK), string(body)); err != nil {
			return tracker.Batch{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return tracker.Batch{}, err
	}
	return b, nil
}

// BatchByID returns one batch with its records populated.
func (s *Store) BatchByID(ctx context.Context, id uuid.UUID) (tracker.Batch, error) {
	var b tracker.Batch
	var idStr, createdAt, report string
	err := s.db.QueryRowContext(ctx, `
        select id, created_at, source, report
        from batches
        where id = ?
    `, id.String()).Scan(&idStr, &createdAt, &b.Source, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return tracker.Batch{}, errs.ErrNotFound
	}
	if err != nil {
		return tracker.Batch{}, err
	}
	if b.ID, err = uuid.Parse(idStr); err != nil {
		return tracker.Batch{}, err
	}
	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return tracker.Batch{}, err
	}
	if err := json.Unmarshal([]byte(report), &b.Report); err != nil {
		return tracker.Batch{}, err
	}
	b.Records, err = s.RecordsByBatch(ctx, b.ID)
	if err != nil {
		return tracker.Batch{}, err
	}
	return b, nil
}

// Batches returns batch headers ordered by creation time ascending. Records
// are not populated; fetch them per batch when needed.
func (s *Store) Batches(ctx context.Context) ([]tracker.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
        select id, created_at, source, report
        from batches
        order by created_at asc, id asc
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]tracker.Batch, 0)
	for rows.Next() {
		var b tracker.Batch
		var idStr, createdAt, report string
		if err := rows.Scan(&idStr, &createdAt, &b.Source, &report); err != nil {
			return nil, err
		}
		if b.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(report), &b.Report); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RecordByID returns the most recently stored payment record with that id.
// Record ids repeat across batches when the same journal is processed twice.
func (s *Store) RecordByID(ctx context.Context, recordID string) (voucher.PaymentRecord, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
        select pr.record
        from payment_records pr
        join batches b on b.id = pr.batch_id
        where pr.record_id = ?
        order by b.created_at desc
        limit 1
    `, recordID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return voucher.PaymentRecord{}, errs.ErrNotFound
	}
	if err != nil {
		return voucher.PaymentRecord{}, err
	}
	var r voucher.PaymentRecord
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return voucher.PaymentRecord{}, err
	}
	return r, nil
}

// RecordsByBatch returns the payment records of one batch in input order.
func (s *Store) RecordsByBatch(ctx context.Context, batchID uuid.UUID) ([]voucher.PaymentRecord, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `select count(1) from batches where id = ?`, batchID.String()).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, errs.ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
        select record
        from payment_records
        where batch_id = ?
        order by position asc
    `, batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]voucher.PaymentRecord, 0)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r voucher.PaymentRecord
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
