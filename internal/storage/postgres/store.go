package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. Batch headers live in their own
// table; payment records are stored one row each with the full record as
// jsonb plus a few extracted columns for filtering.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

const schema = `
create table if not exists batches (
    id         uuid primary key,
    created_at timestamptz not null,
    source     text not null,
    report     jsonb not null
);

create table if not exists payment_records (
    batch_id    uuid not null references batches(id) on delete cascade,
    position    int  not null,
    record_id   text not null,
    voucher_ref text not null,
    topology    text not null,
    balance_ok  boolean not null,
    record      jsonb not null,
    primary key (batch_id, position)
);

create index if not exists payment_records_voucher_ref_idx on payment_records (voucher_ref);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveBatch inserts the batch header and its records in one transaction.
func (s *Store) SaveBatch(ctx context.Context, b tracker.Batch) (tracker.Batch, error) {
	report, err := json.Marshal(b.Report)
	if err != nil {
		return tracker.Batch{}, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return tracker.Batch{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
        insert into batches (id, created_at, source, report)
        values ($1,$2,$3,$4)
    `, b.ID, b.CreatedAt, b.Source, report); err != nil {
		return tracker.Batch{}, err
	}
	for i, r := range b.Records {
		body, err := json.Marshal(r)
		if err != nil {
			return tracker.Batch{}, err
		}
		if _, err := tx.Exec(ctx, `
            insert into payment_records (batch_id, position, record_id, voucher_ref, topology, balance_ok, record)
            values ($1,$2,$3,$4,$5,$6,$7)
        `, b.ID, i, r.ID, r.VoucherRef, string(r.Topology), r.BalanceOK, body); err != nil {
			return tracker.Batch{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return tracker.Batch{}, err
	}
	return b, nil
}

// BatchByID returns one batch with its records populated.
func (s *Store) BatchByID(ctx context.Context, id uuid.UUID) (tracker.Batch, error) {
	var b tracker.Batch
	var report []byte
	err := s.pool.QueryRow(ctx, `
        select id, created_at, source, report
        from batches
        where id = $1
    `, id).Scan(&b.ID, &b.CreatedAt, &b.Source, &report)
	if errors.Is(err, pgx.ErrNoRows) {
		return tracker.Batch{}, errs.ErrNotFound
	}
	if err != nil {
		return tracker.Batch{}, err
	}
	if err := json.Unmarshal(report, &b.Report); err != nil {
		return tracker.Batch{}, err
	}
	b.Records, err = s.RecordsByBatch(ctx, id)
	if err != nil {
		return tracker.Batch{}, err
	}
	return b, nil
}

// Batches returns batch headers ordered by creation time ascending. Records
// are not populated; fetch them per batch when needed.
func (s *Store) Batches(ctx context.Context) ([]tracker.Batch, error) {
	rows, err := s.pool.Query(ctx, `
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
		var report []byte
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Source, &report); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(report, &b.Report); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RecordByID returns the most recently stored payment record with that id.
// Record ids repeat across batches when the same journal is processed twice.
func (s *Store) RecordByID(ctx context.Context, recordID string) (voucher.PaymentRecord, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `
        select pr.record
        from payment_records pr
        join batches b on b.id = pr.batch_id
        where pr.record_id = $1
        order by b.created_at desc
        limit 1
    `, recordID).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return voucher.PaymentRecord{}, errs.ErrNotFound
	}
	if err != nil {
		return voucher.PaymentRecord{}, err
	}
	var r voucher.PaymentRecord
	if err := json.Unmarshal(body, &r); err != nil {
		return voucher.PaymentRecord{}, err
	}
	return r, nil
}

// RecordsByBatch returns the payment records of one batch in input order.
func (s *Store) RecordsByBatch(ctx context.Context, batchID uuid.UUID) ([]voucher.PaymentRecord, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `select exists(select 1 from batches where id = $1)`, batchID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `
        select record
        from payment_records
        where batch_id = $1
        order by position asc
    `, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]voucher.PaymentRecord, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r voucher.PaymentRecord
		if err := json.Unmarshal(body, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
