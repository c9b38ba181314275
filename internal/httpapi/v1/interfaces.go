package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/paytrace/internal/voucher"
)

// RecordReader abstracts payment record read operations.
type RecordReader interface {
	// RecordsByBatch returns the records of one batch in input order.
	RecordsByBatch(ctx context.Context, batchID uuid.UUID) ([]voucher.PaymentRecord, error)
	// RecordByID resolves a single record by its voucher-derived id.
	RecordByID(ctx context.Context, recordID string) (voucher.PaymentRecord, error)
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
