package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
    ErrNotFound = errors.New("not_found")
    ErrInvalid  = errors.New("invalid")
    ErrConflict = errors.New("conflict")
    // ErrUnbalanced indicates a voucher whose raw debit and credit totals
    // differ by more than the accepted tolerance before allocation begins.
    ErrUnbalanced = errors.New("unbalanced_voucher")
    // ErrInvalidTopology indicates a voucher with zero debit or zero credit legs.
    ErrInvalidTopology = errors.New("invalid_topology")
    // ErrNoData indicates an ingest source produced no usable rows.
    ErrNoData = errors.New("no_data")
)
