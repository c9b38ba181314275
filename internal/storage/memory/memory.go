package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing us
// to plug in a real DB later.
import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/paytrace/internal/errs"
	"github.com/tinoosan/paytrace/internal/service/tracker"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// batchKey tracks ordering for batches: sorted asc by (CreatedAt, ID)
type batchKey struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Store is an in-memory implementation of the repository+writer used by the
// services. It is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]*tracker.Batch
	// Sorted index for ordered listing
	batchKeys []batchKey
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{batches: make(map[uuid.UUID]*tracker.Batch)}
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.batches = map[uuid.UUID]*tracker.Batch{}
	s.batchKeys = nil
	s.mu.Unlock()
}

// SaveBatch implements tracker.Writer.
func (s *Store) SaveBatch(_ context.Context, b tracker.Batch) (tracker.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[b.ID]; exists {
		return tracker.Batch{}, errs.ErrConflict
	}
	// store shallow copy
	cp := b
	s.batches[b.ID] = &cp
	s.insertBatchIndexLocked(batchKey{CreatedAt: b.CreatedAt, ID: b.ID})
	return cp, nil
}

// BatchByID implements tracker.Repo.
func (s *Store) BatchByID(_ context.Context, id uuid.UUID) (tracker.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return tracker.Batch{}, errs.ErrNotFound
	}
	return *b, nil
}

// Batches implements tracker.Repo, ordered by creation time ascending.
func (s *Store) Batches(_ context.Context) ([]tracker.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracker.Batch, 0, len(s.batchKeys))
	for _, k := range s.batchKeys {
		if b, ok := s.batches[k.ID]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

// RecordsByBatch implements report.Repo.
func (s *Store) RecordsByBatch(_ context.Context, id uuid.UUID) ([]voucher.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := make([]voucher.PaymentRecord, len(b.Records))
	copy(out, b.Records)
	return out, nil
}

// RecordByID scans batches newest-first for a payment record. Record ids
// repeat across batches when the same journal is processed twice; the most
// recent batch wins.
func (s *Store) RecordByID(_ context.Context, recordID string) (voucher.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.batchKeys) - 1; i >= 0; i-- {
		b, ok := s.batches[s.batchKeys[i].ID]
		if !ok {
			continue
		}
		for _, r := range b.Records {
			if r.ID == recordID {
				return r, nil
			}
		}
	}
	return voucher.PaymentRecord{}, errs.ErrNotFound
}

// insertBatchIndexLocked inserts k into the sorted index, keeping order asc
// by (CreatedAt, ID). Caller must hold s.mu (write lock).
func (s *Store) insertBatchIndexLocked(k batchKey) {
	keys := s.batchKeys
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].CreatedAt.After(k.CreatedAt) {
			return true
		}
		if keys[i].CreatedAt.Equal(k.CreatedAt) {
			return keys[i].ID.String() > k.ID.String()
		}
		return false
	})
	if i == len(keys) {
		s.batchKeys = append(keys, k)
		return
	}
	keys = append(keys, batchKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.batchKeys = keys
}
