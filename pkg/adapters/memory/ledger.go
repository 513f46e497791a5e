package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/shastarun/pkg/domain"
)

// Ledger implements ports.RunLedger in memory.
// Safe for concurrent use.
type Ledger struct {
	data map[string]domain.RunRecord
	mu   sync.RWMutex
}

// NewLedger creates a new in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		data: make(map[string]domain.RunRecord),
	}
}

// Save stores a copy of the record.
func (l *Ledger) Save(ctx context.Context, rec *domain.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[rec.ID] = *rec
	return nil
}

// Load returns a copy so callers cannot mutate the stored record.
func (l *Ledger) Load(ctx context.Context, runID string) (*domain.RunRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return &rec, nil
}

// Delete removes the record.
func (l *Ledger) Delete(ctx context.Context, runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, runID)
	return nil
}

// List returns the recorded run IDs in lexical order.
func (l *Ledger) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.data))
	for id := range l.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
