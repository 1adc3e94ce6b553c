package outcomes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps outcomes in process. Used by tests and single-node runs
// without a database.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Outcome
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(ctx context.Context, o *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(o)

	s.mu.Lock()
	s.rows = append(s.rows, *o)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListByFeed(ctx context.Context, feedID string, since time.Time) ([]Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []Outcome
	for _, o := range s.rows {
		if o.FeedID == feedID && !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// All returns every stored outcome in insertion order.
func (s *MemoryStore) All() []Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Outcome, len(s.rows))
	copy(out, s.rows)
	return out
}

func prepare(o *Outcome) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	}
}
