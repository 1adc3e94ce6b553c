package destination

import (
	"context"
	"sort"
	"sync"

	apperrors "monitorss/pkg/errors"
)

// MemoryDirectory is an in-process Directory.
type MemoryDirectory struct {
	mu    sync.RWMutex
	byID  map[string]*Destination
	order []string
}

func NewMemoryDirectory(dests ...*Destination) *MemoryDirectory {
	d := &MemoryDirectory{}
	d.Replace(dests)
	return d
}

// Replace swaps the whole set of destinations. Destinations that fail
// Validate are left out and returned.
func (d *MemoryDirectory) Replace(dests []*Destination) []Rejection {
	valid, rejected := Valid(dests)

	byID := make(map[string]*Destination, len(valid))
	order := make([]string, 0, len(valid))
	for _, dest := range valid {
		if _, dup := byID[dest.ID]; !dup {
			order = append(order, dest.ID)
		}
		byID[dest.ID] = dest
	}

	d.mu.Lock()
	d.byID = byID
	d.order = order
	d.mu.Unlock()
	return rejected
}

// Upsert adds or replaces one destination. An invalid destination is not
// stored.
func (d *MemoryDirectory) Upsert(dest *Destination) error {
	if err := dest.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[dest.ID]; !ok {
		d.order = append(d.order, dest.ID)
	}
	d.byID[dest.ID] = dest
	return nil
}

// Remove deletes a destination if present.
func (d *MemoryDirectory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[id]; !ok {
		return
	}
	delete(d.byID, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (*Destination, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	dest, ok := d.byID[id]
	if !ok {
		return nil, apperrors.ErrDestinationMissing.WithDetail("destination_id", id)
	}
	return dest, nil
}

func (d *MemoryDirectory) ListByFeed(_ context.Context, feedID string) ([]*Destination, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*Destination
	for _, id := range d.order {
		if dest := d.byID[id]; dest.FeedID == feedID && !dest.Disabled {
			out = append(out, dest)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) LoadAll(_ context.Context) ([]*Destination, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*Destination, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of destinations.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
