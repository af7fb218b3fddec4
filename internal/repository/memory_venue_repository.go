package repository

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/seat-picker/internal/layout"
)

// MemoryVenueRepo keeps venues in process memory.  It backs the service
// when no database is configured and in tests.
type MemoryVenueRepo struct {
	mu     sync.RWMutex
	nextID uint64
	venues map[uint64]*Venue
}

// NewMemoryVenueRepo returns an empty repository.
func NewMemoryVenueRepo() *MemoryVenueRepo {
	return &MemoryVenueRepo{nextID: 1, venues: make(map[uint64]*Venue)}
}

// NewSeededVenueRepo returns a repository holding the demo venue as id 1.
func NewSeededVenueRepo() *MemoryVenueRepo {
	r := NewMemoryVenueRepo()
	_ = r.Create(context.Background(), &Venue{
		Name:   "Demo Hall",
		Config: json.RawMessage(layout.DefaultConfig),
	})
	return r
}

func (r *MemoryVenueRepo) Create(_ context.Context, v *Venue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.venues {
		if existing.Name == v.Name {
			return ErrConflict
		}
	}
	v.ID = r.nextID
	v.CreatedAt = time.Now().UTC()
	r.nextID++
	cp := *v
	cp.Config = append(json.RawMessage(nil), v.Config...)
	r.venues[v.ID] = &cp
	return nil
}

func (r *MemoryVenueRepo) GetByID(_ context.Context, id uint64) (*Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.venues[id]
	if !ok {
		return nil, ErrVenueNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *MemoryVenueRepo) List(_ context.Context) ([]*Venue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Venue, 0, len(r.venues))
	for _, v := range r.venues {
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
