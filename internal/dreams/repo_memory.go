package dreams

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string][]SavedDream // ownerID -> dreams
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string][]SavedDream),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, d SavedDream) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d.Tags = append([]string(nil), d.Tags...)
	r.data[d.OwnerID] = append(r.data[d.OwnerID], d)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, id string) (SavedDream, error) {
	if err := ctx.Err(); err != nil {
		return SavedDream{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.data[ownerID] {
		if d.ID == id {
			return d, nil
		}
	}
	return SavedDream{}, ErrNotFound
}

// List returns dreams for an owner, newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, ownerID string, limit, offset int) ([]SavedDream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	owned := make([]SavedDream, len(r.data[ownerID]))
	copy(owned, r.data[ownerID])
	r.mu.RUnlock()

	if offset >= len(owned) {
		return []SavedDream{}, nil
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	end := len(owned)
	if offset+limit < end {
		end = offset + limit
	}
	return owned[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
