package dreams

import "context"

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Repo defines persistence operations for saved dreams.
type Repo interface {
	Create(ctx context.Context, d SavedDream) error
	GetByID(ctx context.Context, ownerID, id string) (SavedDream, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]SavedDream, error)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
