package thread

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// LikeTracker is the viewer-held set of liked comment ids. The like counter
// itself does not deduplicate, so callers consult the tracker before every
// increment or decrement.
type LikeTracker struct {
	mu    sync.Mutex
	liked map[uuid.UUID]struct{}
}

func NewLikeTracker(ids ...uuid.UUID) *LikeTracker {
	t := &LikeTracker{liked: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		t.liked[id] = struct{}{}
	}
	return t
}

func (t *LikeTracker) Has(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.liked[id]
	return ok
}

// Mark records a like and reports whether it was new.
func (t *LikeTracker) Mark(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.liked[id]; ok {
		return false
	}
	t.liked[id] = struct{}{}
	return true
}

// Unmark removes a like and reports whether one was present.
func (t *LikeTracker) Unmark(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.liked[id]; !ok {
		return false
	}
	delete(t.liked, id)
	return true
}

// IDs returns the liked ids in a stable order.
func (t *LikeTracker) IDs() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(t.liked))
	for id := range t.liked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
