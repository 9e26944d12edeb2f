package refreshslots

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// MemoryRepository keeps slots in a map guarded by one mutex. The lock is
// held only for the read or the compare-and-write itself.
type MemoryRepository struct {
	mu    sync.Mutex
	slots map[string]*models.RefreshSlot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{slots: make(map[string]*models.RefreshSlot)}
}

func (r *MemoryRepository) Get(_ context.Context, userID string) (*models.RefreshSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) Create(_ context.Context, slot *models.RefreshSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[slot.UserID]; ok {
		return common.ErrorAlreadyExists
	}
	r.slots[slot.UserID] = slot.Clone()
	return nil
}

func (r *MemoryRepository) CompareAndSwap(_ context.Context, expectedCurrent string, slot *models.RefreshSlot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.slots[slot.UserID]
	if !ok || cur.Current.Token != expectedCurrent {
		return false, nil
	}
	r.slots[slot.UserID] = slot.Clone()
	return true, nil
}
