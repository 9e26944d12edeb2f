// Package refreshslots declares the storage contract for per-user refresh
// token slots. Every backend offers an atomic compare-and-swap keyed on the
// slot's current token; that is the only way a slot changes after creation.
package refreshslots

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
)

// Repository persists refresh slots.
type Repository interface {
	// Get returns the user's slot or common.ErrorNotFound.
	Get(ctx context.Context, userID string) (*models.RefreshSlot, error)

	// Create stores a new slot. An existing slot for the same user is left
	// untouched and common.ErrorAlreadyExists is returned.
	Create(ctx context.Context, slot *models.RefreshSlot) error

	// CompareAndSwap replaces the slot only if its stored current token still
	// equals expectedCurrent. It reports whether the write happened.
	CompareAndSwap(ctx context.Context, expectedCurrent string, slot *models.RefreshSlot) (bool, error)
}
