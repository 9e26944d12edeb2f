package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshslots"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out one shared in-memory repository per kind.
// Pair it with dbx.NopTransactor.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
	slots *refreshslots.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users: users.NewMemoryRepository(),
		slots: refreshslots.NewMemoryRepository(),
	}
}

// RunMigrations is a no-op; there is no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *MemoryRepositoryManager) RefreshSlots(dbx.DBTX) refreshslots.Repository { return m.slots }
