// Package repomanager vends repository implementations for the configured
// storage backend, bound to a dbx.DBTX so services can run them inside
// transactions.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshslots"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshSlots(db dbx.DBTX) refreshslots.Repository
}
