package repomanager

import (
	"context"
	"database/sql"

	"github.com/dsavelev/dialogvault/internal/dbx"
	"github.com/dsavelev/dialogvault/internal/server/repositories/turns"
	"github.com/dsavelev/dialogvault/internal/server/repositories/userstates"
)

// RepositoryManager vends repositories bound to a specific DBTX, so services
// can use the same repository code against the pooled connection or a
// transaction handle.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Turns(db dbx.DBTX) turns.Repository
	UserStates(db dbx.DBTX) userstates.Repository
}
