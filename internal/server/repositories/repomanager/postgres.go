// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dsavelev/dialogvault/internal/dbx"
	"github.com/dsavelev/dialogvault/internal/server/migrations"
	"github.com/dsavelev/dialogvault/internal/server/repositories/turns"
	"github.com/dsavelev/dialogvault/internal/server/repositories/userstates"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

// Turns returns a turns.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Turns(db dbx.DBTX) turns.Repository {
	return turns.NewPostgresRepository(db)
}

// UserStates returns a userstates.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) UserStates(db dbx.DBTX) userstates.Repository {
	return userstates.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
