package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// migrateDB brings the scans schema up to date. Running it twice is a no-op.
func migrateDB(ctx context.Context, db *sqlx.DB, dialect string) error {
	source, err := iofs.New(migrationFiles, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	var driver database.Driver
	closeAfter := false
	switch dialect {
	case TypeSQLite:
		// The driver wraps db itself; closing it would close the store.
		driver, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	case TypePostgres:
		conn, connErr := db.Conn(ctx)
		if connErr != nil {
			return fmt.Errorf("couldn't get database connection for running migrations: %w", connErr)
		}
		driver, err = postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			conn.Close()
		}
		closeAfter = true
	default:
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}
	if closeAfter {
		defer m.Close()
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}
	return nil
}
