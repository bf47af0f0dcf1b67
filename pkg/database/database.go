package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	// Registered drivers: "sqlite" (modernc) and "pgx" (jackc/pgx stdlib).
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Open connects to the configured driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite serializes writers; an in-memory database only lives on its own connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func dialectFor(driver string) string {
	if driver == "pgx" {
		return "postgres"
	}
	return "sqlite3"
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sqlx.DB, logger *logrus.Logger) error {
	goose.SetBaseFS(schemaFS)
	if logger != nil {
		goose.SetLogger(logger)
	}
	if err := goose.SetDialect(dialectFor(db.DriverName())); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.DB, "schema"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenMemory returns a migrated in-memory SQLite database.
func OpenMemory(ctx context.Context) (*sqlx.DB, error) {
	db, err := Open(ctx, "sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db, nil); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// IsMemoryDSN reports whether dsn points to a throwaway SQLite database.
func IsMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:")
}
