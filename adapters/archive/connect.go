// Package archive stores calculations and toy scans with sqlx. The same
// queries run on sqlite (modernc.org/sqlite, driver "sqlite") and postgres
// (github.com/lib/pq, driver "postgres").
package archive

import (
	"context"
	"fmt"
	"log"

	"sigcalc/internal/errors"
	"sigcalc/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the archive and runs the schema migrations.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		return nil, errors.ConfigInvalid("archive DSN is required")
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to open %s archive", driver), err)
	}
	if driver == "sqlite" {
		// Every pooled connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to ping archive", err)
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "archive migration failed")
	}

	log.Printf("[Archive] Connected to %s archive (schema %s)", driver, migrator.Version())
	return db, nil
}
