package migration

import (
	"context"

	"sigcalc/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles results-archive schema migrations. The DDL sticks
// to types both sqlite and postgres accept.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createCalculationsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create calculations table", err)
	}

	if err := r.createScansTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create scans table", err)
	}

	if err := r.createScanPointsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create scan_points table", err)
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}

	return nil
}

func (r *MigrationRunner) createCalculationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS calculations (
			id VARCHAR(36) PRIMARY KEY,
			fingerprint VARCHAR(64) NOT NULL,
			n DOUBLE PRECISION NOT NULL,
			s DOUBLE PRECISION NOT NULL,
			num_bck INTEGER NOT NULL,
			estimated_background DOUBLE PRECISION NOT NULL,
			q0 DOUBLE PRECISION NOT NULL,
			z_discovery DOUBLE PRECISION NOT NULL,
			mu_test DOUBLE PRECISION NOT NULL,
			qmu DOUBLE PRECISION NOT NULL,
			z_exclusion DOUBLE PRECISION NOT NULL,
			payload TEXT NOT NULL,
			created_unix BIGINT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createScansTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scans (
			id VARCHAR(36) PRIMARY KEY,
			fingerprint VARCHAR(64) NOT NULL,
			seed VARCHAR(20) NOT NULL,
			histogram TEXT,
			created_unix BIGINT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createScanPointsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scan_points (
			scan_id VARCHAR(36) NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			mu DOUBLE PRECISION NOT NULL,
			qmu_obs DOUBLE PRECISION NOT NULL,
			z_obs DOUBLE PRECISION NOT NULL,
			p_asymptotic DOUBLE PRECISION NOT NULL,
			p_toys DOUBLE PRECISION NOT NULL,
			toys INTEGER NOT NULL,
			rejections INTEGER NOT NULL,
			fit_failures INTEGER NOT NULL,
			truncated BOOLEAN NOT NULL,
			b_hat_hat TEXT NOT NULL,
			qmu_mean DOUBLE PRECISION NOT NULL,
			qmu_median DOUBLE PRECISION NOT NULL,
			qmu_p95 DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (scan_id, idx)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_calculations_fingerprint ON calculations(fingerprint)`,
		`CREATE INDEX IF NOT EXISTS idx_calculations_created ON calculations(created_unix)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_fingerprint ON scans(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
