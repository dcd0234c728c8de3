package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"

	"sigcalc/domain/core"
	"sigcalc/domain/stats"
	"sigcalc/internal/errors"
	"sigcalc/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepositoryImpl implements ResultRepository over sqlx
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new results repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

// SaveCalculation stores a calculation. The full result is kept as JSON; the
// headline numbers are duplicated into columns for ad-hoc queries.
func (r *ResultRepositoryImpl) SaveCalculation(ctx context.Context, calc *stats.Calculation) error {
	payload, err := json.Marshal(calc)
	if err != nil {
		return errors.Wrap(err, "failed to encode calculation")
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO calculations (id, fingerprint, n, s, num_bck, estimated_background,
			q0, z_discovery, mu_test, qmu, z_exclusion, payload, created_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), calc.ID.String(), calc.Fingerprint.String(), calc.N, calc.S, len(calc.Channels),
		calc.EstimatedBackground, calc.Discovery.Value, calc.DiscoverySig.Z, calc.MuTest,
		calc.Exclusion.Value, calc.ExclusionSig.Z, string(payload), calc.CreatedAt.Time().UnixNano())
	if err != nil {
		return errors.DatabaseError("failed to insert calculation", err)
	}
	return nil
}

// GetCalculation retrieves a calculation by ID
func (r *ResultRepositoryImpl) GetCalculation(ctx context.Context, id core.CalculationID) (*stats.Calculation, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload, r.db.Rebind(`SELECT payload FROM calculations WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrCalculationNotFound, id))
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get calculation", err)
	}
	return decodeCalculation(payload)
}

// ListCalculations returns the most recent calculations first, optionally limited
func (r *ResultRepositoryImpl) ListCalculations(ctx context.Context, limit int) ([]*stats.Calculation, error) {
	query := `SELECT payload FROM calculations ORDER BY created_unix DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var payloads []string
	if err := r.db.SelectContext(ctx, &payloads, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list calculations", err)
	}

	calcs := make([]*stats.Calculation, 0, len(payloads))
	for _, p := range payloads {
		calc, err := decodeCalculation(p)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, calc)
	}
	return calcs, nil
}

func decodeCalculation(payload string) (*stats.Calculation, error) {
	var calc stats.Calculation
	if err := json.Unmarshal([]byte(payload), &calc); err != nil {
		return nil, errors.Wrap(err, "failed to decode stored calculation")
	}
	return &calc, nil
}

// scanPointRow is a scan_points row; b_hat_hat is stored as a JSON array.
type scanPointRow struct {
	ScanID string `db:"scan_id"`
	Index  int    `db:"idx"`
	stats.ScanPoint
	BHatHatJSON string `db:"b_hat_hat"`
}

// SaveScan stores a scan and its points in one transaction
func (r *ResultRepositoryImpl) SaveScan(ctx context.Context, scan *stats.Scan) error {
	var histogram []byte
	if scan.Histogram != nil {
		var err error
		if histogram, err = json.Marshal(scan.Histogram); err != nil {
			return errors.Wrap(err, "failed to encode histogram")
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO scans (id, fingerprint, seed, histogram, created_unix)
		VALUES (?, ?, ?, ?, ?)
	`), scan.ID.String(), scan.Fingerprint.String(), strconv.FormatUint(scan.Seed, 10),
		string(histogram), scan.CreatedAt.Time().UnixNano())
	if err != nil {
		return errors.DatabaseError("failed to insert scan", err)
	}

	for i, p := range scan.Points {
		bhh, err := json.Marshal(p.BHatHat)
		if err != nil {
			return errors.Wrap(err, "failed to encode bHatHat")
		}
		row := scanPointRow{ScanID: scan.ID.String(), Index: i, ScanPoint: p, BHatHatJSON: string(bhh)}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO scan_points (scan_id, idx, mu, qmu_obs, z_obs, p_asymptotic, p_toys,
				toys, rejections, fit_failures, truncated, b_hat_hat, qmu_mean, qmu_median, qmu_p95)
			VALUES (:scan_id, :idx, :mu, :qmu_obs, :z_obs, :p_asymptotic, :p_toys,
				:toys, :rejections, :fit_failures, :truncated, :b_hat_hat, :qmu_mean, :qmu_median, :qmu_p95)
		`, row)
		if err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert scan point %d", i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit scan", err)
	}
	return nil
}

// ListScanPoints returns the grid points of a scan ordered by mu
func (r *ResultRepositoryImpl) ListScanPoints(ctx context.Context, id core.ScanID) ([]stats.ScanPoint, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM scans WHERE id = ?`), id.String()); err != nil {
		return nil, errors.DatabaseError("failed to look up scan", err)
	}
	if count == 0 {
		return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s", core.ErrScanNotFound, id))
	}

	var rows []scanPointRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT scan_id, idx, mu, qmu_obs, z_obs, p_asymptotic, p_toys, toys, rejections,
			fit_failures, truncated, b_hat_hat, qmu_mean, qmu_median, qmu_p95
		FROM scan_points
		WHERE scan_id = ?
		ORDER BY mu, idx
	`), id.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to list scan points", err)
	}

	points := make([]stats.ScanPoint, len(rows))
	for i, row := range rows {
		points[i] = row.ScanPoint
		if err := json.Unmarshal([]byte(row.BHatHatJSON), &points[i].BHatHat); err != nil {
			return nil, errors.Wrap(err, "failed to decode bHatHat")
		}
	}
	return points, nil
}
