package archive

import (
	"context"
	"testing"
	"time"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/errors"
	"sigcalc/internal/migration"

	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleCalculation(createdAt time.Time) *stats.Calculation {
	channels := []experiment.Channel{{M: 20, Tau: 2}}
	return &stats.Calculation{
		ID:                  core.NewCalculationID(),
		Fingerprint:         core.ComputeInputHash(50, 5, 20, 2),
		N:                   50,
		S:                   5,
		Channels:            channels,
		EstimatedBackground: 10,
		Discovery: stats.TestStatistic{
			Kind:               stats.KindDiscovery,
			Value:              32.5,
			MuHatUnconstrained: 8,
			Global:             stats.FitResult{Mode: stats.FitGlobal, Mu: 8, B: []float64{10}, LnL: -5.5},
			Conditional:        stats.FitResult{Mode: stats.FitConditional, B: []float64{23.3}, LnL: -21.75, X: 8.0 / 7.0},
		},
		DiscoverySig: stats.Significance{Z: 5.7, PValue: 6e-9},
		MuTest:       1,
		Exclusion:    stats.TestStatistic{Kind: stats.KindExclusion, Mu: 1, MuHatUnconstrained: 8},
		ExclusionSig: stats.Significance{Z: 0, PValue: 0.5},
		CreatedAt:    core.NewTimestamp(createdAt),
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, migration.NewRunner().Run(context.Background(), db))

	repo := NewResultRepository(db)
	require.NoError(t, repo.SaveCalculation(context.Background(), sampleCalculation(time.Now())))

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`))
	assert.Equal(t, []string{"calculations", "scan_points", "scans"}, tables)
}

func TestCalculationRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(openMemory(t))

	calc := sampleCalculation(time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC))
	require.NoError(t, repo.SaveCalculation(ctx, calc))

	got, err := repo.GetCalculation(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, calc.ID, got.ID)
	assert.Equal(t, calc.Fingerprint, got.Fingerprint)
	assert.True(t, calc.CreatedAt.Time().Equal(got.CreatedAt.Time()))
	if diff := cmp.Diff(calc.Discovery, got.Discovery); diff != "" {
		t.Errorf("discovery mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(calc.Channels, got.Channels); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}
}

func TestGetCalculationNotFound(t *testing.T) {
	repo := NewResultRepository(openMemory(t))

	_, err := repo.GetCalculation(context.Background(), core.NewCalculationID())
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestListCalculationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(openMemory(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []core.CalculationID
	for i := 0; i < 3; i++ {
		calc := sampleCalculation(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, repo.SaveCalculation(ctx, calc))
		ids = append(ids, calc.ID)
	}

	all, err := repo.ListCalculations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := repo.ListCalculations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[1], limited[1].ID)
}

func TestScanRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewResultRepository(openMemory(t))

	hist := stats.NewHistogram(200, 0, 40)
	hist.Fill(0.5)
	scan := &stats.Scan{
		ID:          core.NewScanID(),
		Fingerprint: core.ComputeInputHash(10, 5, 20, 2),
		Seed:        12345,
		Points: []stats.ScanPoint{
			{Mu: 1.0, QmuObs: 1.2, ZObs: 1.095, PAsymptotic: 0.137, PToys: 0.14, Toys: 714, Rejections: 100, BHatHat: []float64{9.1}, QmuMean: 0.5, QmuMedian: 0.1, QmuP95: 2.6},
			{Mu: 0.5, QmuObs: 0.3, ZObs: 0.548, PAsymptotic: 0.292, PToys: 0.3, Toys: 333, Rejections: 100, BHatHat: []float64{9.6}},
			{Mu: 2.0, QmuObs: 6.1, ZObs: 2.47, PAsymptotic: 0.0068, Toys: 50, FitFailures: 2, Truncated: true, BHatHat: []float64{8.2}},
		},
		Histogram: hist,
		CreatedAt: core.Now(),
	}
	require.NoError(t, repo.SaveScan(ctx, scan))

	points, err := repo.ListScanPoints(ctx, scan.ID)
	require.NoError(t, err)
	want := []stats.ScanPoint{scan.Points[1], scan.Points[0], scan.Points[2]}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("scan points mismatch (-want +got):\n%s", diff)
	}

	_, err = repo.ListScanPoints(ctx, core.NewScanID())
	assert.True(t, core.IsNotFoundError(err))
}
