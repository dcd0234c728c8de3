// Package testkit provides canned experiments and a scratch results archive
// for tests.
package testkit

import (
	"context"
	"testing"

	"sigcalc/adapters/archive"
	"sigcalc/domain/experiment"
	"sigcalc/ports"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// Scenario is a named experiment with known analytic properties.
type Scenario struct {
	Name string
	N    float64
	S    float64
	M    []float64
	Tau  []float64
}

// Canned scenarios.
var (
	// BackgroundOnly observes exactly the sideband estimate: muHat = 0.
	BackgroundOnly = Scenario{Name: "background-only", N: 10, S: 5, M: []float64{20}, Tau: []float64{2}}
	// Excess has muHat = 8 with the single sideband at its estimate.
	Excess = Scenario{Name: "excess", N: 50, S: 5, M: []float64{20}, Tau: []float64{2}}
	// Deficit observes fewer events than the background estimate.
	Deficit = Scenario{Name: "deficit", N: 4, S: 5, M: []float64{20}, Tau: []float64{2}}
	// TwoChannels splits the background across two sidebands.
	TwoChannels = Scenario{Name: "two-channels", N: 25, S: 8, M: []float64{20, 6}, Tau: []float64{2, 3}}
	// EmptySideband has a control region with no events.
	EmptySideband = Scenario{Name: "empty-sideband", N: 12, S: 4, M: []float64{15, 0}, Tau: []float64{3, 1}}
	// NoChannels has no background channels at all.
	NoChannels = Scenario{Name: "no-channels", N: 7, S: 5}
)

// Scenarios lists every canned scenario.
func Scenarios() []Scenario {
	return []Scenario{BackgroundOnly, Excess, Deficit, TwoChannels, EmptySideband, NoChannels}
}

// Experiment validates the scenario, failing t on error.
func (s Scenario) Experiment(t testing.TB) experiment.Experiment {
	t.Helper()
	exp, err := experiment.New(s.N, s.S, s.M, s.Tau)
	require.NoError(t, err, "scenario %s", s.Name)
	return exp
}

// Archive opens an in-memory sqlite results archive closed at test cleanup.
func Archive(t testing.TB) (*sqlx.DB, ports.ResultRepository) {
	t.Helper()
	db, err := archive.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, archive.NewResultRepository(db)
}
