package stats

import (
	"math"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
)

// ============================================================================
// FIT RESULTS
// ============================================================================

// FitMode distinguishes the two kinds of maximum-likelihood fit.
type FitMode string

const (
	// FitConditional maximizes over b at a fixed mu (bHatHat(mu)).
	FitConditional FitMode = "conditional"
	// FitGlobal maximizes over mu >= 0 and b jointly (muHat, bHat).
	FitGlobal FitMode = "global"
)

// FitResult is the maximizing point of one fit and the log-likelihood there.
// INVARIANTS:
// - Mu >= 0 and every B[i] >= 0
// - len(B) equals the number of background channels
type FitResult struct {
	Mode FitMode   `json:"mode"`
	Mu   float64   `json:"mu"`
	B    []float64 `json:"b"`
	LnL  float64   `json:"ln_l"`
	// X is the shared stationarity variable n/R - 1 at the solution.
	X          float64 `json:"x"`
	Iterations int     `json:"iterations"`
}

// TotalBackground is sum_i B[i].
func (f FitResult) TotalBackground() float64 {
	total := 0.0
	for _, b := range f.B {
		total += b
	}
	return total
}

// ============================================================================
// TEST STATISTICS
// ============================================================================

// StatisticKind names the hypothesis test a statistic belongs to.
type StatisticKind string

const (
	KindDiscovery StatisticKind = "discovery"
	KindExclusion StatisticKind = "exclusion"
)

// TestStatistic is q0 or q_mu together with the fits it was built from.
// INVARIANTS:
// - Value >= 0
// - Global.Mu == max(MuHatUnconstrained, 0)
type TestStatistic struct {
	Kind  StatisticKind `json:"kind"`
	Mu    float64       `json:"mu"`
	Value float64       `json:"value"`
	// MuHatUnconstrained is the stationary point of the likelihood in mu
	// before the mu >= 0 boundary is applied; it may be negative.
	MuHatUnconstrained float64   `json:"mu_hat_unconstrained"`
	Global             FitResult `json:"global"`
	Conditional        FitResult `json:"conditional"`
}

// MuHat is the boundary-respecting best-fit signal strength.
func (t TestStatistic) MuHat() float64 { return t.Global.Mu }

// BHat are the background rates at the global best fit.
func (t TestStatistic) BHat() []float64 { return t.Global.B }

// BHatHat are the background rates profiled at the tested mu.
func (t TestStatistic) BHatHat() []float64 { return t.Conditional.B }

// Z is sqrt(Value), the asymptotic significance.
func (t TestStatistic) Z() float64 {
	return math.Sqrt(math.Max(t.Value, 0))
}

// Significance is a Z-score and its one-sided p-value.
type Significance struct {
	Z      float64 `json:"z"`
	PValue float64 `json:"p_value"`
}

// ============================================================================
// CALCULATIONS (archived outputs)
// ============================================================================

// Calculation is the complete discovery + exclusion report for an experiment.
type Calculation struct {
	ID                  core.CalculationID   `json:"id"`
	Fingerprint         core.Hash            `json:"fingerprint"`
	N                   float64              `json:"n"`
	S                   float64              `json:"s"`
	Channels            []experiment.Channel `json:"channels"`
	EstimatedBackground float64              `json:"estimated_background"`
	Discovery           TestStatistic        `json:"discovery"`
	DiscoverySig        Significance         `json:"discovery_significance"`
	MuTest              float64              `json:"mu_test"`
	Exclusion           TestStatistic        `json:"exclusion"`
	ExclusionSig        Significance         `json:"exclusion_significance"`
	CreatedAt           core.Timestamp       `json:"created_at"`
}

// CurvePoint is one q_mu evaluation on a scan over hypothesis values.
type CurvePoint struct {
	Mu     float64 `json:"mu"`
	Qmu    float64 `json:"qmu"`
	Z      float64 `json:"z"`
	PValue float64 `json:"p_value"`
}
