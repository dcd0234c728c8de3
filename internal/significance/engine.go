// Package significance turns profile-likelihood fits into the discovery
// statistic q0 and the exclusion statistic q_mu.
package significance

import (
	"fmt"
	"math"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/likelihood"
	"sigcalc/internal/numeric"
	"sigcalc/internal/profile"
)

// Engine computes test statistics for one fixed experiment. Every call runs
// fresh fits; an Engine may be used from several goroutines at once.
type Engine struct {
	exp experiment.Experiment
	opt *profile.Optimizer
}

// NewEngine builds an engine over a validated experiment.
func NewEngine(exp experiment.Experiment, opts numeric.Options) (*Engine, error) {
	opt, err := profile.NewOptimizer(likelihood.NewModel(exp), opts)
	if err != nil {
		return nil, err
	}
	return &Engine{exp: exp, opt: opt}, nil
}

// New validates raw inputs and builds an engine with default solver options.
// Mismatched m/tau lengths, s <= 0 or tau_i <= 0 fail here, before any fit.
func New(n, s float64, m, tau []float64) (*Engine, error) {
	exp, err := experiment.New(n, s, m, tau)
	if err != nil {
		return nil, err
	}
	return NewEngine(exp, numeric.DefaultOptions())
}

// Experiment returns the data the engine was built on.
func (e *Engine) Experiment() experiment.Experiment { return e.exp }

// Q0Detailed returns the discovery statistic
//
//	q0 = -2 [lnL(0, bHatHat(0)) - lnL(muHat, bHat)]
//
// or 0 when the unconstrained muHat is negative. With no background channels
// and n > 0, mu = 0 is impossible and q0 is the finite LogZero gap (about
// 2e300, Z about 1.4e150) rather than +Inf.
func (e *Engine) Q0Detailed() (stats.TestStatistic, error) {
	global, muRaw, err := e.opt.Global()
	if err != nil {
		return stats.TestStatistic{}, fmt.Errorf("global fit: %w", err)
	}
	conditional, err := e.opt.Profile(0)
	if err != nil {
		return stats.TestStatistic{}, fmt.Errorf("conditional fit at mu=0: %w", err)
	}

	value := 0.0
	if muRaw >= 0 {
		value = ratio(conditional.LnL, global.LnL)
	}
	return stats.TestStatistic{
		Kind:               stats.KindDiscovery,
		Mu:                 0,
		Value:              value,
		MuHatUnconstrained: muRaw,
		Global:             global,
		Conditional:        conditional,
	}, nil
}

// Q0 projects Q0Detailed onto its value.
func (e *Engine) Q0() (float64, error) {
	q, err := e.Q0Detailed()
	if err != nil {
		return 0, err
	}
	return q.Value, nil
}

// QmuDetailed returns the exclusion statistic for hypothesis mu
//
//	q_mu = -2 [lnL(mu, bHatHat(mu)) - lnL(muHat, bHat)]
//
// or 0 when muHat > mu. muHat is the boundary-respecting estimate, so a
// negative unconstrained estimate is compared through lnL(0, bHatHat(0)).
func (e *Engine) QmuDetailed(mu float64) (stats.TestStatistic, error) {
	if !(mu >= 0) || math.IsInf(mu, 0) {
		return stats.TestStatistic{}, fmt.Errorf("%w (mu=%g)", core.ErrNegativeStrength, mu)
	}
	global, muRaw, err := e.opt.Global()
	if err != nil {
		return stats.TestStatistic{}, fmt.Errorf("global fit: %w", err)
	}
	conditional, err := e.opt.Profile(mu)
	if err != nil {
		return stats.TestStatistic{}, fmt.Errorf("conditional fit at mu=%g: %w", mu, err)
	}

	value := 0.0
	if global.Mu <= mu {
		value = ratio(conditional.LnL, global.LnL)
	}
	return stats.TestStatistic{
		Kind:               stats.KindExclusion,
		Mu:                 mu,
		Value:              value,
		MuHatUnconstrained: muRaw,
		Global:             global,
		Conditional:        conditional,
	}, nil
}

// Qmu projects QmuDetailed onto its value.
func (e *Engine) Qmu(mu float64) (float64, error) {
	q, err := e.QmuDetailed(mu)
	if err != nil {
		return 0, err
	}
	return q.Value, nil
}

// QmuCurve evaluates q_mu at each hypothesis, sharing one global fit.
func (e *Engine) QmuCurve(mus []float64) ([]stats.CurvePoint, error) {
	global, _, err := e.opt.Global()
	if err != nil {
		return nil, fmt.Errorf("global fit: %w", err)
	}

	points := make([]stats.CurvePoint, 0, len(mus))
	for _, mu := range mus {
		if !(mu >= 0) || math.IsInf(mu, 0) {
			return nil, fmt.Errorf("%w (mu=%g)", core.ErrNegativeStrength, mu)
		}
		conditional, err := e.opt.Profile(mu)
		if err != nil {
			return nil, fmt.Errorf("conditional fit at mu=%g: %w", mu, err)
		}
		q := 0.0
		if global.Mu <= mu {
			q = ratio(conditional.LnL, global.LnL)
		}
		sig := FromStatistic(q)
		points = append(points, stats.CurvePoint{Mu: mu, Qmu: q, Z: sig.Z, PValue: sig.PValue})
	}
	return points, nil
}

// ratio is -2 (lnLConstrained - lnLBest), clamped at zero: rounding can push
// a mathematically non-negative difference slightly below it.
func ratio(lnLConstrained, lnLBest float64) float64 {
	q := -2 * (lnLConstrained - lnLBest)
	if !(q > 0) {
		return 0
	}
	return q
}

// DiscoverySignificance is Z = sqrt(q0) for the given inputs.
func DiscoverySignificance(n, s float64, m, tau []float64) (float64, error) {
	engine, err := New(n, s, m, tau)
	if err != nil {
		return 0, err
	}
	q0, err := engine.Q0()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(q0), nil
}

// ExclusionSignificance is Z = sqrt(q_mu) for the given inputs.
func ExclusionSignificance(mu, n, s float64, m, tau []float64) (float64, error) {
	engine, err := New(n, s, m, tau)
	if err != nil {
		return 0, err
	}
	qmu, err := engine.Qmu(mu)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(qmu), nil
}
