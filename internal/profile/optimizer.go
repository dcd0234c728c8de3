// Package profile maximizes the counting-experiment likelihood over the
// background rates, either at a fixed signal strength or jointly with it.
//
// The stationarity conditions dlnL/db_i = 0 share the single scalar
// x = n/R - 1, and each channel solves to b_i(x) = m_i/(tau_i - x). Requiring
// sum_i b_i(x) to reproduce the R implied by x leaves one equation
//
//	g(x) = sum_i m_i/(tau_i - x) - n/(x+1) + mu s = 0
//
// which is strictly increasing on (-1, min tau_i) and is solved by a
// bracketed Newton iteration instead of a numBck-dimensional search.
package profile

import (
	"fmt"
	"math"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/likelihood"
	"sigcalc/internal/numeric"
)

// Optimizer runs profile-likelihood fits over one experiment. It holds no
// mutable state and may be shared between goroutines.
type Optimizer struct {
	model likelihood.Model
	opts  numeric.Options
}

// NewOptimizer builds an optimizer with the given solver options.
func NewOptimizer(model likelihood.Model, opts numeric.Options) (*Optimizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{model: model, opts: opts}, nil
}

// Model returns the likelihood the optimizer maximizes.
func (o *Optimizer) Model() likelihood.Model { return o.model }

// solution carries the profile at one mu plus g'(x), which the mu search
// needs for its Newton step.
type solution struct {
	fit    stats.FitResult
	gPrime float64
}

// Profile returns bHatHat(mu), the background rates maximizing lnL(mu, .)
// subject to b_i >= 0.
func (o *Optimizer) Profile(mu float64) (stats.FitResult, error) {
	sol, err := o.profile(mu)
	if err != nil {
		return stats.FitResult{}, err
	}
	return sol.fit, nil
}

func (o *Optimizer) profile(mu float64) (solution, error) {
	if !(mu >= 0) || math.IsInf(mu, 0) {
		return solution{}, fmt.Errorf("%w (mu=%g)", core.ErrNegativeStrength, mu)
	}

	exp := o.model.Experiment()
	n := exp.N()
	muS := mu * exp.S()
	channels := exp.Channels()
	b := make([]float64, len(channels))

	// Channels with m_i = 0 sit on the b_i = 0 boundary as long as x < tau_i.
	// The smallest such tau caps x; past it that channel is released.
	tauPos, tauZero := math.Inf(1), math.Inf(1)
	sumM := 0.0
	for _, c := range channels {
		sumM += c.M
		if c.M > 0 {
			tauPos = math.Min(tauPos, c.Tau)
		} else {
			tauZero = math.Min(tauZero, c.Tau)
		}
	}

	var (
		x          float64
		iterations int
	)

	switch {
	case n == 0:
		// x -> -1: R drops out of the stationarity conditions entirely.
		x = -1
		for i, c := range channels {
			b[i] = c.M / (c.Tau + 1)
		}

	default:
		xStar := math.Inf(1)
		if !math.IsInf(tauPos, 1) {
			root, err := o.solveX(channels, n, muS, tauPos)
			if err != nil {
				return solution{}, fmt.Errorf("profile at mu=%g: %w", mu, err)
			}
			xStar = root.X
			iterations = root.Iterations
		} else if muS > 0 {
			xStar = n/muS - 1
		}

		if xStar <= tauZero {
			x = xStar
			for i, c := range channels {
				if c.M > 0 {
					b[i] = c.M / (c.Tau - x)
				}
			}
		} else {
			// Active-set correction: x is pinned at the smallest zero-count
			// tau and those channels take up the remaining background.
			x = tauZero
			released := 0
			posTotal := 0.0
			for i, c := range channels {
				switch {
				case c.M > 0:
					b[i] = c.M / (c.Tau - x)
					posTotal += b[i]
				case c.Tau == tauZero:
					released++
				}
			}
			remainder := math.Max(n/(x+1)-muS-posTotal, 0)
			for i, c := range channels {
				if c.M == 0 && c.Tau == tauZero {
					b[i] = remainder / float64(released)
				}
			}
		}
	}

	if math.IsInf(x, 1) {
		// Only reachable with no channels and mu = 0: R = 0 while n > 0.
		x = math.MaxFloat64
	}

	lnL, err := o.model.LnL(mu, b)
	if err != nil {
		return solution{}, err
	}

	return solution{
		fit: stats.FitResult{
			Mode:       stats.FitConditional,
			Mu:         mu,
			B:          b,
			LnL:        lnL,
			X:          x,
			Iterations: iterations,
		},
		gPrime: gPrime(channels, n, x, tauZero),
	}, nil
}

// solveX finds the root of g over the channels with m_i > 0 on (-1, tauPos).
func (o *Optimizer) solveX(channels []experiment.Channel, n, muS, tauPos float64) (numeric.Root, error) {
	g := func(x float64) (float64, float64) {
		sum, dsum := 0.0, 0.0
		for _, c := range channels {
			if c.M > 0 {
				d := c.Tau - x
				sum += c.M / d
				dsum += c.M / (d * d)
			}
		}
		xp1 := x + 1
		return sum - n/xp1 + muS, dsum + n/(xp1*xp1)
	}

	guess := math.NaN()
	estimate := muS
	for _, c := range channels {
		estimate += c.Estimate()
	}
	if estimate > 0 {
		guess = n/estimate - 1
	}

	opts := o.opts
	opts.FTolerance *= 1 + n
	return numeric.FindIncreasingRoot(g, -1, tauPos, guess, opts)
}

// gPrime is dg/dx at the solution; zero once x is pinned by a released
// channel, where x no longer moves with mu.
func gPrime(channels []experiment.Channel, n, x, tauZero float64) float64 {
	if x <= -1 || x >= math.MaxFloat64 || x == tauZero {
		return 0
	}
	d := n / ((x + 1) * (x + 1))
	for _, c := range channels {
		if c.M > 0 {
			t := c.Tau - x
			d += c.M / (t * t)
		}
	}
	return d
}

// Global returns the joint maximum (muHat, bHat) subject to mu >= 0, b_i >= 0,
// together with the unconstrained stationary value of mu, which is negative
// when the data fall below the background expectation.
//
// Along the profile the derivative is d lnL(mu, bHatHat(mu))/dmu = s x(mu),
// and x(mu) decreases with mu, so the search solves -x(mu) = 0 for mu >= 0.
// If x(0) <= 0 the maximum is on the boundary and muHat is clamped to 0.
func (o *Optimizer) Global() (stats.FitResult, float64, error) {
	exp := o.model.Experiment()
	s := exp.S()
	// x = 0 makes every b_i = m_i/tau_i and R = n.
	stationary := (exp.N() - exp.EstimatedBackground()) / s

	start, err := o.profile(0)
	if err != nil {
		return stats.FitResult{}, 0, err
	}
	if exp.N() == 0 || start.fit.X <= 0 {
		fit := start.fit
		fit.Mode = stats.FitGlobal
		return fit, math.Min(stationary, 0), nil
	}

	var (
		last     solution
		innerIts int
		fitErr   error
	)
	phi := func(mu float64) (float64, float64) {
		sol, err := o.profile(mu)
		if err != nil {
			fitErr = err
			return math.NaN(), 0
		}
		last = sol
		innerIts += sol.fit.Iterations
		if sol.gPrime <= 0 {
			return -sol.fit.X, 0
		}
		return -sol.fit.X, s / sol.gPrime
	}

	hi := stationary + math.Max(1, math.Abs(stationary))
	opts := o.opts
	opts.FTolerance = o.opts.Tolerance
	root, err := numeric.FindIncreasingRoot(phi, 0, hi, stationary, opts)
	if fitErr != nil {
		return stats.FitResult{}, 0, fitErr
	}
	if err != nil {
		return stats.FitResult{}, 0, fmt.Errorf("signal strength search: %w", err)
	}

	fit := last.fit
	if fit.Mu != root.X {
		sol, err := o.profile(root.X)
		if err != nil {
			return stats.FitResult{}, 0, err
		}
		fit = sol.fit
		innerIts += fit.Iterations
	}
	fit.Mode = stats.FitGlobal
	fit.Iterations = innerIts + root.Iterations
	return fit, fit.Mu, nil
}
