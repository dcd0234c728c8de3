// Package numeric holds the side-effect-free numerical routines used by the
// likelihood fits.
package numeric

import (
	"fmt"
	"math"

	"sigcalc/domain/core"
)

// Options bounds an iterative solve.
type Options struct {
	// Tolerance is the relative bracket width, scaled by 1+|x|, below which
	// the root is accepted.
	Tolerance float64
	// FTolerance is the absolute |f(x)| below which the root is accepted.
	// Zero accepts only an exact zero.
	FTolerance float64
	// MaxIterations caps the number of function evaluations.
	MaxIterations int
}

// DefaultOptions returns the tolerances used when the caller has no opinion.
func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-12,
		FTolerance:    1e-10,
		MaxIterations: 500,
	}
}

// Validate rejects options that could never converge.
func (o Options) Validate() error {
	if !(o.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %g", core.ErrInvalidInput, o.Tolerance)
	}
	if o.FTolerance < 0 {
		return fmt.Errorf("%w: f tolerance must be non-negative, got %g", core.ErrInvalidInput, o.FTolerance)
	}
	if o.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", core.ErrInvalidInput, o.MaxIterations)
	}
	return nil
}

// Func evaluates a function and its first derivative.
type Func func(x float64) (f, df float64)

// Root is the result of a successful solve.
type Root struct {
	X          float64
	F          float64
	Iterations int
}

// FindIncreasingRoot solves f(x) = 0 for f strictly increasing on the open
// interval (lo, hi). The caller guarantees f < 0 near lo and f > 0 near hi;
// the endpoints themselves are never evaluated, so f may be singular there.
//
// Each iteration takes a Newton step from the current point and falls back
// to bisection whenever that step leaves the bracket or fails to halve the
// previous step. guess seeds the first point; NaN or a guess outside the
// bracket starts from the midpoint.
func FindIncreasingRoot(f Func, lo, hi, guess float64, opts Options) (Root, error) {
	if !(lo < hi) {
		return Root{}, fmt.Errorf("%w: empty interval (%g, %g)", core.ErrNoBracket, lo, hi)
	}

	x := guess
	if math.IsNaN(x) || x <= lo || x >= hi {
		x = lo + 0.5*(hi-lo)
	}
	dxOld := hi - lo
	dx := dxOld

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		fx, dfx := f(x)
		if math.IsNaN(fx) {
			return Root{}, fmt.Errorf("%w: f(%g) is NaN", core.ErrFitFailed, x)
		}
		if math.Abs(fx) <= opts.FTolerance {
			return Root{X: x, F: fx, Iterations: iter}, nil
		}

		if fx < 0 {
			lo = x
		} else {
			hi = x
		}
		if hi-lo <= opts.Tolerance*(1+math.Abs(x)) {
			return Root{X: x, F: fx, Iterations: iter}, nil
		}

		next := x - fx/dfx
		newtonOK := dfx > 0 && !math.IsInf(dfx, 0) &&
			next > lo && next < hi &&
			math.Abs(2*fx) <= math.Abs(dxOld*dfx)
		dxOld = dx
		if newtonOK {
			dx = next - x
			x = next
		} else {
			dx = 0.5 * (hi - lo)
			x = lo + dx
		}
		if math.Abs(dx) <= 0.5*opts.Tolerance*(1+math.Abs(x)) {
			fx, _ = f(x)
			return Root{X: x, F: fx, Iterations: iter}, nil
		}
	}

	return Root{}, core.NewNonConvergenceError(fmt.Sprintf("root in (%g, %g)", lo, hi), opts.MaxIterations)
}
