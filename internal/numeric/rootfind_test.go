package numeric

import (
	"math"
	"testing"

	"sigcalc/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindIncreasingRootPolynomial(t *testing.T) {
	f := func(x float64) (float64, float64) { return x*x*x - 2, 3 * x * x }

	root, err := FindIncreasingRoot(f, 0, 4, math.NaN(), DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, math.Cbrt(2), root.X, 1e-10)
	assert.Less(t, root.Iterations, 60)
}

func TestFindIncreasingRootSingularEndpoints(t *testing.T) {
	// Poles at both ends of the interval, as in the profile equation.
	f := func(x float64) (float64, float64) {
		return 3/(2-x) - 5/(x+1), 3/((2-x)*(2-x)) + 5/((x+1)*(x+1))
	}

	root, err := FindIncreasingRoot(f, -1, 2, math.NaN(), DefaultOptions())
	require.NoError(t, err)
	// 3(x+1) = 5(2-x)  =>  x = 7/8
	assert.InDelta(t, 0.875, root.X, 1e-10)
}

func TestFindIncreasingRootUsesGuess(t *testing.T) {
	f := func(x float64) (float64, float64) { return x - 0.3, 1 }

	root, err := FindIncreasingRoot(f, -1, 1, 0.3, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, root.Iterations)
	assert.Equal(t, 0.3, root.X)
}

func TestFindIncreasingRootBadDerivativeFallsBackToBisection(t *testing.T) {
	// A derivative that always lies forces pure bisection.
	f := func(x float64) (float64, float64) { return x - 0.123, -1 }

	root, err := FindIncreasingRoot(f, 0, 1, math.NaN(), DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.123, root.X, 1e-10)
}

func TestFindIncreasingRootNonConvergence(t *testing.T) {
	f := func(x float64) (float64, float64) { return x - 0.123, -1 }
	opts := DefaultOptions()
	opts.MaxIterations = 5

	_, err := FindIncreasingRoot(f, 0, 1, math.NaN(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNonConvergence)
	assert.True(t, core.IsFitFailure(err))
}

func TestFindIncreasingRootEmptyInterval(t *testing.T) {
	f := func(x float64) (float64, float64) { return x, 1 }

	_, err := FindIncreasingRoot(f, 1, 1, math.NaN(), DefaultOptions())
	assert.ErrorIs(t, err, core.ErrNoBracket)
}

func TestFindIncreasingRootNaN(t *testing.T) {
	f := func(x float64) (float64, float64) { return math.NaN(), 1 }

	_, err := FindIncreasingRoot(f, 0, 1, math.NaN(), DefaultOptions())
	assert.ErrorIs(t, err, core.ErrFitFailed)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, Options{Tolerance: 0, MaxIterations: 10}.Validate())
	assert.Error(t, Options{Tolerance: 1e-9, FTolerance: -1, MaxIterations: 10}.Validate())
	assert.Error(t, Options{Tolerance: 1e-9, MaxIterations: 0}.Validate())
}
