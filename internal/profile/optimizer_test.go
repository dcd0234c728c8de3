package profile

import (
	"fmt"
	"math"
	"testing"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/likelihood"
	"sigcalc/internal/numeric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type testingT interface {
	require.TestingT
	Helper()
}

func newOptimizer(t testingT, n, s float64, m, tau []float64) *Optimizer {
	t.Helper()
	exp, err := experiment.New(n, s, m, tau)
	require.NoError(t, err)
	opt, err := NewOptimizer(likelihood.NewModel(exp), numeric.DefaultOptions())
	require.NoError(t, err)
	return opt
}

// assertLocalMaximum checks that nudging any background rate lowers lnL.
func assertLocalMaximum(t *testing.T, opt *Optimizer, fit stats.FitResult) {
	t.Helper()
	model := opt.Model()
	for i := range fit.B {
		for _, rel := range []float64{-1e-4, 1e-4} {
			b := append([]float64(nil), fit.B...)
			b[i] += rel * math.Max(fit.B[i], 1)
			if b[i] < 0 {
				continue
			}
			lnL, err := model.LnL(fit.Mu, b)
			require.NoError(t, err)
			assert.LessOrEqual(t, lnL, fit.LnL+1e-9, "b[%d] nudged by %g", i, rel)
		}
	}
}

func TestGlobalFitBackgroundOnlyData(t *testing.T) {
	opt := newOptimizer(t, 10, 5, []float64{20}, []float64{2})

	fit, muRaw, err := opt.Global()
	require.NoError(t, err)
	assert.Equal(t, stats.FitGlobal, fit.Mode)
	assert.InDelta(t, 0, fit.Mu, 1e-8)
	assert.InDelta(t, 0, muRaw, 1e-8)
	assert.InDelta(t, 10, fit.TotalBackground(), 1e-6)
}

func TestGlobalFitExcess(t *testing.T) {
	opt := newOptimizer(t, 50, 5, []float64{20}, []float64{2})

	fit, muRaw, err := opt.Global()
	require.NoError(t, err)
	assert.InDelta(t, 8, fit.Mu, 1e-8)
	assert.InDelta(t, 8, muRaw, 1e-8)
	require.Len(t, fit.B, 1)
	assert.InDelta(t, 10, fit.B[0], 1e-6)
	assert.InDelta(t, 0, fit.X, 1e-9)
}

func TestGlobalFitDeficitClampsToZero(t *testing.T) {
	opt := newOptimizer(t, 5, 5, []float64{20}, []float64{2})

	fit, muRaw, err := opt.Global()
	require.NoError(t, err)
	assert.Equal(t, 0.0, fit.Mu)
	assert.InDelta(t, -1, muRaw, 1e-12)

	conditional, err := opt.Profile(0)
	require.NoError(t, err)
	assert.Equal(t, conditional.LnL, fit.LnL)
}

func TestProfileFixedPoint(t *testing.T) {
	opt := newOptimizer(t, 37, 4, []float64{12, 30, 3}, []float64{1.5, 3, 0.7})
	exp := opt.Model().Experiment()

	for _, mu := range []float64{0, 0.5, 1, 2.5, 10} {
		t.Run(fmt.Sprintf("mu=%g", mu), func(t *testing.T) {
			fit, err := opt.Profile(mu)
			require.NoError(t, err)
			assert.Equal(t, stats.FitConditional, fit.Mode)

			sum := 0.0
			for i, c := range exp.Channels() {
				assert.InDelta(t, c.M/(c.Tau-fit.X), fit.B[i], 1e-9*(1+fit.B[i]))
				sum += c.M / (c.Tau - fit.X)
			}
			assert.InDelta(t, exp.N()/(fit.X+1)-mu*exp.S(), sum, 1e-8*(1+sum))
			assertLocalMaximum(t, opt, fit)
		})
	}
}

func TestProfileZeroCountChannelStaysPinned(t *testing.T) {
	opt := newOptimizer(t, 30, 1, []float64{10, 0}, []float64{2, 5})

	fit, err := opt.Profile(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, fit.X, 1e-9)
	assert.InDelta(t, 10/0.75, fit.B[0], 1e-8)
	assert.Equal(t, 0.0, fit.B[1])
	assertLocalMaximum(t, opt, fit)
}

func TestProfileZeroCountChannelReleased(t *testing.T) {
	opt := newOptimizer(t, 30, 1, []float64{10, 0}, []float64{2, 0.5})

	fit, err := opt.Profile(0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, fit.X)
	assert.InDelta(t, 10/1.5, fit.B[0], 1e-9)
	assert.InDelta(t, 20-10/1.5, fit.B[1], 1e-9)
	assertLocalMaximum(t, opt, fit)
}

func TestProfileOnlyZeroCountChannels(t *testing.T) {
	opt := newOptimizer(t, 20, 1, []float64{0}, []float64{1})

	fit, err := opt.Profile(0)
	require.NoError(t, err)
	assert.InDelta(t, 10, fit.B[0], 1e-12)
	assertLocalMaximum(t, opt, fit)

	// Enough signal pushes the released channel back to the boundary.
	fit, err = opt.Profile(15)
	require.NoError(t, err)
	assert.Equal(t, 0.0, fit.B[0])
	assert.InDelta(t, 20.0/15-1, fit.X, 1e-12)
}

func TestProfileNoObservedEvents(t *testing.T) {
	opt := newOptimizer(t, 0, 3, []float64{4, 0}, []float64{1, 2})

	fit, err := opt.Profile(1)
	require.NoError(t, err)
	assert.Equal(t, -1.0, fit.X)
	assert.InDelta(t, 2, fit.B[0], 1e-12)
	assert.Equal(t, 0.0, fit.B[1])
	assertLocalMaximum(t, opt, fit)

	global, muRaw, err := opt.Global()
	require.NoError(t, err)
	assert.Equal(t, 0.0, global.Mu)
	assert.InDelta(t, -4.0/3, muRaw, 1e-12)
}

func TestProfileWithoutBackgroundChannels(t *testing.T) {
	opt := newOptimizer(t, 12, 4, nil, nil)

	fit, err := opt.Profile(2)
	require.NoError(t, err)
	assert.Empty(t, fit.B)
	assert.InDelta(t, 12.0/8-1, fit.X, 1e-12)
	assert.InDelta(t, 12*math.Log(8)-8, fit.LnL, 1e-12)

	fit, err = opt.Profile(0)
	require.NoError(t, err)
	assert.Equal(t, likelihood.LogZero, fit.LnL)

	global, muRaw, err := opt.Global()
	require.NoError(t, err)
	assert.InDelta(t, 3, global.Mu, 1e-8)
	assert.InDelta(t, 3, muRaw, 1e-8)
}

func TestProfileRejectsNegativeMu(t *testing.T) {
	opt := newOptimizer(t, 10, 5, []float64{20}, []float64{2})

	_, err := opt.Profile(-0.5)
	assert.ErrorIs(t, err, core.ErrNegativeStrength)
}

func TestProfileReportsNonConvergence(t *testing.T) {
	exp, err := experiment.New(50, 5, []float64{20}, []float64{2})
	require.NoError(t, err)
	opts := numeric.DefaultOptions()
	opts.MaxIterations = 1
	opt, err := NewOptimizer(likelihood.NewModel(exp), opts)
	require.NoError(t, err)

	_, err = opt.Profile(0)
	require.Error(t, err)
	assert.True(t, core.IsFitFailure(err))

	_, _, err = opt.Global()
	assert.True(t, core.IsFitFailure(err))
}

func TestNewOptimizerValidatesOptions(t *testing.T) {
	exp, err := experiment.New(1, 1, nil, nil)
	require.NoError(t, err)
	_, err = NewOptimizer(likelihood.NewModel(exp), numeric.Options{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestPropertyGlobalDominatesProfile(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numBck := rapid.IntRange(0, 4).Draw(rt, "numBck")
		m := make([]float64, numBck)
		tau := make([]float64, numBck)
		for i := 0; i < numBck; i++ {
			m[i] = float64(rapid.IntRange(0, 200).Draw(rt, fmt.Sprintf("m%d", i)))
			tau[i] = rapid.Float64Range(0.05, 20).Draw(rt, fmt.Sprintf("tau%d", i))
		}
		n := float64(rapid.IntRange(0, 300).Draw(rt, "n"))
		s := rapid.Float64Range(0.1, 50).Draw(rt, "s")
		mu := rapid.Float64Range(0, 10).Draw(rt, "mu")

		opt := newOptimizer(rt, n, s, m, tau)

		global, _, err := opt.Global()
		require.NoError(rt, err)
		conditional, err := opt.Profile(mu)
		require.NoError(rt, err)

		assert.GreaterOrEqual(rt, global.LnL, conditional.LnL-1e-9*(1+math.Abs(conditional.LnL)))
		assert.GreaterOrEqual(rt, global.Mu, 0.0)
		for _, b := range conditional.B {
			assert.GreaterOrEqual(rt, b, 0.0)
		}
		if n > 0 && conditional.X < math.MaxFloat64 {
			want := n/(conditional.X+1) - mu*s
			assert.InDelta(rt, want, conditional.TotalBackground(), 1e-7*(1+math.Abs(want)))
		}
	})
}
