// Package toys validates the asymptotic q_mu p-value with pseudo-experiments
// generated from the conditional fit to the observed data.
package toys

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal"
	"sigcalc/internal/numeric"
	"sigcalc/internal/significance"

	mstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Histogram binning for toy q_mu values.
const (
	HistogramBins = 200
	HistogramMin  = 0.0
	HistogramMax  = 40.0
)

// Config controls a toy scan.
type Config struct {
	// Seed is combined with the grid index to give each point its own stream,
	// so results do not depend on Workers.
	Seed          uint64
	MinRejections int
	MaxEvents     int
	Workers       int
	Options       numeric.Options
}

// DefaultConfig is seed 12345 with 100 rejections per point.
func DefaultConfig() Config {
	return Config{
		Seed:          12345,
		MinRejections: 100,
		MaxEvents:     1_000_000,
		Workers:       4,
		Options:       numeric.DefaultOptions(),
	}
}

// Validate checks the budget and solver settings.
func (c Config) Validate() error {
	if c.MinRejections < 1 {
		return fmt.Errorf("%w: min rejections must be at least 1", core.ErrInvalidInput)
	}
	if c.MaxEvents < c.MinRejections {
		return fmt.Errorf("%w: max events (%d) below min rejections (%d)", core.ErrInvalidInput, c.MaxEvents, c.MinRejections)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", core.ErrInvalidInput)
	}
	return c.Options.Validate()
}

// Scanner runs toy scans. It holds no per-scan state and is safe for
// concurrent use.
type Scanner struct {
	cfg Config
}

// NewScanner validates cfg and returns a Scanner.
func NewScanner(cfg Config) (*Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scanner{cfg: cfg}, nil
}

// Config returns the scanner settings.
func (s *Scanner) Config() Config { return s.cfg }

// Grid returns points values evenly spaced on [lo, hi].
func Grid(lo, hi float64, points int) []float64 {
	switch {
	case points < 1:
		return nil
	case points == 1:
		return []float64{lo}
	}
	return floats.Span(make([]float64, points), lo, hi)
}

// Progress receives each grid point as soon as it is finished. It is called
// from worker goroutines, in completion order.
type Progress func(index int, point stats.ScanPoint)

// Scan evaluates every mu in grid. Grid points run in parallel, bounded by
// Workers; toy fit failures are counted per point and skipped.
func (s *Scanner) Scan(ctx context.Context, exp experiment.Experiment, grid []float64) (*stats.Scan, error) {
	return s.ScanWithProgress(ctx, core.NewScanID(), exp, grid, nil)
}

// ScanWithProgress is Scan under a caller-chosen ID, reporting each finished
// point to progress when it is non-nil.
func (s *Scanner) ScanWithProgress(ctx context.Context, id core.ScanID, exp experiment.Experiment, grid []float64, progress Progress) (*stats.Scan, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("%w: empty mu grid", core.ErrInvalidInput)
	}
	for _, mu := range grid {
		if !(mu >= 0) || math.IsInf(mu, 0) {
			return nil, fmt.Errorf("%w (mu=%g)", core.ErrNegativeStrength, mu)
		}
	}

	points := make([]stats.ScanPoint, len(grid))
	hists := make([]*stats.Histogram, len(grid))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, mu := range grid {
		g.Go(func() error {
			point, hist, err := s.scanPoint(gCtx, exp, mu, uint64(i))
			if err != nil {
				return fmt.Errorf("mu=%g: %w", mu, err)
			}
			points[i] = point
			hists[i] = hist
			if progress != nil {
				progress(i, point)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := stats.NewHistogram(HistogramBins, HistogramMin, HistogramMax)
	for _, h := range hists {
		total.Merge(h)
	}

	return &stats.Scan{
		ID:          id,
		Fingerprint: exp.Fingerprint(),
		Seed:        s.cfg.Seed,
		Points:      points,
		Histogram:   total,
		CreatedAt:   core.Now(),
	}, nil
}

func (s *Scanner) scanPoint(ctx context.Context, exp experiment.Experiment, mu float64, index uint64) (stats.ScanPoint, *stats.Histogram, error) {
	engine, err := significance.NewEngine(exp, s.cfg.Options)
	if err != nil {
		return stats.ScanPoint{}, nil, err
	}
	observed, err := engine.QmuDetailed(mu)
	if err != nil {
		return stats.ScanPoint{}, nil, fmt.Errorf("observed fit: %w", err)
	}

	sig := significance.FromStatistic(observed.Value)
	point := stats.ScanPoint{
		Mu:          mu,
		QmuObs:      observed.Value,
		ZObs:        sig.Z,
		PAsymptotic: sig.PValue,
		BHatHat:     observed.BHatHat(),
	}

	gen := newGenerator(exp, mu, point.BHatHat, rand.NewPCG(s.cfg.Seed, index))
	hist := stats.NewHistogram(HistogramBins, HistogramMin, HistogramMax)
	values := make([]float64, 0, 4*s.cfg.MinRejections)

	for thrown := 0; thrown < s.cfg.MaxEvents && point.Rejections < s.cfg.MinRejections; thrown++ {
		if err := ctx.Err(); err != nil {
			return stats.ScanPoint{}, nil, err
		}

		toy, err := gen.next()
		if err != nil {
			return stats.ScanPoint{}, nil, err
		}
		toyEngine, err := significance.NewEngine(toy, s.cfg.Options)
		if err != nil {
			return stats.ScanPoint{}, nil, err
		}
		q, err := toyEngine.Qmu(mu)
		if err != nil {
			if core.IsFitFailure(err) {
				internal.DefaultLogger.Debug("[Toys] mu=%g toy %d: %v", mu, thrown, err)
				point.FitFailures++
				continue
			}
			return stats.ScanPoint{}, nil, err
		}

		point.Toys++
		hist.Fill(q)
		values = append(values, q)
		if q >= point.QmuObs {
			point.Rejections++
		}
	}

	point.Truncated = point.Rejections < s.cfg.MinRejections
	if point.Toys > 0 {
		point.PToys = float64(point.Rejections) / float64(point.Toys)
		summarize(&point, values)
	}
	internal.DefaultLogger.Debug("[Toys] mu=%g: %d/%d toys rejected (qmu_obs=%.4g, truncated=%t)",
		mu, point.Rejections, point.Toys, point.QmuObs, point.Truncated)
	return point, hist, nil
}

// summarize fills the q_mu distribution summary of a point.
func summarize(point *stats.ScanPoint, values []float64) {
	data := mstats.Float64Data(values)
	if mean, err := data.Mean(); err == nil {
		point.QmuMean = mean
	}
	if median, err := data.Median(); err == nil {
		point.QmuMedian = median
	}
	if p95, err := data.Percentile(95); err == nil {
		point.QmuP95 = p95
	}
}

// generator draws pseudo-experiments n ~ Poisson(mu*s + sum b),
// m_k ~ Poisson(tau_k * b_k) with b the conditional fit to the data.
type generator struct {
	exp      experiment.Experiment
	signal   distuv.Poisson
	controls []distuv.Poisson
	m        []float64
}

func newGenerator(exp experiment.Experiment, mu float64, b []float64, src rand.Source) *generator {
	gen := &generator{
		exp:      exp,
		signal:   distuv.Poisson{Lambda: mu*exp.S() + floats.Sum(b), Src: src},
		controls: make([]distuv.Poisson, exp.NumBck()),
		m:        make([]float64, exp.NumBck()),
	}
	for k, c := range exp.Channels() {
		gen.controls[k] = distuv.Poisson{Lambda: c.Tau * b[k], Src: src}
	}
	return gen
}

func (g *generator) next() (experiment.Experiment, error) {
	n := draw(g.signal)
	for k := range g.controls {
		g.m[k] = draw(g.controls[k])
	}
	return g.exp.WithObservation(n, g.m)
}

// draw samples p, treating a vanishing mean as a point mass at zero.
func draw(p distuv.Poisson) float64 {
	if !(p.Lambda > 0) {
		return 0
	}
	return p.Rand()
}
