package stats

import (
	"math"

	"sigcalc/domain/core"

	"gonum.org/v1/gonum/floats"
)

// ScanPoint compares the asymptotic and toy Monte Carlo p-values of q_mu at
// one hypothesis value.
type ScanPoint struct {
	Mu          float64   `json:"mu" db:"mu"`
	QmuObs      float64   `json:"qmu_obs" db:"qmu_obs"`
	ZObs        float64   `json:"z_obs" db:"z_obs"`
	PAsymptotic float64   `json:"p_asymptotic" db:"p_asymptotic"`
	PToys       float64   `json:"p_toys" db:"p_toys"`
	Toys        int       `json:"toys" db:"toys"`
	Rejections  int       `json:"rejections" db:"rejections"`
	FitFailures int       `json:"fit_failures" db:"fit_failures"`
	Truncated   bool      `json:"truncated" db:"truncated"`
	BHatHat     []float64 `json:"b_hat_hat" db:"-"`
	QmuMean     float64   `json:"qmu_mean" db:"qmu_mean"`
	QmuMedian   float64   `json:"qmu_median" db:"qmu_median"`
	QmuP95      float64   `json:"qmu_p95" db:"qmu_p95"`
}

// Scan is a complete toy validation run over a grid of mu values.
type Scan struct {
	ID          core.ScanID    `json:"id"`
	Fingerprint core.Hash      `json:"fingerprint"`
	Seed        uint64         `json:"seed"`
	Points      []ScanPoint    `json:"points"`
	Histogram   *Histogram     `json:"histogram"`
	CreatedAt   core.Timestamp `json:"created_at"`
}

// Histogram is a fixed-binning histogram of toy q_mu values.
type Histogram struct {
	Dividers  []float64 `json:"dividers"`
	Counts    []float64 `json:"counts"`
	Underflow float64   `json:"underflow"`
	Overflow  float64   `json:"overflow"`
}

// NewHistogram creates a histogram with bins equal-width bins on [lo, hi).
func NewHistogram(bins int, lo, hi float64) *Histogram {
	return &Histogram{
		Dividers: floats.Span(make([]float64, bins+1), lo, hi),
		Counts:   make([]float64, bins),
	}
}

// Fill adds one entry. NaN is counted as overflow.
func (h *Histogram) Fill(v float64) {
	last := len(h.Dividers) - 1
	switch {
	case v < h.Dividers[0]:
		h.Underflow++
	case v >= h.Dividers[last] || math.IsNaN(v):
		h.Overflow++
	default:
		h.Counts[floats.Within(h.Dividers, v)]++
	}
}

// Merge adds the contents of other, which must share the binning.
func (h *Histogram) Merge(other *Histogram) {
	floats.Add(h.Counts, other.Counts)
	h.Underflow += other.Underflow
	h.Overflow += other.Overflow
}

// Entries is the total number of fills including under- and overflow.
func (h *Histogram) Entries() float64 {
	return floats.Sum(h.Counts) + h.Underflow + h.Overflow
}
