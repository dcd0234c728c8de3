// Package experiment holds the immutable description of a counting
// experiment: the signal-region observation, the nominal signal yield and the
// control-region (sideband) measurements that constrain the backgrounds.
package experiment

import (
	"fmt"
	"math"

	"sigcalc/domain/core"
)

// Channel is one background control region: m events observed, with
// m ~ Poisson(Tau * b) for the background rate b it constrains.
type Channel struct {
	M   float64 `json:"m"`
	Tau float64 `json:"tau"`
}

// Estimate is the stand-alone control-region estimate m/tau of the background.
func (c Channel) Estimate() float64 {
	return c.M / c.Tau
}

// Experiment is a validated, read-only counting experiment. Construct it with
// New; the zero value has no channels and no signal and is not valid.
type Experiment struct {
	n        float64
	s        float64
	channels []Channel
}

// New validates the inputs and returns an Experiment. m and tau must have the
// same length; s and every tau must be positive; n and every m non-negative.
func New(n, s float64, m, tau []float64) (Experiment, error) {
	if len(m) != len(tau) {
		return Experiment{}, core.NewChannelMismatchError(len(m), len(tau))
	}
	if !(s > 0) || math.IsInf(s, 0) {
		return Experiment{}, fmt.Errorf("%w (s=%g)", core.ErrNonPositiveSignal, s)
	}
	if !(n >= 0) || math.IsInf(n, 0) {
		return Experiment{}, fmt.Errorf("%w (n=%g)", core.ErrNegativeCount, n)
	}

	channels := make([]Channel, len(m))
	for i := range m {
		if !(tau[i] > 0) || math.IsInf(tau[i], 0) {
			return Experiment{}, fmt.Errorf("%w (tau[%d]=%g)", core.ErrNonPositiveTau, i, tau[i])
		}
		if !(m[i] >= 0) || math.IsInf(m[i], 0) {
			return Experiment{}, fmt.Errorf("%w (m[%d]=%g)", core.ErrNegativeCount, i, m[i])
		}
		channels[i] = Channel{M: m[i], Tau: tau[i]}
	}

	return Experiment{n: n, s: s, channels: channels}, nil
}

// FromChannels is New for callers that already hold Channel values.
func FromChannels(n, s float64, channels []Channel) (Experiment, error) {
	m := make([]float64, len(channels))
	tau := make([]float64, len(channels))
	for i, c := range channels {
		m[i] = c.M
		tau[i] = c.Tau
	}
	return New(n, s, m, tau)
}

// N is the observed signal-region count.
func (e Experiment) N() float64 { return e.n }

// S is the expected signal yield at mu = 1.
func (e Experiment) S() float64 { return e.s }

// NumBck is the number of background channels.
func (e Experiment) NumBck() int { return len(e.channels) }

// Channel returns background channel i.
func (e Experiment) Channel(i int) Channel { return e.channels[i] }

// Channels returns a copy of the background channels.
func (e Experiment) Channels() []Channel {
	out := make([]Channel, len(e.channels))
	copy(out, e.channels)
	return out
}

// M returns a copy of the control-region counts.
func (e Experiment) M() []float64 {
	out := make([]float64, len(e.channels))
	for i, c := range e.channels {
		out[i] = c.M
	}
	return out
}

// Tau returns a copy of the control-region scale factors.
func (e Experiment) Tau() []float64 {
	out := make([]float64, len(e.channels))
	for i, c := range e.channels {
		out[i] = c.Tau
	}
	return out
}

// EstimatedBackground is sum_i m_i/tau_i.
func (e Experiment) EstimatedBackground() float64 {
	total := 0.0
	for _, c := range e.channels {
		total += c.Estimate()
	}
	return total
}

// WithObservation returns a copy with different observed counts and the same
// s and tau. It is how pseudo-experiments are built from a fitted model.
func (e Experiment) WithObservation(n float64, m []float64) (Experiment, error) {
	return New(n, e.s, m, e.Tau())
}

// Fingerprint hashes the inputs so identical experiments can be recognised in
// the results archive.
func (e Experiment) Fingerprint() core.Hash {
	values := make([]float64, 0, 2+2*len(e.channels))
	values = append(values, e.n, e.s)
	for _, c := range e.channels {
		values = append(values, c.M, c.Tau)
	}
	return core.ComputeInputHash(values...)
}
