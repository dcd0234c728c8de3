// Package likelihood defines the Poisson log-likelihood of a counting
// experiment with one signal region and independent control regions.
package likelihood

import (
	"fmt"
	"math"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"

	"gonum.org/v1/gonum/floats"
)

// LogZero stands in for ln L = -inf. It is finite so that differences of
// log-likelihoods stay finite and ordered.
const LogZero = -1e300

// Model evaluates
//
//	lnL(mu, b) = n ln R - R + sum_i [ m_i ln(tau_i b_i) - tau_i b_i ],  R = mu s + sum_i b_i
//
// with the mu- and b-independent log-factorial terms dropped.
type Model struct {
	exp experiment.Experiment
}

// NewModel wraps a validated experiment.
func NewModel(exp experiment.Experiment) Model {
	return Model{exp: exp}
}

// Experiment returns the data the model was built on.
func (m Model) Experiment() experiment.Experiment { return m.exp }

// SignalRate is R(mu, b) = mu s + sum_i b_i.
func (m Model) SignalRate(mu float64, b []float64) float64 {
	return mu*m.exp.S() + floats.Sum(b)
}

// LnL evaluates the log-likelihood. Boundary values b_i = 0 and R = 0 are
// accepted: a Poisson term with zero expectation contributes 0 when its count
// is zero and LogZero otherwise.
func (m Model) LnL(mu float64, b []float64) (float64, error) {
	if len(b) != m.exp.NumBck() {
		return 0, fmt.Errorf("%w: got %d background rates for %d channels", core.ErrInvalidInput, len(b), m.exp.NumBck())
	}
	if !(mu >= 0) {
		return 0, fmt.Errorf("%w (mu=%g)", core.ErrNegativeStrength, mu)
	}
	for i, bi := range b {
		if !(bi >= 0) {
			return 0, fmt.Errorf("%w: background rate b[%d]=%g is negative", core.ErrInvalidInput, i, bi)
		}
	}

	lnL := poissonTerm(m.exp.N(), m.SignalRate(mu, b))
	for i, bi := range b {
		c := m.exp.Channel(i)
		lnL += poissonTerm(c.M, c.Tau*bi)
	}
	return clamp(lnL), nil
}

// poissonTerm is k ln(lambda) - lambda without the ln k! constant.
func poissonTerm(k, lambda float64) float64 {
	if lambda <= 0 {
		if k == 0 {
			return 0
		}
		return LogZero
	}
	if k == 0 {
		return -lambda
	}
	return k*math.Log(lambda) - lambda
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < LogZero {
		return LogZero
	}
	return v
}
