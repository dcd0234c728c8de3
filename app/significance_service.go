package app

import (
	"context"
	"fmt"
	"log"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/errors"
	"sigcalc/internal/numeric"
	"sigcalc/internal/significance"
	"sigcalc/ports"
)

// SignificanceService computes discovery and exclusion significances and
// optionally archives them.
type SignificanceService struct {
	opts numeric.Options
	repo ports.ResultRepository
}

// NewSignificanceService creates a significance service. repo may be nil, in
// which case nothing is archived.
func NewSignificanceService(opts numeric.Options, repo ports.ResultRepository) *SignificanceService {
	return &SignificanceService{
		opts: opts,
		repo: repo,
	}
}

// Calculate runs the discovery test (mu = 0) and the exclusion test at muTest.
func (s *SignificanceService) Calculate(ctx context.Context, exp experiment.Experiment, muTest float64) (*stats.Calculation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine, err := significance.NewEngine(exp, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, "invalid solver options")
	}

	discovery, err := engine.Q0Detailed()
	if err != nil {
		return nil, errors.Wrap(err, "discovery test failed")
	}
	exclusion, err := engine.QmuDetailed(muTest)
	if err != nil {
		return nil, errors.Wrapf(err, "exclusion test at mu=%g failed", muTest)
	}

	calc := &stats.Calculation{
		ID:                  core.NewCalculationID(),
		Fingerprint:         exp.Fingerprint(),
		N:                   exp.N(),
		S:                   exp.S(),
		Channels:            exp.Channels(),
		EstimatedBackground: exp.EstimatedBackground(),
		Discovery:           discovery,
		DiscoverySig:        significance.FromStatistic(discovery.Value),
		MuTest:              muTest,
		Exclusion:           exclusion,
		ExclusionSig:        significance.FromStatistic(exclusion.Value),
		CreatedAt:           core.Now(),
	}

	log.Printf("[SignificanceService] %s: Z_disc=%.4g Z_excl(mu=%g)=%.4g", calc.Fingerprint.Short(), calc.DiscoverySig.Z, muTest, calc.ExclusionSig.Z)

	if s.repo != nil {
		if err := s.repo.SaveCalculation(ctx, calc); err != nil {
			return nil, errors.Wrap(err, "failed to archive calculation")
		}
	}
	return calc, nil
}

// QmuCurve evaluates q_mu with its Z and p-value at every mu.
func (s *SignificanceService) QmuCurve(ctx context.Context, exp experiment.Experiment, mus []float64) ([]stats.CurvePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(mus) == 0 {
		return nil, errors.InvalidInput("at least one mu value is required")
	}

	engine, err := significance.NewEngine(exp, s.opts)
	if err != nil {
		return nil, errors.Wrap(err, "invalid solver options")
	}
	curve, err := engine.QmuCurve(mus)
	if err != nil {
		return nil, errors.Wrap(err, "q_mu curve failed")
	}
	return curve, nil
}

// Get returns an archived calculation.
func (s *SignificanceService) Get(ctx context.Context, id core.CalculationID) (*stats.Calculation, error) {
	if s.repo == nil {
		return nil, errArchiveDisabled
	}
	calc, err := s.repo.GetCalculation(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("failed to get calculation %s", id))
	}
	return calc, nil
}

// History lists archived calculations, newest first.
func (s *SignificanceService) History(ctx context.Context, limit int) ([]*stats.Calculation, error) {
	if s.repo == nil {
		return nil, errArchiveDisabled
	}
	calcs, err := s.repo.ListCalculations(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list calculations")
	}
	return calcs, nil
}

var errArchiveDisabled = errors.Unavailable("results archive is not configured (set SIGCALC_DB_DSN)")
