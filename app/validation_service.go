package app

import (
	"context"
	"log"
	"time"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/errors"
	"sigcalc/internal/toys"
	"sigcalc/ports"
)

// ValidationService checks asymptotic p-values against toy Monte Carlo.
type ValidationService struct {
	scanner *toys.Scanner
	repo    ports.ResultRepository
}

// NewValidationService creates a validation service. repo may be nil.
func NewValidationService(scanner *toys.Scanner, repo ports.ResultRepository) *ValidationService {
	return &ValidationService{
		scanner: scanner,
		repo:    repo,
	}
}

// Validate scans grid and archives the scan when an archive is configured.
func (s *ValidationService) Validate(ctx context.Context, exp experiment.Experiment, grid []float64) (*stats.Scan, error) {
	return s.ValidateWithProgress(ctx, core.NewScanID(), exp, grid, nil)
}

// ValidateWithProgress is Validate under a caller-chosen scan ID, reporting
// finished grid points to progress.
func (s *ValidationService) ValidateWithProgress(ctx context.Context, id core.ScanID, exp experiment.Experiment, grid []float64, progress toys.Progress) (*stats.Scan, error) {
	start := time.Now()
	cfg := s.scanner.Config()
	log.Printf("[ValidationService] Scanning %d mu values (seed=%d, min rejections=%d, workers=%d)",
		len(grid), cfg.Seed, cfg.MinRejections, cfg.Workers)

	scan, err := s.scanner.ScanWithProgress(ctx, id, exp, grid, progress)
	if err != nil {
		return nil, errors.Wrap(err, "toy scan failed")
	}

	toysThrown, failures := 0, 0
	for _, p := range scan.Points {
		toysThrown += p.Toys
		failures += p.FitFailures
		if p.Truncated {
			log.Printf("[ValidationService] mu=%g: only %d rejections in %d toys, p_MC has low statistics", p.Mu, p.Rejections, p.Toys)
		}
	}
	if failures > 0 {
		log.Printf("[ValidationService] %d toy fits failed and were skipped", failures)
	}
	log.Printf("[ValidationService] Scan %s finished: %d toys in %s", scan.ID, toysThrown, time.Since(start).Round(time.Millisecond))

	if s.repo != nil {
		if err := s.repo.SaveScan(ctx, scan); err != nil {
			return nil, errors.Wrap(err, "failed to archive scan")
		}
	}
	return scan, nil
}

// Points returns the archived grid points of a scan.
func (s *ValidationService) Points(ctx context.Context, id core.ScanID) ([]stats.ScanPoint, error) {
	if s.repo == nil {
		return nil, errArchiveDisabled
	}
	points, err := s.repo.ListScanPoints(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list points of scan %s", id)
	}
	return points, nil
}
