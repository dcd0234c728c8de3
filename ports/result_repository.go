package ports

import (
	"context"

	"sigcalc/domain/core"
	"sigcalc/domain/stats"
)

// ResultRepository defines the interface for the results archive
type ResultRepository interface {
	// SaveCalculation stores a discovery + exclusion calculation
	SaveCalculation(ctx context.Context, calc *stats.Calculation) error

	// GetCalculation retrieves a calculation by ID
	GetCalculation(ctx context.Context, id core.CalculationID) (*stats.Calculation, error)

	// ListCalculations returns the most recent calculations first, optionally limited
	ListCalculations(ctx context.Context, limit int) ([]*stats.Calculation, error)

	// SaveScan stores a toy Monte Carlo scan and its grid points
	SaveScan(ctx context.Context, scan *stats.Scan) error

	// ListScanPoints returns the grid points of a scan ordered by mu
	ListScanPoints(ctx context.Context, id core.ScanID) ([]stats.ScanPoint, error)
}
