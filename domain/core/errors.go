package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound            = errors.New("resource not found")
	ErrCalculationNotFound = fmt.Errorf("%w: calculation", ErrNotFound)
	ErrScanNotFound        = fmt.Errorf("%w: scan", ErrNotFound)

	// Configuration errors
	ErrInvalidConfig     = errors.New("invalid experiment configuration")
	ErrChannelMismatch   = fmt.Errorf("%w: m and tau lengths differ", ErrInvalidConfig)
	ErrNonPositiveSignal = fmt.Errorf("%w: signal yield must be positive", ErrInvalidConfig)
	ErrNonPositiveTau    = fmt.Errorf("%w: tau must be positive", ErrInvalidConfig)
	ErrNegativeCount     = fmt.Errorf("%w: counts must be non-negative", ErrInvalidConfig)

	// Input errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrNegativeStrength = fmt.Errorf("%w: signal strength must be non-negative", ErrInvalidInput)

	// Fit errors
	ErrFitFailed      = errors.New("fit failed")
	ErrNonConvergence = fmt.Errorf("%w: iteration budget exhausted", ErrFitFailed)
	ErrNoBracket      = fmt.Errorf("%w: root not bracketed", ErrFitFailed)
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewChannelMismatchError(numM, numTau int) error {
	return fmt.Errorf("%w (len(m)=%d, len(tau)=%d)", ErrChannelMismatch, numM, numTau)
}

func NewNonConvergenceError(what string, iterations int) error {
	return fmt.Errorf("%w: %s after %d iterations", ErrNonConvergence, what, iterations)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func IsFitFailure(err error) bool {
	return errors.Is(err, ErrFitFailed)
}
