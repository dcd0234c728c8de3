package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// CalculationID identifies one archived discovery/exclusion calculation.
	CalculationID ID
	// ScanID identifies one toy Monte Carlo scan over a grid of mu values.
	ScanID ID
)

// NewCalculationID returns a fresh time-ordered calculation ID.
func NewCalculationID() CalculationID { return CalculationID(NewID()) }

// NewScanID returns a fresh time-ordered scan ID.
func NewScanID() ScanID { return ScanID(NewID()) }

func (id CalculationID) String() string { return ID(id).String() }
func (id ScanID) String() string        { return ID(id).String() }

// ParseCalculationID parses a string into CalculationID
func ParseCalculationID(s string) (CalculationID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("calculation ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("calculation ID %q is not a UUID: %w", s, err)
	}
	return CalculationID(s), nil
}

// ParseScanID parses a string into ScanID
func ParseScanID(s string) (ScanID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("scan ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("scan ID %q is not a UUID: %w", s, err)
	}
	return ScanID(s), nil
}
