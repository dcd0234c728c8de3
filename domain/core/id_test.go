package core

import (
	"errors"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	emptyID := ID("")
	if !emptyID.IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}

	nonEmptyID := ID("not-empty")
	if nonEmptyID.IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseCalculationID tests calculation ID parsing
func TestParseCalculationID(t *testing.T) {
	valid := NewCalculationID().String()

	tests := []struct {
		input    string
		expected CalculationID
		hasError bool
	}{
		{valid, CalculationID(valid), false},
		{"", "", true},
		{"   ", "", true},
		{"calc-123", "", true},
	}

	for _, test := range tests {
		result, err := ParseCalculationID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestParseScanID tests scan ID parsing
func TestParseScanID(t *testing.T) {
	valid := NewScanID().String()
	if _, err := ParseScanID(valid); err != nil {
		t.Errorf("Unexpected error for input '%s': %v", valid, err)
	}
	if _, err := ParseScanID(""); err == nil {
		t.Error("Expected error for empty scan ID")
	}
}

func TestComputeInputHashDeterministic(t *testing.T) {
	a := ComputeInputHash(10, 5, 20, 2)
	b := ComputeInputHash(10, 5, 20, 2)
	c := ComputeInputHash(10, 5, 20, 2.5)

	if !a.Equals(b) {
		t.Errorf("Expected identical inputs to hash identically: %s vs %s", a, b)
	}
	if a.Equals(c) {
		t.Error("Expected different inputs to hash differently")
	}
	if len(a.Short()) != 12 {
		t.Errorf("Expected short hash of length 12, got %q", a.Short())
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsInvalidConfigError(NewChannelMismatchError(2, 1)) {
		t.Error("channel mismatch should be an invalid-config error")
	}
	if !IsFitFailure(NewNonConvergenceError("root", 10)) {
		t.Error("non-convergence should be a fit failure")
	}
	if IsFitFailure(ErrInvalidConfig) {
		t.Error("invalid config must not be classified as a fit failure")
	}
	if !errors.Is(ErrCalculationNotFound, ErrNotFound) || !IsNotFoundError(NewNotFoundError("calculation", "x")) {
		t.Error("not-found helpers should match")
	}
}
