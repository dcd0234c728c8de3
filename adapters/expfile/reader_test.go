package expfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sigcalc/domain/experiment"
	"sigcalc/internal/errors"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# Example input for the significance calculator
! n, the number of observed events
10
# s
5
# m  tau
20 2
! second sideband
6 3   trailing text is ignored
`

func TestRead(t *testing.T) {
	exp, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 10.0, exp.N())
	assert.Equal(t, 5.0, exp.S())
	want := []experiment.Channel{{M: 20, Tau: 2}, {M: 6, Tau: 3}}
	if diff := cmp.Diff(want, exp.Channels()); diff != "" {
		t.Errorf("channels mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 12.0, exp.EstimatedBackground(), 1e-12)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
		match string
	}{
		{"empty", "# nothing\n", errors.CodeInvalidInput, "found 0 data lines"},
		{"only n", "10\n", errors.CodeInvalidInput, "found 1 data lines"},
		{"bad n", "ten\n5\n", errors.CodeInvalidInput, "line 1: n"},
		{"missing tau", "10\n5\n20\n", errors.CodeInvalidInput, "line 3"},
		{"bad tau", "10\n5\n20 x\n", errors.CodeInvalidInput, "line 3: tau"},
		{"zero signal", "10\n0\n20 2\n", errors.CodeConfigInvalid, "signal yield"},
		{"zero tau", "10\n5\n20 0\n", errors.CodeConfigInvalid, "tau must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.match)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	exp, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, exp.NumBck())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}

func TestWriteRoundTrip(t *testing.T) {
	exp, err := experiment.New(50, 5, []float64{20, 0.5}, []float64{2, 0.25})
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, Write(&b, exp))

	back, err := Read(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, exp.Fingerprint(), back.Fingerprint())
}

func TestSummary(t *testing.T) {
	exp, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	sum := Summarize(exp)
	require.Len(t, sum.Channels, 2)
	assert.Equal(t, 10.0, sum.Channels[0].Estimate)
	assert.Equal(t, 2.0, sum.Channels[1].Estimate)

	var b strings.Builder
	n, err := sum.WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, int64(b.Len()), n)
	assert.Equal(t, "n = 10\ns = 5\n"+
		"m[0]  = 20,   tau[0]  = 2\n"+
		"m[1]  = 6,   tau[1]  = 3\n"+
		"estimated total background = 12\n", b.String())
}
