package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sigcalc/domain/core"
	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"
	"sigcalc/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCalculation() *stats.Calculation {
	return &stats.Calculation{
		ID:                  core.CalculationID("0190f7a2-0000-7000-8000-000000000001"),
		Fingerprint:         core.ComputeInputHash(50, 5, 20, 2),
		N:                   50,
		S:                   5,
		Channels:            []experiment.Channel{{M: 20, Tau: 2}},
		EstimatedBackground: 10,
		Discovery: stats.TestStatistic{
			Kind:        stats.KindDiscovery,
			Value:       32.5,
			Global:      stats.FitResult{Mu: 8, B: []float64{10}},
			Conditional: stats.FitResult{B: []float64{23.3333}},
		},
		DiscoverySig: stats.Significance{Z: 5.70088, PValue: 5.96e-9},
		MuTest:       1,
		Exclusion: stats.TestStatistic{
			Kind:               stats.KindExclusion,
			Mu:                 1,
			MuHatUnconstrained: -0.4,
		},
		ExclusionSig: stats.Significance{Z: 0, PValue: 0.5},
		CreatedAt:    core.Now(),
	}
}

func TestCalculationMarkdown(t *testing.T) {
	md := string(Calculation(sampleCalculation()))

	assert.Contains(t, md, "# Significance calculation 0190f7a2-0000-7000-8000-000000000001")
	assert.Contains(t, md, "- observed events n = 50")
	assert.Contains(t, md, "| 0 | 20 | 2 | 10 |")
	assert.Contains(t, md, "## Exclusion (mu = 1)")
	assert.Contains(t, md, "| Z | 5.70088 |")
	assert.Contains(t, md, "| muHat (unconstrained) | -0.4 |")
	assert.Contains(t, md, "| bHat | - |")
}

func TestScanMarkdown(t *testing.T) {
	scan := &stats.Scan{
		ID:   core.NewScanID(),
		Seed: 12345,
		Points: []stats.ScanPoint{
			{Mu: 0.5, PAsymptotic: 0.3, PToys: 0.31, Toys: 320, Rejections: 100},
			{Mu: 2, PAsymptotic: 0.001, PToys: 0.0002, Toys: 50000, Rejections: 10, Truncated: true},
		},
	}
	md := string(Scan(scan))

	assert.Contains(t, md, "Seed 12345")
	assert.Contains(t, md, "| 0.5 |")
	assert.Contains(t, md, "0.0002* | 50000 | 10 |")
	assert.Contains(t, md, "1 point(s) hit the toy budget")
}

func TestHTML(t *testing.T) {
	page := string(HTML(Calculation(sampleCalculation()), "sigcalc report"))

	assert.Contains(t, page, "<title>sigcalc report</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h2 id=\"discovery-mu-0\">")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	md := Calculation(sampleCalculation())

	mdPath := filepath.Join(dir, "calc.md")
	require.NoError(t, WriteFile(mdPath, md, "calc"))
	data, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, md, data)

	htmlPath := filepath.Join(dir, "calc.HTML")
	require.NoError(t, WriteFile(htmlPath, md, "calc"))
	data, err = os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<html"))

	err = WriteFile(filepath.Join(dir, "missing", "calc.md"), md, "calc")
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))
}
