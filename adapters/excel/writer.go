// Package excel exports toy scans as xlsx workbooks.
package excel

import (
	"fmt"
	"log"

	"sigcalc/domain/experiment"
	"sigcalc/domain/stats"

	"github.com/xuri/excelize/v2"
)

// Sheet names written by WriteScan.
const (
	ScanSheet      = "Scan"
	HistogramSheet = "Histogram"
	InputSheet     = "Input"
)

var scanHeaders = []string{
	"mu", "qmu_obs", "Z_obs", "p_asymptotic", "p_toys", "toys", "rejections",
	"fit_failures", "truncated", "qmu_mean", "qmu_median", "qmu_p95",
}

// WriteScan writes the scan grid, the toy q_mu histogram and the experiment
// it was run on to path.
func WriteScan(path string, exp experiment.Experiment, scan *stats.Scan) error {
	f := excelize.NewFile()
	defer f.Close()

	// The default sheet becomes the scan table.
	if err := f.SetSheetName("Sheet1", ScanSheet); err != nil {
		return err
	}
	if err := writeRows(f, ScanSheet, scanHeaders, scanRows(scan.Points)); err != nil {
		return err
	}

	if _, err := f.NewSheet(HistogramSheet); err != nil {
		return err
	}
	if err := writeRows(f, HistogramSheet, []string{"low", "high", "entries"}, histogramRows(scan.Histogram)); err != nil {
		return err
	}

	if _, err := f.NewSheet(InputSheet); err != nil {
		return err
	}
	if err := writeRows(f, InputSheet, []string{"name", "value"}, inputRows(exp, scan)); err != nil {
		return err
	}

	idx, err := f.GetSheetIndex(ScanSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	log.Printf("[ExcelWriter] Wrote %d scan points to %s", len(scan.Points), path)
	return nil
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func scanRows(points []stats.ScanPoint) [][]interface{} {
	rows := make([][]interface{}, len(points))
	for i, p := range points {
		rows[i] = []interface{}{
			p.Mu, p.QmuObs, p.ZObs, p.PAsymptotic, p.PToys, p.Toys, p.Rejections,
			p.FitFailures, p.Truncated, p.QmuMean, p.QmuMedian, p.QmuP95,
		}
	}
	return rows
}

func histogramRows(h *stats.Histogram) [][]interface{} {
	if h == nil {
		return nil
	}
	rows := make([][]interface{}, 0, len(h.Counts)+2)
	rows = append(rows, []interface{}{"underflow", h.Dividers[0], h.Underflow})
	for i, c := range h.Counts {
		rows = append(rows, []interface{}{h.Dividers[i], h.Dividers[i+1], c})
	}
	rows = append(rows, []interface{}{h.Dividers[len(h.Dividers)-1], "overflow", h.Overflow})
	return rows
}

func inputRows(exp experiment.Experiment, scan *stats.Scan) [][]interface{} {
	rows := [][]interface{}{
		{"scan_id", scan.ID.String()},
		{"fingerprint", scan.Fingerprint.String()},
		{"seed", fmt.Sprintf("%d", scan.Seed)},
		{"n", exp.N()},
		{"s", exp.S()},
	}
	for i, c := range exp.Channels() {
		rows = append(rows,
			[]interface{}{fmt.Sprintf("m[%d]", i), c.M},
			[]interface{}{fmt.Sprintf("tau[%d]", i), c.Tau},
		)
	}
	rows = append(rows, []interface{}{"estimated_background", exp.EstimatedBackground()})
	return rows
}
