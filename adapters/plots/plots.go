// Package plots renders toy scan results with gonum/plot. The output format
// follows the file extension (png, svg, pdf).
package plots

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"sigcalc/domain/core"
	"sigcalc/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	toyColor        = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	asymptoticColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// Standard output file names.
const (
	HistogramFile = "qmu_hist.png"
	PValuesFile   = "pvalues.png"
)

// SaveQmuHistogram draws the toy q_mu histogram with the asymptotic density
// 1/2 chi2(1) overlaid, scaled to the number of entries.
func SaveQmuHistogram(h *stats.Histogram, path string) error {
	if h == nil || h.Entries() == 0 {
		return fmt.Errorf("%w: empty q_mu histogram", core.ErrInvalidInput)
	}

	p := plot.New()
	p.Title.Text = "Toy Monte Carlo q_mu"
	p.X.Label.Text = "q_mu"
	p.Y.Label.Text = "Entries"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	width := h.Dividers[1] - h.Dividers[0]
	bins := make([]plotter.HistogramBin, len(h.Counts))
	for i, c := range h.Counts {
		bins[i] = plotter.HistogramBin{Min: h.Dividers[i], Max: h.Dividers[i+1], Weight: c}
	}
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     width,
		FillColor: color.RGBA{R: 174, G: 199, B: 232, A: 255},
		LineStyle: plotter.DefaultLineStyle,
		LogY:      true,
	}
	hist.LineStyle.Color = toyColor
	p.Add(hist)
	p.Legend.Add(fmt.Sprintf("toys (%.0f)", h.Entries()), hist)

	chi2 := distuv.ChiSquared{K: 1}
	scale := 0.5 * h.Entries() * width
	density := plotter.NewFunction(func(q float64) float64 { return scale * chi2.Prob(q) })
	density.XMin = width / 2
	density.XMax = h.Dividers[len(h.Dividers)-1]
	density.Samples = 400
	density.Color = asymptoticColor
	density.Width = vg.Points(1.5)
	p.Add(density)
	p.Legend.Add("asymptotic", density)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return save(p, path)
}

// SavePValues draws the asymptotic and toy p-values of q_mu against mu.
func SavePValues(points []stats.ScanPoint, path string) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: no scan points", core.ErrInvalidInput)
	}

	p := plot.New()
	p.Title.Text = "p-value of mu"
	p.X.Label.Text = "mu"
	p.Y.Label.Text = "p_mu"

	asymptotic := make(plotter.XYs, len(points))
	toys := make(plotter.XYs, len(points))
	for i, pt := range points {
		asymptotic[i] = plotter.XY{X: pt.Mu, Y: pt.PAsymptotic}
		toys[i] = plotter.XY{X: pt.Mu, Y: pt.PToys}
	}

	asymLine, err := plotter.NewLine(asymptotic)
	if err != nil {
		return err
	}
	asymLine.Color = asymptoticColor
	asymLine.Width = vg.Points(1.5)
	p.Add(asymLine)
	p.Legend.Add("asymptotic", asymLine)

	toyLine, toyPoints, err := plotter.NewLinePoints(toys)
	if err != nil {
		return err
	}
	toyLine.Color = toyColor
	toyLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	toyPoints.Color = toyColor
	toyPoints.Shape = draw.CircleGlyph{}
	p.Add(toyLine, toyPoints)
	p.Legend.Add("toy MC", toyLine, toyPoints)

	cl := plotter.NewFunction(func(float64) float64 { return 0.05 })
	cl.Color = color.Gray{Y: 128}
	cl.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(cl)
	p.Legend.Add("p = 0.05", cl)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
