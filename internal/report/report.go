// Package report renders calculations and toy scans as Markdown, and
// Markdown as a standalone HTML page.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigcalc/domain/stats"
	"sigcalc/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Calculation renders the discovery and exclusion results of calc.
func Calculation(calc *stats.Calculation) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Significance calculation %s\n\n", calc.ID)
	fmt.Fprintf(&b, "Computed %s, input fingerprint `%s`.\n\n", calc.CreatedAt, calc.Fingerprint.Short())

	b.WriteString("## Input\n\n")
	fmt.Fprintf(&b, "- observed events n = %g\n", calc.N)
	fmt.Fprintf(&b, "- expected signal s = %g\n", calc.S)
	fmt.Fprintf(&b, "- estimated total background = %g\n\n", calc.EstimatedBackground)
	if len(calc.Channels) > 0 {
		b.WriteString("| channel | m | tau | m/tau |\n|---:|---:|---:|---:|\n")
		for i, c := range calc.Channels {
			fmt.Fprintf(&b, "| %d | %g | %g | %.6g |\n", i, c.M, c.Tau, c.Estimate())
		}
		b.WriteString("\n")
	}

	b.WriteString("## Discovery (mu = 0)\n\n")
	writeStatistic(&b, "q0", calc.Discovery, calc.DiscoverySig)

	fmt.Fprintf(&b, "## Exclusion (mu = %g)\n\n", calc.MuTest)
	writeStatistic(&b, "q_mu", calc.Exclusion, calc.ExclusionSig)

	return b.Bytes()
}

func writeStatistic(b *bytes.Buffer, name string, t stats.TestStatistic, sig stats.Significance) {
	b.WriteString("| quantity | value |\n|---|---:|\n")
	fmt.Fprintf(b, "| %s | %.6g |\n", name, t.Value)
	fmt.Fprintf(b, "| Z | %.6g |\n", sig.Z)
	fmt.Fprintf(b, "| p-value | %.6g |\n", sig.PValue)
	fmt.Fprintf(b, "| muHat | %.6g |\n", t.MuHat())
	if t.MuHatUnconstrained < 0 {
		fmt.Fprintf(b, "| muHat (unconstrained) | %.6g |\n", t.MuHatUnconstrained)
	}
	fmt.Fprintf(b, "| bHat | %s |\n", formatVector(t.BHat()))
	fmt.Fprintf(b, "| bHatHat | %s |\n", formatVector(t.BHatHat()))
	b.WriteString("\n")
}

// Scan renders the asymptotic versus toy p-values of a scan.
func Scan(scan *stats.Scan) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Toy Monte Carlo scan %s\n\n", scan.ID)
	fmt.Fprintf(&b, "Seed %d, input fingerprint `%s`, computed %s.\n\n", scan.Seed, scan.Fingerprint.Short(), scan.CreatedAt)

	b.WriteString("| mu | q_mu,obs | p (asymptotic) | p (MC) | toys | rejections | q_mu median |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|\n")
	truncated := 0
	for _, p := range scan.Points {
		mark := ""
		if p.Truncated {
			mark = "*"
			truncated++
		}
		fmt.Fprintf(&b, "| %g | %.4g | %.4g | %.4g%s | %d | %d | %.4g |\n",
			p.Mu, p.QmuObs, p.PAsymptotic, p.PToys, mark, p.Toys, p.Rejections, p.QmuMedian)
	}
	if truncated > 0 {
		fmt.Fprintf(&b, "\n\\* %d point(s) hit the toy budget before reaching the rejection target.\n", truncated)
	}
	return b.Bytes()
}

func formatVector(v []float64) string {
	if len(v) == 0 {
		return "-"
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return strings.Join(parts, ", ")
}

// HTML renders md as a complete HTML page.
func HTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, renderer)
}

// WriteFile writes md to path, as HTML when the extension is .html or .htm.
func WriteFile(path string, md []byte, title string) error {
	out := md
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		out = HTML(md, title)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return errors.IOError(fmt.Sprintf("failed to write report %s", path), err)
	}
	return nil
}
