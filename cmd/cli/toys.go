package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"sigcalc/adapters/excel"
	"sigcalc/adapters/plots"
	"sigcalc/app"
	"sigcalc/domain/experiment"
	"sigcalc/internal/errors"
	"sigcalc/internal/report"
	"sigcalc/internal/toys"

	"github.com/spf13/cobra"
)

type toysOptions struct {
	muMin         float64
	muMax         float64
	points        int
	seed          uint64
	minRejections int
	maxEvents     int
	workers       int
	outDir        string
	xlsxPath      string
	reportPath    string
}

func newToysCmd() *cobra.Command {
	var opts toysOptions

	cmd := &cobra.Command{
		Use:   "toys [file]",
		Short: "Validate asymptotic exclusion p-values with toy Monte Carlo",
		Long: `Scan a grid of signal strengths and, at each, compare the asymptotic
exclusion p-value with the fraction of toy experiments whose q_mu is at least
the observed one. Writes qmu_hist.png and pvalues.png to --out.

Unset flags fall back to the SIGCALC_TOY_* environment settings.

Example: sigcalc toys experiment.txt --mu-min 0.1 --mu-max 2 --points 20 --xlsx scan.xlsx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			applyToyDefaults(cmd, &opts, env)

			exp, err := loadExperiment(cmd, args)
			if err != nil {
				return err
			}

			scanner, err := toys.NewScanner(toys.Config{
				Seed:          opts.seed,
				MinRejections: opts.minRejections,
				MaxEvents:     opts.maxEvents,
				Workers:       opts.workers,
				Options:       env.cfg.SolverOptions(),
			})
			if err != nil {
				return errors.Wrap(err, "invalid toy settings")
			}
			svc := app.NewValidationService(scanner, env.repo)
			return runToys(cmd.Context(), cmd.OutOrStdout(), svc, exp, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.muMin, "mu-min", 0.1, "Smallest signal strength scanned")
	cmd.Flags().Float64Var(&opts.muMax, "mu-max", 2.0, "Largest signal strength scanned")
	cmd.Flags().IntVar(&opts.points, "points", 20, "Number of grid points")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 12345, "Random seed")
	cmd.Flags().IntVar(&opts.minRejections, "min-rejections", 100, "Stop a grid point after this many toys with q_mu >= observed")
	cmd.Flags().IntVar(&opts.maxEvents, "max-events", 1_000_000, "Toy budget per grid point")
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "Grid points simulated concurrently")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Directory for plots (default SIGCALC_OUTPUT_DIR)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Export the scan to an Excel workbook")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write a Markdown (.md) or HTML (.html) report")
	return cmd
}

// applyToyDefaults fills every flag the user left unset from configuration.
func applyToyDefaults(cmd *cobra.Command, opts *toysOptions, env *runtimeEnv) {
	t := env.cfg.Toys
	flags := cmd.Flags()
	if !flags.Changed("mu-min") {
		opts.muMin = t.MuMin
	}
	if !flags.Changed("mu-max") {
		opts.muMax = t.MuMax
	}
	if !flags.Changed("points") {
		opts.points = t.Points
	}
	if !flags.Changed("seed") {
		opts.seed = t.Seed
	}
	if !flags.Changed("min-rejections") {
		opts.minRejections = t.MinRejections
	}
	if !flags.Changed("max-events") {
		opts.maxEvents = t.MaxEvents
	}
	if !flags.Changed("workers") {
		opts.workers = t.Workers
	}
	if !flags.Changed("out") {
		opts.outDir = env.cfg.Output.Dir
	}
}

func runToys(ctx context.Context, out io.Writer, svc *app.ValidationService, exp experiment.Experiment, opts toysOptions) error {
	grid := toys.Grid(opts.muMin, opts.muMax, opts.points)

	scan, err := svc.Validate(ctx, exp, grid)
	if err != nil {
		return err
	}

	printf(out, "mu        pmu (asymptotic)       p_mu (MC)\n")
	for _, p := range scan.Points {
		marker := ""
		if p.Truncated {
			marker = "  *"
		}
		printf(out, "%-9.4g %-22.6g %-.6g%s\n", p.Mu, p.PAsymptotic, p.PToys, marker)
	}

	histPath := filepath.Join(opts.outDir, plots.HistogramFile)
	if err := plots.SaveQmuHistogram(scan.Histogram, histPath); err != nil {
		return fmt.Errorf("histogram plot: %w", err)
	}
	pvalPath := filepath.Join(opts.outDir, plots.PValuesFile)
	if err := plots.SavePValues(scan.Points, pvalPath); err != nil {
		return fmt.Errorf("p-value plot: %w", err)
	}
	printf(out, "\nPlots written to %s and %s\n", histPath, pvalPath)

	if opts.xlsxPath != "" {
		if err := excel.WriteScan(opts.xlsxPath, exp, scan); err != nil {
			return err
		}
		printf(out, "Workbook written to %s\n", opts.xlsxPath)
	}
	if opts.reportPath != "" {
		if err := report.WriteFile(opts.reportPath, report.Scan(scan), "Toy Monte Carlo validation"); err != nil {
			return err
		}
		printf(out, "Report written to %s\n", opts.reportPath)
	}
	return nil
}
