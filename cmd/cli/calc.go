package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"sigcalc/adapters/expfile"
	"sigcalc/app"
	"sigcalc/domain/experiment"
	"sigcalc/internal/errors"
	"sigcalc/internal/report"
	"sigcalc/ports"

	"github.com/spf13/cobra"
)

var fileSource ports.ExperimentSource = ports.ExperimentSourceFunc(expfile.ReadFile)

func newCalcCmd() *cobra.Command {
	var mu float64
	var reportPath string

	cmd := &cobra.Command{
		Use:   "calc [file]",
		Short: "Compute discovery and exclusion significances",
		Long: `Compute the discovery significance (mu = 0) and the exclusion significance
at --mu for the experiment described in file.

The file lists n, then s, then one "m tau" pair per control region. Lines
starting with # or ! are comments. Without a file argument the name is read
from standard input.

Example: sigcalc calc experiment.txt --mu 1.5 --report calc.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			exp, err := loadExperiment(cmd, args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("mu") {
				mu = env.cfg.Analysis.MuTest
			}

			svc := app.NewSignificanceService(env.cfg.SolverOptions(), env.repo)
			return runCalc(cmd.Context(), cmd.OutOrStdout(), svc, exp, mu, reportPath)
		},
	}

	cmd.Flags().Float64Var(&mu, "mu", 1.0, "Signal strength tested for exclusion (default SIGCALC_MU_TEST)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a Markdown (.md) or HTML (.html) report")
	return cmd
}

// loadExperiment reads the file named in args, prompting for it when absent.
func loadExperiment(cmd *cobra.Command, args []string) (experiment.Experiment, error) {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		var err error
		if path, err = promptFileName(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return experiment.Experiment{}, err
		}
	}

	exp, err := fileSource.Load(path)
	if err != nil {
		if errors.GetCode(err) == errors.CodeIOError {
			fmt.Fprintln(cmd.ErrOrStderr(), "Sorry, couldn't open input file")
		}
		return experiment.Experiment{}, err
	}
	return exp, nil
}

func promptFileName(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter name of input file: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	name := strings.TrimSpace(line)
	if name == "" {
		if err != nil && err != io.EOF {
			return "", errors.IOError("failed to read file name", err)
		}
		return "", errors.InvalidInput("no input file given")
	}
	return name, nil
}

func runCalc(ctx context.Context, out io.Writer, svc *app.SignificanceService, exp experiment.Experiment, mu float64, reportPath string) error {
	if _, err := expfile.Summarize(exp).WriteTo(out); err != nil {
		return err
	}
	printf(out, "\n")

	calc, err := svc.Calculate(ctx, exp, mu)
	if err != nil {
		return err
	}

	printf(out, "Discovery significance Z   = %g\n", calc.DiscoverySig.Z)
	printf(out, "Corresponding p-value  = %g\n", calc.DiscoverySig.PValue)
	printf(out, "\n")
	printf(out, "Exclusion significance for mu = %g is Z = %g\n", calc.MuTest, calc.ExclusionSig.Z)
	printf(out, "Corresponding p-value = %g\n", calc.ExclusionSig.PValue)

	if reportPath != "" {
		if err := report.WriteFile(reportPath, report.Calculation(calc), "Significance calculation"); err != nil {
			return err
		}
		printf(out, "\nReport written to %s\n", reportPath)
	}
	return nil
}
