package main

import (
	"fmt"
	"text/tabwriter"

	"sigcalc/app"
	"sigcalc/internal/errors"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived calculations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()
			if env.repo == nil {
				return errors.Unavailable("results archive is not configured (set SIGCALC_DB_DSN)")
			}

			svc := app.NewSignificanceService(env.cfg.SolverOptions(), env.repo)
			calcs, err := svc.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tN\tS\tZ_DISC\tMU\tZ_EXCL")
			for _, c := range calcs {
				fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.4g\t%g\t%.4g\n",
					c.ID, c.CreatedAt, c.N, c.S,
					c.DiscoverySig.Z, c.MuTest, c.ExclusionSig.Z)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of calculations listed")
	return cmd
}
