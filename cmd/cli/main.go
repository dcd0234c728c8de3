package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"sigcalc/adapters/archive"
	"sigcalc/internal/config"
	"sigcalc/internal/errors"
	"sigcalc/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sigcalc",
		Short: "Discovery and exclusion significance for counting experiments",
		Long: `sigcalc computes the profile-likelihood discovery significance (q0) and
exclusion significance (q_mu) of a counting experiment whose background is
constrained by control-region measurements, and validates the asymptotic
p-values with toy Monte Carlo.

Configuration is read from SIGCALC_* environment variables (or a .env file).
Set SIGCALC_DB_DSN to archive results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newCalcCmd(),
		newToysCmd(),
		newHistoryCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}

// exitCode is 2 for fit failures and 1 for everything else
func exitCode(err error) int {
	if errors.GetCode(err) == errors.CodeFitFailed {
		return 2
	}
	return 1
}

// runtimeEnv is what every command needs: configuration and, when
// configured, the results archive.
type runtimeEnv struct {
	cfg   *config.Config
	repo  ports.ResultRepository
	close func()
}

func loadRuntime(ctx context.Context) (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{cfg: cfg, close: func() {}}
	if cfg.ArchiveEnabled() {
		db, err := archive.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		env.repo = archive.NewResultRepository(db)
		env.close = func() { db.Close() }
	}
	return env, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the results archive schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.ArchiveEnabled() {
				return errors.ConfigInvalid("SIGCALC_DB_DSN is required")
			}
			db, err := archive.Open(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Archive schema is up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
