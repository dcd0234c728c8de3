package config

import (
	"testing"

	"sigcalc/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.Analysis.MuTest)
	assert.Equal(t, uint64(12345), cfg.Toys.Seed)
	assert.Equal(t, 20, cfg.Toys.Points)
	assert.Equal(t, 100, cfg.Toys.MinRejections)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.ArchiveEnabled())
	assert.NoError(t, cfg.SolverOptions().Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SIGCALC_MU_TEST", "0.5")
	t.Setenv("SIGCALC_SEED", "7")
	t.Setenv("SIGCALC_TOY_POINTS", "5")
	t.Setenv("SIGCALC_DB_DSN", "file:results.db")
	t.Setenv("SIGCALC_FIT_MAX_ITER", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Analysis.MuTest)
	assert.Equal(t, uint64(7), cfg.Toys.Seed)
	assert.Equal(t, 5, cfg.Toys.Points)
	assert.True(t, cfg.ArchiveEnabled())
	assert.Equal(t, 500, cfg.Fit.MaxIterations)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := map[string]string{
		"SIGCALC_FIT_TOLERANCE":      "0",
		"SIGCALC_MU_TEST":            "-1",
		"SIGCALC_TOY_MU_MIN":         "3",
		"SIGCALC_TOY_POINTS":         "0",
		"SIGCALC_TOY_MIN_REJECTIONS": "0",
		"SIGCALC_TOY_WORKERS":        "0",
		"SIGCALC_DB_DRIVER":          "mysql",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
