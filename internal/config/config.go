package config

import (
	"os"
	"strconv"

	"sigcalc/internal/errors"
	"sigcalc/internal/numeric"
)

// Config represents the complete application configuration
type Config struct {
	Fit      FitConfig
	Analysis AnalysisConfig
	Toys     ToyConfig
	Output   OutputConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// FitConfig holds the solver budget for every fit
type FitConfig struct {
	Tolerance     float64
	FTolerance    float64
	MaxIterations int
}

// AnalysisConfig holds defaults for significance calculations
type AnalysisConfig struct {
	MuTest float64
}

// ToyConfig holds Monte Carlo validation settings
type ToyConfig struct {
	Seed          uint64
	MuMin         float64
	MuMax         float64
	Points        int
	MinRejections int
	MaxEvents     int
	Workers       int
}

// OutputConfig holds file system paths for plots and exports
type OutputConfig struct {
	Dir string
}

// DatabaseConfig holds the results archive connection. An empty DSN disables
// archiving.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Fit:      *loadFitConfig(),
		Analysis: *loadAnalysisConfig(),
		Toys:     *loadToyConfig(),
		Output:   *loadOutputConfig(),
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// SolverOptions converts the fit settings for the numeric package.
func (c *Config) SolverOptions() numeric.Options {
	return numeric.Options{
		Tolerance:     c.Fit.Tolerance,
		FTolerance:    c.Fit.FTolerance,
		MaxIterations: c.Fit.MaxIterations,
	}
}

// ArchiveEnabled reports whether results should be written to the database.
func (c *Config) ArchiveEnabled() bool {
	return c.Database.DSN != ""
}

func loadFitConfig() *FitConfig {
	defaults := numeric.DefaultOptions()
	return &FitConfig{
		Tolerance:     getEnvFloatOrDefault("SIGCALC_FIT_TOLERANCE", defaults.Tolerance),
		FTolerance:    getEnvFloatOrDefault("SIGCALC_FIT_F_TOLERANCE", defaults.FTolerance),
		MaxIterations: getEnvIntOrDefault("SIGCALC_FIT_MAX_ITER", defaults.MaxIterations),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		MuTest: getEnvFloatOrDefault("SIGCALC_MU_TEST", 1.0),
	}
}

func loadToyConfig() *ToyConfig {
	return &ToyConfig{
		Seed:          getEnvUintOrDefault("SIGCALC_SEED", 12345),
		MuMin:         getEnvFloatOrDefault("SIGCALC_TOY_MU_MIN", 0.1),
		MuMax:         getEnvFloatOrDefault("SIGCALC_TOY_MU_MAX", 2.0),
		Points:        getEnvIntOrDefault("SIGCALC_TOY_POINTS", 20),
		MinRejections: getEnvIntOrDefault("SIGCALC_TOY_MIN_REJECTIONS", 100),
		MaxEvents:     getEnvIntOrDefault("SIGCALC_TOY_MAX_EVENTS", 1_000_000),
		Workers:       getEnvIntOrDefault("SIGCALC_TOY_WORKERS", 4),
	}
}

func loadOutputConfig() *OutputConfig {
	return &OutputConfig{
		Dir: getEnvOrDefault("SIGCALC_OUTPUT_DIR", "."),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Driver: getEnvOrDefault("SIGCALC_DB_DRIVER", "sqlite"),
		DSN:    getEnvOrDefault("SIGCALC_DB_DSN", ""),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func validateConfig(config *Config) error {
	if err := config.SolverOptions().Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Analysis.MuTest < 0 {
		return errors.ConfigInvalid("SIGCALC_MU_TEST must be non-negative")
	}
	toys := config.Toys
	if toys.MuMin < 0 || toys.MuMin > toys.MuMax {
		return errors.ConfigInvalid("toy mu range must satisfy 0 <= SIGCALC_TOY_MU_MIN <= SIGCALC_TOY_MU_MAX")
	}
	if toys.Points < 1 {
		return errors.ConfigInvalid("SIGCALC_TOY_POINTS must be at least 1")
	}
	if toys.MinRejections < 1 || toys.MaxEvents < toys.MinRejections {
		return errors.ConfigInvalid("toy budget must satisfy 1 <= SIGCALC_TOY_MIN_REJECTIONS <= SIGCALC_TOY_MAX_EVENTS")
	}
	if toys.Workers < 1 {
		return errors.ConfigInvalid("SIGCALC_TOY_WORKERS must be at least 1")
	}
	switch config.Database.Driver {
	case "sqlite", "postgres":
	default:
		return errors.ConfigInvalid("SIGCALC_DB_DRIVER must be sqlite or postgres")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUintOrDefault(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
