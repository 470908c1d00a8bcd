package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"emissions-mcp/internal/emissions"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	LogDir              string
	PlansDir            string
	StoreDriver         string
	SQLitePath          string
	DefaultUnit         emissions.Unit
	MetricsAddr         string
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	return fromEnv(exeDir)
}

func fromEnv(exeDir string) (*AppConfig, error) {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	logDir := filepath.Join(dataPath, "logs")
	plansDir := filepath.Join(dataPath, "plans")

	// Ensure directories exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", logDir).Msg("Failed to create log directory")
	}

	driver := getEnv("STORE_DRIVER", DriverSQLite)
	switch driver {
	case DriverSQLite, DriverFile:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", driver, DriverSQLite, DriverFile)
	}

	unit, err := emissions.ParseUnit(getEnv("DEFAULT_GRANULARITY", string(emissions.Day)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_GRANULARITY: %w", err)
	}

	cfg := &AppConfig{
		DataPath:            dataPath,
		LogDir:              logDir,
		PlansDir:            plansDir,
		StoreDriver:         driver,
		SQLitePath:          getEnv("SQLITE_PATH", filepath.Join(dataPath, "emissions.db")),
		DefaultUnit:         unit,
		MetricsAddr:         getEnv("METRICS_ADDR", ""),
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
