// Package config reads calldeck configuration from the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Defaults applied when the environment does not override them.
const (
	DefaultAPIURL = "http://localhost:8000"
)

// Config holds everything the dashboard needs at startup.
type Config struct {
	// APIURL is the base URL of the session/config/summary backend.
	APIURL string
	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string
	// LogJSON switches the logger to JSON output.
	LogJSON bool
	// HistoryDBPath is where the local call log lives.
	HistoryDBPath string
}

// LoadEnv loads a .env file from the working directory if one exists.
// A missing file is not an error; explicit environment always wins.
func LoadEnv() {
	_ = godotenv.Load(".env")
}

// Load builds a Config from the current environment.
func Load() Config {
	cfg := Config{
		APIURL:        DefaultAPIURL,
		LogLevel:      "info",
		HistoryDBPath: defaultHistoryPath(),
	}
	if v := os.Getenv("CALLDECK_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_JSON"); v == "1" || v == "true" {
		cfg.LogJSON = true
	}
	if v := os.Getenv("CALLDECK_HISTORY_DB"); v != "" {
		cfg.HistoryDBPath = v
	}
	return cfg
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "calldeck.sqlite"
	}
	return filepath.Join(dir, "calldeck", "calldeck.sqlite")
}
