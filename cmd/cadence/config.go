package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all cadence server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	DBPath     string `json:"db_path"`
	BackendURL string `json:"backend_url"`
	LogLevel   string `json:"log_level"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":4200",
		DBPath:     filepath.Join(cadenceDir(), "cadence.db"),
		BackendURL: "http://localhost:4300",
		LogLevel:   "info",
	}
}

func cadenceDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadence"
	}
	return filepath.Join(home, ".cadence")
}

func settingsPath() string {
	return filepath.Join(cadenceDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("CADENCE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CADENCE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CADENCE_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("CADENCE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
