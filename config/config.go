// Package config loads holoroom settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the settings shared by the server and the local front ends.
// Command-line flags override individual fields after Load.
type Config struct {
	Addr            string        `env:"HOLOROOM_ADDR"             envDefault:":9080"`
	Story           string        `env:"HOLOROOM_STORY"`
	Groups          []string      `env:"HOLOROOM_GROUPS"           envSeparator:"," envDefault:"default,fbtwitter"`
	LogLevel        string        `env:"HOLOROOM_LOG_LEVEL"        envDefault:"info"`
	RoomID          string        `env:"HOLOROOM_ROOM_ID"          envDefault:"holoroom"`
	ShutdownTimeout time.Duration `env:"HOLOROOM_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseLevel maps debug, info, warn or error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
