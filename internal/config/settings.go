package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings configures the process around the simulation.
type Settings struct {
	DBPath        string
	Port          int
	Seed          int64 // 0 = random
	TuningPath    string
	LevelPath     string
	AdminKey      string // Bearer token for mutating API calls. Empty = disabled.
	SnapshotDir   string // Compressed snapshot directory. Empty = DB saves only.
	AutosaveEvery time.Duration
	LogLevel      slog.Level
}

// DefaultSettings returns the settings used when no environment is set.
func DefaultSettings() Settings {
	return Settings{
		DBPath:        "data/kittens.db",
		Port:          8080,
		AutosaveEvery: time.Minute,
		LogLevel:      slog.LevelInfo,
	}
}

// SettingsFromEnv overlays KITTEN_* environment variables on the defaults.
func SettingsFromEnv() (Settings, error) {
	return settingsFrom(os.LookupEnv)
}

func settingsFrom(lookup func(string) (string, bool)) (Settings, error) {
	s := DefaultSettings()

	if v, ok := lookup("KITTEN_DB"); ok && v != "" {
		s.DBPath = v
	}
	if v, ok := lookup("KITTEN_PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("KITTEN_PORT: %w", err)
		}
		s.Port = p
	}
	if v, ok := lookup("KITTEN_SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return s, fmt.Errorf("KITTEN_SEED: %w", err)
		}
		s.Seed = seed
	}
	if v, ok := lookup("KITTEN_TUNING"); ok {
		s.TuningPath = v
	}
	if v, ok := lookup("KITTEN_LEVEL"); ok {
		s.LevelPath = v
	}
	if v, ok := lookup("KITTEN_ADMIN_KEY"); ok {
		s.AdminKey = v
	}
	if v, ok := lookup("KITTEN_SNAPSHOT_DIR"); ok {
		s.SnapshotDir = v
	}
	if v, ok := lookup("KITTEN_AUTOSAVE"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("KITTEN_AUTOSAVE: %w", err)
		}
		s.AutosaveEvery = d
	}
	if v, ok := lookup("KITTEN_LOG_LEVEL"); ok && v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return s, fmt.Errorf("KITTEN_LOG_LEVEL: %w", err)
		}
		s.LogLevel = lvl
	}
	return s, nil
}
