package main

import (
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/go-errors/errors"
	"go.yaml.in/yaml/v3"
)

type config struct {
	Workers    int      `yaml:"workers"`
	OutputDir  string   `yaml:"output_dir"`
	LogLevel   string   `yaml:"log_level"`
	Extensions []string `yaml:"extensions"`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func defaultConfig() config {
	return config{
		Workers:  runtime.NumCPU(),
		LogLevel: "info",
	}
}

// loadConfig reads the YAML file at path. A missing path yields the
// defaults, invalid values are replaced by their default and logged.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, 0)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WrapPrefix(err, "parsing "+path, 0)
	}

	defaults := defaultConfig()
	if cfg.Workers <= 0 {
		slog.Warn("invalid workers in config, using default", "workers", cfg.Workers, "default", defaults.Workers)
		cfg.Workers = defaults.Workers
	}
	if level, ok := normalizeLevel(cfg.LogLevel); ok {
		cfg.LogLevel = level
	} else {
		slog.Warn("unknown log_level in config, using default", "log_level", cfg.LogLevel, "default", defaults.LogLevel)
		cfg.LogLevel = defaults.LogLevel
	}
	cfg.Extensions = normalizeExtensions(cfg.Extensions)
	return cfg, nil
}

func normalizeExtensions(extensions []string) []string {
	normalized := []string{}
	for _, extension := range extensions {
		extension = strings.ToLower(strings.TrimSpace(extension))
		if extension == "" {
			continue
		}
		if !strings.HasPrefix(extension, ".") {
			extension = "." + extension
		}
		normalized = append(normalized, extension)
	}
	return normalized
}

// wants reports whether path passes the extension filter, an empty filter
// takes everything.
func (c config) wants(path string) bool {
	if len(c.Extensions) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, extension := range c.Extensions {
		if strings.HasSuffix(lower, extension) {
			return true
		}
	}
	return false
}

func (c config) level() slog.Level {
	if level, ok := logLevels[c.LogLevel]; ok {
		return level
	}
	return slog.LevelInfo
}

// normalizeLevel lower-cases and trims a level name and reports whether it
// is one of logLevels.
func normalizeLevel(value string) (string, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	_, ok := logLevels[value]
	return value, ok
}
