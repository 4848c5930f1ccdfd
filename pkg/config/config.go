// Package config provides TOML (and YAML) configuration for wagerboard.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// MaxLimit is the largest page size the wager API accepts.
const MaxLimit = 100

// Config is the top-level configuration.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	API     APIConfig     `toml:"api" yaml:"api"`
	Table   TableConfig   `toml:"table" yaml:"table"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
	// LogFile receives logs while the TUI owns the terminal.
	LogFile string `toml:"log_file" yaml:"log_file"`
}

// APIConfig locates the wager server.
type APIConfig struct {
	BaseURL string `toml:"base_url" yaml:"base_url"`
	// Cookie is sent as the Cookie header, e.g. "jwt=<token>".
	Cookie  string   `toml:"cookie" yaml:"cookie"`
	Timeout Duration `toml:"timeout" yaml:"timeout"`
}

// TableConfig holds list view defaults.
type TableConfig struct {
	Limit      int    `toml:"limit" yaml:"limit"`
	TimeLayout string `toml:"time_layout" yaml:"time_layout"`
	IDPrefix   string `toml:"id_prefix" yaml:"id_prefix"`
	// PageSizes are the sizes cycled by the page-size key.
	PageSizes []int `toml:"page_sizes" yaml:"page_sizes"`
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error
	if c.Table.Limit <= 0 || c.Table.Limit > MaxLimit {
		errs = append(errs, fmt.Errorf("table.limit %d out of range [1,%d]", c.Table.Limit, MaxLimit))
	}
	for _, n := range c.Table.PageSizes {
		if n <= 0 || n > MaxLimit {
			errs = append(errs, fmt.Errorf("table.page_sizes entry %d out of range [1,%d]", n, MaxLimit))
		}
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is empty"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an http(s) url", c.API.BaseURL))
	}
	if _, err := ParseLevel(c.General.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a log level name to a slog.Level. Empty means info.
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
