package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that seed defaults. Flags override them.
const (
	EnvExclude = "DSPLIT_EXCLUDE" // comma-separated globs
	EnvLog     = "DSPLIT_LOG"
	EnvColor   = "DSPLIT_COLOR" // auto | always | never
)

// LoadEnv reads an optional .env file from the working directory, then
// applies DSPLIT_* variables and NO_COLOR to cfg. A missing .env is not an
// error; existing process variables win over .env entries.
func LoadEnv(cfg *Config, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load env: %w", err)
	}
	return applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if raw := strings.TrimSpace(getenv(EnvExclude)); raw != "" {
		cfg.Excludes = normalizeExcludes(strings.Split(raw, ","))
	}
	if v := strings.TrimSpace(getenv(EnvLog)); v != "" {
		cfg.LogFile = v
	}
	if v := strings.ToLower(strings.TrimSpace(getenv(EnvColor))); v != "" {
		mode := ColorMode(v)
		switch mode {
		case ColorAuto, ColorAlways, ColorNever:
			cfg.ColorMode = mode
		default:
			return fmt.Errorf("invalid %s %q (use 'auto', 'always' or 'never')", EnvColor, v)
		}
	}
	if getenv("NO_COLOR") != "" {
		cfg.ColorMode = ColorNever
	}
	return nil
}
