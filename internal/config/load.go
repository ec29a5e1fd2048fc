package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns the
// defaults. The second result reports whether a file was read.
func LoadOrDefault(path string) (*Config, bool, error) {
	if path == "" {
		return DefaultConfig(), false, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), false, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}

	return cfg, true, nil
}

// Resolve loads configuration and applies the override chain
// defaults -> config file -> environment -> CLI flags, returning typed values.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath

		// An explicitly named file must exist.
		if _, err := os.Stat(cfgPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", cfgPath, err)
		}
	}

	cfg, fromFile, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.Destination != "" {
		cfg.Destination = env.Destination
	}

	if cli.Destination != nil {
		cfg.Destination = *cli.Destination
	}

	if cli.History != nil {
		cfg.History = *cli.History
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	if fromFile {
		resolved.ConfigPath = cfgPath
	}

	return resolved, nil
}

// resolve converts a validated Config into typed values.
func resolve(cfg *Config) (*Resolved, error) {
	r := &Resolved{
		Destination:  expandTilde(cfg.Destination),
		ZeroPadDates: cfg.ZeroPadDates,
		TransferMode: TransferMode(cfg.TransferMode),
		History:      cfg.History,
		HistoryDB:    expandTilde(cfg.HistoryDB),
		LogLevel:     cfg.LogLevel,
		LogFormat:    cfg.LogFormat,
	}

	if r.HistoryDB == "" {
		r.HistoryDB = DefaultHistoryPath()
	}

	var errs []error

	r.DirPerm, errs = appendPerm(errs, cfg.DirPermissions)
	r.FilePerm, errs = appendPerm(errs, cfg.FilePermissions)
	r.ChunkSize, errs = appendSize(errs, cfg.ChunkSize)
	r.MaxWholeTransfer, errs = appendSize(errs, cfg.MaxWholeTransfer)
	r.LargeFileWarning, errs = appendSize(errs, cfg.LargeFileWarning)
	r.USBTimeout, errs = appendDuration(errs, cfg.USBTimeout)
	r.WatchSettle, errs = appendDuration(errs, cfg.WatchSettle)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("resolving config: %w", err)
	}

	return r, nil
}

func appendPerm(errs []error, s string) (os.FileMode, []error) {
	n, err := strconv.ParseUint(s, octalBase, 32)
	if err != nil {
		return 0, append(errs, err)
	}

	return os.FileMode(n), errs
}

func appendSize(errs []error, s string) (int64, []error) {
	n, err := ParseSize(s)
	if err != nil {
		return 0, append(errs, err)
	}

	return n, errs
}

func appendDuration(errs []error, s string) (time.Duration, []error) {
	if s == "0" {
		return 0, errs
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, append(errs, err)
	}

	return d, errs
}
