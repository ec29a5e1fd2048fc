package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Validation range constants.
const (
	minChunkBytes  = 64 * 1024
	maxChunkBytes  = 512 * 1024 * 1024
	octalBase      = 8
	minOctalDigits = 3
	maxOctalDigits = 4
	maxOctalValue  = 0o777
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

var validTransferModes = map[TransferMode]bool{
	TransferAuto: true, TransferWhole: true, TransferChunked: true,
}

// Validate checks all configuration values and returns every error found,
// so a broken file can be fixed in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateOutput(&cfg.OutputConfig)...)
	errs = append(errs, validateTransfer(&cfg.TransferConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateDurationNonNeg("watch_settle", cfg.WatchSettle)...)

	return errors.Join(errs...)
}

func validateOutput(o *OutputConfig) []error {
	var errs []error

	if o.Destination == "" {
		errs = append(errs, errors.New("destination: must not be empty"))
	}

	errs = append(errs, validateOctalPermission("dir_permissions", o.DirPermissions)...)
	errs = append(errs, validateOctalPermission("file_permissions", o.FilePermissions)...)

	return errs
}

func validateTransfer(t *TransferConfig) []error {
	var errs []error

	if !validTransferModes[TransferMode(t.TransferMode)] {
		errs = append(errs, fmt.Errorf("transfer_mode: must be one of auto, whole, chunked; got %q", t.TransferMode))
	}

	chunk, err := ParseSize(t.ChunkSize)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("chunk_size: %w", err))
	case chunk < minChunkBytes || chunk > maxChunkBytes:
		errs = append(errs, fmt.Errorf("chunk_size: must be between 64KiB and 512MiB, got %s", t.ChunkSize))
	}

	whole, err := ParseSize(t.MaxWholeTransfer)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("max_whole_transfer: %w", err))
	case whole == 0:
		errs = append(errs, errors.New(`max_whole_transfer: must be greater than zero; use transfer_mode = "chunked" to always read in chunks`))
	case whole > math.MaxUint32:
		errs = append(errs, fmt.Errorf("max_whole_transfer: must fit in 32 bits, got %s", t.MaxWholeTransfer))
	}

	if _, err := ParseSize(t.LargeFileWarning); err != nil {
		errs = append(errs, fmt.Errorf("large_file_warning: %w", err))
	}

	errs = append(errs, validateDurationNonNeg("usb_timeout", t.USBTimeout)...)

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	return errs
}

func validateOctalPermission(field, value string) []error {
	if value == "" {
		return []error{fmt.Errorf("%s: must not be empty", field)}
	}

	if len(value) < minOctalDigits || len(value) > maxOctalDigits {
		return []error{fmt.Errorf("%s: must be 3 or 4 octal digits, got %q", field, value)}
	}

	n, err := strconv.ParseUint(value, octalBase, 32)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid octal value %q", field, value)}
	}

	if n > maxOctalValue {
		return []error{fmt.Errorf("%s: octal value out of range %q", field, value)}
	}

	return nil
}

// validateDurationNonNeg accepts "0" and any non-negative Go duration.
func validateDurationNonNeg(field, value string) []error {
	if value == "0" {
		return nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return []error{fmt.Errorf("%s: invalid duration %q: %w", field, value, err)}
	}

	if d < 0 {
		return []error{fmt.Errorf("%s: must not be negative, got %q", field, value)}
	}

	return nil
}
