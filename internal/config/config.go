// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for ptp-ingest. The configuration file is
// optional: with no file, no environment and no flags the defaults reproduce
// the unattended behavior (ingest every camera into the working directory).
// Overrides apply in order defaults -> config file -> environment -> CLI.
package config

import (
	"os"
	"time"
)

// Config is the top-level configuration parsed from a TOML file. All keys are
// flat; the embedded sections only group related fields in Go.
type Config struct {
	OutputConfig
	TransferConfig
	HistoryConfig
	LoggingConfig
	WatchConfig
}

// OutputConfig controls where and how ingested files are placed.
type OutputConfig struct {
	Destination     string `toml:"destination"`
	ZeroPadDates    bool   `toml:"zero_pad_dates"`
	DirPermissions  string `toml:"dir_permissions"`
	FilePermissions string `toml:"file_permissions"`
}

// TransferConfig controls how object bytes are fetched from the camera.
type TransferConfig struct {
	TransferMode     string `toml:"transfer_mode"`
	ChunkSize        string `toml:"chunk_size"`
	MaxWholeTransfer string `toml:"max_whole_transfer"`
	LargeFileWarning string `toml:"large_file_warning"`
	USBTimeout       string `toml:"usb_timeout"`
}

// HistoryConfig controls the SQLite import history.
type HistoryConfig struct {
	History   bool   `toml:"history"`
	HistoryDB string `toml:"history_db"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// WatchConfig controls the hotplug watcher.
type WatchConfig struct {
	WatchSettle string `toml:"watch_settle"`
}

// TransferMode selects how object bytes are fetched.
type TransferMode string

// Transfer modes.
const (
	TransferAuto    TransferMode = "auto"
	TransferWhole   TransferMode = "whole"
	TransferChunked TransferMode = "chunked"
)

// Resolved is the effective configuration with every string value parsed
// into its typed form. It is what the rest of the program consumes.
type Resolved struct {
	ConfigPath string // file the values came from; empty when defaults only

	Destination  string
	ZeroPadDates bool
	DirPerm      os.FileMode
	FilePerm     os.FileMode

	TransferMode     TransferMode
	ChunkSize        int64
	MaxWholeTransfer int64
	LargeFileWarning int64 // 0 = no warning
	USBTimeout       time.Duration

	History   bool
	HistoryDB string

	LogLevel  string
	LogFormat string

	WatchSettle time.Duration
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath  string  // --config flag (empty = use env or default)
	Destination *string // --dest flag
	History     *bool   // --no-history flag
}
