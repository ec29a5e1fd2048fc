package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	configFilePermissions = 0o644
	configDirPermissions  = 0o755
)

// ErrConfigExists is returned by WriteDefault when the file is already there.
var ErrConfigExists = errors.New("config: file already exists")

// configTemplate lists every key commented out at its default value.
const configTemplate = `# ptp-ingest configuration
# Every key is optional; the commented values are the defaults.

# Root of the {year}/{month}/{day} tree.
# destination = "."

# Pad month and day to two digits (2023/06/05 instead of 2023/6/5).
# zero_pad_dates = false

# dir_permissions = "0755"
# file_permissions = "0644"

# auto: one GetObject call up to max_whole_transfer, chunks above it.
# whole: always one call. chunked: always partial reads when supported.
# max_whole_transfer must be greater than zero.
# transfer_mode = "auto"
# chunk_size = "15MiB"
# max_whole_transfer = "15MiB"

# Log a warning for objects larger than this ("0" disables). They are
# still transferred.
# large_file_warning = "0"

# Per-transaction USB timeout ("0" waits indefinitely).
# usb_timeout = "0"

# Record every run in an SQLite database.
# history = true
# history_db = "~/.local/share/ptp-ingest/history.db"

# log_level: debug, info, warn, error. log_format: auto, text, json.
# log_level = "info"
# log_format = "auto"

# Delay after a USB device appears before "watch" starts a pass.
# watch_settle = "3s"
`

// WriteDefault creates path (and its directory) holding the commented
// default template. An existing file is never overwritten.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, configFilePermissions)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	if _, err := f.WriteString(configTemplate); err != nil {
		f.Close()
		return fmt.Errorf("writing config file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing config file: %w", err)
	}

	return nil
}
