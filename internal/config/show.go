package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as annotated TOML, after
// defaults, file, environment and flags have been applied.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	if r.ConfigPath != "" {
		ew.printf("# Effective configuration (file: %s)\n\n", r.ConfigPath)
	} else {
		ew.printf("# Effective configuration (built-in defaults, no config file)\n\n")
	}

	ew.printf("# output\n")
	ew.printf("destination        = %q\n", r.Destination)
	ew.printf("zero_pad_dates     = %t\n", r.ZeroPadDates)
	ew.printf("dir_permissions    = \"%04o\"\n", r.DirPerm)
	ew.printf("file_permissions   = \"%04o\"\n\n", r.FilePerm)

	ew.printf("# transfer\n")
	ew.printf("transfer_mode      = %q\n", r.TransferMode)
	ew.printf("chunk_size         = %q\n", FormatSize(r.ChunkSize))
	ew.printf("max_whole_transfer = %q\n", FormatSize(r.MaxWholeTransfer))
	ew.printf("large_file_warning = %q\n", FormatSize(r.LargeFileWarning))
	ew.printf("usb_timeout        = %q\n\n", formatDuration(r.USBTimeout.String(), r.USBTimeout == 0))

	ew.printf("# history\n")
	ew.printf("history            = %t\n", r.History)
	ew.printf("history_db         = %q\n\n", r.HistoryDB)

	ew.printf("# logging\n")
	ew.printf("log_level          = %q\n", r.LogLevel)
	ew.printf("log_format         = %q\n\n", r.LogFormat)

	ew.printf("# watch\n")
	ew.printf("watch_settle       = %q\n", formatDuration(r.WatchSettle.String(), r.WatchSettle == 0))

	return ew.err
}

// errWriter keeps the first write error; later writes are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func formatDuration(s string, zero bool) string {
	if zero {
		return "0"
	}

	return s
}
