package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

// captureDateLayout is the PTP DateTime core: YYYYMMDDThhmmss.
const captureDateLayout = "20060102T150405"

const bytesPerMiB = 1024 * 1024

// objectMeta is the resolved metadata of one object.
type objectMeta struct {
	Info     *ptp.ObjectInfo
	Folder   bool
	Captured time.Time
}

// SizeMiB is the object size in mebibytes, for reporting.
func (m *objectMeta) SizeMiB() float64 {
	return float64(m.Info.CompressedSize) / bytesPerMiB
}

// parseCaptureDate parses a PTP DateTime. Devices may append tenths of a
// second (".0"), "Z" or a UTC offset; those suffixes are dropped and the
// wall-clock time the camera recorded is kept.
func parseCaptureDate(s string) (time.Time, error) {
	core := s

	if len(s) > len(captureDateLayout) {
		switch s[len(captureDateLayout)] {
		case '.', 'Z', '+', '-':
			core = s[:len(captureDateLayout)]
		}
	}

	t, err := time.Parse(captureDateLayout, core)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing capture date %q: %w", s, err)
	}

	return t, nil
}

// resolveMetadata fetches the object's info and parses its capture date.
// Folders come back with Folder set and no error. largeWarn (0 = off) only
// triggers a warning; large objects are still transferred.
func resolveMetadata(
	ctx context.Context, sess ptp.Session, handle ptp.ObjectHandle, largeWarn int64, logger *slog.Logger,
) (*objectMeta, error) {
	info, err := sess.ObjectInfo(ctx, handle)
	if err != nil {
		return nil, stageErr(KindObject, "object info", err)
	}

	meta := &objectMeta{Info: info}

	if info.IsFolder() {
		meta.Folder = true
		return meta, nil
	}

	meta.Captured, err = parseCaptureDate(strings.TrimSpace(info.CaptureDate))
	if err != nil {
		return meta, stageErr(KindObject, "capture date", err)
	}

	logger.Info("object",
		slog.String("filename", info.Filename),
		slog.String("size_mib", fmt.Sprintf("%.2f", meta.SizeMiB())),
		slog.String("size", humanize.IBytes(uint64(info.CompressedSize))),
		slog.String("captured", meta.Captured.Format("02/01/2006")),
	)

	if largeWarn > 0 && int64(info.CompressedSize) > largeWarn {
		logger.Warn("object exceeds large file threshold, transferring anyway",
			slog.String("filename", info.Filename),
			slog.String("size", humanize.IBytes(uint64(info.CompressedSize))),
			slog.String("threshold", humanize.IBytes(uint64(largeWarn))),
		)
	}

	return meta, nil
}
