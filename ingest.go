package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/ptp-ingest/internal/config"
	"github.com/tonimelisma/ptp-ingest/internal/history"
	"github.com/tonimelisma/ptp-ingest/internal/ingest"
	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

// openDiscoverer returns the camera source and its cleanup. Tests replace it.
var openDiscoverer = func(cfg *config.Resolved, logger *slog.Logger) (ptp.Discoverer, func() error, error) {
	usb := ptp.NewUSB(cfg.USBTimeout, logger)

	return usb, usb.Close, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(os.Stderr)
	ctx, stop := interruptContext(cmd.Context(), logger)
	defer stop()

	sum, err := ingestOnce(ctx, resolvedCfg, logger)
	if sum != nil {
		printSummary(cmd.ErrOrStderr(), flagQuiet, sum)
	}

	if interrupted(ctx) && errors.Is(err, context.Canceled) {
		logger.Info("interrupted, stopped after the current object")
		return nil
	}

	return err
}

// ingestOnce runs a single pass over all attached devices, recording it in
// the history database when enabled.
func ingestOnce(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (*ingest.Summary, error) {
	disc, closeDisc, err := openDiscoverer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening USB: %w", err)
	}

	defer func() {
		if err := closeDisc(); err != nil {
			logger.Warn("closing USB context", slog.String("error", err.Error()))
		}
	}()

	var (
		store *history.Store
		rec   ingest.Recorder
		runID string
	)

	if cfg.History {
		store, err = history.Open(ctx, cfg.HistoryDB, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		runID, err = store.StartRun(ctx)
		if err != nil {
			return nil, err
		}

		rec = store
	} else {
		runID = uuid.NewString()
	}

	opts, err := ingestOptions(cfg, runID)
	if err != nil {
		return nil, err
	}

	logger.Info("ingest starting",
		slog.String("run_id", runID),
		slog.String("destination", cfg.Destination),
		slog.String("transfer_mode", string(opts.Mode)),
	)

	sum, runErr := ingest.New(disc, opts, rec, logger).Run(ctx)

	if store != nil {
		if err := store.FinishRun(context.WithoutCancel(ctx), sum, runErr); err != nil {
			logger.Warn("recording run in history", slog.String("error", err.Error()))
		}
	}

	return sum, runErr
}

func ingestOptions(cfg *config.Resolved, runID string) (ingest.Options, error) {
	mode, err := ingest.ParseMode(string(cfg.TransferMode))
	if err != nil {
		return ingest.Options{}, err
	}

	return ingest.Options{
		Destination:      cfg.Destination,
		ZeroPadDates:     cfg.ZeroPadDates,
		DirPerm:          cfg.DirPerm,
		FilePerm:         cfg.FilePerm,
		Mode:             mode,
		ChunkSize:        uint32(cfg.ChunkSize),
		MaxWholeTransfer: uint32(cfg.MaxWholeTransfer),
		LargeFileWarning: cfg.LargeFileWarning,
		RunID:            runID,
	}, nil
}

// printSummary reports run totals on w.
func printSummary(w io.Writer, quiet bool, sum *ingest.Summary) {
	statusf(w, quiet, "%d device(s), %d volume(s), %d object(s)\n", sum.Devices, sum.Volumes, sum.Objects)
	statusf(w, quiet, "  transferred: %d (%s)\n", sum.Transferred, humanize.IBytes(uint64(sum.Bytes)))
	statusf(w, quiet, "  already downloaded: %d\n", sum.Duplicates)

	if sum.Folders > 0 {
		statusf(w, quiet, "  folders: %d\n", sum.Folders)
	}

	if sum.Failed > 0 || sum.DevicesSkipped > 0 || sum.VolumesSkipped > 0 {
		statusf(w, quiet, "  failed: %d object(s), %d volume(s) skipped, %d device(s) skipped\n",
			sum.Failed, sum.VolumesSkipped, sum.DevicesSkipped)
	}
}
