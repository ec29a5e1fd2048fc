package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/ptp-ingest/internal/config"
	"github.com/tonimelisma/ptp-ingest/internal/ingest"
)

// usbDevRoot holds one directory per bus and one node per attached device.
const usbDevRoot = "/dev/bus/usb"

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Ingest whenever a USB device is plugged in",
		Long: "Runs one ingest pass at startup and another each time a USB\n" +
			"device appears, after waiting watch_settle for it to enumerate.\n" +
			"Stops on SIGINT or SIGTERM.",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	logger := buildLogger(os.Stderr)

	cleanup, err := writePIDFile(config.DefaultPIDPath())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := interruptContext(cmd.Context(), logger)
	defer stop()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating USB watcher: %w", err)
	}

	w := &fsnotifyWatcher{w: fw}
	defer w.Close()

	if err := addUSBWatches(w, usbDevRoot); err != nil {
		return err
	}

	pass := func(ctx context.Context) error {
		sum, err := ingestOnce(ctx, resolvedCfg, logger)
		if sum != nil {
			printSummary(cmd.ErrOrStderr(), flagQuiet, sum)
		}

		return err
	}

	return watchLoop(ctx, w, resolvedCfg.WatchSettle, pass, logger)
}

// usbWatcher is the subset of fsnotify.Watcher the loop needs.
type usbWatcher interface {
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	Add(name string) error
	Close() error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }
func (f *fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }

// addUSBWatches watches root and every bus directory below it. fsnotify is
// not recursive, so device nodes only show up in the bus directories.
func addUSBWatches(w usbWatcher, root string) error {
	if err := w.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading %s: %w", root, err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		bus := filepath.Join(root, e.Name())
		if err := w.Add(bus); err != nil {
			return fmt.Errorf("watching %s: %w", bus, err)
		}
	}

	return nil
}

// watchLoop runs pass once, then again each time a device node appears and
// settle has elapsed without further arrivals. It returns nil on
// cancellation and the pass error when a session could not be closed.
func watchLoop(
	ctx context.Context, w usbWatcher, settle time.Duration,
	pass func(context.Context) error, logger *slog.Logger,
) error {
	runPass := func() error {
		err := pass(ctx)

		switch {
		case err == nil, errors.Is(err, context.Canceled):
			return nil
		case errors.Is(err, ingest.ErrSessionClose):
			return err
		default:
			logger.Warn("ingest pass failed", slog.String("error", err.Error()))
			return nil
		}
	}

	if err := runPass(); err != nil {
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}

			if !ev.Has(fsnotify.Create) {
				continue
			}

			if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
				if err := w.Add(ev.Name); err != nil {
					logger.Warn("watching new USB bus", slog.String("path", ev.Name), slog.String("error", err.Error()))
				}
			}

			logger.Debug("USB device appeared", slog.String("path", ev.Name))

			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}

			fire = timer.C

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}

			logger.Warn("USB watcher error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil

			if ctx.Err() != nil {
				return nil
			}

			if err := runPass(); err != nil {
				return err
			}
		}
	}
}
