package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exitInterrupted is the 128+SIGINT status used when a second signal
// abandons an open camera session.
const exitInterrupted = 130

// errInterrupted is the cancellation cause recorded when the user stops a run.
var errInterrupted = errors.New("interrupted")

// forceExit is replaced in tests.
var forceExit = os.Exit

// interruptContext returns a context canceled with errInterrupted on the
// first SIGINT or SIGTERM. Object transfers run on a non-cancelable context,
// so the current object still completes and the camera session is closed.
// A second signal exits immediately. stop releases the signal handler and
// cancels the context.
func interruptContext(parent context.Context, logger *slog.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("interrupt received, finishing current object",
				slog.String("signal", sig.String()),
			)
			cancel(fmt.Errorf("%w by %s", errInterrupted, sig))
		case <-ctx.Done():
			return
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("second interrupt, abandoning camera session",
				slog.String("signal", sig.String()),
			)
			forceExit(exitInterrupted)
		case <-done:
		}
	}()

	var once sync.Once

	return ctx, func() {
		once.Do(func() {
			close(done)
			cancel(context.Canceled)
		})
	}
}

// interrupted reports whether ctx was canceled by a signal rather than by
// its parent or by stop.
func interrupted(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errInterrupted)
}
