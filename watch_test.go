package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/ptp-ingest/internal/ingest"
)

type fakeWatcher struct {
	events chan fsnotify.Event
	errs   chan error

	mu    sync.Mutex
	added []string
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan fsnotify.Event, 8), errs: make(chan error, 8)}
}

func (f *fakeWatcher) Events() <-chan fsnotify.Event { return f.events }
func (f *fakeWatcher) Errors() <-chan error          { return f.errs }
func (f *fakeWatcher) Close() error                  { return nil }

func (f *fakeWatcher) Add(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.added = append(f.added, name)

	return nil
}

func (f *fakeWatcher) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.added...)
}

// passCounter counts ingest passes and signals each one.
type passCounter struct {
	mu    sync.Mutex
	n     int
	done  chan struct{}
	errAt map[int]error
}

func newPassCounter() *passCounter {
	return &passCounter{done: make(chan struct{}, 16), errAt: map[int]error{}}
}

func (p *passCounter) pass(context.Context) error {
	p.mu.Lock()
	p.n++
	err := p.errAt[p.n]
	p.mu.Unlock()

	p.done <- struct{}{}

	return err
}

func (p *passCounter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.n
}

func waitPass(t *testing.T, p *passCounter) {
	t.Helper()

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingest pass did not run")
	}
}

func TestWatchLoop_InitialPassThenOnePerSettledBurst(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newFakeWatcher()
	p := newPassCounter()

	errCh := make(chan error, 1)
	go func() { errCh <- watchLoop(ctx, w, 50*time.Millisecond, p.pass, testLogger(t)) }()

	waitPass(t, p)
	assert.Equal(t, 1, p.count())

	// A burst of device nodes collapses into a single pass.
	for i := range 3 {
		w.events <- fsnotify.Event{Name: fmt.Sprintf("/dev/bus/usb/001/%03d", 10+i), Op: fsnotify.Create}
	}

	waitPass(t, p)
	assert.Equal(t, 2, p.count())

	// Removals do not trigger a pass.
	w.events <- fsnotify.Event{Name: "/dev/bus/usb/001/010", Op: fsnotify.Remove}
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, p.count())

	cancel()
	require.NoError(t, <-errCh)
}

func TestWatchLoop_FatalPassStops(t *testing.T) {
	t.Parallel()

	w := newFakeWatcher()
	p := newPassCounter()
	p.errAt[1] = fmt.Errorf("close session: %w", ingest.ErrSessionClose)

	err := watchLoop(context.Background(), w, time.Millisecond, p.pass, testLogger(t))
	require.ErrorIs(t, err, ingest.ErrSessionClose)
	assert.Equal(t, 1, p.count())
}

func TestWatchLoop_OtherPassErrorsContinue(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newFakeWatcher()
	p := newPassCounter()
	p.errAt[1] = errors.New("libusb: busy")

	errCh := make(chan error, 1)
	go func() { errCh <- watchLoop(ctx, w, time.Millisecond, p.pass, testLogger(t)) }()

	waitPass(t, p)

	w.errs <- errors.New("queue overflow")
	w.events <- fsnotify.Event{Name: "/dev/bus/usb/001/011", Op: fsnotify.Create}

	waitPass(t, p)
	assert.Equal(t, 2, p.count())

	cancel()
	require.NoError(t, <-errCh)
}

func TestWatchLoop_ClosedEventsEnds(t *testing.T) {
	t.Parallel()

	w := newFakeWatcher()
	close(w.events)

	p := newPassCounter()
	require.NoError(t, watchLoop(context.Background(), w, time.Millisecond, p.pass, testLogger(t)))
	assert.Equal(t, 1, p.count())
}

func TestWatchLoop_NewBusDirectoryIsWatched(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := filepath.Join(t.TempDir(), "003")
	require.NoError(t, os.Mkdir(bus, 0o755))

	w := newFakeWatcher()
	p := newPassCounter()

	errCh := make(chan error, 1)
	go func() { errCh <- watchLoop(ctx, w, time.Millisecond, p.pass, testLogger(t)) }()

	waitPass(t, p)
	w.events <- fsnotify.Event{Name: bus, Op: fsnotify.Create}
	waitPass(t, p)

	assert.Contains(t, w.paths(), bus)

	cancel()
	require.NoError(t, <-errCh)
}

func TestAddUSBWatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "001"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "002"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray"), nil, 0o644))

	w := newFakeWatcher()
	require.NoError(t, addUSBWatches(w, root))

	assert.ElementsMatch(t, []string{root, filepath.Join(root, "001"), filepath.Join(root, "002")}, w.paths())
}

func TestAddUSBWatches_MissingRoot(t *testing.T) {
	t.Parallel()

	err := addUSBWatches(newFakeWatcher(), filepath.Join(t.TempDir(), "absent"))
	// The fake accepts any Add; the directory read fails.
	require.Error(t, err)
}
