package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/ptp-ingest/internal/config"
	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(&testLogWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))

	return len(p), nil
}

// stubCamera is a single-volume camera serving whole objects from memory.
type stubCamera struct {
	model    string
	objects  map[ptp.ObjectHandle]ptp.ObjectInfo
	order    []ptp.ObjectHandle
	closeErr error
	released bool
	sessions int
}

func newStubCamera(model string) *stubCamera {
	return &stubCamera{model: model, objects: make(map[ptp.ObjectHandle]ptp.ObjectInfo)}
}

func (c *stubCamera) add(h ptp.ObjectHandle, name, captured string, size uint32) *stubCamera {
	c.objects[h] = ptp.ObjectInfo{
		StorageID:      0x00010001,
		Format:         0x3801,
		CompressedSize: size,
		Filename:       name,
		CaptureDate:    captured,
	}
	c.order = append(c.order, h)

	return c
}

func (c *stubCamera) Info(context.Context) (*ptp.DeviceInfo, error) {
	return &ptp.DeviceInfo{Manufacturer: "Acme", Model: c.model, SerialNumber: "SN1"}, nil
}

func (c *stubCamera) OpenSession(context.Context) (ptp.Session, error) {
	c.sessions++
	return &stubSession{cam: c}, nil
}

func (c *stubCamera) Close() error {
	c.released = true
	return nil
}

type stubSession struct {
	cam *stubCamera
}

func (s *stubSession) StorageIDs(context.Context) ([]ptp.StorageID, error) {
	return []ptp.StorageID{0x00010001}, nil
}

func (s *stubSession) ObjectHandles(context.Context, ptp.StorageID) ([]ptp.ObjectHandle, error) {
	return s.cam.order, nil
}

func (s *stubSession) ObjectInfo(_ context.Context, h ptp.ObjectHandle) (*ptp.ObjectInfo, error) {
	info, ok := s.cam.objects[h]
	if !ok {
		return nil, ptp.ErrInvalidObjectHandle
	}

	return &info, nil
}

func (s *stubSession) GetObject(_ context.Context, h ptp.ObjectHandle) ([]byte, error) {
	return bytes.Repeat([]byte{0xAB}, int(s.cam.objects[h].CompressedSize)), nil
}

func (s *stubSession) GetPartialObject(context.Context, ptp.ObjectHandle, uint32, uint32) ([]byte, error) {
	return nil, ptp.ErrPartialUnsupported
}

func (s *stubSession) SupportsPartial() bool { return false }

func (s *stubSession) Close(context.Context) error { return s.cam.closeErr }

type stubDiscoverer struct {
	cams []*stubCamera
}

func (d *stubDiscoverer) Discover(context.Context) ([]ptp.Device, error) {
	out := make([]ptp.Device, len(d.cams))
	for i, c := range d.cams {
		out[i] = c
	}

	return out, nil
}

// useStubCameras swaps openDiscoverer for the duration of the test.
func useStubCameras(t *testing.T, cams ...*stubCamera) {
	t.Helper()

	old := openDiscoverer
	openDiscoverer = func(*config.Resolved, *slog.Logger) (ptp.Discoverer, func() error, error) {
		return &stubDiscoverer{cams: cams}, func() error { return nil }, nil
	}

	t.Cleanup(func() { openDiscoverer = old })
}

// writeTestConfig writes a config file into a temp dir and returns its path
// together with the destination and history paths it names.
func writeTestConfig(t *testing.T, extra string) (cfgPath, dest, historyDB string) {
	t.Helper()

	dir := t.TempDir()
	dest = filepath.Join(dir, "photos")
	historyDB = filepath.Join(dir, "state", "history.db")
	cfgPath = filepath.Join(dir, "config.toml")

	content := "destination = \"" + dest + "\"\n" +
		"history_db = \"" + historyDB + "\"\n" +
		"log_level = \"error\"\n" + extra

	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return cfgPath, dest, historyDB
}

// resetGlobals restores package-level flag state after a test.
func resetGlobals(t *testing.T) {
	t.Helper()

	oldCfg := resolvedCfg
	oldConfigPath, oldVerbose, oldQuiet := flagConfigPath, flagVerbose, flagQuiet
	oldDest, oldNoHistory := flagDest, flagNoHistory

	t.Cleanup(func() {
		resolvedCfg = oldCfg
		flagConfigPath, flagVerbose, flagQuiet = oldConfigPath, oldVerbose, oldQuiet
		flagDest, flagNoHistory = oldDest, oldNoHistory
	})
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}
