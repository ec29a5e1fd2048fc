package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

// testLogger returns a debug-level logger that writes to t.Log.
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

// capturingLogger records log output so tests can assert on messages.
type capturingLogger struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *capturingLogger) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buf.Write(p)
}

func (c *capturingLogger) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buf.String()
}

func (c *capturingLogger) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(c, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var errFake = errors.New("fake device failure")

// fakeObject is one entry on a fake volume.
type fakeObject struct {
	info    ptp.ObjectInfo
	data    []byte
	infoErr error
	getErr  error
}

// photo builds a file object whose data is size bytes of a repeating pattern.
func photo(name, captured string, size int) *fakeObject {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}

	return &fakeObject{
		info: ptp.ObjectInfo{
			Format:         0x3801,
			CompressedSize: uint32(size),
			Filename:       name,
			CaptureDate:    captured,
		},
		data: data,
	}
}

func folder(name string) *fakeObject {
	return &fakeObject{info: ptp.ObjectInfo{Format: ptp.FormatAssociation, Filename: name}}
}

type partialCall struct {
	handle ptp.ObjectHandle
	offset uint32
	maxLen uint32
}

// fakeSession serves objects from memory and records every data call.
type fakeSession struct {
	volumes    []ptp.StorageID
	handles    map[ptp.StorageID][]ptp.ObjectHandle
	objects    map[ptp.ObjectHandle]*fakeObject
	partial    bool
	storageErr error
	handlesErr map[ptp.StorageID]error
	closeErr   error

	// shortBy makes every partial read return this many bytes less than
	// requested, when that many remain.
	shortBy uint32

	// onObject runs before each ObjectInfo call.
	onObject func(ptp.ObjectHandle)

	infoCalls    []ptp.ObjectHandle
	getCalls     []ptp.ObjectHandle
	partialCalls []partialCall
	closed       bool
	closeCalls   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		handles:    make(map[ptp.StorageID][]ptp.ObjectHandle),
		objects:    make(map[ptp.ObjectHandle]*fakeObject),
		handlesErr: make(map[ptp.StorageID]error),
		partial:    true,
	}
}

// add places obj on volume storage under handle.
func (s *fakeSession) add(storage ptp.StorageID, handle ptp.ObjectHandle, obj *fakeObject) *fakeSession {
	if _, ok := s.handles[storage]; !ok {
		s.volumes = append(s.volumes, storage)
	}

	s.handles[storage] = append(s.handles[storage], handle)
	obj.info.StorageID = storage
	s.objects[handle] = obj

	return s
}

func (s *fakeSession) StorageIDs(context.Context) ([]ptp.StorageID, error) {
	if s.storageErr != nil {
		return nil, s.storageErr
	}

	return s.volumes, nil
}

func (s *fakeSession) ObjectHandles(_ context.Context, storage ptp.StorageID) ([]ptp.ObjectHandle, error) {
	if err := s.handlesErr[storage]; err != nil {
		return nil, err
	}

	return s.handles[storage], nil
}

func (s *fakeSession) ObjectInfo(_ context.Context, h ptp.ObjectHandle) (*ptp.ObjectInfo, error) {
	s.infoCalls = append(s.infoCalls, h)

	if s.onObject != nil {
		s.onObject(h)
	}

	obj, ok := s.objects[h]
	if !ok {
		return nil, ptp.ErrInvalidObjectHandle
	}

	if obj.infoErr != nil {
		return nil, obj.infoErr
	}

	info := obj.info

	return &info, nil
}

func (s *fakeSession) GetObject(_ context.Context, h ptp.ObjectHandle) ([]byte, error) {
	s.getCalls = append(s.getCalls, h)

	obj, ok := s.objects[h]
	if !ok {
		return nil, ptp.ErrInvalidObjectHandle
	}

	if obj.getErr != nil {
		return nil, obj.getErr
	}

	return bytes.Clone(obj.data), nil
}

func (s *fakeSession) GetPartialObject(_ context.Context, h ptp.ObjectHandle, offset, maxLen uint32) ([]byte, error) {
	s.partialCalls = append(s.partialCalls, partialCall{handle: h, offset: offset, maxLen: maxLen})

	if !s.partial {
		return nil, ptp.ErrPartialUnsupported
	}

	obj, ok := s.objects[h]
	if !ok {
		return nil, ptp.ErrInvalidObjectHandle
	}

	if obj.getErr != nil {
		return nil, obj.getErr
	}

	if int(offset) >= len(obj.data) {
		return nil, nil
	}

	end := min(uint64(offset)+uint64(maxLen), uint64(len(obj.data)))
	if s.shortBy > 0 && end-uint64(offset) > uint64(s.shortBy) {
		end -= uint64(s.shortBy)
	}

	return bytes.Clone(obj.data[offset:end]), nil
}

func (s *fakeSession) SupportsPartial() bool {
	return s.partial
}

func (s *fakeSession) Close(context.Context) error {
	s.closeCalls++
	s.closed = true

	return s.closeErr
}

// fakeDevice hands out one fakeSession.
type fakeDevice struct {
	info    ptp.DeviceInfo
	infoErr error
	openErr error
	session *fakeSession
	opens   int
	closed  bool
}

func newFakeDevice(model string, sess *fakeSession) *fakeDevice {
	return &fakeDevice{
		info:    ptp.DeviceInfo{Manufacturer: "Acme", Model: model, SerialNumber: "SN-" + model},
		session: sess,
	}
}

func (d *fakeDevice) Info(context.Context) (*ptp.DeviceInfo, error) {
	if d.infoErr != nil {
		return nil, d.infoErr
	}

	info := d.info

	return &info, nil
}

func (d *fakeDevice) OpenSession(context.Context) (ptp.Session, error) {
	d.opens++

	if d.openErr != nil {
		return nil, d.openErr
	}

	return d.session, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

type fakeDiscoverer struct {
	devices []*fakeDevice
	err     error
}

func (f *fakeDiscoverer) Discover(context.Context) ([]ptp.Device, error) {
	if f.err != nil {
		return nil, f.err
	}

	out := make([]ptp.Device, len(f.devices))
	for i, d := range f.devices {
		out[i] = d
	}

	return out, nil
}

// memRecorder keeps records in memory.
type memRecorder struct {
	records []Record
	err     error
}

func (m *memRecorder) Record(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return m.err
}
