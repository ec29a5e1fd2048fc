package ptp

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"testing"
	"unicode/utf16"
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

// datasetWriter builds PTP datasets for fixtures.
type datasetWriter struct {
	b []byte
}

func (w *datasetWriter) u8(v uint8) *datasetWriter {
	w.b = append(w.b, v)
	return w
}

func (w *datasetWriter) u16(v uint16) *datasetWriter {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
	return w
}

func (w *datasetWriter) u32(v uint32) *datasetWriter {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
	return w
}

func (w *datasetWriter) str(s string) *datasetWriter {
	if s == "" {
		return w.u8(0)
	}

	units := append(utf16.Encode([]rune(s)), 0)
	w.u8(uint8(len(units)))

	for _, u := range units {
		w.u16(u)
	}

	return w
}

func (w *datasetWriter) u16s(vs ...uint16) *datasetWriter {
	w.u32(uint32(len(vs)))
	for _, v := range vs {
		w.u16(v)
	}

	return w
}

func (w *datasetWriter) u32s(vs ...uint32) *datasetWriter {
	w.u32(uint32(len(vs)))
	for _, v := range vs {
		w.u32(v)
	}

	return w
}

func deviceInfoFixture(ops ...uint16) []byte {
	w := &datasetWriter{}
	w.u16(100).u32(6).u16(100).str("vendor ext").u16(0)
	w.u16s(ops...)
	w.u16s(0x4002).u16s(0x5001).u16s().u16s(0x3801)
	w.str("Canon Inc.").str("Canon EOS R6").str("1-1.6.0").str("0123456789")

	return w.b
}

func objectInfoFixture(format uint16, size uint32, name, captured string) []byte {
	w := &datasetWriter{}
	w.u32(0x00010001).u16(format).u16(0).u32(size)
	w.u16(0x3808).u32(9000).u32(160).u32(120).u32(6000).u32(4000).u32(24)
	w.u32(0x42).u16(0).u32(0).u32(7)
	w.str(name).str(captured).str(captured).str("")

	return w.b
}

// handlerFunc answers one operation with an optional data payload and a
// response code.
type handlerFunc func(op uint16, params []uint32) (data []byte, code uint16)

// fakeResponder is a Transport backed by an in-process PTP responder. Each
// container is delivered in reads of at most packet bytes; with merge set,
// the data and response containers are concatenated before splitting.
type fakeResponder struct {
	handle handlerFunc
	packet int
	merge  bool

	commands []recordedCommand
	outbox   [][]byte
	sendErr  error
}

type recordedCommand struct {
	Op     uint16
	TID    uint32
	Params []uint32
}

func (f *fakeResponder) Send(_ context.Context, p []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}

	h, err := parseHeader(p)
	if err != nil {
		return err
	}

	params := parseParams(p[headerSize:h.Length])
	f.commands = append(f.commands, recordedCommand{Op: h.Code, TID: h.TransactionID, Params: params})

	data, code := f.handle(h.Code, params)

	var stream []byte

	if data != nil {
		dc := make([]byte, headerSize+len(data))
		putHeader(dc, header{Length: uint32(len(dc)), Type: containerData, Code: h.Code, TransactionID: h.TransactionID})
		copy(dc[headerSize:], data)
		stream = append(stream, dc...)

		if !f.merge {
			f.enqueue(stream)
			stream = nil
		}
	}

	rc := make([]byte, headerSize)
	putHeader(rc, header{Length: headerSize, Type: containerResponse, Code: code, TransactionID: h.TransactionID})
	stream = append(stream, rc...)
	f.enqueue(stream)

	return nil
}

func (f *fakeResponder) enqueue(b []byte) {
	size := f.packet
	if size <= 0 {
		size = len(b)
	}

	for len(b) > 0 {
		n := min(size, len(b))
		f.outbox = append(f.outbox, b[:n])
		b = b[n:]
	}
}

func (f *fakeResponder) Receive(_ context.Context, p []byte) (int, error) {
	if len(f.outbox) == 0 {
		return 0, errors.New("fake responder: nothing to read")
	}

	next := f.outbox[0]
	n := copy(p, next)

	if n < len(next) {
		f.outbox[0] = next[n:]
	} else {
		f.outbox = f.outbox[1:]
	}

	return n, nil
}
