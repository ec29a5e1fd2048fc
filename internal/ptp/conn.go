package ptp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// readChunkSize is the buffer handed to each bulk IN read. libusb splits it
// into packets; a short packet ends the read early.
const readChunkSize = 512 * 1024

// maxEmptyReads bounds consecutive zero-length reads (ZLPs) while waiting for
// a container, so a misbehaving device cannot spin the loop forever.
const maxEmptyReads = 16

// Transport is a pair of bulk endpoints.
type Transport interface {
	// Send writes the whole of p to the bulk OUT endpoint.
	Send(ctx context.Context, p []byte) error
	// Receive reads one bulk IN transfer into p.
	Receive(ctx context.Context, p []byte) (int, error)
}

// conn runs PTP transactions over a Transport.
type conn struct {
	t       Transport
	logger  *slog.Logger
	timeout time.Duration // per transaction; 0 = none

	nextTID uint32
	readBuf []byte
	pending []byte // bytes read past the end of the previous container
}

func newConn(t Transport, timeout time.Duration, logger *slog.Logger) *conn {
	return &conn{
		t:       t,
		logger:  logger,
		timeout: timeout,
		readBuf: make([]byte, readChunkSize),
	}
}

// result is the outcome of one transaction.
type result struct {
	Data   []byte
	Params []uint32
}

// transaction sends a command, collects the optional data phase and the
// response. A non-OK response is returned as *ResponseError alongside the
// (possibly partial) data.
func (c *conn) transaction(ctx context.Context, op uint16, params ...uint32) (*result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	tid := c.nextTID
	c.nextTID++

	cmd, err := encodeCommand(op, tid, params)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("ptp transaction",
		slog.String("op", opName(op)),
		slog.Any("params", params),
		slog.Uint64("tid", uint64(tid)),
	)

	if err := c.t.Send(ctx, cmd); err != nil {
		return nil, fmt.Errorf("ptp: %s: sending command: %w", opName(op), err)
	}

	res := &result{}

	for {
		h, body, err := c.readContainer(ctx)
		if err != nil {
			return nil, fmt.Errorf("ptp: %s: %w", opName(op), err)
		}

		if h.TransactionID != tid {
			return nil, fmt.Errorf("ptp: %s: %w: transaction id %d, want %d",
				opName(op), ErrMalformed, h.TransactionID, tid)
		}

		switch h.Type {
		case containerData:
			res.Data = body
		case containerResponse:
			res.Params = parseParams(body)
			if h.Code != RespOK {
				return res, &ResponseError{Op: op, Code: h.Code, Err: classifyResponse(h.Code)}
			}

			return res, nil
		default:
			return nil, fmt.Errorf("ptp: %s: %w: unexpected container type %d",
				opName(op), ErrMalformed, h.Type)
		}
	}
}

// readContainer reads exactly one container, keeping any surplus bytes for
// the next call.
func (c *conn) readContainer(ctx context.Context) (header, []byte, error) {
	var buf bytes.Buffer
	buf.Write(c.pending)
	c.pending = nil

	empty := 0

	for buf.Len() < headerSize {
		n, err := c.t.Receive(ctx, c.readBuf)
		if err != nil {
			return header{}, nil, fmt.Errorf("reading container header: %w", err)
		}

		if n == 0 {
			empty++
			if empty > maxEmptyReads {
				return header{}, nil, fmt.Errorf("%w: device sent only empty packets", ErrMalformed)
			}

			continue
		}

		buf.Write(c.readBuf[:n])
	}

	h, err := parseHeader(buf.Bytes())
	if err != nil {
		return header{}, nil, err
	}

	if need := int(h.Length) - buf.Len(); need > 0 {
		buf.Grow(need)
	}

	for buf.Len() < int(h.Length) {
		n, err := c.t.Receive(ctx, c.readBuf)
		if err != nil {
			return header{}, nil, fmt.Errorf("reading container body (%d of %d bytes): %w",
				buf.Len(), h.Length, err)
		}

		if n == 0 {
			empty++
			if empty > maxEmptyReads {
				return header{}, nil, fmt.Errorf("%w: container ended after %d of %d bytes",
					ErrMalformed, buf.Len(), h.Length)
			}

			continue
		}

		buf.Write(c.readBuf[:n])
	}

	all := buf.Bytes()
	if len(all) > int(h.Length) {
		c.pending = bytes.Clone(all[h.Length:])
	}

	return h, all[headerSize:h.Length], nil
}
