package ptp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// sessionID is the ID this package opens sessions with. One session per
// device at a time, so a constant is enough.
const sessionID uint32 = 1

// Camera is a Device speaking PTP over a Transport.
type Camera struct {
	conn    *conn
	release func() error
	logger  *slog.Logger

	info    *DeviceInfo
	session *cameraSession
}

// NewCamera wraps a transport. release is called by Close to free the
// underlying handle; it may be nil.
func NewCamera(t Transport, release func() error, timeout time.Duration, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}

	return &Camera{
		conn:    newConn(t, timeout, logger),
		release: release,
		logger:  logger,
	}
}

// Info returns the device information dataset. The result is cached.
func (c *Camera) Info(ctx context.Context) (*DeviceInfo, error) {
	if c.info != nil {
		return c.info, nil
	}

	res, err := c.conn.transaction(ctx, OpGetDeviceInfo)
	if err != nil {
		return nil, err
	}

	info, err := decodeDeviceInfo(res.Data)
	if err != nil {
		return nil, err
	}

	c.info = info

	return info, nil
}

// OpenSession opens the device's single session. A device that reports the
// session as already open (left over from a crashed run) is accepted.
func (c *Camera) OpenSession(ctx context.Context) (Session, error) {
	if c.session != nil && !c.session.closed {
		return nil, errors.New("ptp: session already open on this device")
	}

	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}

	// OpenSession always uses transaction ID 0; the session's first
	// transaction is 1.
	c.conn.nextTID = 0

	if _, err := c.conn.transaction(ctx, OpOpenSession, sessionID); err != nil {
		var respErr *ResponseError
		if !errors.As(err, &respErr) || respErr.Code != RespSessionAlreadyOpen {
			return nil, err
		}

		c.logger.Warn("device reports session already open, reusing it",
			slog.String("device", info.String()),
		)
	}

	c.session = &cameraSession{
		cam:     c,
		partial: info.Supports(OpGetPartialObject),
	}

	return c.session, nil
}

// Close releases the device handle.
func (c *Camera) Close() error {
	if c.release == nil {
		return nil
	}

	return c.release()
}

type cameraSession struct {
	cam     *Camera
	partial bool
	closed  bool
}

func (s *cameraSession) run(ctx context.Context, op uint16, params ...uint32) (*result, error) {
	if s.closed {
		return nil, fmt.Errorf("ptp: %s: %w", opName(op), ErrSessionNotOpen)
	}

	return s.cam.conn.transaction(ctx, op, params...)
}

func (s *cameraSession) StorageIDs(ctx context.Context) ([]StorageID, error) {
	res, err := s.run(ctx, OpGetStorageIDs)
	if err != nil {
		return nil, err
	}

	raw, err := decodeUint32Array(res.Data)
	if err != nil {
		return nil, err
	}

	ids := make([]StorageID, len(raw))
	for i, v := range raw {
		ids[i] = StorageID(v)
	}

	return ids, nil
}

// ObjectHandles lists every object of every format on the storage volume,
// folders included.
func (s *cameraSession) ObjectHandles(ctx context.Context, storage StorageID) ([]ObjectHandle, error) {
	const allFormats, allParents = 0, 0

	res, err := s.run(ctx, OpGetObjectHandles, uint32(storage), allFormats, allParents)
	if err != nil {
		return nil, err
	}

	raw, err := decodeUint32Array(res.Data)
	if err != nil {
		return nil, err
	}

	handles := make([]ObjectHandle, len(raw))
	for i, v := range raw {
		handles[i] = ObjectHandle(v)
	}

	return handles, nil
}

func (s *cameraSession) ObjectInfo(ctx context.Context, handle ObjectHandle) (*ObjectInfo, error) {
	res, err := s.run(ctx, OpGetObjectInfo, uint32(handle))
	if err != nil {
		return nil, err
	}

	return decodeObjectInfo(res.Data)
}

func (s *cameraSession) GetObject(ctx context.Context, handle ObjectHandle) ([]byte, error) {
	res, err := s.run(ctx, OpGetObject, uint32(handle))
	if err != nil {
		return nil, err
	}

	return res.Data, nil
}

func (s *cameraSession) GetPartialObject(
	ctx context.Context, handle ObjectHandle, offset, maxLen uint32,
) ([]byte, error) {
	if !s.partial {
		return nil, ErrPartialUnsupported
	}

	res, err := s.run(ctx, OpGetPartialObject, uint32(handle), offset, maxLen)
	if err != nil {
		return nil, err
	}

	return res.Data, nil
}

func (s *cameraSession) SupportsPartial() bool {
	return s.partial
}

// Close ends the session. The session is marked closed even when the device
// rejects the request, so it is never reused.
func (s *cameraSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}

	_, err := s.cam.conn.transaction(ctx, OpCloseSession)
	s.closed = true

	return err
}
