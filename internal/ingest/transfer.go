package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

// DefaultChunkSize is the partial-read size used when none is configured.
const DefaultChunkSize uint32 = 15 * 1024 * 1024

// Mode selects how object bytes are fetched.
type Mode string

// Transfer modes.
const (
	// ModeAuto fetches objects up to MaxWhole in one call and larger objects
	// in chunks, falling back to one call when partial reads are unsupported.
	ModeAuto Mode = "auto"
	// ModeWhole always fetches with a single call.
	ModeWhole Mode = "whole"
	// ModeChunked always uses partial reads when the device supports them.
	ModeChunked Mode = "chunked"
)

// ParseMode converts a configured mode name; unknown names are an error.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeAuto, ModeWhole, ModeChunked:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("ingest: unknown transfer mode %q", s)
	}
}

// Fetcher retrieves object bytes from a session.
type Fetcher struct {
	Mode      Mode
	ChunkSize uint32
	MaxWhole  uint32
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher. Zero chunkSize or maxWhole use
// DefaultChunkSize.
func NewFetcher(mode Mode, chunkSize, maxWhole uint32, logger *slog.Logger) *Fetcher {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}

	if maxWhole == 0 {
		maxWhole = DefaultChunkSize
	}

	return &Fetcher{Mode: mode, ChunkSize: chunkSize, MaxWhole: maxWhole, logger: logger}
}

// useChunks decides the strategy for one object.
func (f *Fetcher) useChunks(sess ptp.Session, size uint32) bool {
	switch f.Mode {
	case ModeWhole:
		return false
	case ModeChunked:
		if !sess.SupportsPartial() {
			f.logger.Debug("partial reads unsupported, fetching whole object")
			return false
		}

		return true
	default:
		return size > f.MaxWhole && sess.SupportsPartial()
	}
}

// Fetch returns exactly size bytes of the object or an error. A length
// mismatch is reported as ErrSizeMismatch.
func (f *Fetcher) Fetch(ctx context.Context, sess ptp.Session, handle ptp.ObjectHandle, size uint32) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if f.useChunks(sess, size) {
		data, err = f.fetchChunked(ctx, sess, handle, size)
	} else {
		data, err = sess.GetObject(ctx, handle)
	}

	if err != nil {
		return nil, err
	}

	if uint64(len(data)) != uint64(size) {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, len(data), size)
	}

	return data, nil
}

// fetchChunked issues partial reads of at most ChunkSize bytes at increasing
// offsets and appends each chunk in order. The offset advances by the bytes
// actually received.
func (f *Fetcher) fetchChunked(
	ctx context.Context, sess ptp.Session, handle ptp.ObjectHandle, size uint32,
) ([]byte, error) {
	buf := make([]byte, 0, size)

	var offset uint32

	for offset < size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		want := min(f.ChunkSize, size-offset)

		chunk, err := sess.GetPartialObject(ctx, handle, offset, want)
		if err != nil {
			return nil, fmt.Errorf("reading %d bytes at offset %d: %w", want, offset, err)
		}

		if len(chunk) == 0 {
			return nil, fmt.Errorf("%w: device returned no data at offset %d of %d", ErrSizeMismatch, offset, size)
		}

		if uint64(len(chunk)) > uint64(want) {
			return nil, fmt.Errorf("%w: device returned %d bytes for a %d byte request at offset %d",
				ErrSizeMismatch, len(chunk), want, offset)
		}

		f.logger.Debug("chunk received",
			slog.Uint64("offset", uint64(offset)),
			slog.Int("bytes", len(chunk)),
			slog.Uint64("size", uint64(size)),
		)

		buf = append(buf, chunk...)
		offset += uint32(len(chunk))
	}

	return buf, nil
}
