package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tonimelisma/ptp-ingest/internal/ptp"
)

// Outcome is the result of processing one object.
type Outcome string

// Object outcomes.
const (
	OutcomeTransferred Outcome = "transferred"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeFolder      Outcome = "folder"
	OutcomeFailed      Outcome = "failed"
)

// Record describes one processed object for the import history.
type Record struct {
	RunID      string
	Device     string
	Serial     string
	Storage    ptp.StorageID
	Handle     ptp.ObjectHandle
	Filename   string
	Path       string
	Size       int64
	CapturedAt time.Time
	Outcome    Outcome
	Err        string
}

// Recorder persists object records. A failing Recorder never fails an object.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Options configures a run.
type Options struct {
	Destination      string
	ZeroPadDates     bool
	DirPerm          os.FileMode
	FilePerm         os.FileMode
	Mode             Mode
	ChunkSize        uint32
	MaxWholeTransfer uint32
	LargeFileWarning int64
	RunID            string
}

// Summary counts what a run did.
type Summary struct {
	RunID          string
	Devices        int // sessions whose volumes were walked
	DevicesSkipped int // failed before any volume was walked
	Volumes        int
	VolumesSkipped int
	Objects        int
	Transferred    int
	Duplicates     int
	Folders        int
	Failed         int
	Bytes          int64
}

// Ingester drives the device, volume, object pipeline.
type Ingester struct {
	discoverer ptp.Discoverer
	placer     *Placer
	fetcher    *Fetcher
	filePerm   os.FileMode
	largeWarn  int64
	runID      string
	recorder   Recorder
	logger     *slog.Logger
}

// New creates an Ingester. recorder may be nil.
func New(discoverer ptp.Discoverer, opts Options, recorder Recorder, logger *slog.Logger) *Ingester {
	dest := opts.Destination
	if dest == "" {
		dest = "."
	}

	filePerm := opts.FilePerm
	if filePerm == 0 {
		filePerm = 0o644
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}

	return &Ingester{
		discoverer: discoverer,
		placer:     NewPlacer(dest, opts.ZeroPadDates, opts.DirPerm, logger),
		fetcher:    NewFetcher(mode, opts.ChunkSize, opts.MaxWholeTransfer, logger),
		filePerm:   filePerm,
		largeWarn:  opts.LargeFileWarning,
		runID:      opts.RunID,
		recorder:   recorder,
		logger:     logger,
	}
}

// Run processes every discovered device in turn. Device, volume and object
// failures are logged and counted. A session that cannot be closed stops the
// run with an error wrapping ErrSessionClose. Cancellation is honored between
// objects; the session is still closed and ctx.Err() is returned.
func (in *Ingester) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{RunID: in.runID}

	devices, err := in.discoverer.Discover(ctx)
	if err != nil {
		return sum, fmt.Errorf("discovering devices: %w", err)
	}

	if len(devices) == 0 {
		in.logger.Info("no PTP devices found")
		return sum, nil
	}

	for i, dev := range devices {
		if err := ctx.Err(); err != nil {
			closeDevices(devices[i:], in.logger)
			return sum, err
		}

		err := in.device(ctx, dev, sum)

		if closeErr := dev.Close(); closeErr != nil {
			in.logger.Warn("releasing device", slog.String("error", closeErr.Error()))
		}

		if err == nil {
			continue
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			closeDevices(devices[i+1:], in.logger)
			return sum, err
		}

		var se *StageError
		if !errors.As(err, &se) {
			closeDevices(devices[i+1:], in.logger)
			return sum, err
		}

		switch se.Kind {
		case KindFatal:
			in.logger.Error("device left in an inconsistent state, stopping",
				slog.String("stage", se.Stage),
				slog.String("error", se.Err.Error()),
			)
			closeDevices(devices[i+1:], in.logger)

			return sum, err
		default:
			sum.DevicesSkipped++
			in.logger.Warn("skipping device",
				slog.Int("index", i),
				slog.String("stage", se.Stage),
				slog.String("error", se.Err.Error()),
			)
		}
	}

	return sum, nil
}

// device opens one session, processes every volume, and closes the session.
func (in *Ingester) device(ctx context.Context, dev ptp.Device, sum *Summary) error {
	info, err := dev.Info(ctx)
	if err != nil {
		return stageErr(KindDevice, "device info", err)
	}

	logger := in.logger.With(slog.String("device", info.String()), slog.String("serial", info.SerialNumber))

	sess, err := dev.OpenSession(ctx)
	if err != nil {
		return stageErr(KindDevice, "open session", err)
	}

	logger.Info("session opened", slog.Bool("partial_reads", sess.SupportsPartial()))

	var procErr error

	// A device is either counted as processed or as skipped, never both.
	ids, err := sess.StorageIDs(ctx)
	if err != nil {
		procErr = stageErr(KindDevice, "storage ids", err)
	} else {
		sum.Devices++
		procErr = in.volumes(ctx, sess, info, ids, logger, sum)
	}

	if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
		return stageErr(KindFatal, "close session", fmt.Errorf("%w: %w", ErrSessionClose, err))
	}

	logger.Info("session closed")

	return procErr
}

// volumes walks every storage volume of an open session.
func (in *Ingester) volumes(
	ctx context.Context, sess ptp.Session, info *ptp.DeviceInfo, ids []ptp.StorageID, logger *slog.Logger, sum *Summary,
) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		volLog := logger.With(slog.String("storage_id", fmt.Sprintf("0x%08x", uint32(id))))

		handles, err := sess.ObjectHandles(ctx, id)
		if err != nil {
			sum.VolumesSkipped++
			volLog.Warn("skipping volume", slog.String("error", err.Error()))

			continue
		}

		sum.Volumes++
		volLog.Info("volume", slog.Int("objects", len(handles)))

		for _, h := range handles {
			if err := ctx.Err(); err != nil {
				return err
			}

			in.object(ctx, sess, info, id, h, volLog, sum)
		}
	}

	return nil
}

// object runs one handle through the pipeline, counts and records the
// outcome. Failures stay contained here.
func (in *Ingester) object(
	ctx context.Context, sess ptp.Session, info *ptp.DeviceInfo,
	storage ptp.StorageID, handle ptp.ObjectHandle, logger *slog.Logger, sum *Summary,
) {
	logger = logger.With(slog.Uint64("handle", uint64(handle)))

	rec := Record{
		RunID:   in.runID,
		Device:  info.String(),
		Serial:  info.SerialNumber,
		Storage: storage,
		Handle:  handle,
	}

	// The object in flight finishes even if ctx is canceled.
	objCtx := context.WithoutCancel(ctx)

	sum.Objects++

	outcome, err := in.ingestObject(objCtx, sess, handle, &rec, logger)
	rec.Outcome = outcome

	switch outcome {
	case OutcomeFolder:
		sum.Folders++
		return
	case OutcomeDuplicate:
		sum.Duplicates++
	case OutcomeTransferred:
		sum.Transferred++
		sum.Bytes += rec.Size
	case OutcomeFailed:
		sum.Failed++
		rec.Err = err.Error()

		attrs := []any{slog.String("error", err.Error())}

		var se *StageError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.String("stage", se.Stage))
		}

		if rec.Filename != "" {
			attrs = append(attrs, slog.String("filename", rec.Filename))
		}

		logger.Warn("skipping object", attrs...)
	}

	if in.recorder != nil {
		if err := in.recorder.Record(objCtx, rec); err != nil {
			logger.Warn("recording history", slog.String("error", err.Error()))
		}
	}
}

func (in *Ingester) ingestObject(
	ctx context.Context, sess ptp.Session, handle ptp.ObjectHandle, rec *Record, logger *slog.Logger,
) (Outcome, error) {
	meta, err := resolveMetadata(ctx, sess, handle, in.largeWarn, logger)
	if meta != nil {
		rec.Filename = meta.Info.Filename
		rec.Size = int64(meta.Info.CompressedSize)
	}

	if err != nil {
		return OutcomeFailed, err
	}

	if meta.Folder {
		logger.Debug("folder, skipping", slog.String("filename", meta.Info.Filename))
		return OutcomeFolder, nil
	}

	rec.CapturedAt = meta.Captured

	place, err := in.placer.Place(meta.Captured, meta.Info.Filename, rec.Size)
	if err != nil {
		return OutcomeFailed, stageErr(KindObject, "destination", err)
	}

	rec.Path = place.Path
	logger = logger.With(slog.String("path", place.Path))

	if place.Duplicate {
		logger.Info("already downloaded, skipping")
		return OutcomeDuplicate, nil
	}

	data, err := in.fetcher.Fetch(ctx, sess, handle, meta.Info.CompressedSize)
	if err != nil {
		return OutcomeFailed, stageErr(KindObject, "transfer", err)
	}

	if err := commitFile(place.Path, data, in.filePerm); err != nil {
		return OutcomeFailed, stageErr(KindObject, "commit", err)
	}

	logger.Info("transferred", slog.Int64("size", rec.Size))

	return OutcomeTransferred, nil
}

// closeDevices releases devices that will not be processed.
func closeDevices(devices []ptp.Device, logger *slog.Logger) {
	for _, dev := range devices {
		if err := dev.Close(); err != nil {
			logger.Warn("releasing device", slog.String("error", err.Error()))
		}
	}
}
