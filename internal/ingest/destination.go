package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// maxCollisionSuffix caps the "-n" search so a corrupted filesystem cannot
// keep the resolver looping.
const maxCollisionSuffix = 10_000

// Placement is where an object goes.
type Placement struct {
	Path string
	// Suffix is the collision suffix used, 0 for the plain name.
	Suffix int
	// Duplicate is set when a file of the same size already exists at Path;
	// no transfer is needed.
	Duplicate bool
}

// Placer resolves destination paths below Root.
type Placer struct {
	Root    string
	ZeroPad bool
	DirPerm os.FileMode
	logger  *slog.Logger
}

// NewPlacer creates a Placer. dirPerm 0 means 0o755.
func NewPlacer(root string, zeroPad bool, dirPerm os.FileMode, logger *slog.Logger) *Placer {
	if dirPerm == 0 {
		dirPerm = 0o755
	}

	return &Placer{Root: root, ZeroPad: zeroPad, DirPerm: dirPerm, logger: logger}
}

// Bucket returns the year/month/day directory for a capture time.
func (p *Placer) Bucket(captured time.Time) string {
	y, m, d := captured.Date()

	format := "%d"
	if p.ZeroPad {
		format = "%02d"
	}

	return filepath.Join(p.Root, strconv.Itoa(y), fmt.Sprintf(format, int(m)), fmt.Sprintf(format, d))
}

// Place creates the bucket directory and picks a destination for filename.
// An existing file of the same size (at the plain name or any tried suffix)
// marks the object as already downloaded. A file of a different size pushes
// the search on to filename-1, filename-2, ... until a free path is found.
func (p *Placer) Place(captured time.Time, filename string, size int64) (Placement, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return Placement{}, err
	}

	bucket := p.Bucket(captured)
	if err := os.MkdirAll(bucket, p.DirPerm); err != nil {
		return Placement{}, fmt.Errorf("creating %s: %w", bucket, err)
	}

	base := filepath.Join(bucket, name)

	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := base
		if n > 0 {
			candidate = base + "-" + strconv.Itoa(n)
		}

		st, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			if n > 0 {
				p.logger.Info("name taken by a different file, using suffix",
					slog.String("path", base),
					slog.String("destination", candidate),
				)
			}

			return Placement{Path: candidate, Suffix: n}, nil
		}

		if err != nil {
			return Placement{}, fmt.Errorf("checking %s: %w", candidate, err)
		}

		if st.Mode().IsRegular() && st.Size() == size {
			return Placement{Path: candidate, Suffix: n, Duplicate: true}, nil
		}
	}

	return Placement{}, fmt.Errorf("%w: %s-1 through -%d exist", ErrSuffixExhausted, base, maxCollisionSuffix)
}

// sanitizeFilename makes a device-supplied name safe to join below a bucket:
// NFC-normalized, no directory components, no NUL bytes.
func sanitizeFilename(name string) (string, error) {
	clean := norm.NFC.String(strings.ReplaceAll(name, "\x00", ""))
	clean = strings.ReplaceAll(clean, `\`, "/")
	clean = filepath.Base(filepath.Clean("/" + clean))

	if clean == "/" || clean == "." || clean == ".." || clean == "" {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, name)
	}

	return clean, nil
}
