package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// partialSuffix marks a file that is still being written.
const partialSuffix = ".partial"

// commitFile writes data to path via path.partial: create, write in one
// call, fsync, close, rename. A stale .partial from an interrupted run is
// overwritten. On failure the .partial is removed and path is untouched.
func commitFile(path string, data []byte, perm os.FileMode) error {
	partial := path + partialSuffix

	if err := writeSynced(partial, data, perm); err != nil {
		if rmErr := os.Remove(partial); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}

		return err
	}

	if err := os.Rename(partial, path); err != nil {
		os.Remove(partial)

		return fmt.Errorf("renaming %s to %s: %w", partial, path, err)
	}

	return nil
}

// writeSynced owns the file handle: it is closed on every return path.
func writeSynced(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}

	return nil
}
