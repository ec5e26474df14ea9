package util

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// AtomicWrite replaces dst with the contents of r by writing a temp file
// next to it and renaming it into place.
func AtomicWrite(fs afero.Fs, dst string, r io.Reader) error {
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	tmp := dst + ".drivemirror.tmp"
	f, err := fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to write: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fs.Rename(tmp, dst); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to rename: %w", err)
	}

	return nil
}
