package fileutil

import (
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/graehl/subword-nmt/errors"
)

// AtomicWrite writes a file by streaming into a temp file in the target
// directory and renaming it into place, so readers never observe a
// half-written file. On any error the temp file is removed and the target is
// left untouched.
func AtomicWrite(fs afero.Fs, path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", path)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return errors.Wrapf(err, "closing temp file for %s", path)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return errors.Wrapf(err, "renaming temp file to %s", path)
	}
	return nil
}
