package vos

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/spf13/afero"
)

// VFS is the virtual filesystem programs and the shell operate on.
type VFS = afero.Fs

// NewMemoryFS creates an empty in-memory filesystem with a root directory.
func NewMemoryFS() VFS {
	return afero.NewMemMapFs()
}

// NewHostFS exposes a directory of the real filesystem as the root.
func NewHostFS(root string) VFS {
	return afero.NewBasePathFs(afero.NewOsFs(), root)
}

// NewReadOnlyFS wraps base so all writes fail.
func NewReadOnlyFS(base VFS) VFS {
	return afero.NewReadOnlyFs(base)
}

// NewSessionFS gives a session a private writable layer over a shared base,
// the base is never modified.
func NewSessionFS(base VFS) VFS {
	return afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs())
}

// NewRelativeFs resolves relative names against the directory returned by
// getwd before passing them to base.
func NewRelativeFs(base VFS, getwd func() string) VFS {
	return NewPathMappingFs(base, func(op FsOp, name string) (string, error) {
		return Resolve(getwd(), name), nil
	})
}

// Resolve joins name to dir if it's relative and cleans the result.
func Resolve(dir, name string) string {
	if name == "" {
		return path.Clean(dir)
	}
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(dir, name)
}

// IsDir reports whether name exists and is a directory.
func IsDir(fsys VFS, name string) error {
	stat, err := fsys.Stat(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: no such file or directory", name)
	case err != nil:
		return fmt.Errorf("%s: %v", name, err)
	case !stat.IsDir():
		return fmt.Errorf("%s: not a directory", name)
	default:
		return nil
	}
}

// WriteFlags returns the OpenFile flags for an output redirection.
func WriteFlags(appending bool) int {
	if appending {
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
}
