package vos

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Mount is a filesystem attached at a directory of the root.
type Mount struct {
	// Path is the directory the volume is mounted at.
	Path string
	FS   VFS
}

// NewMountFS creates a filesystem that dispatches to mounted volumes before
// falling back to root.
func NewMountFS(root VFS) *MountFS {
	return &MountFS{Root: root}
}

// MountFS joins several filesystems into one tree. Renames can't cross
// mount boundaries.
type MountFS struct {
	// Root is the root filesystem.
	Root VFS
	// List of mounted volumes, sorted deepest first.
	Mounts []Mount
}

var _ VFS = (*MountFS)(nil)

// Mount attaches mountFS at dir, creating the mount point on the root if
// needed so it shows up in listings.
func (mfs *MountFS) Mount(dir string, mountFS VFS) error {
	dir = path.Clean("/" + dir)
	if dir == "/" {
		return fmt.Errorf("invalid mount path %q: can't mount over the root", dir)
	}
	if err := mfs.Root.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("invalid mount path %q: %v", dir, err)
	}

	mfs.Mounts = append(mfs.Mounts, Mount{Path: dir, FS: mountFS})
	sort.SliceStable(mfs.Mounts, func(i, j int) bool {
		return len(mfs.Mounts[i].Path) > len(mfs.Mounts[j].Path)
	})
	return nil
}

// Resolve returns the filesystem holding name and the name within it.
func (mfs *MountFS) Resolve(name string) (VFS, string) {
	name = path.Clean("/" + name)

	for _, mount := range mfs.Mounts {
		if name == mount.Path {
			return mount.FS, "/"
		}
		if rest := strings.TrimPrefix(name, mount.Path+"/"); rest != name {
			return mount.FS, "/" + rest
		}
	}

	return mfs.Root, name
}

func (mfs *MountFS) Name() string {
	return "MountFS"
}

func (mfs *MountFS) OpenFile(name string, flag int, perm fs.FileMode) (afero.File, error) {
	vfs, name := mfs.Resolve(name)
	return vfs.OpenFile(name, flag, perm)
}

func (mfs *MountFS) Open(name string) (afero.File, error) {
	vfs, name := mfs.Resolve(name)
	return vfs.Open(name)
}

func (mfs *MountFS) Stat(name string) (fs.FileInfo, error) {
	vfs, name := mfs.Resolve(name)
	return vfs.Stat(name)
}

func (mfs *MountFS) Rename(oldname, newname string) error {
	ovfs, oldInner := mfs.Resolve(oldname)
	nvfs, newInner := mfs.Resolve(newname)

	if ovfs != nvfs {
		return &fs.PathError{Op: FsOpRename, Path: oldname, Err: fmt.Errorf("crosses filesystem boundary")}
	}

	return ovfs.Rename(oldInner, newInner)
}

func (mfs *MountFS) RemoveAll(name string) error {
	vfs, name := mfs.Resolve(name)
	return vfs.RemoveAll(name)
}

func (mfs *MountFS) Remove(name string) error {
	vfs, name := mfs.Resolve(name)
	return vfs.Remove(name)
}

func (mfs *MountFS) MkdirAll(name string, mode fs.FileMode) error {
	vfs, name := mfs.Resolve(name)
	return vfs.MkdirAll(name, mode)
}

func (mfs *MountFS) Mkdir(name string, mode fs.FileMode) error {
	vfs, name := mfs.Resolve(name)
	return vfs.Mkdir(name, mode)
}

func (mfs *MountFS) Create(name string) (afero.File, error) {
	vfs, name := mfs.Resolve(name)
	return vfs.Create(name)
}

func (mfs *MountFS) Chtimes(name string, atime, mtime time.Time) error {
	vfs, name := mfs.Resolve(name)
	return vfs.Chtimes(name, atime, mtime)
}

func (mfs *MountFS) Chown(name string, uid, gid int) error {
	vfs, name := mfs.Resolve(name)
	return vfs.Chown(name, uid, gid)
}

func (mfs *MountFS) Chmod(name string, mode fs.FileMode) error {
	vfs, name := mfs.Resolve(name)
	return vfs.Chmod(name, mode)
}
