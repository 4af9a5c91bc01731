package host

import (
	"fmt"

	"github.com/josephlewis42/vsh/core/config"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/afero"
)

// skeleton holds the directories every memory filesystem starts with.
var skeleton = []string{"/bin", "/usr/bin", "/usr/local/bin", "/etc", "/tmp", "/root", "/home"}

// NewFS creates the filesystem shared by all sessions. Host directories are
// never written to, changes land in a memory layer on top of them.
func NewFS(cfg *config.Configuration) (vos.VFS, error) {
	var fs vos.VFS
	switch cfg.Filesystem.Type {
	case "", "memory":
		fs = vos.NewMemoryFS()
	case "os":
		root := cfg.ResolvePath(cfg.Filesystem.Root)
		if err := vos.IsDir(afero.NewOsFs(), root); err != nil {
			return nil, fmt.Errorf("filesystem root: %w", err)
		}
		fs = afero.NewCopyOnWriteFs(vos.NewReadOnlyFS(vos.NewHostFS(root)), vos.NewMemoryFS())
	default:
		return nil, fmt.Errorf("unknown filesystem type %q", cfg.Filesystem.Type)
	}

	for _, dir := range append(skeleton, cfg.Shell.Home) {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	if cfg.Shell.Hostname != "" {
		if err := afero.WriteFile(fs, "/etc/hostname", []byte(cfg.Shell.Hostname+"\n"), 0644); err != nil {
			return nil, err
		}
	}

	if len(cfg.Filesystem.Mounts) == 0 {
		return fs, nil
	}
	mounted := vos.NewMountFS(fs)
	for _, m := range cfg.Filesystem.Mounts {
		root := cfg.ResolvePath(m.Root)
		if err := vos.IsDir(afero.NewOsFs(), root); err != nil {
			return nil, fmt.Errorf("mount %s: %w", m.Path, err)
		}
		if err := mounted.Mount(m.Path, vos.NewReadOnlyFS(vos.NewHostFS(root))); err != nil {
			return nil, fmt.Errorf("mount %s: %w", m.Path, err)
		}
	}
	return mounted, nil
}
