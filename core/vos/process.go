package vos

import (
	"context"
	"sync"
)

// ProcAttr holds the attributes of a new Process.
type ProcAttr struct {
	// Args holds command line arguments, including the command as Args[0].
	Args []string
	// Dir is the absolute working directory, "/" if empty.
	Dir string
	// Env is the environment, the process gets its own copy.
	Env *MapEnv
	// Files specifies the standard streams, nil means /dev/null.
	Files VIO
}

// Process is a VOS for one running program. The filesystem it exposes
// resolves relative names against the process's working directory.
type Process struct {
	VEnv
	VIO
	VFS

	ctx  context.Context
	args []string

	mu  sync.Mutex
	dir string
}

var _ VOS = (*Process)(nil)

// NewProcess creates a process using root as the filesystem.
func NewProcess(ctx context.Context, root VFS, attr ProcAttr) *Process {
	if ctx == nil {
		ctx = context.Background()
	}

	p := &Process{
		VEnv: attr.Env.Clone(),
		VIO:  attr.Files,
		ctx:  ctx,
		args: attr.Args,
		dir:  Resolve("/", attr.Dir),
	}
	if p.VIO == nil {
		p.VIO = NewNullIO()
	}
	p.VFS = NewRelativeFs(root, p.wd)
	return p
}

func (p *Process) wd() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dir
}

// Args implements VOS.Args.
func (p *Process) Args() []string {
	return p.args
}

// Getwd implements VOS.Getwd.
func (p *Process) Getwd() (string, error) {
	return p.wd(), nil
}

// Chdir implements VOS.Chdir.
func (p *Process) Chdir(dir string) error {
	dir = Resolve(p.wd(), dir)
	if err := IsDir(p.VFS, dir); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dir = dir
	return nil
}

// Context implements VOS.Context.
func (p *Process) Context() context.Context {
	return p.ctx
}

// Run runs fn against the process and returns its exit status.
func (p *Process) Run(fn ProcessFunc) int {
	return fn(p)
}
