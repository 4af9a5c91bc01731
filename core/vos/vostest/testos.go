// Package vostest provides a deterministic in-memory OS for testing programs.
package vostest

import (
	"bytes"
	"context"
	"io"

	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/afero"
)

const (
	// Home is the home directory of the test user.
	Home = "/home/tester"
	// Path is the search path of the test environment.
	Path = "/bin:/usr/bin"
)

// Environ returns the fixed environment of the test user.
func Environ() []string {
	return []string{
		"HOME=" + Home,
		"PATH=" + Path,
		"USER=tester",
		"PWD=" + Home,
	}
}

// NewFS creates an in-memory filesystem with the usual top level
// directories and a home directory holding a couple of files.
func NewFS() vos.VFS {
	fs := vos.NewMemoryFS()
	for _, dir := range []string{"/bin", "/usr/bin", "/tmp", "/etc", Home} {
		_ = fs.MkdirAll(dir, 0755)
	}
	_ = afero.WriteFile(fs, "/etc/motd", []byte("Welcome to vsh!\n"), 0644)
	_ = afero.WriteFile(fs, Home+"/notes.txt", []byte("one\ntwo\nthree\n"), 0644)
	return fs
}

// Cmd is similar to exec.Cmd.
type Cmd struct {
	// Process function
	Process vos.ProcessFunc
	// Process arguments, the first argument should be the process name.
	Argv []string
	// Dir is the working directory, Home if empty.
	Dir string
	// If Env is non-nil, it gives the environment variables for the
	// new process in the form returned by Environ.
	// If it is nil, the result of Environ will be used.
	Env []string
	// FS is the filesystem, NewFS() if nil.
	FS vos.VFS

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ExitStatus int

	Setup func(vos.VOS) error
}

// Command returns a Cmd that runs process with the given arguments.
func Command(process vos.ProcessFunc, name string, arg ...string) *Cmd {
	return &Cmd{
		Process: process,
		Argv:    append([]string{name}, arg...),
	}
}

// CombinedOutput runs the command and returns stdout and stderr interleaved.
func (c *Cmd) CombinedOutput() ([]byte, error) {
	buf := &bytes.Buffer{}
	c.Stdout = buf
	c.Stderr = buf

	err := c.Run()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run starts the command and waits for it to complete.
func (c *Cmd) Run() error {
	if c.FS == nil {
		c.FS = NewFS()
	}

	env := c.Env
	if env == nil {
		env = Environ()
	}

	dir := c.Dir
	if dir == "" {
		dir = Home
	}

	proc := vos.NewProcess(context.Background(), c.FS, vos.ProcAttr{
		Args:  c.Argv,
		Dir:   dir,
		Env:   vos.NewMapEnvFromEnvList(env),
		Files: vos.NewVIOAdapter(c.Stdin, c.Stdout, c.Stderr),
	})

	if c.Setup != nil {
		if err := c.Setup(proc); err != nil {
			return err
		}
	}

	c.ExitStatus = proc.Run(c.Process)
	return nil
}
