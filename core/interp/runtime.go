// Package interp runs shell lines. A Runtime owns one session: its root
// state, job table and history. Every line runs in its own worker, every
// foreground pipeline of a line in a child of that worker.
package interp

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/josephlewis42/vsh/core/config"
	"github.com/josephlewis42/vsh/core/expand"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
	"go.uber.org/zap"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvOldPWD   = "OLDPWD"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"
	EnvShell    = "SHELL"

	DefaultPrompt    = `\u@\h:\w\$ `
	DefaultPath      = "/usr/local/bin:/usr/bin:/bin"
	DefaultScriptExt = ".sh"

	// ShellName is $0 of interactive lines.
	ShellName = "vsh"
)

// Reserved redirection targets.
const (
	// DeviceFile writes to the session's underlying terminal.
	DeviceFile = "/dev/tty"
	// NullFile discards output.
	NullFile = "/dev/null"
)

// ErrExit is returned when running a line on a session that has exited.
var ErrExit = errors.New("shell has exited")

// nextPID numbers sessions for $$.
var nextPID atomic.Int32

// Options configures a Runtime.
type Options struct {
	// FS is the session's root filesystem, an empty memory filesystem if nil.
	FS vos.VFS
	// Resolver maps executables found on the search path to programs.
	Resolver vos.ProcessResolver
	Config   config.Shell
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Device is the real terminal, reached by redirecting to /dev/tty.
	// Defaults to Stdout.
	Device io.Writer
	// Canceller overrides Config.Cancellation.
	Canceller job.Canceller

	// Session streams, used when a run doesn't give its own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runtime runs lines for one session.
type Runtime struct {
	id        string
	pid       int
	fs        vos.VFS
	resolver  vos.ProcessResolver
	logger    *zap.Logger
	device    io.Writer
	scriptExt string

	registry *job.Registry
	root     *job.Worker
	history  *expand.History

	exited   atomic.Bool
	exitCode atomic.Int32

	mu         sync.Mutex
	background []*job.Worker
}

// New creates a session. The environment is seeded from the configuration
// and the working directory is the home directory if it exists.
func New(opts Options) (*Runtime, error) {
	canceller := opts.Canceller
	if canceller == nil {
		var err error
		if canceller, err = job.CancellerByName(opts.Config.Cancellation); err != nil {
			return nil, err
		}
	}

	r := &Runtime{
		id:        uuid.NewString(),
		pid:       1000 + int(nextPID.Add(1)),
		fs:        opts.FS,
		resolver:  opts.Resolver,
		logger:    opts.Logger,
		device:    opts.Device,
		scriptExt: opts.Config.ScriptExt,
		history:   expand.NewHistory(opts.Config.HistorySize),
	}
	if r.fs == nil {
		r.fs = vos.NewMemoryFS()
	}
	if r.resolver == nil {
		r.resolver = func(string) vos.ProcessFunc { return nil }
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.logger = r.logger.With(zap.String("session", r.id))
	if r.scriptExt == "" {
		r.scriptExt = DefaultScriptExt
	}

	state := job.NewState()
	state.Stdin = opts.Stdin
	state.Stdout = opts.Stdout
	state.Stderr = opts.Stderr
	if state.Stdin == nil {
		state.Stdin = vos.DevNull
	}
	if state.Stdout == nil {
		state.Stdout = io.Discard
	}
	if state.Stderr == nil {
		state.Stderr = io.Discard
	}
	if r.device == nil {
		r.device = state.Stdout
	}
	state.Args = []string{ShellName}
	r.initState(state, opts.Config)

	r.registry = job.NewRegistry(r.logger)
	r.root = job.NewRoot(r.registry, state, canceller)
	return r, nil
}

// initState sets up the environment similar to login + source ~/.bashrc.
func (r *Runtime) initState(s *job.State, cfg config.Shell) {
	home := cfg.Home
	if home == "" {
		home = "/"
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	s.Env.Setenv(EnvHome, home)
	s.Env.Setenv(EnvPath, path)
	s.Env.Setenv(EnvPrompt, prompt)
	s.Env.Setenv(EnvUser, cfg.User)
	s.Env.Setenv(EnvHostname, cfg.Hostname)
	s.Env.Setenv(EnvShell, "/bin/"+ShellName)
	for k, v := range cfg.Env {
		s.Env.Setenv(k, v)
	}
	for k, v := range cfg.Aliases {
		s.Aliases[k] = v
	}

	// The home directory may not exist.
	s.Dir = "/"
	if vos.IsDir(r.fs, home) == nil {
		s.Dir = home
	}
	s.Env.Setenv(EnvPWD, s.Dir)
}

// RunOptions configures one run.
type RunOptions struct {
	// Parent spawns the line's worker, the session root if nil.
	Parent *job.Worker
	// Streams default to the parent's.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Persistence decides what the parent keeps of the line's state.
	Persistence job.Persistence
	// Background runs the whole line as a background job.
	Background bool
	// Args replaces the positional parameters, Args[0] is $0.
	Args []string
	// RecordHistory adds the line to the history.
	RecordHistory bool
}

// Run runs src and waits for it unless it's a background run.
func (r *Runtime) Run(src string, opts RunOptions) (*job.Worker, error) {
	w, err := r.Start(src, opts)
	if err != nil {
		return nil, err
	}
	if !opts.Background {
		w.Join()
	}
	return w, nil
}

// Start runs src on a new worker without waiting for it.
func (r *Runtime) Start(src string, opts RunOptions) (*job.Worker, error) {
	return r.start(src, opts, nil)
}

func (r *Runtime) start(src string, opts RunOptions, base *job.State) (*job.Worker, error) {
	if r.Exited() {
		return nil, ErrExit
	}

	parent := opts.Parent
	if parent == nil {
		parent = r.root
	}

	w, err := parent.Spawn(job.SpawnOptions{
		Name:        strings.TrimSpace(src),
		Background:  opts.Background,
		Persistence: opts.Persistence,
		Stdin:       opts.Stdin,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
		Args:        opts.Args,
		Base:        base,
		Run: func(w *job.Worker) int {
			return r.runLine(w, src, opts.RecordHistory)
		},
	})
	if err != nil {
		return nil, err
	}
	if opts.Background {
		r.trackBackground(w)
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// ID returns the session id.
func (r *Runtime) ID() string {
	return r.id
}

// Registry returns the session's job table.
func (r *Runtime) Registry() *job.Registry {
	return r.registry
}

// Root returns the session's root worker.
func (r *Runtime) Root() *job.Worker {
	return r.root
}

// History returns the session's history.
func (r *Runtime) History() *expand.History {
	return r.history
}

// FS returns the session's root filesystem.
func (r *Runtime) FS() vos.VFS {
	return r.fs
}

// Getenv reads a variable of the session state, including changes handed
// back by semi-persistent runs like ReturnValue and Dir.
func (r *Runtime) Getenv(name string) string {
	return r.root.Merged().Env.Getenv(name)
}

// Setenv sets a variable of the session state.
func (r *Runtime) Setenv(name, value string) {
	r.root.WithState(func(s *job.State) {
		s.Env.Setenv(name, value)
	})
	// Lines spawned from the root start from the enclosing state if there
	// is one, it needs the variable too.
	if merged := r.root.Merged(); merged.Env.Getenv(name) != value {
		r.root.UpdateEnclosing(func(s *job.State) {
			s.Env.Setenv(name, value)
		})
	}
}

// ReturnValue is the return code of the last line run on the session.
func (r *Runtime) ReturnValue() int {
	return r.root.Merged().ReturnCode
}

// Dir is the session's working directory.
func (r *Runtime) Dir() string {
	return r.root.Merged().Dir
}

// Exited reports whether exit was run at the top level.
func (r *Runtime) Exited() bool {
	return r.exited.Load()
}

// ExitStatus is the status given to exit.
func (r *Runtime) ExitStatus() int {
	return int(r.exitCode.Load())
}

func (r *Runtime) setExited(code int) {
	r.exitCode.Store(int32(code))
	r.exited.Store(true)
}

// Close kills every job of the session.
func (r *Runtime) Close() {
	for _, w := range r.root.Children() {
		w.Kill()
	}
}

func (r *Runtime) trackBackground(w *job.Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = append(r.background, w)
}

// ReapBackground returns the background jobs that finished since the last
// call.
func (r *Runtime) ReapBackground() []*job.Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	var done, running []*job.Worker
	for _, w := range r.background {
		select {
		case <-w.Done():
			done = append(done, w)
		default:
			running = append(running, w)
		}
	}
	r.background = running
	return done
}

// lookup resolves a variable, including the special parameters, in s.
func (r *Runtime) lookup(s *job.State, name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(s.ReturnCode), true
	case "$":
		return strconv.Itoa(r.pid), true
	case "!":
		if s.LastBackground == 0 {
			return "", false
		}
		return strconv.Itoa(s.LastBackground), true
	case "#":
		return strconv.Itoa(len(positional(s))), true
	case "@", "*":
		return strings.Join(positional(s), " "), true
	}

	if i, err := strconv.Atoi(name); err == nil {
		if i == 0 && len(s.Args) == 0 {
			return ShellName, true
		}
		if i < len(s.Args) {
			return s.Args[i], true
		}
		return "", false
	}

	return s.Env.LookupEnv(name)
}

func positional(s *job.State) []string {
	if len(s.Args) <= 1 {
		return nil
	}
	return s.Args[1:]
}

// workerEnv exposes a worker's current merged state to the expander.
type workerEnv struct {
	r *Runtime
	w *job.Worker
}

var _ expand.Env = workerEnv{}

func (e workerEnv) Lookup(name string) (string, bool) {
	return e.r.lookup(e.w.Merged(), name)
}

func (e workerEnv) Alias(name string) (string, bool) {
	return e.w.Merged().Alias(name)
}
