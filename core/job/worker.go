package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/josephlewis42/vsh/core/vos"
	"go.uber.org/zap"
)

// ExitCancelled is the exit code of a killed worker.
const ExitCancelled = 130

var (
	// ErrCancelled is returned from checkpoints and gated streams once a
	// worker has been killed.
	ErrCancelled = errors.New("interrupted")
	// ErrForegroundBusy is returned when a second foreground child is spawned.
	ErrForegroundBusy = errors.New("a foreground job is already running")
	// ErrStarted is returned when a worker is started twice.
	ErrStarted = errors.New("worker already started")
)

// Status is the lifecycle stage of a worker.
type Status int

const (
	Created Status = iota
	Running
	Stopped
	Killed
)

func (s Status) String() string {
	switch s {
	case Created:
		return "Created"
	case Running:
		return "Running"
	case Stopped:
		return "Done"
	case Killed:
		return "Killed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// RunFunc is the body of a worker, it returns the exit code.
type RunFunc func(w *Worker) int

// SpawnOptions configures a child worker.
type SpawnOptions struct {
	// Name describes the job, usually the command line.
	Name string
	// Background workers don't count against the single foreground child
	// and read from a closed stdin unless Stdin is set.
	Background bool
	// Persistence is applied to the parent when the child finishes.
	Persistence Persistence

	// Streams override the inherited ones when non-nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Args overrides the positional parameters when non-nil.
	Args []string

	// Base replaces the parent's merged state as the starting state when
	// non-nil, the child gets a copy.
	Base *State

	Run RunFunc
}

// Worker is one concurrently scheduled unit of execution. It exclusively
// owns its State; children get a copy of the parent's merged state.
type Worker struct {
	id          int
	name        string
	background  bool
	persistence Persistence
	parent      *Worker
	registry    *Registry
	canceller   Canceller
	run         RunFunc
	started     time.Time

	ctx    context.Context
	cancel context.CancelFunc
	killed atomic.Bool
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	status    Status
	exit      int
	state     *State
	enclosing *State
	children  []*Worker
}

// NewRoot creates the session root. It's never registered, never finishes
// and has the id 0.
func NewRoot(registry *Registry, state *State, canceller Canceller) *Worker {
	if canceller == nil {
		canceller = Cooperative{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		name:      "root",
		registry:  registry,
		canceller: canceller,
		started:   time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    Running,
		state:     state,
	}
}

// Spawn creates a child worker. The child isn't running until Start.
func (w *Worker) Spawn(opts SpawnOptions) (*Worker, error) {
	if opts.Run == nil {
		return nil, errors.New("spawn: missing run function")
	}

	var state *State
	if opts.Base != nil {
		state = opts.Base.Clone()
	} else {
		state = w.Merged()
	}
	if opts.Background {
		state.Stdin = vos.DevNull
		opts.Persistence = Isolated
	}
	if opts.Stdin != nil {
		state.Stdin = opts.Stdin
	}
	if opts.Stdout != nil {
		state.Stdout = opts.Stdout
	}
	if opts.Stderr != nil {
		state.Stderr = opts.Stderr
	}
	if opts.Args != nil {
		state.Args = append([]string(nil), opts.Args...)
	}

	ctx, cancel := context.WithCancel(w.ctx)
	child := &Worker{
		name:        opts.Name,
		background:  opts.Background,
		persistence: opts.Persistence,
		parent:      w,
		registry:    w.registry,
		canceller:   w.canceller,
		run:         opts.Run,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		status:      Created,
		state:       state,
	}
	state.Stdin = &gatedReader{child, ungateReader(state.Stdin)}
	state.Stdout = &gatedWriter{child, ungateWriter(state.Stdout)}
	state.Stderr = &gatedWriter{child, ungateWriter(state.Stderr)}

	w.mu.Lock()
	if !opts.Background {
		for _, c := range w.children {
			if !c.background {
				w.mu.Unlock()
				cancel()
				return nil, ErrForegroundBusy
			}
		}
	}
	w.registry.add(child)
	w.children = append(w.children, child)
	w.mu.Unlock()

	return child, nil
}

// Start runs the worker on its own goroutine.
func (w *Worker) Start() error {
	w.mu.Lock()
	if w.status != Created {
		w.mu.Unlock()
		return ErrStarted
	}
	w.status = Running
	w.started = time.Now()
	w.mu.Unlock()

	go func() {
		code := ExitCancelled
		defer func() {
			if r := recover(); r != nil {
				w.registry.logger.Error("worker panicked",
					zap.Int("job", w.id),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				fmt.Fprintf(w.State().Stderr, "vsh: internal error: %v\n", r)
				code = 1
			}
			w.finish(code)
		}()

		if w.Checkpoint() == nil {
			code = w.run(w)
		}
	}()
	return nil
}

// Join waits for the worker to stop and returns its exit code.
func (w *Worker) Join() int {
	<-w.done
	return w.ExitCode()
}

// Done is closed after the worker has been unlinked from its parent and
// removed from the registry.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Interrupt marks the worker and its descendants as killed without waiting
// for them to stop. The root only passes the interrupt to its children.
func (w *Worker) Interrupt() {
	for _, c := range w.Children() {
		c.Interrupt()
	}
	if w.parent == nil {
		return
	}
	w.killed.Store(true)
	w.cancel()
}

// Kill stops the live descendants of the worker, deepest first, and then
// the worker itself using the configured Canceller.
func (w *Worker) Kill() {
	w.Interrupt()
	w.stop()
}

func (w *Worker) stop() {
	for _, c := range w.Children() {
		c.stop()
	}
	if w.parent == nil {
		return
	}

	w.registry.logger.Debug("kill",
		zap.Int("job", w.id),
		zap.String("name", w.name),
		zap.String("canceller", w.canceller.Name()))

	if w.Status() == Created {
		w.finish(ExitCancelled)
		return
	}
	w.canceller.Cancel(w)
}

// Checkpoint returns ErrCancelled if the worker has been killed.
func (w *Worker) Checkpoint() error {
	if w.killed.Load() || w.ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// Killed reports whether the worker was asked to stop.
func (w *Worker) Killed() bool {
	return w.Checkpoint() != nil
}

// finish records the exit code, folds the state into the parent according
// to the persistence level, unlinks the worker and closes Done. Only the
// first call has an effect.
func (w *Worker) finish(code int) {
	w.once.Do(func() {
		killed := w.Killed()
		if killed {
			code = ExitCancelled
		}

		w.mu.Lock()
		w.exit = code
		if killed {
			w.status = Killed
		} else {
			w.status = Stopped
		}
		w.mu.Unlock()

		if p := w.parent; p != nil {
			p.fold(w, killed, code)
			p.unlink(w)
		}
		w.registry.remove(w)
		w.cancel()

		w.registry.logger.Debug("stop",
			zap.Int("job", w.id),
			zap.String("name", w.name),
			zap.Bool("killed", killed),
			zap.Int("exit", code))
		close(w.done)
	})
}

// fold applies a finished child's state. A killed child only hands back
// its exit code since its state may be half written.
func (w *Worker) fold(child *Worker, killed bool, code int) {
	if child.persistence == Isolated {
		return
	}

	var end *State
	if !killed {
		end = child.Merged()
		end.ReturnCode = code
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch child.persistence {
	case Persistent:
		if killed {
			w.state.ReturnCode = code
		} else {
			w.state.adopt(end)
		}
		w.enclosing = nil

	case SemiPersistent:
		if w.enclosing == nil {
			w.enclosing = w.state.Clone()
		}
		if killed {
			w.enclosing.ReturnCode = code
		} else {
			w.enclosing.adopt(end)
		}
	}
}

func (w *Worker) unlink(child *Worker) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, c := range w.children {
		if c == child {
			w.children = append(w.children[:i], w.children[i+1:]...)
			return
		}
	}
}

// State returns the worker's own active state. Only the worker's goroutine
// may modify it.
func (w *Worker) State() *State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Merged returns a copy of the state the next child would start from: the
// enclosing state if one was handed back, otherwise the active state. The
// streams always come from the active state.
func (w *Worker) Merged() *State {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enclosing == nil {
		return w.state.Clone()
	}
	out := w.enclosing.Clone()
	out.Stdin = w.state.Stdin
	out.Stdout = w.state.Stdout
	out.Stderr = w.state.Stderr
	out.Args = append([]string(nil), w.state.Args...)
	return out
}

// UpdateEnclosing modifies the enclosing state, creating it from the active
// state first if needed.
func (w *Worker) UpdateEnclosing(fn func(*State)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.enclosing == nil {
		w.enclosing = w.state.Clone()
	}
	fn(w.enclosing)
}

// WithState calls fn with the worker's active state while holding its lock.
// It's how the owner of the root reads and changes the session state.
func (w *Worker) WithState(fn func(*State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.state)
}

// SetEnclosing replaces the enclosing state with a copy of s, nil clears it.
func (w *Worker) SetEnclosing(s *State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s == nil {
		w.enclosing = nil
		return
	}
	w.enclosing = s.Clone()
}

// ID returns the job id, 0 for the root.
func (w *Worker) ID() int {
	return w.id
}

// Name returns the job's description.
func (w *Worker) Name() string {
	return w.name
}

// Background reports whether the worker was spawned with '&'.
func (w *Worker) Background() bool {
	return w.background
}

// Parent returns the spawning worker, nil for the root.
func (w *Worker) Parent() *Worker {
	return w.parent
}

// Context is cancelled when the worker is killed or finishes.
func (w *Worker) Context() context.Context {
	return w.ctx
}

// Started returns the time the worker started running.
func (w *Worker) Started() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// Status returns the lifecycle stage.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// ExitCode returns the exit code of a stopped worker.
func (w *Worker) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exit
}

// Children returns a snapshot of the live children.
func (w *Worker) Children() []*Worker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*Worker(nil), w.children...)
}

// ForegroundChild returns the live foreground child, if any.
func (w *Worker) ForegroundChild() *Worker {
	for _, c := range w.Children() {
		if !c.background {
			return c
		}
	}
	return nil
}
