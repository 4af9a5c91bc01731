package interp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/josephlewis42/vsh/core/expand"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
)

// line is the control block shared by the pipelines of one line.
type line struct {
	mu       sync.Mutex
	exited   bool
	exitCode int
}

// exit stops the line after the current pipeline.
func (l *line) exit(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.exited = true
	l.exitCode = code
}

func (l *line) exitStatus() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exitCode, l.exited
}

func (r *Runtime) expander(w *job.Worker) *expand.Expander {
	return &expand.Expander{
		Env:     workerEnv{r: r, w: w},
		History: r.history,
		Subst: func(src string) (string, error) {
			return r.substitute(w, src)
		},
		FS: vos.NewRelativeFs(r.fs, func() string {
			return w.Merged().Dir
		}),
		Checkpoint: w.Checkpoint,
	}
}

// runLine is the body of a line worker. It expands and runs one pipeline at
// a time so each pipeline sees what the previous ones changed.
func (r *Runtime) runLine(w *job.Worker, src string, record bool) int {
	stderr := w.State().Stderr
	l := &line{}

	it, err := r.expander(w).Expand(src)
	if err != nil {
		var notFound *expand.EventNotFound
		if record && !errors.As(err, &notFound) {
			r.history.Add(src)
		}
		return r.report(w, stderr, err)
	}
	if record {
		r.history.Add(it.Source())
		if it.HistorySubstituted() {
			fmt.Fprintln(w.State().Stdout, it.Source())
		}
	}

	code := 0
	for {
		p, err := it.Next()
		if err == io.EOF {
			break
		}

		switch {
		case err != nil:
			code = r.report(w, stderr, err)
		case p.Background:
			code = r.startBackground(w, p, record)
		case p.IsAssignmentOnly():
			code = 0
			w.UpdateEnclosing(func(s *job.State) {
				applyAssigns(s, p.Commands[0].Assigns)
			})
		default:
			code = r.runForeground(w, l, p)
		}

		w.UpdateEnclosing(func(s *job.State) {
			s.ReturnCode = code
		})

		if w.Checkpoint() != nil {
			return job.ExitCancelled
		}
		if exitCode, ok := l.exitStatus(); ok {
			if w.Parent() == r.root {
				r.setExited(exitCode)
			}
			return exitCode
		}
	}
	return code
}

func applyAssigns(s *job.State, assigns []expand.Assign) {
	for _, a := range assigns {
		s.Env.Setenv(a.Name, a.Value)
	}
}

// runForeground runs a pipeline in a child of the line. The child hands its
// state back through the line's enclosing state.
func (r *Runtime) runForeground(w *job.Worker, l *line, p *expand.Pipeline) int {
	child, err := w.Spawn(job.SpawnOptions{
		Name:        p.Source,
		Persistence: job.SemiPersistent,
		Run: func(pw *job.Worker) int {
			return r.runPipeline(pw, l, p)
		},
	})
	if err == nil {
		err = child.Start()
	}
	if err != nil {
		return r.report(w, w.State().Stderr, err)
	}
	return child.Join()
}

// startBackground starts a pipeline as a job of the session with a copy of
// the line's current state. It doesn't fold back into anything.
func (r *Runtime) startBackground(w *job.Worker, p *expand.Pipeline, announce bool) int {
	l := &line{}
	child, err := r.root.Spawn(job.SpawnOptions{
		Name:       p.Source,
		Background: true,
		Base:       w.Merged(),
		Run: func(bw *job.Worker) int {
			return r.runPipeline(bw, l, p)
		},
	})
	if err != nil {
		return r.report(w, w.State().Stderr, err)
	}
	r.trackBackground(child)
	if err := child.Start(); err != nil {
		return r.report(w, w.State().Stderr, err)
	}

	w.UpdateEnclosing(func(s *job.State) {
		s.LastBackground = child.ID()
	})
	if announce {
		fmt.Fprintf(w.State().Stderr, "[%d] %s\n", child.ID(), p.Source)
	}
	return 0
}

// substitute runs src for a command substitution and returns its output.
func (r *Runtime) substitute(w *job.Worker, src string) (string, error) {
	out := &syncBuffer{limit: MaxCapture}
	child, err := r.Start(src, RunOptions{
		Parent:      w,
		Stdout:      out,
		Persistence: job.Isolated,
	})
	if err != nil {
		return "", err
	}
	child.Join()
	if err := w.Checkpoint(); err != nil {
		return "", err
	}
	return out.String(), nil
}

// MaxCapture is the most output a pipeline stage or command substitution
// can buffer, writes past it fail with vos.ErrBrokenPipe.
const MaxCapture = 1 << 20

// syncBuffer is a bytes.Buffer safe for one writer and one reader, an
// abandoned job may still be writing to it. A positive limit caps its size.
type syncBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 {
		if room := b.limit - b.buf.Len(); len(p) > room {
			n, _ := b.buf.Write(p[:room])
			return n, vos.ErrBrokenPipe
		}
	}
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Bytes returns a copy of the contents.
func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
