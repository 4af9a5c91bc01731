package job

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/josephlewis42/vsh/core/vos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot(t *testing.T, canceller Canceller) (*Worker, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	state := NewState()
	state.Env.Setenv("A", "root")
	state.Dir = "/home"
	state.Stdout = out
	state.Stderr = out
	state.Stdin = &bytes.Buffer{}

	root := NewRoot(NewRegistry(nil), state, canceller)
	return root, out
}

// spin runs until the worker is killed.
func spin(w *Worker) int {
	for w.Checkpoint() == nil {
		time.Sleep(time.Millisecond)
	}
	return 0
}

func spawnStarted(t *testing.T, parent *Worker, opts SpawnOptions) *Worker {
	t.Helper()

	w, err := parent.Spawn(opts)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	return w
}

func TestWorker_lifecycle(t *testing.T) {
	root, out := newRoot(t, nil)

	w, err := root.Spawn(SpawnOptions{
		Name: "greet",
		Run: func(w *Worker) int {
			w.State().Stdout.Write([]byte("hello\n"))
			return 3
		},
	})
	require.NoError(t, err)

	assert.Equal(t, Created, w.Status())
	assert.Equal(t, 1, w.ID())
	assert.Equal(t, root, w.Parent())
	assert.Equal(t, 1, root.registry.Len())

	require.NoError(t, w.Start())
	assert.ErrorIs(t, w.Start(), ErrStarted)
	assert.Equal(t, 3, w.Join())

	assert.Equal(t, Stopped, w.Status())
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, 0, root.registry.Len())
	assert.Empty(t, root.Children())

	_, ok := root.registry.Get(1)
	assert.False(t, ok)
}

func TestWorker_Spawn_foregroundBusy(t *testing.T) {
	root, _ := newRoot(t, nil)

	first, err := root.Spawn(SpawnOptions{Run: spin})
	require.NoError(t, err)
	assert.Equal(t, first, root.ForegroundChild())

	_, err = root.Spawn(SpawnOptions{Run: spin})
	assert.ErrorIs(t, err, ErrForegroundBusy)

	bg, err := root.Spawn(SpawnOptions{Run: spin, Background: true})
	require.NoError(t, err)
	assert.Equal(t, first, root.ForegroundChild())

	// Never started workers stop immediately.
	first.Kill()
	bg.Kill()
	assert.Equal(t, ExitCancelled, first.Join())
	assert.Equal(t, Killed, first.Status())
	assert.Equal(t, 0, root.registry.Len())
	assert.Nil(t, root.ForegroundChild())
}

func TestWorker_ids(t *testing.T) {
	root, _ := newRoot(t, nil)

	var ids []int
	for i := 0; i < 3; i++ {
		w := spawnStarted(t, root, SpawnOptions{Run: func(*Worker) int { return 0 }})
		w.Join()
		ids = append(ids, w.ID())
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, 0, root.ID())
}

func mutateState(w *Worker) int {
	s := w.State()
	s.Env.Setenv("A", "child")
	s.Aliases["ll"] = "ls -l"
	s.Dir = "/tmp"
	return 7
}

func TestWorker_persistence(t *testing.T) {
	t.Run("isolated", func(t *testing.T) {
		root, _ := newRoot(t, nil)
		w := spawnStarted(t, root, SpawnOptions{Persistence: Isolated, Run: mutateState})
		assert.Equal(t, 7, w.Join())

		assert.Equal(t, "root", root.State().Env.Getenv("A"))
		assert.Equal(t, "/home", root.State().Dir)
		assert.Equal(t, "/home", root.Merged().Dir)
		assert.Equal(t, 0, root.State().ReturnCode)
	})

	t.Run("persistent", func(t *testing.T) {
		root, _ := newRoot(t, nil)
		root.UpdateEnclosing(func(s *State) { s.Dir = "/stale" })

		w := spawnStarted(t, root, SpawnOptions{Persistence: Persistent, Run: mutateState})
		w.Join()

		state := root.State()
		assert.Equal(t, "child", state.Env.Getenv("A"))
		assert.Equal(t, "ls -l", state.Aliases["ll"])
		assert.Equal(t, "/tmp", state.Dir)
		assert.Equal(t, 7, state.ReturnCode)
		// The enclosing state was cleared.
		assert.Equal(t, "/tmp", root.Merged().Dir)
	})

	t.Run("semi-persistent", func(t *testing.T) {
		root, _ := newRoot(t, nil)
		w := spawnStarted(t, root, SpawnOptions{Persistence: SemiPersistent, Run: mutateState})
		w.Join()

		// The active state is untouched.
		assert.Equal(t, "root", root.State().Env.Getenv("A"))
		assert.Equal(t, "/home", root.State().Dir)

		merged := root.Merged()
		assert.Equal(t, "child", merged.Env.Getenv("A"))
		assert.Equal(t, "/tmp", merged.Dir)
		assert.Equal(t, 7, merged.ReturnCode)

		// The next child starts from the enclosing state.
		var seen string
		next := spawnStarted(t, root, SpawnOptions{Run: func(w *Worker) int {
			seen = w.State().Env.Getenv("A")
			return 0
		}})
		next.Join()
		assert.Equal(t, "child", seen)

		root.SetEnclosing(nil)
		assert.Equal(t, "root", root.Merged().Env.Getenv("A"))
	})
}

func TestWorker_stateIsCopied(t *testing.T) {
	root, _ := newRoot(t, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var seen string
	w := spawnStarted(t, root, SpawnOptions{Run: func(w *Worker) int {
		close(started)
		<-release
		seen = w.State().Env.Getenv("A")
		return 0
	}})

	<-started
	root.State().Env.Setenv("A", "changed")
	close(release)
	w.Join()

	assert.Equal(t, "root", seen)
}

func TestWorker_spawnOverrides(t *testing.T) {
	root, _ := newRoot(t, nil)
	buf := &bytes.Buffer{}

	var args []string
	w := spawnStarted(t, root, SpawnOptions{
		Args:   []string{"script.sh", "one"},
		Stdin:  bytes.NewBufferString("input"),
		Stdout: buf,
		Run: func(w *Worker) int {
			args = w.State().Args
			data := make([]byte, 5)
			n, _ := w.State().Stdin.Read(data)
			w.State().Stdout.Write(data[:n])
			return 0
		},
	})
	w.Join()

	assert.Equal(t, []string{"script.sh", "one"}, args)
	assert.Equal(t, "input", buf.String())
}

func TestWorker_background(t *testing.T) {
	root, _ := newRoot(t, nil)

	var readErr error
	w := spawnStarted(t, root, SpawnOptions{
		Background:  true,
		Persistence: Persistent,
		Run: func(w *Worker) int {
			_, readErr = w.State().Stdin.Read(make([]byte, 1))
			return mutateState(w)
		},
	})
	assert.True(t, w.Background())
	w.Join()

	assert.ErrorIs(t, readErr, os.ErrClosed)
	// Background jobs never fold back into their parent.
	assert.Equal(t, "/home", root.Merged().Dir)
}

func TestWorker_Kill_cooperative(t *testing.T) {
	root, _ := newRoot(t, Cooperative{})

	w := spawnStarted(t, root, SpawnOptions{Persistence: Persistent, Run: func(w *Worker) int {
		w.State().Dir = "/nowhere"
		return spin(w)
	}})

	w.Kill()
	assert.Equal(t, ExitCancelled, w.Join())
	assert.Equal(t, Killed, w.Status())
	assert.Equal(t, 0, root.registry.Len())

	// Only the exit code is handed back.
	assert.Equal(t, ExitCancelled, root.State().ReturnCode)
	assert.Equal(t, "/home", root.State().Dir)
}

func TestWorker_Kill_descendants(t *testing.T) {
	root, _ := newRoot(t, Cooperative{})

	grandchild := make(chan *Worker, 1)
	parent := spawnStarted(t, root, SpawnOptions{Name: "parent", Run: func(w *Worker) int {
		child, err := w.Spawn(SpawnOptions{Name: "child", Run: spin})
		if err != nil {
			return 1
		}
		child.Start()
		grandchild <- child
		return child.Join()
	}})

	child := <-grandchild
	assert.Equal(t, 2, root.registry.Len())
	assert.Equal(t, []*Worker{parent, child}, root.registry.List())

	parent.Kill()
	assert.Equal(t, Killed, child.Status())
	assert.Equal(t, Killed, parent.Status())
	assert.Equal(t, 0, root.registry.Len())

	// The root survives and accepts new work.
	w := spawnStarted(t, root, SpawnOptions{Run: func(*Worker) int { return 0 }})
	assert.Equal(t, 0, w.Join())
}

func TestWorker_Kill_forced(t *testing.T) {
	root, _ := newRoot(t, Forced{})

	started := make(chan struct{})
	release := make(chan struct{})
	exited := make(chan struct{})
	var writeErr error
	w := spawnStarted(t, root, SpawnOptions{Run: func(w *Worker) int {
		defer close(exited)
		close(started)
		// No checkpoints until released.
		<-release
		_, writeErr = w.State().Stdout.Write([]byte("too late"))
		return 0
	}})

	// A worker killed before it runs never calls Run.
	<-started
	w.Kill()
	assert.Equal(t, ExitCancelled, w.Join())
	assert.Equal(t, 0, root.registry.Len())
	assert.Nil(t, root.ForegroundChild())

	close(release)
	<-exited
	assert.ErrorIs(t, writeErr, ErrCancelled)
	assert.Equal(t, ExitCancelled, w.ExitCode())
}

func TestWorker_Interrupt(t *testing.T) {
	root, _ := newRoot(t, nil)

	w := spawnStarted(t, root, SpawnOptions{Run: spin})
	w.Interrupt()
	assert.Equal(t, ExitCancelled, w.Join())
	assert.True(t, errors.Is(w.Checkpoint(), ErrCancelled))
	assert.Error(t, w.Context().Err())

	// Interrupting the root only reaches its children.
	root.Interrupt()
	assert.NoError(t, root.Checkpoint())
}

func TestWorker_panic(t *testing.T) {
	root, out := newRoot(t, nil)

	w := spawnStarted(t, root, SpawnOptions{Run: func(*Worker) int {
		panic("boom")
	}})

	assert.Equal(t, 1, w.Join())
	assert.Contains(t, out.String(), "vsh: internal error: boom")
}

func TestRegistry_KillAll(t *testing.T) {
	root, _ := newRoot(t, Cooperative{})

	for i := 0; i < 3; i++ {
		spawnStarted(t, root, SpawnOptions{Background: true, Run: spin})
	}
	assert.Equal(t, 3, root.registry.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, root.registry.KillAll(ctx))
	assert.Equal(t, 0, root.registry.Len())
}

func TestRegistry_KillAll_timeout(t *testing.T) {
	root, _ := newRoot(t, Cooperative{})

	started := make(chan struct{})
	release := make(chan struct{})
	w := spawnStarted(t, root, SpawnOptions{Name: "stubborn", Run: func(*Worker) int {
		close(started)
		<-release
		return 0
	}})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := root.registry.KillAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "stubborn")

	close(release)
	assert.Equal(t, ExitCancelled, w.Join())
}

func TestCancellerByName(t *testing.T) {
	c, err := CancellerByName("")
	require.NoError(t, err)
	assert.Equal(t, "cooperative", c.Name())

	c, err = CancellerByName("Forced")
	require.NoError(t, err)
	assert.Equal(t, "forced", c.Name())

	_, err = CancellerByName("polite")
	assert.Error(t, err)
}

func TestState_Clone(t *testing.T) {
	s := NewState()
	s.Env.Setenv("A", "1")
	s.Aliases["x"] = "y"
	s.Args = []string{"a"}
	s.Stdout = vos.DevNull

	c := s.Clone()
	c.Env.Setenv("A", "2")
	c.Aliases["x"] = "z"
	c.Args[0] = "b"

	assert.Equal(t, "1", s.Env.Getenv("A"))
	assert.Equal(t, "y", s.Aliases["x"])
	assert.Equal(t, "a", s.Args[0])
	assert.Equal(t, s.Stdout, c.Stdout)
	assert.Equal(t, []string{"x"}, c.AliasNames())
}

func TestWorker_Spawn_base(t *testing.T) {
	root, out := newRoot(t, nil)

	release := make(chan struct{})
	line := spawnStarted(t, root, SpawnOptions{Run: func(w *Worker) int {
		w.State().Env.Setenv("A", "line")

		// Started from the root but with the line's state.
		_, err := root.Spawn(SpawnOptions{
			Background: true,
			Base:       w.State(),
			Run: func(bg *Worker) int {
				<-release
				bg.State().Stdout.Write([]byte(bg.State().Env.Getenv("A")))
				return 0
			},
		})
		if err != nil {
			return 1
		}
		for _, c := range root.Children() {
			if c.Background() {
				_ = c.Start()
			}
		}
		return 0
	}})
	require.Equal(t, 0, line.Join())

	// The line is gone, its streams still work for the background job.
	var bg *Worker
	for _, w := range root.registry.List() {
		bg = w
	}
	require.NotNil(t, bg)
	close(release)
	bg.Join()

	assert.Equal(t, "line", out.String())
	assert.Equal(t, "root", root.State().Env.Getenv("A"))
}

func TestWorker_WithState(t *testing.T) {
	root, _ := newRoot(t, nil)

	root.WithState(func(s *State) {
		s.Env.Setenv("B", "set")
	})

	var got string
	w := spawnStarted(t, root, SpawnOptions{Run: func(w *Worker) int {
		got = w.State().Env.Getenv("B")
		return 0
	}})
	w.Join()
	assert.Equal(t, "set", got)
}
