package job

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Registry is the process wide job table, it tracks every live worker.
type Registry struct {
	logger *zap.Logger

	mu      sync.Mutex
	nextID  int
	workers map[int]*Worker
}

// NewRegistry creates an empty job table, a nil logger discards output.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		workers: make(map[int]*Worker),
	}
}

func (r *Registry) add(w *Worker) {
	r.mu.Lock()
	r.nextID++
	w.id = r.nextID
	r.workers[w.id] = w
	r.mu.Unlock()

	var parent int
	if w.parent != nil {
		parent = w.parent.id
	}
	r.logger.Debug("spawn",
		zap.Int("job", w.id),
		zap.Int("parent", parent),
		zap.String("name", w.name),
		zap.Bool("background", w.background),
		zap.Stringer("persistence", w.persistence))
}

func (r *Registry) remove(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, w.id)
}

// List returns the live workers sorted by id.
func (r *Registry) List() []*Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].id < out[j].id
	})
	return out
}

// Get returns a live worker by id.
func (r *Registry) Get(id int) (*Worker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	return w, ok
}

// Len returns the number of live workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// KillAll kills every live worker, children are stopped by their topmost
// live ancestor. It returns an error if some workers haven't stopped when ctx
// is done.
func (r *Registry) KillAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, w := range r.List() {
		if _, ok := r.Get(w.parent.ID()); ok {
			continue
		}

		w := w
		g.Go(func() error {
			stopped := make(chan struct{})
			go func() {
				w.Kill()
				close(stopped)
			}()

			select {
			case <-stopped:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("job %d (%s) didn't stop: %w", w.ID(), w.Name(), ctx.Err())
			}
		})
	}

	return g.Wait()
}
