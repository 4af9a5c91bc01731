package job

import (
	"fmt"
	"strings"
)

// Canceller decides how a signalled worker is brought to a stop. By the time
// Cancel is called the worker and all its descendants have been marked as
// killed and its descendants have stopped.
type Canceller interface {
	Cancel(w *Worker)
	Name() string
}

// Cooperative waits for the worker to notice the kill at its next checkpoint:
// the start of every pipeline, statement and word, and every read or write
// through its streams. Programs that block without checkpoints, such as a
// read from a stream that never produces data, delay the kill until they
// return.
type Cooperative struct{}

var _ Canceller = Cooperative{}

func (Cooperative) Cancel(w *Worker) {
	<-w.Done()
}

func (Cooperative) Name() string {
	return "cooperative"
}

// Forced finalizes the worker immediately without waiting for its goroutine.
// The worker's streams refuse further I/O, it's removed from the registry
// and the parent continues at once.
//
// This is unsafe: the abandoned goroutine keeps running until it next hits
// a checkpoint or returns. It may still hold locks, mutate the filesystem or
// leave partially written files behind. Use it only for code that never
// reaches a checkpoint.
type Forced struct{}

var _ Canceller = Forced{}

func (Forced) Cancel(w *Worker) {
	w.finish(ExitCancelled)
}

func (Forced) Name() string {
	return "forced"
}

// CancellerByName returns the canceller for a configuration value.
func CancellerByName(name string) (Canceller, error) {
	switch strings.ToLower(name) {
	case "", "cooperative":
		return Cooperative{}, nil
	case "forced":
		return Forced{}, nil
	default:
		return nil, fmt.Errorf("unknown cancellation strategy %q", name)
	}
}
