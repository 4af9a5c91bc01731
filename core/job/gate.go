package job

import "io"

// A child's gate replaces the gate of the worker the stream came from
// instead of stacking on it, so a stream handed to a worker spawned
// elsewhere doesn't close when its original owner finishes. Ancestors still
// cancel the child through its context.

func ungateReader(r io.Reader) io.Reader {
	if g, ok := r.(*gatedReader); ok {
		return g.r
	}
	return r
}

func ungateWriter(wr io.Writer) io.Writer {
	if g, ok := wr.(*gatedWriter); ok {
		return g.wr
	}
	return wr
}

// gatedReader checks the owning worker for cancellation around every read.
type gatedReader struct {
	w *Worker
	r io.Reader
}

func (g *gatedReader) Read(p []byte) (int, error) {
	if err := g.w.Checkpoint(); err != nil {
		return 0, err
	}
	n, err := g.r.Read(p)
	if cerr := g.w.Checkpoint(); cerr != nil {
		// The data was read on behalf of a job that's gone.
		return 0, cerr
	}
	return n, err
}

// gatedWriter refuses writes once the owning worker is killed.
type gatedWriter struct {
	w  *Worker
	wr io.Writer
}

func (g *gatedWriter) Write(p []byte) (int, error) {
	if err := g.w.Checkpoint(); err != nil {
		return 0, err
	}
	return g.wr.Write(p)
}
