package host

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CastFileExt is the extension of session recordings.
const CastFileExt = ".cast"

// castHeader is the first line of an asciicast v2 file.
//
// See: https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
type castHeader struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Title     string            `json:"title"`
	Env       map[string]string `json:"env,omitempty"`
}

// castWriter records everything written to it as asciicast output events.
// Failures are kept in Err and never returned so a broken recording doesn't
// end the session.
type castWriter struct {
	now   func() time.Time
	start time.Time

	mu  sync.Mutex
	w   io.Writer
	err error
}

func newCastWriter(w io.Writer, header castHeader, now func() time.Time) (*castWriter, error) {
	if now == nil {
		now = time.Now
	}
	if header.Width <= 0 {
		header.Width = 80
	}
	if header.Height <= 0 {
		header.Height = 24
	}
	header.Version = 2

	cw := &castWriter{now: now, start: now(), w: w}
	header.Timestamp = cw.start.Unix()
	if err := writeJSONLine(w, header); err != nil {
		return nil, err
	}
	return cw, nil
}

func (cw *castWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.err == nil {
		elapsed := cw.now().Sub(cw.start).Seconds()
		cw.err = writeJSONLine(cw.w, []interface{}{elapsed, "o", string(p)})
	}
	return len(p), nil
}

// Err returns the first error writing the recording.
func (cw *castWriter) Err() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.err
}

func writeJSONLine(w io.Writer, v interface{}) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", line)
	return err
}

// recording is a session recording on disk.
type recording struct {
	*castWriter
	path string
	f    *os.File
}

// startRecording creates a new recording in dir.
func startRecording(dir string, header castHeader) (*recording, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, uuid.NewString()+CastFileExt)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, err
	}

	cw, err := newCastWriter(f, header, nil)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &recording{castWriter: cw, path: path, f: f}, nil
}

func (r *recording) Close() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	return r.Err()
}
