package host

import (
	"bytes"
	"io"

	"github.com/juju/ratelimit"
)

// interruptChar is what a terminal sends for Ctrl-C.
const interruptChar = 0x03

// interruptReader calls onInterrupt for every Ctrl-C read from r. The byte
// is passed on so the line editor can clear its line too.
type interruptReader struct {
	r           io.Reader
	onInterrupt func()
}

// NewInterruptReader wraps a raw terminal's input, calling onInterrupt
// whenever Ctrl-C is typed.
func NewInterruptReader(r io.Reader, onInterrupt func()) io.Reader {
	return &interruptReader{r: r, onInterrupt: onInterrupt}
}

func (ir *interruptReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 && bytes.IndexByte(p[:n], interruptChar) >= 0 {
		ir.onInterrupt()
	}
	return n, err
}

// crlfWriter translates "\n" to "\r\n" for terminals in raw mode. Existing
// "\r\n" pairs are left alone.
type crlfWriter struct {
	w    io.Writer
	last byte
}

// NewCRLFWriter wraps the output of a raw terminal.
func NewCRLFWriter(w io.Writer) io.Writer {
	return &crlfWriter{w: w}
}

func (cw *crlfWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		if b == '\n' && cw.last != '\r' {
			out = append(out, '\r')
		}
		out = append(out, b)
		cw.last = b
	}

	if _, err := cw.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// throttle limits w to rate bytes per second, zero means unlimited.
func throttle(w io.Writer, rate int64) io.Writer {
	if rate <= 0 {
		return w
	}
	return ratelimit.Writer(w, ratelimit.NewBucketWithRate(float64(rate), rate))
}
