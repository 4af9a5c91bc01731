package host

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestCastWriter(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	var buf bytes.Buffer

	cw, err := newCastWriter(&buf, castHeader{Title: "guest@vsh"}, clock.now)
	require.NoError(t, err)

	clock.t = clock.t.Add(500 * time.Millisecond)
	n, err := cw.Write([]byte("hi\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	clock.t = clock.t.Add(time.Second)
	cw.Write([]byte("$ "))

	scanner := bufio.NewScanner(&buf)
	require.True(t, scanner.Scan())
	var header castHeader
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &header))
	assert.Equal(t, castHeader{
		Version:   2,
		Width:     80,
		Height:    24,
		Timestamp: 1700000000,
		Title:     "guest@vsh",
	}, header)

	var events [][]interface{}
	for scanner.Scan() {
		var event []interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	want := [][]interface{}{
		{0.5, "o", "hi\r\n"},
		{1.5, "o", "$ "},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

type failWriter struct {
	after int
}

func (f *failWriter) Write(p []byte) (int, error) {
	if f.after == 0 {
		return 0, errors.New("disk full")
	}
	f.after--
	return len(p), nil
}

func TestCastWriter_errorsAreKept(t *testing.T) {
	cw, err := newCastWriter(&failWriter{after: 1}, castHeader{}, nil)
	require.NoError(t, err)

	n, err := cw.Write([]byte("lost"))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.EqualError(t, cw.Err(), "disk full")

	_, err = newCastWriter(&failWriter{}, castHeader{}, nil)
	assert.Error(t, err)
}

func TestStartRecording(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "casts")

	rec, err := startRecording(dir, castHeader{})
	require.NoError(t, err)
	rec.Write([]byte("hello"))
	require.NoError(t, rec.Close())

	assert.Equal(t, dir, filepath.Dir(rec.path))
	assert.Equal(t, CastFileExt, filepath.Ext(rec.path))
	contents, err := os.ReadFile(rec.path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"o","hello"]`)
}
