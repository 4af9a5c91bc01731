package expand

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(lines ...string) *History {
	h := NewHistory(10)
	for _, l := range lines {
		h.Add(l)
	}
	return h
}

func TestHistory_Add(t *testing.T) {
	h := NewHistory(3)
	h.Add("echo one")
	h.Add("ls -l /tmp\n")
	h.Add("   ")
	h.Add("")
	h.Add("cat 'my file'")
	h.Add("date")

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"ls -l /tmp", "cat 'my file'", "date"}, h.Entries())

	h.Clear()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.Entries())
}

func TestHistory_defaultSize(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < DefaultHistorySize+5; i++ {
		h.Add(fmt.Sprintf("echo %d", i))
	}

	assert.Equal(t, DefaultHistorySize, h.Len())
	assert.Equal(t, "echo 5", h.Entries()[0])
}

func TestHistory_Lookup(t *testing.T) {
	h := newTestHistory("echo one", "ls -l /tmp", "cat 'my file'")

	cases := map[string]string{
		"!!":   "cat 'my file'",
		"!1":   "echo one",
		"!3":   "cat 'my file'",
		"!-1":  "cat 'my file'",
		"!-2":  "ls -l /tmp",
		"!$":   "'my file'",
		"!^":   "'my file'",
		"!:0":  "cat",
		"!ls":  "ls -l /tmp",
		"!e":   "echo one",
		"!cat": "cat 'my file'",
	}

	for event, want := range cases {
		t.Run(event, func(t *testing.T) {
			got, err := h.Lookup(event)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestHistory_Lookup_notFound(t *testing.T) {
	h := newTestHistory("echo one")

	for _, event := range []string{"!9", "!0", "!-9", "!-0", "!nope", "!:7", "!:x", "!", "ls"} {
		t.Run(event, func(t *testing.T) {
			_, err := h.Lookup(event)

			var notFound *EventNotFound
			require.True(t, errors.As(err, &notFound))
			assert.Equal(t, event+": event not found", err.Error())
		})
	}

	_, err := NewHistory(1).Lookup("!!")
	assert.Error(t, err)
}

func ExampleIsEvent() {
	fmt.Println(IsEvent("!!"), IsEvent("!ls"), IsEvent("!"), IsEvent("x!"))

	// Output: true true false false
}
