package expand

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExampleGlobEscape() {
	fmt.Println(GlobEscape(`a*b?[c]\`))

	// Output: a[*]b[?][[]c\]\\
}

func TestSplitter(t *testing.T) {
	cases := map[string]struct {
		before string
		text   string
		after  string
		want   []string
	}{
		"plain":          {"", "a b", "", []string{"a", "b"}},
		"glued":          {"x", "a b", "y", []string{"xa", "by"}},
		"leading blank":  {"x", " a", "", []string{"x", "a"}},
		"trailing blank": {"", "a\t", "y", []string{"a", "y"}},
		"only blanks":    {"x", "  \n", "y", []string{"x", "y"}},
		"empty":          {"", "", "", nil},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			s := &splitter{}
			s.cur.addLiteral(tc.before)
			s.addSplit(tc.text)
			s.cur.addLiteral(tc.after)

			var got []string
			for _, f := range s.result() {
				got = append(got, f.Value)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestField_channels(t *testing.T) {
	var f Field
	f.addLiteral("*.")
	f.addQuoted("g?")

	assert.Equal(t, "*.g?", f.Value)
	assert.Equal(t, "*.g[?]", f.Glob)
	assert.True(t, f.Meta)
	assert.True(t, f.Quoted)
}
