package commands

import (
	"os"
	"testing"

	"github.com/josephlewis42/vsh/core/vos"
	"github.com/josephlewis42/vsh/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLs(t *testing.T) {
	cases := goldenTestSuite{
		"home":         {Args: []string{"ls"}},
		"root":         {Args: []string{"ls", "/"}},
		"one-per-line": {Args: []string{"ls", "-1", "/"}},
		"multiple":     {Args: []string{"ls", "/usr", "/home"}},
		"file":         {Args: []string{"ls", "notes.txt"}},
		"missing":      {Args: []string{"ls", "nope"}, ExitStatus: 2},
		"hidden":       {
			Args: []string{"ls", "-a"},
			Setup: func(v vos.VOS) error {
				return afero.WriteFile(v, ".profile", nil, 0644)
			},
		},
	}

	cases.Run(t, Ls)
}

func TestLs_color(t *testing.T) {
	cmd := vostest.Command(Ls, "ls", "--color=always", "/")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), ColorBoldBlue.Sprint("bin"))
}

func TestLs_long(t *testing.T) {
	cmd := vostest.Command(Ls, "ls", "-l")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Equal(t, 0, cmd.ExitStatus)
	assert.Regexp(t, `^total 14\n-rw-r--r-- 1 tester tester 14 .* notes.txt\n$`, string(out))
}

func TestColumnize(t *testing.T) {
	files := func(names ...string) (out []os.FileInfo) {
		for _, name := range names {
			out = append(out, renamedFileInfo{name: name})
		}
		return
	}

	assert.Equal(t, []int{0}, columnize(nil, 80))
	assert.Equal(t, []int{1, 2, 1}, columnize(files("a", "bb", "c"), 80))
	assert.Equal(t, []int{2}, columnize(files("a", "bb", "c"), 1))
	// Two rows of two columns.
	assert.Equal(t, []int{5, 5}, columnize(files("aaaaa", "bbbbb", "ccccc", "ddddd"), 12))
}
