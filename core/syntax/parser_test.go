package syntax

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupStrings(line *Line) []string {
	var out []string
	for _, g := range line.Groups {
		out = append(out, g.String())
	}
	return out
}

func TestParse(t *testing.T) {
	cases := map[string]struct {
		src  string
		want []string
	}{
		"empty":             {"", nil},
		"blank lines":       {"\n\n", nil},
		"comment only":      {"# nothing here", nil},
		"simple":            {"ls -l", []string{"ls -l"}},
		"trailing newline":  {"ls\n", []string{"ls"}},
		"trailing semi":     {"ls;", []string{"ls"}},
		"statements":        {"A=42; echo $A", []string{"A=42", "echo $A"}},
		"pipeline":          {"cat f | grep x | wc -l", []string{"cat f | grep x | wc -l"}},
		"background":        {"sleep 5 & echo hi", []string{"sleep 5 &", "echo hi"}},
		"redirect":          {"echo hi > out; echo again >> out", []string{"echo hi > out", "echo again >> out"}},
		"redirect no space": {"echo hi>out", []string{"echo hi > out"}},
		"prefix assignment": {"A=1 B=2 env", []string{"A=1 B=2 env"}},
		"multi line":        {"echo a\n\necho b\n", []string{"echo a", "echo b"}},
		"newline after amp": {"sleep 1 &\nls", []string{"sleep 1 &", "ls"}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			line, err := Parse(tc.src)
			require.NoError(t, err)

			if diff := cmp.Diff(tc.want, groupStrings(line)); diff != "" {
				t.Errorf("groups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_simpleCommand(t *testing.T) {
	line, err := Parse(`A=1 B=$A cmd C=3 "x y" >> log`)
	require.NoError(t, err)
	require.Len(t, line.Groups, 1)
	require.Len(t, line.Groups[0].Commands, 1)

	cmd := line.Groups[0].Commands[0]
	require.Len(t, cmd.Assigns, 2)
	assert.Equal(t, "A", cmd.Assigns[0].AssignmentName())
	assert.Equal(t, "B", cmd.Assigns[1].AssignmentName())

	require.NotNil(t, cmd.Name)
	assert.Equal(t, "cmd", cmd.Name.Raw)

	// NAME=value after the command word is a plain argument.
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, Word, cmd.Args[0].Kind)
	assert.Equal(t, "C=3", cmd.Args[0].Raw)

	require.NotNil(t, cmd.Redirect)
	assert.True(t, cmd.Redirect.Append)
	assert.Equal(t, "log", cmd.Redirect.Target.Raw)

	assert.False(t, cmd.IsAssignmentOnly())
	assert.Len(t, cmd.Words(), 3)
	assert.Equal(t, 0, cmd.Pos)
	assert.Equal(t, len(line.Source), cmd.End)
}

func TestParse_assignmentOnly(t *testing.T) {
	line, err := Parse("A=1 B=2")
	require.NoError(t, err)

	cmd := line.Groups[0].Commands[0]
	assert.True(t, cmd.IsAssignmentOnly())
	assert.Nil(t, cmd.Name)
	assert.Empty(t, cmd.Words())
}

func TestParse_background(t *testing.T) {
	line, err := Parse("a & b; c &")
	require.NoError(t, err)

	var got []bool
	for _, g := range line.Groups {
		got = append(got, g.Background)
	}
	assert.Equal(t, []bool{true, false, true}, got)
}

func TestParse_errors(t *testing.T) {
	cases := map[string]struct {
		src    string
		offset int
		msg    string
	}{
		"leading pipe":         {"| ls", 0, "unexpected token '|'"},
		"trailing pipe":        {"ls |", 4, "unexpected end of line"},
		"double semicolon":     {"ls ;; ls", 4, "unexpected token ';'"},
		"leading semicolon":    {"; ls", 0, "unexpected token ';'"},
		"redirect only":        {"> f", 0, "unexpected token '>'"},
		"missing target":       {"ls > ", 5, "unexpected end of line"},
		"operator target":      {"ls > | x", 5, "unexpected token '|'"},
		"word after redirect":  {"ls > a b", 7, "unexpected word after redirection"},
		"double redirect":      {"ls > a > b", 7, "unexpected token '>'"},
		"lexer error surfaces": {"echo 'x", 5, "unterminated single quote"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tc.offset, syntaxErr.Offset)
			assert.Equal(t, tc.msg, syntaxErr.Msg)
		})
	}
}
