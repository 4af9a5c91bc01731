package interp

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/vsh/core/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	cases := map[string]struct {
		src  string
		want string
	}{
		"cd home":          {"cd /tmp; cd; pwd", "/home/tester\n"},
		"cd dash":          {"cd /tmp; cd -; pwd", "/home/tester\n/home/tester\n"},
		"cd no oldpwd":     {"cd -", "cd: OLDPWD not set\n"},
		"cd missing":       {"cd /nope; echo $?", "cd: /nope: no such file or directory\n1\n"},
		"cd file":          {"cd /etc/motd", "cd: /etc/motd: not a directory\n"},
		"cd too many":      {"cd a b", "cd: too many arguments\n"},
		"alias print":      {"alias ll='ls -l' l=ls; alias", "alias l=ls\nalias ll='ls -l'\n"},
		"alias one":        {"alias ll='ls -l'; alias ll", "alias ll='ls -l'\n"},
		"alias missing":    {"alias nope; echo $?", "alias: nope: not found\n1\n"},
		"unalias":          {"alias a=b c=d; unalias a; alias", "alias c=d\n"},
		"unalias all":      {"alias a=b c=d; unalias -a; alias", ""},
		"unalias missing":  {"unalias nope", "unalias: nope: not found\n"},
		"export":           {"export A=1; printenv A", "1\n"},
		"export n":         {"A=1; export -n A; echo x${A}x", "xx\n"},
		"export invalid":   {"export 1A=2", "export: `1A=2': not a valid identifier\n"},
		"unset":            {"A=1; unset A; echo x${A}x", "xx\n"},
		"true false":       {"true; echo $?; false; echo $?", "0\n1\n"},
		"type":             {"type cd echo", "cd is a shell builtin\necho is /bin/echo\n"},
		"type kind":        {"type -t cd echo", "builtin\nfile\n"},
		"type missing":     {"type nope; echo $?", "type: nope: not found\n1\n"},
		"exit code":        {"false; exit", ""},
		"exit non numeric": {"exit x", "exit: x: numeric argument required\n"},
		"wait nothing":     {"wait; echo $?", "0\n"},
		"fg nothing":       {"fg", "fg: current: no such job\n"},
		"kill missing":     {"kill %99", "kill: %99: no such job\n"},
		"kill usage":       {"kill", "usage: kill [-a] [-s sig | -sig] %job | id ...\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			r, out := newTestRuntime(t, nil, nil)
			run(t, r, tc.src)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestBuiltins_badOption(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "jobs -z")

	assert.Equal(t, 2, r.ReturnValue())
	assert.True(t, strings.HasPrefix(out.String(), "jobs: "))
	assert.Contains(t, out.String(), "usage: jobs [-l]\n")
}

func TestBuiltins_exitStatus(t *testing.T) {
	cases := map[string]struct {
		src  string
		want int
	}{
		"last return code": {"false; exit", 1},
		"explicit":         {"exit 7", 7},
		"wraps":            {"exit 257", 1},
		"non numeric":      {"exit x", 2},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			r, _ := newTestRuntime(t, nil, nil)
			run(t, r, tc.src)
			assert.True(t, r.Exited())
			assert.Equal(t, tc.want, r.ExitStatus())
		})
	}
}

func TestBuiltins_export(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "export -p")

	assert.Contains(t, out.String(), "export HOME=/home/tester\n")
	assert.Contains(t, out.String(), "export PS1='\\u@\\h:\\w\\$ '\n")
}

func TestBuiltins_set(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "GREETING='hello world'; set")

	assert.Contains(t, out.String(), "GREETING='hello world'\n")
	assert.Contains(t, out.String(), "USER=tester\n")
}

func TestBuiltins_history(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	for _, line := range []string{"true", "false", "history"} {
		_, err := r.Run(line, RunOptions{Persistence: job.Persistent, RecordHistory: true})
		require.NoError(t, err)
	}
	assert.Equal(t, "    1  true\n    2  false\n    3  history\n", out.String())

	out.buf.Reset()
	run(t, r, "history 1")
	assert.Equal(t, "    3  history\n", out.String())

	run(t, r, "history -c")
	assert.Equal(t, 0, r.History().Len())
}

func TestBuiltins_jobs(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "sleep 10 &")
	id := r.Root().Merged().LastBackground

	run(t, r, "jobs")
	assert.Equal(t, fmt.Sprintf("[%d]  Running  sleep 10 &\n", id), out.String())

	run(t, r, "kill -9 %"+fmt.Sprint(id))
	assert.Empty(t, r.backgroundJobs())
}

func TestBuiltins_killAll(t *testing.T) {
	r, _ := newTestRuntime(t, nil, nil)
	run(t, r, "sleep 10 & sleep 10 &")
	require.Len(t, r.backgroundJobs(), 2)

	run(t, r, "kill -a")
	assert.Empty(t, r.backgroundJobs())
	assert.Len(t, r.ReapBackground(), 2)
}

func TestBuiltins_fg(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "sleep 0.5 &")
	run(t, r, "fg; echo $?")

	assert.Equal(t, "sleep 0.5\n0\n", out.String())
}

func TestBuiltins_fgKilled(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "sleep 10 &")

	w, err := r.Start("fg", RunOptions{Persistence: job.Persistent})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return out.String() == "sleep 10\n"
	}, 5*time.Second, time.Millisecond)

	w.Kill()
	assert.Equal(t, job.ExitCancelled, w.Join())
	require.Eventually(t, func() bool {
		return len(r.backgroundJobs()) == 0
	}, 5*time.Second, time.Millisecond)
}

func TestBuiltins_source(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "echo 'X=1; cd /tmp; alias hi=\"echo hi\"' > env.sh")
	run(t, r, ". ./env.sh; echo $X; pwd")
	run(t, r, "hi")

	assert.Equal(t, "1\n/tmp\nhi\n", out.String())
}

func TestBuiltins_sourceExit(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "echo 'echo in; exit 2; echo no' > f.sh")
	run(t, r, "source f.sh; echo $?")

	assert.False(t, r.Exited())
	assert.Equal(t, "in\n2\n", out.String())
}

func TestBuiltins_sourceArgs(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "echo 'echo $# $1' > f.sh")
	run(t, r, "source f.sh one two")

	assert.Equal(t, "2 one\n", out.String())
}

func TestBuiltins_help(t *testing.T) {
	r, out := newTestRuntime(t, nil, nil)
	run(t, r, "help")

	for _, name := range ListBuiltins() {
		assert.Contains(t, out.String(), "\n"+name+"\n")
	}

	out.buf.Reset()
	run(t, r, "help cd")
	assert.True(t, strings.HasPrefix(out.String(), "usage: cd [dir | -]\n"))

	out.buf.Reset()
	run(t, r, "help nope")
	assert.Equal(t, "help: no help topics match `nope'\n", out.String())
}

func TestListBuiltins(t *testing.T) {
	names := ListBuiltins()
	assert.Contains(t, names, "cd")
	assert.Contains(t, names, ".")
	assert.IsIncreasing(t, names)
}
