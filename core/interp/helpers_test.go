package interp

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/vsh/core/config"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/josephlewis42/vsh/core/vos/vostest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// testPrograms are the programs installed in /bin of test sessions.
func testPrograms() map[string]vos.ProcessFunc {
	return map[string]vos.ProcessFunc{
		"echo": func(v vos.VOS) int {
			fmt.Fprintln(v.Stdout(), strings.Join(v.Args()[1:], " "))
			return 0
		},
		"cat": func(v vos.VOS) int {
			if len(v.Args()) == 1 {
				io.Copy(v.Stdout(), v.Stdin())
				return 0
			}
			for _, name := range v.Args()[1:] {
				data, err := afero.ReadFile(v, name)
				if err != nil {
					fmt.Fprintf(v.Stderr(), "cat: %s: %v\n", name, err)
					return 1
				}
				v.Stdout().Write(data)
			}
			return 0
		},
		"printenv": func(v vos.VOS) int {
			for _, name := range v.Args()[1:] {
				fmt.Fprintln(v.Stdout(), v.Getenv(name))
			}
			return 0
		},
		"fail": func(v vos.VOS) int {
			return 3
		},
		"sleep": func(v vos.VOS) int {
			d, err := time.ParseDuration(v.Args()[1] + "s")
			if err != nil {
				return 1
			}
			select {
			case <-time.After(d):
				return 0
			case <-v.Context().Done():
				return job.ExitCancelled
			}
		},
	}
}

var testConfig = config.Shell{
	User:     "tester",
	Hostname: "test",
	Home:     vostest.Home,
	Path:     vostest.Path,
}

// newTestRuntime creates a session on a fresh test filesystem. extra adds
// programs to the defaults.
func newTestRuntime(t *testing.T, canceller job.Canceller, extra map[string]vos.ProcessFunc) (*Runtime, *syncBuffer) {
	t.Helper()

	programs := testPrograms()
	for name, fn := range extra {
		programs[name] = fn
	}

	fs := vostest.NewFS()
	for name := range programs {
		require.NoError(t, afero.WriteFile(fs, "/bin/"+name, []byte("#!/bin/vsh\n"), 0755))
	}

	out := &syncBuffer{}
	r, err := New(Options{
		FS: fs,
		Resolver: func(path string) vos.ProcessFunc {
			if strings.HasPrefix(path, "/bin/") {
				return programs[strings.TrimPrefix(path, "/bin/")]
			}
			return nil
		},
		Config:    testConfig,
		Canceller: canceller,
		Stdout:    out,
		Stderr:    out,
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, out
}

// run runs src at the persistent level and waits for it.
func run(t *testing.T, r *Runtime, src string) *job.Worker {
	t.Helper()

	w, err := r.Run(src, RunOptions{Persistence: job.Persistent})
	require.NoError(t, err)
	return w
}
