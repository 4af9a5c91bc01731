package interp

import (
	"errors"
	"fmt"
	"io"

	"github.com/josephlewis42/vsh/core/expand"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/syntax"
	"github.com/josephlewis42/vsh/core/vos"
	"go.uber.org/zap"
)

// Exit codes of failed dispatches.
const (
	ExitSyntax        = 2
	ExitNotExecutable = 126
	ExitNotFound      = 127
)

// ExitCode maps a dispatch error to the return code it leaves behind.
func ExitCode(err error) int {
	var (
		syntaxErr *syntax.SyntaxError
		badSubst  *expand.BadSubstitution
		notFound  *expand.EventNotFound
	)

	switch {
	case err == nil:
		return 0
	case errors.As(err, &syntaxErr):
		return ExitSyntax
	case errors.Is(err, vos.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, vos.ErrIsDirectory), errors.Is(err, vos.ErrNotExecutable):
		return ExitNotExecutable
	case errors.As(err, &badSubst), errors.As(err, &notFound):
		return 1
	case errors.Is(err, job.ErrCancelled):
		return job.ExitCancelled
	default:
		return 1
	}
}

// report writes a dispatch error to stderr and returns its exit code. A
// cancelled worker's streams are closed so nothing is written.
func (r *Runtime) report(w *job.Worker, stderr io.Writer, err error) int {
	code := ExitCode(err)
	r.logger.Debug("dispatch error",
		zap.Int("job", w.ID()),
		zap.Int("exit", code),
		zap.Error(err))

	if !errors.Is(err, job.ErrCancelled) {
		fmt.Fprintf(stderr, "%s: %v\n", ShellName, err)
	}
	return code
}
