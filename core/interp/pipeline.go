package interp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/josephlewis42/vsh/core/expand"
	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/afero"
)

// runPipeline runs the stages of p one after the other. Every stage but the
// last writes to a buffer that becomes the next stage's input. A failing
// stage skips the rest.
func (r *Runtime) runPipeline(pw *job.Worker, l *line, p *expand.Pipeline) int {
	state := pw.State()
	stdin := state.Stdin

	for i, cmd := range p.Commands {
		if pw.Checkpoint() != nil {
			return job.ExitCancelled
		}

		stdout := state.Stdout
		var captured *syncBuffer
		if i < len(p.Commands)-1 {
			captured = &syncBuffer{limit: MaxCapture}
			stdout = captured
		}

		code := r.runCommand(pw, l, cmd, stdin, stdout)
		if _, exited := l.exitStatus(); exited || code != 0 {
			return code
		}
		if captured != nil {
			stdin = bytes.NewReader(captured.Bytes())
		}
	}
	return 0
}

// runCommand dispatches one expanded command.
func (r *Runtime) runCommand(pw *job.Worker, l *line, cmd *expand.Command, stdin io.Reader, stdout io.Writer) int {
	state := pw.State()
	stderr := state.Stderr

	if cmd.Redirect != nil {
		out, err := r.openRedirect(state, cmd.Redirect)
		if err != nil {
			return r.report(pw, stderr, err)
		}
		if closer, ok := out.(io.Closer); ok {
			defer closer.Close()
		}
		stdout = out
	}

	// Assignments with only a redirect still apply.
	if len(cmd.Args) == 0 {
		applyAssigns(state, cmd.Assigns)
		return 0
	}

	resolved, err := r.resolve(state, cmd.Args[0], false)
	if err != nil {
		return r.report(pw, stderr, err)
	}

	call := &Call{
		r:      r,
		w:      pw,
		line:   l,
		State:  state,
		Args:   cmd.Args,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	switch resolved.Kind {
	case KindBuiltin:
		applyAssigns(state, cmd.Assigns)
		return resolved.builtin.Main(call)
	case KindProgram:
		return r.launch(call, resolved.program, cmd.Assigns)
	default:
		return r.runScript(call, resolved.Path, cmd.Assigns)
	}
}

// openRedirect opens the target of an output redirection relative to the
// working directory of s.
func (r *Runtime) openRedirect(s *job.State, rd *expand.Redirect) (io.Writer, error) {
	switch rd.Target {
	case DeviceFile:
		return r.device, nil
	case NullFile:
		return io.Discard, nil
	}

	name := vos.Resolve(s.Dir, rd.Target)
	if stat, err := r.fs.Stat(name); err == nil && stat.IsDir() {
		return nil, fmt.Errorf("%s: Is a directory", rd.Target)
	}

	f, err := r.fs.OpenFile(name, vos.WriteFlags(rd.Append), 0644)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", rd.Target, pathError(err))
	}
	return f, nil
}

// pathError drops the operation and path of filesystem errors, messages
// name the file the way the user wrote it.
func pathError(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// launch runs a program in the calling worker. The program gets its own
// copy of the environment with the command's assignments applied.
func (r *Runtime) launch(c *Call, program vos.ProcessFunc, assigns []expand.Assign) int {
	env := c.State.Env.Clone()
	for _, a := range assigns {
		env.Setenv(a.Name, a.Value)
	}

	proc := vos.NewProcess(c.w.Context(), r.fs, vos.ProcAttr{
		Args:  c.Args,
		Dir:   c.State.Dir,
		Env:   env,
		Files: vos.NewVIOAdapter(c.Stdin, c.Stdout, c.Stderr),
	})
	return proc.Run(program)
}

// runScript runs a script file as an isolated line with the command's
// arguments as positional parameters.
func (r *Runtime) runScript(c *Call, path string, assigns []expand.Assign) int {
	src, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return r.report(c.w, c.Stderr, fmt.Errorf("%s: %v", c.Args[0], pathError(err)))
	}

	base := c.State.Clone()
	applyAssigns(base, assigns)

	child, err := r.start(string(src), RunOptions{
		Parent:      c.w,
		Stdin:       c.Stdin,
		Stdout:      c.Stdout,
		Stderr:      c.Stderr,
		Persistence: job.Isolated,
		Args:        c.Args,
	}, base)
	if err != nil {
		return r.report(c.w, c.Stderr, err)
	}
	return child.Join()
}
