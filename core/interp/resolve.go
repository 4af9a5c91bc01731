package interp

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/josephlewis42/vsh/core/job"
	"github.com/josephlewis42/vsh/core/vos"
)

// CommandKind is what a command name resolves to.
type CommandKind int

const (
	KindAlias CommandKind = iota + 1
	KindBuiltin
	KindProgram
	KindScript
)

func (k CommandKind) String() string {
	switch k {
	case KindAlias:
		return "alias"
	case KindBuiltin:
		return "builtin"
	case KindProgram:
		return "program"
	case KindScript:
		return "script"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is a resolved command name.
type Command struct {
	Kind CommandKind
	Name string
	// Path is the executable of programs and scripts.
	Path string
	// Alias is the replacement text of an alias.
	Alias string

	builtin Builtin
	program vos.ProcessFunc
}

// statePathEnv searches for programs with a state's PATH and directory.
type statePathEnv struct {
	fs    vos.VFS
	state *job.State
}

var _ vos.PathEnv = statePathEnv{}

func (e statePathEnv) Stat(name string) (fs.FileInfo, error) {
	return e.fs.Stat(name)
}

func (e statePathEnv) Getenv(key string) string {
	return e.state.Env.Getenv(key)
}

func (e statePathEnv) Getwd() (string, error) {
	return e.state.Dir, nil
}

// Resolve looks up a command name against the session's current state in
// the order the shell would: aliases, builtins then the search path.
func (r *Runtime) Resolve(name string) (*Command, error) {
	return r.resolve(r.root.Merged(), name, true)
}

// resolve looks name up in s. Aliases have already been substituted by
// the time a command is dispatched, so only `type` asks for them.
func (r *Runtime) resolve(s *job.State, name string, aliases bool) (*Command, error) {
	if aliases {
		if value, ok := s.Alias(name); ok {
			return &Command{Kind: KindAlias, Name: name, Alias: value}, nil
		}
	}

	if b, ok := builtins[name]; ok {
		return &Command{Kind: KindBuiltin, Name: name, builtin: b}, nil
	}

	path, err := vos.LookPath(statePathEnv{fs: r.fs, state: s}, name, r.scriptExt)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(path, r.scriptExt) {
		if program := r.resolver(path); program != nil {
			return &Command{Kind: KindProgram, Name: name, Path: path, program: program}, nil
		}
	}
	// Executable files that aren't known programs are read as scripts.
	return &Command{Kind: KindScript, Name: name, Path: path}, nil
}
