// Package job implements the execution state of a shell level and the
// concurrent workers that own it.
package job

import (
	"fmt"
	"io"
	"sort"

	"github.com/josephlewis42/vsh/core/vos"
)

// Persistence decides how a finished worker's state is folded back into its
// parent.
type Persistence int

const (
	// Isolated workers only report their exit code.
	Isolated Persistence = iota
	// Persistent workers replace their parent's active state.
	Persistent
	// SemiPersistent workers replace their parent's enclosing state, the
	// baseline of the next worker the parent spawns.
	SemiPersistent
)

func (p Persistence) String() string {
	switch p {
	case Isolated:
		return "isolated"
	case Persistent:
		return "persistent"
	case SemiPersistent:
		return "semi-persistent"
	default:
		return fmt.Sprintf("Persistence(%d)", int(p))
	}
}

// State is the activation record of one shell level.
type State struct {
	Env     *vos.MapEnv
	Aliases map[string]string
	Dir     string

	// Args holds the positional parameters, Args[0] is the script name.
	Args []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	ReturnCode int
	// LastBackground is the id of the most recent background job.
	LastBackground int
}

// NewState creates an empty state rooted at /.
func NewState() *State {
	return &State{
		Env:     vos.NewMapEnv(),
		Aliases: make(map[string]string),
		Dir:     "/",
	}
}

// Clone returns a deep copy of the state. Streams are shared.
func (s *State) Clone() *State {
	out := *s
	out.Env = s.Env.Clone()
	out.Aliases = make(map[string]string, len(s.Aliases))
	for k, v := range s.Aliases {
		out.Aliases[k] = v
	}
	out.Args = append([]string(nil), s.Args...)
	return &out
}

// adopt takes the variables, aliases, directory and return code of other.
// Streams and positional parameters stay.
func (s *State) adopt(other *State) {
	s.Env = other.Env.Clone()
	s.Aliases = make(map[string]string, len(other.Aliases))
	for k, v := range other.Aliases {
		s.Aliases[k] = v
	}
	s.Dir = other.Dir
	s.ReturnCode = other.ReturnCode
	s.LastBackground = other.LastBackground
}

// Alias returns the value of an alias.
func (s *State) Alias(name string) (string, bool) {
	val, ok := s.Aliases[name]
	return val, ok
}

// AliasNames returns the alias names in sorted order.
func (s *State) AliasNames() []string {
	names := make([]string, 0, len(s.Aliases))
	for name := range s.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
