// Package expand turns parsed lines into concrete pipelines: history and
// alias substitution on the raw line, then per-word expansion of variables,
// quotes, command substitutions, tildes and wildcards.
package expand

import (
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/josephlewis42/vsh/core/syntax"
	"github.com/josephlewis42/vsh/core/vos"
	"github.com/spf13/afero"
)

// Env is the expander's view of the current execution state. It's read
// every time a pipeline is expanded so earlier pipelines' changes are seen.
type Env interface {
	// Lookup returns a variable, including the special parameters.
	Lookup(name string) (string, bool)
	// Alias returns the value of an alias.
	Alias(name string) (string, bool)
}

// Expander expands lines against an Env.
type Expander struct {
	Env Env
	// History resolves events, nil disables history substitution.
	History *History
	// Subst runs a command substitution and returns its output, nil
	// substitutes nothing.
	Subst func(src string) (string, error)
	// FS resolves wildcards relative to the working directory, nil
	// disables globbing.
	FS vos.VFS
	// Checkpoint is called before every pipeline and word, an error stops
	// the expansion.
	Checkpoint func() error
}

// Assign is a NAME=value prefix.
type Assign struct {
	Name  string
	Value string
}

// Redirect is an expanded output redirection.
type Redirect struct {
	Append bool
	Target string
}

// Command is a fully expanded simple command.
type Command struct {
	Assigns  []Assign
	Args     []string
	Redirect *Redirect
}

// IsAssignmentOnly reports whether the command only sets variables.
func (c *Command) IsAssignmentOnly() bool {
	return len(c.Args) == 0 && c.Redirect == nil && len(c.Assigns) > 0
}

func (c *Command) String() string {
	var out []string
	for _, a := range c.Assigns {
		out = append(out, a.Name+"="+a.Value)
	}
	out = append(out, c.Args...)
	if c.Redirect != nil {
		op := ">"
		if c.Redirect.Append {
			op = ">>"
		}
		out = append(out, op, c.Redirect.Target)
	}
	return strings.Join(out, " ")
}

// Pipeline is a fully expanded pipe sequence.
type Pipeline struct {
	Commands   []*Command
	Background bool
	// Source is the text the pipeline was parsed from.
	Source string
}

// IsAssignmentOnly reports whether the pipeline is a single command that
// only sets variables.
func (p *Pipeline) IsAssignmentOnly() bool {
	return len(p.Commands) == 1 && p.Commands[0].IsAssignmentOnly()
}

func (p *Pipeline) String() string {
	var cmds []string
	for _, c := range p.Commands {
		cmds = append(cmds, c.String())
	}
	out := strings.Join(cmds, " | ")
	if p.Background {
		out += " &"
	}
	return out
}

// Iterator yields one expanded pipeline at a time. It's finite and can't be
// restarted.
type Iterator struct {
	x           *Expander
	line        *syntax.Line
	source      string
	substituted bool
	next        int
}

// Expand performs history and alias substitution on src and returns an
// iterator over its pipelines. Words are expanded as the iterator advances.
func (x *Expander) Expand(src string) (*Iterator, error) {
	line, err := parse(src)
	if err != nil {
		return nil, err
	}

	it := &Iterator{x: x, source: src}
	if x.History != nil {
		substituted, changed, err := x.substituteHistory(line)
		if err != nil {
			return nil, err
		}
		if changed {
			it.substituted = true
			it.source = substituted
			if line, err = parse(substituted); err != nil {
				return nil, err
			}
		}
	}

	if line, err = x.substituteAliases(line); err != nil {
		return nil, err
	}
	it.line = line
	return it, nil
}

// parse parses src, reporting an unclosed "${" as a bad substitution.
func parse(src string) (*syntax.Line, error) {
	line, err := syntax.Parse(src)
	var syntaxErr *syntax.SyntaxError
	if errors.As(err, &syntaxErr) && errors.Is(err, syntax.ErrMissingBrace) && syntaxErr.Offset < len(src) {
		text := src[syntaxErr.Offset:]
		if end := strings.IndexAny(text, " \t\n;|&\"'"); end >= 0 {
			text = text[:end]
		}
		return nil, &BadSubstitution{Text: text, Reason: "bad substitution"}
	}
	return line, err
}

// Source returns the line after history substitution, the text to record
// in the history.
func (it *Iterator) Source() string {
	return it.source
}

// HistorySubstituted reports whether a history event was replaced.
func (it *Iterator) HistorySubstituted() bool {
	return it.substituted
}

// Line returns the parsed line after all substitutions.
func (it *Iterator) Line() *syntax.Line {
	return it.line
}

// Next expands the next pipeline. It returns io.EOF after the last one.
func (it *Iterator) Next() (*Pipeline, error) {
	if it.next >= len(it.line.Groups) {
		return nil, io.EOF
	}
	seq := it.line.Groups[it.next]
	it.next++

	if err := it.x.checkpoint(); err != nil {
		return nil, err
	}
	return it.x.expandPipeline(it.line.Source, seq)
}

func (x *Expander) checkpoint() error {
	if x.Checkpoint == nil {
		return nil
	}
	return x.Checkpoint()
}

// splice replaces the given token spans of src, spans must not overlap.
func splice(src string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool {
		return edits[i].pos > edits[j].pos
	})
	for _, e := range edits {
		src = src[:e.pos] + e.text + src[e.end:]
	}
	return src
}

type edit struct {
	pos, end int
	text     string
}

func (x *Expander) substituteHistory(line *syntax.Line) (string, bool, error) {
	var edits []edit
	for _, tok := range line.Tokens {
		if !tok.IsBare() || !IsEvent(tok.Parts[0].Value) {
			continue
		}
		text, err := x.History.Lookup(tok.Parts[0].Value)
		if err != nil {
			return "", false, err
		}
		edits = append(edits, edit{tok.Pos, tok.End, text})
	}

	if len(edits) == 0 {
		return line.Source, false, nil
	}
	return splice(line.Source, edits), true, nil
}

// substituteAliases replaces command words that name an alias until none
// are left. Each alias is only replaced once per line so recursive aliases
// terminate. Quoted or escaped command words are never replaced.
func (x *Expander) substituteAliases(line *syntax.Line) (*syntax.Line, error) {
	if x.Env == nil {
		return line, nil
	}

	active := make(map[string]bool)
	for {
		var edits []edit
		used := make(map[string]bool)

		tryWord := func(tok *syntax.Token) (string, bool) {
			if tok == nil || !tok.IsBare() {
				return "", false
			}
			name := tok.Parts[0].Value
			if active[name] {
				return "", false
			}
			value, ok := x.Env.Alias(name)
			if !ok {
				return "", false
			}
			used[name] = true
			edits = append(edits, edit{tok.Pos, tok.End, value})
			return value, true
		}

		for _, seq := range line.Groups {
			for _, cmd := range seq.Commands {
				value, ok := tryWord(cmd.Name)
				// A trailing blank makes the next word eligible too.
				if ok && len(cmd.Args) > 0 && strings.HasSuffix(value, " ") {
					tryWord(&cmd.Args[0])
				}
			}
		}

		if len(edits) == 0 {
			return line, nil
		}
		for name := range used {
			active[name] = true
		}

		var err error
		if line, err = parse(splice(line.Source, edits)); err != nil {
			return nil, err
		}
	}
}

func (x *Expander) expandPipeline(src string, seq *syntax.PipeSequence) (*Pipeline, error) {
	out := &Pipeline{
		Background: seq.Background,
		Source:     src[seq.Pos:seq.End],
	}

	for _, cmd := range seq.Commands {
		expanded, err := x.expandCommand(cmd)
		if err != nil {
			return nil, err
		}
		out.Commands = append(out.Commands, expanded)
	}
	return out, nil
}

// overlayEnv makes earlier prefix assignments visible to later ones.
type overlayEnv struct {
	Env
	vars map[string]string
}

func (o *overlayEnv) Lookup(name string) (string, bool) {
	if v, ok := o.vars[name]; ok {
		return v, true
	}
	if o.Env == nil {
		return "", false
	}
	return o.Env.Lookup(name)
}

func (x *Expander) expandCommand(cmd *syntax.SimpleCommand) (*Command, error) {
	out := &Command{}

	overlay := &overlayEnv{Env: x.Env, vars: make(map[string]string)}
	for _, assign := range cmd.Assigns {
		if err := x.checkpoint(); err != nil {
			return nil, err
		}
		fields, err := x.expandParts(overlay, assign.AssignmentValue(), false, true)
		if err != nil {
			return nil, err
		}
		name := assign.AssignmentName()
		value := joinFields(fields)
		overlay.vars[name] = value
		out.Assigns = append(out.Assigns, Assign{Name: name, Value: value})
	}

	for _, word := range cmd.Words() {
		fields, err := x.ExpandWord(word)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, fields...)
	}

	if cmd.Redirect != nil {
		fields, err := x.ExpandWord(cmd.Redirect.Target)
		if err != nil {
			return nil, err
		}
		if len(fields) != 1 {
			return nil, &BadSubstitution{Text: cmd.Redirect.Target.Raw, Reason: "ambiguous redirect"}
		}
		out.Redirect = &Redirect{Append: cmd.Redirect.Append, Target: fields[0]}
	}

	return out, nil
}

func joinFields(fields []Field) string {
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = f.Value
	}
	return strings.Join(values, " ")
}

// ExpandWord expands one word into zero or more arguments.
func (x *Expander) ExpandWord(word syntax.Token) ([]string, error) {
	if err := x.checkpoint(); err != nil {
		return nil, err
	}

	fields, err := x.expandParts(x.Env, word.Parts, true, false)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, f := range fields {
		out = append(out, x.glob(f)...)
	}
	return out, nil
}

func (x *Expander) glob(f Field) []string {
	if !f.Meta || x.FS == nil {
		return []string{f.Value}
	}
	matches, err := afero.Glob(x.FS, f.Glob)
	if err != nil || len(matches) == 0 {
		return []string{f.Value}
	}
	return matches
}

// expandParts expands the parts of a word. If split is false unquoted
// expansions aren't split into fields. If assignment is set the value
// always yields a field, even if empty.
func (x *Expander) expandParts(env Env, parts []syntax.Token, split, assignment bool) ([]Field, error) {
	s := &splitter{}
	if assignment {
		s.cur.Quoted = true
	}

	for i, part := range parts {
		switch part.Kind {
		case syntax.Literal:
			text := part.Value
			if i == 0 {
				text = x.tilde(env, text, &s.cur)
			}
			s.cur.addLiteral(text)

		case syntax.Escape, syntax.SingleQuoted:
			s.cur.addQuoted(part.Value)

		case syntax.DoubleQuoted:
			s.cur.Quoted = true
			for _, inner := range part.Parts {
				text, err := x.expandQuoted(env, inner)
				if err != nil {
					return nil, err
				}
				s.cur.addQuoted(text)
			}

		case syntax.Variable, syntax.CommandSubst:
			text, err := x.expandQuoted(env, part)
			if err != nil {
				return nil, err
			}
			if split {
				s.addSplit(text)
			} else {
				s.cur.addLiteral(text)
			}
		}
	}

	return s.result(), nil
}

// expandQuoted expands a part to plain text without splitting.
func (x *Expander) expandQuoted(env Env, part syntax.Token) (string, error) {
	switch part.Kind {
	case syntax.Variable:
		name := part.Value
		if !isParameter(name) {
			return "", &BadSubstitution{Text: part.Raw, Reason: "bad substitution"}
		}
		if env == nil {
			return "", nil
		}
		value, _ := env.Lookup(name)
		return value, nil

	case syntax.CommandSubst:
		if x.Subst == nil {
			return "", nil
		}
		out, err := x.Subst(part.Value)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n"), nil

	default:
		return part.Value, nil
	}
}

func isParameter(name string) bool {
	if syntax.IsName(name) {
		return true
	}
	if len(name) == 1 && strings.Contains("?$!#@*", name) {
		return true
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return name != ""
}

// tilde expands a leading ~ or ~/ of the first literal of a word to $HOME.
// The home directory is matched literally when globbing.
func (x *Expander) tilde(env Env, text string, f *Field) string {
	if env == nil || (text != "~" && !strings.HasPrefix(text, "~/")) {
		return text
	}
	home, ok := env.Lookup("HOME")
	if !ok || home == "" {
		return text
	}
	f.addQuoted(home)
	return strings.TrimPrefix(text, "~")
}
