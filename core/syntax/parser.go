// Package syntax implements the lexer and parser for vsh's simplified shell
// grammar:
//
//	complete_command := pipe_sequence (punctuator pipe_sequence)* [punctuator]
//	pipe_sequence    := simple_command ('|' simple_command)*
//	simple_command   := assignment_word+ [cmd_word] [suffix] | cmd_word [suffix]
//	suffix           := word+ [redirect] | redirect
//	redirect         := ('>' | '>>') word
//
// Punctuators are ';', '&' and newlines; '&' marks the preceding pipe
// sequence as a background job.
package syntax

import "strings"

// Line is the result of parsing one (possibly multi-line) input.
type Line struct {
	Source string
	Tokens []Token
	Groups []*PipeSequence
}

// PipeSequence is one or more commands joined by '|'.
type PipeSequence struct {
	Commands   []*SimpleCommand
	Background bool
	Pos        int
	End        int
}

// SimpleCommand is a single command in a pipe sequence.
type SimpleCommand struct {
	Assigns  []Token
	Name     *Token
	Args     []Token
	Redirect *Redirect
	Pos      int
	End      int
}

// Redirect is an output redirection to a file.
type Redirect struct {
	Append bool
	Target Token
	Pos    int
}

// Words returns the command word followed by its arguments.
func (c *SimpleCommand) Words() []Token {
	if c.Name == nil {
		return nil
	}
	return append([]Token{*c.Name}, c.Args...)
}

// IsAssignmentOnly reports whether the command only sets variables.
func (c *SimpleCommand) IsAssignmentOnly() bool {
	return c.Name == nil && c.Redirect == nil && len(c.Assigns) > 0
}

func (c *SimpleCommand) String() string {
	var out []string
	for _, a := range c.Assigns {
		out = append(out, a.Raw)
	}
	for _, w := range c.Words() {
		out = append(out, w.Raw)
	}
	if c.Redirect != nil {
		op := ">"
		if c.Redirect.Append {
			op = ">>"
		}
		out = append(out, op, c.Redirect.Target.Raw)
	}
	return strings.Join(out, " ")
}

func (p *PipeSequence) String() string {
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

// Parse tokenizes and parses a line.
func Parse(src string) (*Line, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, tokens: tokens}
	groups, err := p.completeCommand()
	if err != nil {
		return nil, err
	}

	return &Line{Source: src, Tokens: tokens, Groups: groups}, nil
}

type parser struct {
	src    string
	tokens []Token
	i      int
}

func (p *parser) eof() bool {
	return p.i >= len(p.tokens)
}

func (p *parser) peek() *Token {
	if p.eof() {
		return nil
	}
	return &p.tokens[p.i]
}

func (p *parser) next() Token {
	tok := p.tokens[p.i]
	p.i++
	return tok
}

func (p *parser) unexpected() *SyntaxError {
	tok := p.peek()
	if tok == nil {
		return errorf(len(p.src), "unexpected end of line")
	}
	return errorf(tok.Pos, "unexpected token %s", tok.Kind)
}

func (p *parser) completeCommand() ([]*PipeSequence, error) {
	var groups []*PipeSequence

	// Blank lines (or lines holding only newlines and comments) parse to an
	// empty list.
	for !p.eof() && p.peek().Kind == Semicolon && p.peek().Raw == "\n" {
		p.i++
	}

	for !p.eof() {
		seq, err := p.pipeSequence()
		if err != nil {
			return nil, err
		}
		groups = append(groups, seq)

		if p.eof() {
			break
		}

		tok := p.peek()
		if !tok.Kind.IsPunctuator() {
			return nil, p.unexpected()
		}
		p.i++
		seq.Background = tok.Kind == Ampersand

		// Newlines may follow any punctuator.
		for !p.eof() && p.peek().Kind == Semicolon && p.peek().Raw == "\n" {
			p.i++
		}
	}

	return groups, nil
}

func (p *parser) pipeSequence() (*PipeSequence, error) {
	seq := &PipeSequence{}
	for {
		cmd, err := p.simpleCommand()
		if err != nil {
			return nil, err
		}
		seq.Commands = append(seq.Commands, cmd)

		if p.eof() || p.peek().Kind != Pipe {
			break
		}
		p.i++
	}

	seq.Pos = seq.Commands[0].Pos
	seq.End = seq.Commands[len(seq.Commands)-1].End
	return seq, nil
}

func isWord(tok *Token) bool {
	return tok != nil && (tok.Kind == Word || tok.Kind == AssignmentWord)
}

func (p *parser) simpleCommand() (*SimpleCommand, error) {
	cmd := &SimpleCommand{}
	if tok := p.peek(); tok != nil {
		cmd.Pos = tok.Pos
	}

	for tok := p.peek(); tok != nil && tok.Kind == AssignmentWord; tok = p.peek() {
		cmd.Assigns = append(cmd.Assigns, p.next())
	}

	for tok := p.peek(); isWord(tok); tok = p.peek() {
		word := p.next()
		// After the first word, NAME=value is just an argument.
		word.Kind = Word
		if cmd.Name == nil {
			cmd.Name = &word
		} else {
			cmd.Args = append(cmd.Args, word)
		}
	}

	if len(cmd.Assigns) == 0 && cmd.Name == nil {
		return nil, p.unexpected()
	}

	if tok := p.peek(); tok != nil && tok.Kind.IsRedirect() {
		op := p.next()
		target := p.peek()
		if !isWord(target) {
			return nil, p.unexpected()
		}
		t := p.next()
		t.Kind = Word
		cmd.Redirect = &Redirect{Append: op.Kind == RedirAppend, Target: t, Pos: op.Pos}

		if isWord(p.peek()) {
			return nil, errorf(p.peek().Pos, "unexpected word after redirection")
		}
	}

	cmd.End = p.tokens[p.i-1].End
	return cmd, nil
}
