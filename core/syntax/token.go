package syntax

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a Token or of one of a word's parts.
type Kind int

const (
	Invalid Kind = iota

	// Top level tokens.
	Word
	AssignmentWord
	Semicolon
	Ampersand
	Pipe
	RedirOut
	RedirAppend

	// Sub-parts of words.
	Literal
	Escape
	SingleQuoted
	DoubleQuoted
	Variable
	CommandSubst
)

var kindNames = map[Kind]string{
	Invalid:        "invalid",
	Word:           "word",
	AssignmentWord: "assignment",
	Semicolon:      "';'",
	Ampersand:      "'&'",
	Pipe:           "'|'",
	RedirOut:       "'>'",
	RedirAppend:    "'>>'",
	Literal:        "literal",
	Escape:         "escape",
	SingleQuoted:   "single-quoted",
	DoubleQuoted:   "double-quoted",
	Variable:       "variable",
	CommandSubst:   "command-substitution",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsPunctuator reports whether the kind separates pipe sequences.
func (k Kind) IsPunctuator() bool {
	return k == Semicolon || k == Ampersand
}

// IsRedirect reports whether the kind is an output redirection operator.
func (k Kind) IsRedirect() bool {
	return k == RedirOut || k == RedirAppend
}

// Token is one lexical unit of a line.
//
// For words, Parts holds the ordered sub-parts. Raw holds the exact source
// text the token was read from and Value holds the decoded text of leaf parts:
// the literal characters, the decoded escape, the quoted text, the variable
// name or the command substitution's inner source.
type Token struct {
	Kind  Kind
	Raw   string
	Value string
	Pos   int
	End   int
	Parts []Token
}

// Span returns the byte offsets of the token in the source.
func (t Token) Span() (int, int) {
	return t.Pos, t.End
}

// AssignmentName returns the variable name of an assignment word, the name
// is stored in the leading literal part.
func (t Token) AssignmentName() string {
	if len(t.Parts) == 0 || t.Parts[0].Kind != Literal {
		return ""
	}
	name, _, _ := strings.Cut(t.Parts[0].Value, "=")
	return name
}

// AssignmentValue returns the parts making up the value of an assignment
// word with the leading NAME= stripped.
func (t Token) AssignmentValue() []Token {
	if len(t.Parts) == 0 {
		return nil
	}
	first := t.Parts[0]
	_, rest, _ := strings.Cut(first.Value, "=")
	eq := len(first.Value) - len(rest)

	var out []Token
	if rest != "" {
		out = append(out, Token{
			Kind:  Literal,
			Raw:   rest,
			Value: rest,
			Pos:   first.Pos + eq,
			End:   first.End,
		})
	}
	return append(out, t.Parts[1:]...)
}

// IsBare reports whether the word consists of a single unquoted literal,
// the only kind of word eligible for alias and history substitution.
func (t Token) IsBare() bool {
	return t.Kind == Word && len(t.Parts) == 1 && t.Parts[0].Kind == Literal
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Raw, t.Pos)
}
