package syntax

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	blanks = " \t\r"

	// wordStop holds the characters that terminate an unquoted word.
	wordStop = blanks + "\n;&|<>()"

	// literalStop holds the characters that end a run of literal text
	// within an unquoted word.
	literalStop = wordStop + "\\'\"`$"

	// specialParams are the single character parameters after a '$'.
	specialParams = "?$!#@*0123456789"
)

var assignmentPrefix = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

// IsName reports whether s is a valid variable name.
func IsName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isNameByte(b byte) bool {
	return isNameStart(b) || (b >= '0' && b <= '9')
}

// scanner walks a source string. base is added to every reported offset so
// nested sources (the inside of a double-quoted word) report positions in the
// original line.
type scanner struct {
	src  string
	pos  int
	base int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) rest() string {
	return s.src[s.pos:]
}

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(i int) byte {
	if s.pos+i >= len(s.src) {
		return 0
	}
	return s.src[s.pos+i]
}

func (s *scanner) offset() int {
	return s.base + s.pos
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.rest(), prefix)
}

func (s *scanner) consumeWhileNotIn(set string) string {
	start := s.pos
	for !s.eof() && strings.IndexByte(set, s.peek()) < 0 {
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) span(kind Kind, start int, value string) Token {
	return Token{
		Kind:  kind,
		Raw:   s.src[start:s.pos],
		Value: value,
		Pos:   s.base + start,
		End:   s.base + s.pos,
	}
}

// Lex splits a line into tokens.
func Lex(src string) ([]Token, error) {
	s := &scanner{src: src}
	var tokens []Token

	for {
		if s.eof() {
			return tokens, nil
		}

		start := s.pos
		switch c := s.peek(); {
		case strings.IndexByte(blanks, c) >= 0:
			s.pos++
		case c == '\n' || c == ';':
			s.pos++
			tokens = append(tokens, s.span(Semicolon, start, ";"))
		case c == '&':
			if s.peekAt(1) == '&' {
				return nil, errorf(s.offset(), "unsupported operator %q", "&&")
			}
			s.pos++
			tokens = append(tokens, s.span(Ampersand, start, "&"))
		case c == '|':
			if s.peekAt(1) == '|' {
				return nil, errorf(s.offset(), "unsupported operator %q", "||")
			}
			s.pos++
			tokens = append(tokens, s.span(Pipe, start, "|"))
		case c == '>':
			if s.peekAt(1) == '>' {
				s.pos += 2
				tokens = append(tokens, s.span(RedirAppend, start, ">>"))
			} else {
				s.pos++
				tokens = append(tokens, s.span(RedirOut, start, ">"))
			}
		case c == '<' || c == '(' || c == ')':
			return nil, errorf(s.offset(), "unexpected character %q", c)
		case c == '#':
			// Comments run to the end of the line.
			s.consumeWhileNotIn("\n")
		default:
			word, err := s.word()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, word)
		}
	}
}

// word reads one unquoted word made of literal, escaped, quoted, variable and
// command substitution parts.
func (s *scanner) word() (Token, error) {
	start := s.pos
	var parts []Token

	addPart := func(part Token) {
		// Merge adjacent literals so the assignment prefix and bare words are
		// always held in a single part.
		if n := len(parts); n > 0 && part.Kind == Literal && parts[n-1].Kind == Literal {
			prev := &parts[n-1]
			prev.Raw += part.Raw
			prev.Value += part.Value
			prev.End = part.End
			return
		}
		parts = append(parts, part)
	}

	for !s.eof() && strings.IndexByte(wordStop, s.peek()) < 0 {
		switch s.peek() {
		case '\\':
			part, ok := s.escape(false)
			if ok {
				parts = append(parts, part)
			}
		case '\'':
			part, err := s.singleQuoted()
			if err != nil {
				return Token{}, err
			}
			parts = append(parts, part)
		case '"':
			part, err := s.doubleQuoted()
			if err != nil {
				return Token{}, err
			}
			parts = append(parts, part)
		case '`':
			part, err := s.backquote()
			if err != nil {
				return Token{}, err
			}
			parts = append(parts, part)
		case '$':
			part, err := s.dollar()
			if err != nil {
				return Token{}, err
			}
			addPart(part)
		default:
			litStart := s.pos
			text := s.consumeWhileNotIn(literalStop)
			addPart(s.span(Literal, litStart, text))
		}
	}

	tok := s.span(Word, start, "")
	tok.Parts = parts
	if len(parts) > 0 && parts[0].Kind == Literal && assignmentPrefix.MatchString(parts[0].Value) {
		tok.Kind = AssignmentWord
	}
	return tok, nil
}

// escape reads a backslash sequence. Outside double quotes any character may
// be escaped; inside them only a few are special and the backslash is kept
// for the rest. A backslash-newline is a line continuation and yields no part.
func (s *scanner) escape(inDouble bool) (Token, bool) {
	start := s.pos
	s.pos++ // backslash

	if s.eof() {
		return s.span(Escape, start, `\`), true
	}

	c := s.peek()
	switch {
	case c == '\n':
		s.pos++
		return Token{}, false

	case c == '0':
		s.pos++
		digits := s.takeDigits("01234567", 3)
		value := 0
		if digits != "" {
			v, _ := strconv.ParseInt(digits, 8, 32)
			value = int(v)
		}
		return s.span(Escape, start, string(rune(value))), true

	case c == 'x' && isHex(s.peekAt(1)):
		s.pos++
		digits := s.takeDigits("0123456789abcdefABCDEF", 2)
		v, _ := strconv.ParseInt(digits, 16, 32)
		return s.span(Escape, start, string(rune(v))), true

	case inDouble && strings.IndexByte("$`\"\\", c) < 0:
		s.pos++
		return s.span(Literal, start, s.src[start:s.pos]), true

	default:
		s.pos++
		return s.span(Escape, start, string(c)), true
	}
}

func isHex(b byte) bool {
	return strings.IndexByte("0123456789abcdefABCDEF", b) >= 0 && b != 0
}

func (s *scanner) takeDigits(set string, max int) string {
	start := s.pos
	for s.pos-start < max && !s.eof() && strings.IndexByte(set, s.peek()) >= 0 {
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) singleQuoted() (Token, error) {
	start := s.pos
	end := strings.IndexByte(s.src[start+1:], '\'')
	if end < 0 {
		return Token{}, errorf(s.offset(), "unterminated single quote")
	}
	s.pos = start + 1 + end + 1
	return s.span(SingleQuoted, start, s.src[start+1:s.pos-1]), nil
}

func (s *scanner) doubleQuoted() (Token, error) {
	start := s.pos
	end := skipDouble(s.src, start+1)
	if end < 0 {
		return Token{}, errorf(s.offset(), "unterminated double quote")
	}
	s.pos = end + 1

	interior := s.src[start+1 : end]
	parts, err := ParseDoubleQuoted(interior, s.base+start+1)
	if err != nil {
		return Token{}, err
	}
	tok := s.span(DoubleQuoted, start, interior)
	tok.Parts = parts
	return tok, nil
}

var backquoteUnescaper = strings.NewReplacer("\\`", "`", `\\`, `\`, `\$`, `$`)

func (s *scanner) backquote() (Token, error) {
	start := s.pos
	end := skipBackquote(s.src, start+1)
	if end < 0 {
		return Token{}, errorf(s.offset(), "unterminated command substitution")
	}
	s.pos = end + 1
	inner := backquoteUnescaper.Replace(s.src[start+1 : end])
	return s.span(CommandSubst, start, inner), nil
}

// dollar reads a variable or $( ) command substitution. A '$' that doesn't
// start either is a literal.
func (s *scanner) dollar() (Token, error) {
	start := s.pos
	next := s.peekAt(1)

	switch {
	case next == '(':
		end := matchParen(s.src, start+2)
		if end < 0 {
			return Token{}, errorf(s.offset(), "unterminated command substitution")
		}
		s.pos = end + 1
		return s.span(CommandSubst, start, s.src[start+2:end]), nil

	case next == '{':
		end := strings.IndexByte(s.src[start+2:], '}')
		if end < 0 {
			return Token{}, &SyntaxError{Offset: s.offset(), Msg: ErrMissingBrace.Error(), Err: ErrMissingBrace}
		}
		s.pos = start + 2 + end + 1
		return s.span(Variable, start, s.src[start+2:s.pos-1]), nil

	case isNameStart(next):
		s.pos++
		for !s.eof() && isNameByte(s.peek()) {
			s.pos++
		}
		return s.span(Variable, start, s.src[start+1:s.pos]), nil

	case next != 0 && strings.IndexByte(specialParams, next) >= 0:
		s.pos += 2
		return s.span(Variable, start, string(next)), nil

	default:
		s.pos++
		return s.span(Literal, start, "$"), nil
	}
}

// skipDouble returns the index of the double quote closing the string that
// starts at i, or -1.
func skipDouble(src string, i int) int {
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '"':
			return i
		case '`':
			end := skipBackquote(src, i+1)
			if end < 0 {
				return -1
			}
			i = end
		case '$':
			if i+1 < len(src) && src[i+1] == '(' {
				end := matchParen(src, i+2)
				if end < 0 {
					return -1
				}
				i = end
			}
		}
		i++
	}
	return -1
}

// skipBackquote returns the index of the unescaped backquote closing a
// substitution whose body starts at i, or -1.
func skipBackquote(src string, i int) int {
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '`':
			return i
		}
		i++
	}
	return -1
}

// matchParen returns the index of the parenthesis closing a $( whose body
// starts at i, or -1. Quotes inside the body are skipped.
func matchParen(src string, i int) int {
	depth := 1
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case '\'':
			end := strings.IndexByte(src[i+1:], '\'')
			if end < 0 {
				return -1
			}
			i += end + 1
		case '"':
			end := skipDouble(src, i+1)
			if end < 0 {
				return -1
			}
			i = end
		case '`':
			end := skipBackquote(src, i+1)
			if end < 0 {
				return -1
			}
			i = end
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}
