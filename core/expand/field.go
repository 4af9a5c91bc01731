package expand

import "strings"

// Field is one expanded argument held in two channels. Value is the text
// the argument means. Glob is the same text with every wildcard character
// that came from a quoted or escaped source escaped, so only unquoted
// wildcards take part in pattern matching.
type Field struct {
	Value string
	Glob  string
	// Meta is set if Glob holds an unescaped wildcard.
	Meta bool
	// Quoted is set if any part was quoted, quoted fields survive even
	// when empty.
	Quoted bool
}

func (f *Field) started() bool {
	return f.Value != "" || f.Quoted
}

// addLiteral appends unquoted text, wildcards keep their meaning.
func (f *Field) addLiteral(s string) {
	f.Value += s
	f.Glob += s
	if strings.ContainsAny(s, "*?[") {
		f.Meta = true
	}
}

// addQuoted appends text whose wildcards must match literally.
func (f *Field) addQuoted(s string) {
	f.Value += s
	f.Glob += GlobEscape(s)
	f.Quoted = true
}

var globEscaper = strings.NewReplacer(
	`[`, `[[]`,
	`?`, `[?]`,
	`*`, `[*]`,
	// path.Match doesn't accept ']' inside a class, it's escaped with a
	// backslash instead, as is the backslash itself.
	`]`, `\]`,
	`\`, `\\`,
)

// GlobEscape escapes s so a glob pattern matches it literally.
func GlobEscape(s string) string {
	return globEscaper.Replace(s)
}

// splitter accumulates fields while expanding one word.
type splitter struct {
	fields []Field
	cur    Field
}

func (s *splitter) flush() {
	if s.cur.started() {
		s.fields = append(s.fields, s.cur)
	}
	s.cur = Field{}
}

// addSplit appends the result of an unquoted expansion, splitting it into
// fields on blanks. The first and last pieces join the surrounding text.
func (s *splitter) addSplit(text string) {
	const ifs = " \t\n"

	if text == "" {
		return
	}
	if strings.ContainsRune(ifs, rune(text[0])) {
		s.flush()
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(ifs, r)
	})
	for i, w := range words {
		if i > 0 {
			s.flush()
		}
		s.cur.addLiteral(w)
	}

	if strings.ContainsRune(ifs, rune(text[len(text)-1])) {
		s.flush()
	}
}

func (s *splitter) result() []Field {
	s.flush()
	return s.fields
}
