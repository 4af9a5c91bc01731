package syntax

// ParseDoubleQuoted parses the interior of a double-quoted word. The grammar
// is restricted: escapes, variables, command substitutions and literal text.
// Quotes don't nest and globbing characters have no meaning.
//
// base is the offset of the interior within the enclosing line.
func ParseDoubleQuoted(interior string, base int) ([]Token, error) {
	s := &scanner{src: interior, base: base}
	var parts []Token

	addLiteral := func(part Token) {
		if n := len(parts); n > 0 && parts[n-1].Kind == Literal {
			prev := &parts[n-1]
			prev.Raw += part.Raw
			prev.Value += part.Value
			prev.End = part.End
			return
		}
		parts = append(parts, part)
	}

	for !s.eof() {
		switch s.peek() {
		case '\\':
			part, ok := s.escape(true)
			if !ok {
				continue
			}
			if part.Kind == Literal {
				addLiteral(part)
			} else {
				parts = append(parts, part)
			}
		case '`':
			part, err := s.backquote()
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case '$':
			part, err := s.dollar()
			if err != nil {
				return nil, err
			}
			if part.Kind == Literal {
				addLiteral(part)
			} else {
				parts = append(parts, part)
			}
		default:
			start := s.pos
			text := s.consumeWhileNotIn("\\`$")
			addLiteral(s.span(Literal, start, text))
		}
	}

	return parts, nil
}
