package syntax

import "strings"

type tokenType int

const (
	textToken tokenType = iota
	varToken
	blockToken
	commentToken
)

type token struct {
	typ      tokenType
	contents string
	line     int
}

var closers = map[byte]string{
	'{': "}}",
	'%': "%}",
	'#': "#}",
}

// tokenize splits src into text and tag tokens. A tag opener without a
// matching closer is kept as text.
func tokenize(src string) []token {
	var tokens []token
	line := 1
	var text strings.Builder
	textLine := line

	flushText := func() {
		if text.Len() > 0 {
			tokens = append(tokens, token{typ: textToken, contents: text.String(), line: textLine})
			text.Reset()
		}
	}

	for i := 0; i < len(src); {
		if typ, body, n, ok := scanTag(src[i:]); ok {
			flushText()
			tokens = append(tokens, token{typ: typ, contents: strings.TrimSpace(body), line: line})
			line += strings.Count(body, "\n")
			i += n
			textLine = line
			continue
		}
		if text.Len() == 0 {
			textLine = line
		}
		if src[i] == '\n' {
			line++
		}
		text.WriteByte(src[i])
		i++
	}
	flushText()
	return tokens
}

// scanTag reports whether s starts with a complete tag, returning its type,
// body and total length. Tags never span lines.
func scanTag(s string) (tokenType, string, int, bool) {
	if len(s) < 2 || s[0] != '{' {
		return textToken, "", 0, false
	}
	closer, ok := closers[s[1]]
	if !ok {
		return textToken, "", 0, false
	}
	end := strings.Index(s[2:], closer)
	if end < 0 {
		return textToken, "", 0, false
	}
	body := s[2 : 2+end]
	var typ tokenType
	switch s[1] {
	case '{':
		typ = varToken
	case '%':
		typ = blockToken
	default:
		typ = commentToken
	}
	if strings.Contains(body, "\n") {
		return textToken, "", 0, false
	}
	return typ, body, 2 + end + len(closer), true
}

// splitBits splits tag contents on whitespace that is outside quotes.
func splitBits(s string) []string {
	var bits []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			if cur.Len() > 0 {
				bits = append(bits, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		bits = append(bits, cur.String())
	}
	return bits
}

// splitUnquoted splits s on sep occurrences that are outside quotes,
// returning at most n parts (n < 0 means no limit).
func splitUnquoted(s string, sep byte, n int) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == sep:
			if n >= 0 && len(parts) == n-1 {
				continue
			}
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
