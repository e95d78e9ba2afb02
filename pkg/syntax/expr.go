package syntax

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numberRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	pathRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)
)

// compileExpr turns a filter expression such as user.name|sha1 or
// 'x'|default:y into a parenthesised Go template pipeline.
func (t *translator) compileExpr(expr string) (string, error) {
	parts := splitUnquoted(expr, '|', -1)
	acc, err := compileValue(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", err
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		nameArg := splitUnquoted(part, ':', 2)
		name := strings.TrimSpace(nameArg[0])
		fn, ok := t.reg.Filter(name)
		if !ok {
			return "", fmt.Errorf("invalid filter: '%s'", name)
		}
		if len(nameArg) == 1 {
			acc = fmt.Sprintf("(%s %s)", fn, acc)
			continue
		}
		arg, err := compileValue(strings.TrimSpace(nameArg[1]))
		if err != nil {
			return "", fmt.Errorf("filter '%s': %w", name, err)
		}
		acc = fmt.Sprintf("(%s %s %s)", fn, acc, arg)
	}
	return acc, nil
}

// compileLiteralArg treats a bare word as a string literal and anything else
// as an expression.
func (t *translator) compileLiteralArg(bit string) (string, error) {
	if identRe.MatchString(bit) {
		return strconv.Quote(bit), nil
	}
	return t.compileExpr(bit)
}

func compileValue(s string) (string, error) {
	switch {
	case s == "":
		return "", errors.New("empty expression")
	case isQuoted(s):
		return strconv.Quote(unquote(s)), nil
	case numberRe.MatchString(s):
		return s, nil
	case s == "True":
		return "true", nil
	case s == "False":
		return "false", nil
	case s == "None":
		return "nil", nil
	case pathRe.MatchString(s):
		return fmt.Sprintf("(var %s)", strconv.Quote(s)), nil
	default:
		return "", fmt.Errorf("could not parse the remainder: '%s'", s)
	}
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	q := s[0]
	return (q == '"' || q == '\'') && s[len(s)-1] == q
}

// unquote strips the quotes of a string literal and unescapes the quote
// character and backslashes only, leaving sequences like \w intact.
func unquote(s string) string {
	q := s[:1]
	body := s[1 : len(s)-1]
	body = strings.ReplaceAll(body, `\`+q, q)
	return strings.ReplaceAll(body, `\\`, `\`)
}
