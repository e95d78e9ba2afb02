package syntax

import (
	"fmt"
	"strconv"
	"strings"
)

type frame struct {
	spec    TagSpec
	line    int
	sawElse bool

	// capture frames only
	varName string
	defName string
	parent  *strings.Builder
}

type translator struct {
	name     string
	reg      *Registry
	out      *strings.Builder
	stack    []*frame
	defines  strings.Builder
	captures int
	line     int
}

// Translate converts Django-syntax source into Go template text. The name is
// used in error messages and to name the templates extracted from capture
// tags, so it should be the name the result will be parsed under.
func Translate(name, src string, reg *Registry) (string, error) {
	t := &translator{
		name: name,
		reg:  reg,
		out:  &strings.Builder{},
	}
	for _, tok := range tokenize(src) {
		t.line = tok.line
		var err error
		switch tok.typ {
		case textToken:
			t.text(tok.contents)
		case varToken:
			err = t.variable(tok.contents)
		case blockToken:
			err = t.block(tok.contents)
		case commentToken:
		}
		if err != nil {
			return "", err
		}
	}
	if n := len(t.stack); n > 0 {
		open := t.stack[n-1]
		t.line = open.line
		return "", t.errorf("unclosed tag '%s'; looking for 'end%s'", open.spec.Name, open.spec.Name)
	}
	t.out.WriteString(t.defines.String())
	return t.out.String(), nil
}

func (t *translator) errorf(format string, args ...any) error {
	return &SyntaxError{Template: t.name, Line: t.line, Msg: fmt.Sprintf(format, args...)}
}

// text writes literal text, escaping anything Go templates would read as a
// left delimiter, including a trailing brace that would join the next action.
func (t *translator) text(s string) {
	s = strings.ReplaceAll(s, "{{", `{{"{{"}}`)
	if strings.HasSuffix(s, "{") {
		s = s[:len(s)-1] + `{{"{"}}`
	}
	t.out.WriteString(s)
}

func (t *translator) variable(contents string) error {
	if contents == "" {
		return t.errorf("empty variable tag")
	}
	expr, err := t.compileExpr(contents)
	if err != nil {
		return t.errorf("%v", err)
	}
	fmt.Fprintf(t.out, "{{display %s}}", expr)
	return nil
}

func (t *translator) block(contents string) error {
	bits := splitBits(contents)
	if len(bits) == 0 {
		return t.errorf("empty block tag")
	}
	name := bits[0]
	switch {
	case name == "load":
		return nil
	case name == "else":
		return t.elseTag()
	case strings.HasPrefix(name, "end"):
		return t.endTag(strings.TrimPrefix(name, "end"))
	}

	spec, ok := t.reg.Tag(name)
	if !ok {
		return t.errorf("invalid block tag: '%s'", name)
	}
	args := bits[1:]
	switch spec.Kind {
	case Condition:
		return t.condition(spec, args)
	case Simple:
		return t.simple(spec, args)
	case Assign:
		return t.assign(spec, args)
	case Delete:
		return t.del(spec, args)
	case Capture:
		return t.capture(spec, args)
	}
	return t.errorf("tag '%s' has unknown kind %v", name, spec.Kind)
}

func (t *translator) checkArgs(spec TagSpec, args []string) error {
	if spec.Args != Variadic && len(args) != spec.Args {
		return t.errorf("'%s' takes %d arguments, got %d", spec.Name, spec.Args, len(args))
	}
	return nil
}

func (t *translator) compileArgs(spec TagSpec, args []string) (string, error) {
	compiled := make([]string, 0, len(args))
	for i, arg := range args {
		var expr string
		var err error
		if i < spec.LiteralArgs {
			expr, err = t.compileLiteralArg(arg)
		} else {
			expr, err = t.compileExpr(arg)
		}
		if err != nil {
			return "", t.errorf("'%s': %v", spec.Name, err)
		}
		compiled = append(compiled, expr)
	}
	call := spec.Func
	if len(compiled) > 0 {
		call += " " + strings.Join(compiled, " ")
	}
	return call, nil
}

func (t *translator) condition(spec TagSpec, args []string) error {
	negate := false
	if n := len(args); n > 0 && args[n-1] == "negate" {
		negate = true
		args = args[:n-1]
	}
	if err := t.checkArgs(spec, args); err != nil {
		return err
	}
	call, err := t.compileArgs(spec, args)
	if err != nil {
		return err
	}
	if negate {
		fmt.Fprintf(t.out, "{{if not (%s)}}", call)
	} else {
		fmt.Fprintf(t.out, "{{if %s}}", call)
	}
	t.stack = append(t.stack, &frame{spec: spec, line: t.line})
	return nil
}

func (t *translator) simple(spec TagSpec, args []string) error {
	target := ""
	if n := len(args); n >= 2 && args[n-2] == "as" {
		target = args[n-1]
		if !identRe.MatchString(target) {
			return t.errorf("'%s': invalid variable name '%s'", spec.Name, target)
		}
		args = args[:n-2]
	}
	if err := t.checkArgs(spec, args); err != nil {
		return err
	}
	call, err := t.compileArgs(spec, args)
	if err != nil {
		return err
	}
	switch {
	case target != "":
		fmt.Fprintf(t.out, "{{set %s (%s)}}", strconv.Quote(target), call)
	case spec.Safe:
		fmt.Fprintf(t.out, "{{safe (%s)}}", call)
	default:
		fmt.Fprintf(t.out, "{{%s}}", call)
	}
	return nil
}

func (t *translator) assign(spec TagSpec, args []string) error {
	if len(args) == 0 {
		return t.errorf("'%s' requires at least one name=value pair", spec.Name)
	}
	for _, arg := range args {
		kv := splitUnquoted(arg, '=', 2)
		if len(kv) != 2 || !identRe.MatchString(kv[0]) {
			return t.errorf("'%s': expected name=value, got '%s'", spec.Name, arg)
		}
		expr, err := t.compileExpr(kv[1])
		if err != nil {
			return t.errorf("'%s': %v", spec.Name, err)
		}
		fmt.Fprintf(t.out, "{{%s %s %s}}", spec.Func, strconv.Quote(kv[0]), expr)
	}
	return nil
}

func (t *translator) del(spec TagSpec, args []string) error {
	if len(args) == 0 {
		return t.errorf("'%s' requires at least one variable name", spec.Name)
	}
	quoted := make([]string, 0, len(args))
	for _, arg := range args {
		if !identRe.MatchString(arg) {
			return t.errorf("'%s': invalid variable name '%s'", spec.Name, arg)
		}
		quoted = append(quoted, strconv.Quote(arg))
	}
	fmt.Fprintf(t.out, "{{%s %s}}", spec.Func, strings.Join(quoted, " "))
	return nil
}

func (t *translator) capture(spec TagSpec, args []string) error {
	if len(args) != 2 || args[0] != "as" || !identRe.MatchString(args[1]) {
		return t.errorf("'%s' expects 'as <name>'", spec.Name)
	}
	t.captures++
	f := &frame{
		spec:    spec,
		line:    t.line,
		varName: args[1],
		defName: fmt.Sprintf("%s/%s-%d", t.name, spec.Name, t.captures),
		parent:  t.out,
	}
	t.stack = append(t.stack, f)
	t.out = &strings.Builder{}
	return nil
}

func (t *translator) elseTag() error {
	n := len(t.stack)
	if n == 0 || t.stack[n-1].spec.Kind != Condition {
		return t.errorf("'else' outside of a condition tag")
	}
	f := t.stack[n-1]
	if f.sawElse {
		return t.errorf("'%s' has more than one 'else'", f.spec.Name)
	}
	f.sawElse = true
	t.out.WriteString("{{else}}")
	return nil
}

func (t *translator) endTag(name string) error {
	n := len(t.stack)
	if n == 0 {
		return t.errorf("unexpected 'end%s'", name)
	}
	f := t.stack[n-1]
	if f.spec.Name != name {
		return t.errorf("expected 'end%s', got 'end%s'", f.spec.Name, name)
	}
	t.stack = t.stack[:n-1]

	if f.spec.Kind != Capture {
		t.out.WriteString("{{end}}")
		return nil
	}
	fmt.Fprintf(&t.defines, "{{define %s}}%s{{end}}", strconv.Quote(f.defName), t.out.String())
	t.out = f.parent
	fmt.Fprintf(t.out, "{{%s %s %s .}}", f.spec.Func, strconv.Quote(f.varName), strconv.Quote(f.defName))
	return nil
}
