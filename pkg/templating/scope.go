package templating

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/CTAG07/philterz/pkg/records"
)

// ErrNoScope is returned by the variable functions when a template is
// executed outside a TemplateManager render.
var ErrNoScope = errors.New("templating: function requires a render scope")

// Resolver is implemented by values that look up their own attributes,
// such as records.Record.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// scope is the per-render variable store. A scope is used by one render on
// one goroutine and needs no locking.
type scope struct {
	tm       *TemplateManager
	tmpl     *template.Template
	data     any
	vars     map[string]any
	deleted  map[string]struct{}
	settings Settings
	config   TemplateConfig
	depth    int
}

// newScope snapshots the manager's settings and config. The caller must
// hold tm.mu.
func (tm *TemplateManager) newScope(tmpl *template.Template, data any) *scope {
	return &scope{
		tm:       tm,
		tmpl:     tmpl,
		data:     data,
		vars:     make(map[string]any),
		deleted:  make(map[string]struct{}),
		settings: tm.settings,
		config:   *tm.config,
	}
}

func (s *scope) funcMap() template.FuncMap {
	return template.FuncMap{
		"set":            s.set,
		"del":            s.del,
		"var":            s.lookup,
		"display":        s.display,
		"renderVar":      s.renderVar,
		"setting":        s.setting,
		"settingValue":   s.settingValue,
		"matches":        s.matches,
		"serialize":      s.serialize,
		"serializeValue": s.serializeValue,
	}
}

// unboundFuncMap holds parse-time stand-ins for the scope functions.
func unboundFuncMap() template.FuncMap {
	unbound := func(...any) (string, error) { return "", ErrNoScope }
	return template.FuncMap{
		"set":            unbound,
		"del":            unbound,
		"var":            unbound,
		"display":        unbound,
		"renderVar":      unbound,
		"setting":        unbound,
		"settingValue":   unbound,
		"matches":        unbound,
		"serialize":      unbound,
		"serializeValue": unbound,
	}
}

// set assigns a variable for the rest of the render.
func (s *scope) set(name string, value any) string {
	s.vars[name] = value
	delete(s.deleted, name)
	return ""
}

// del removes variables, hiding render data of the same name as well.
func (s *scope) del(names ...string) string {
	for _, name := range names {
		delete(s.vars, name)
		s.deleted[name] = struct{}{}
	}
	return ""
}

// lookup resolves a dotted path against assigned variables, then the render
// data. It returns nil when any segment is missing.
func (s *scope) lookup(path string) any {
	head, rest, _ := strings.Cut(path, ".")
	if _, gone := s.deleted[head]; gone {
		return nil
	}
	cur, ok := s.vars[head]
	if !ok {
		if cur, ok = resolveAttr(s.data, head); !ok {
			return nil
		}
	}
	for rest != "" {
		head, rest, _ = strings.Cut(rest, ".")
		if cur, ok = resolveAttr(cur, head); !ok {
			return nil
		}
	}
	return cur
}

// display substitutes StringIfInvalid for missing values.
func (s *scope) display(v any) any {
	if v == nil {
		return s.config.StringIfInvalid
	}
	return v
}

// renderVar executes the named template and stores its output in a variable.
// The output has already been escaped, so it is stored as template.HTML.
func (s *scope) renderVar(name, tmplName string, data any) (string, error) {
	if s.config.MaxCaptureDepth > 0 && s.depth >= s.config.MaxCaptureDepth {
		return "", fmt.Errorf("renderVar %q: nesting exceeds MaxCaptureDepth (%d)", name, s.config.MaxCaptureDepth)
	}
	s.depth++
	defer func() { s.depth-- }()

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, tmplName, data); err != nil {
		return "", err
	}
	s.set(name, template.HTML(buf.String()))
	return "", nil
}

func (s *scope) setting(name string) bool {
	return s.settings.Enabled(name)
}

func (s *scope) settingValue(name string) any {
	v, _ := s.settings.Get(name)
	return v
}

// matches reports whether pattern matches at the start of value.
func (s *scope) matches(value any, pattern string) bool {
	re, ok := s.tm.compileRegex(pattern, s.config.MaxRegexLength, s.config.RegexCacheSize)
	if !ok {
		return false
	}
	return re.MatchString(toString(value))
}

// serialize renders value in the named format.
func (s *scope) serialize(format string, value any) (string, error) {
	if recs, ok := records.Collect(value); ok && s.config.MaxSerializeItems > 0 && len(recs) > s.config.MaxSerializeItems {
		s.tm.logger.Warn("serialize: truncating collection", "count", len(recs), "max", s.config.MaxSerializeItems)
		value = recs[:s.config.MaxSerializeItems]
	}
	var buf bytes.Buffer
	if err := records.Serialize(&buf, format, value, records.Options{Indent: s.config.SerializeIndent}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// serializeValue is serialize with the arguments in filter order.
func (s *scope) serializeValue(value any, format string) (string, error) {
	return s.serialize(format, value)
}

// resolveAttr looks up one path segment on v: a Resolver, a map key, a
// struct field, a slice index or a method without arguments.
func resolveAttr(v any, name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	if r, ok := v.(Resolver); ok {
		return r.Resolve(name)
	}
	if m, ok := methodValue(reflect.ValueOf(v), name); ok {
		return m, true
	}

	rv := indirect(v)
	if !rv.IsValid() {
		return nil, false
	}
	if rv.CanInterface() {
		if r, ok := rv.Interface().(Resolver); ok {
			return r.Resolve(name)
		}
	}
	switch rv.Kind() {
	case reflect.Map:
		keyType := rv.Type().Key()
		if keyType.Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(keyType))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		if f, ok := structField(rv, name); ok {
			return f.Interface(), true
		}
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

// structField matches an exported field by exact name, json tag, or name
// ignoring case.
func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	if f, ok := rt.FieldByName(name); ok && f.IsExported() {
		return rv.FieldByIndex(f.Index), true
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if tag == name || strings.EqualFold(f.Name, name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// methodValue calls an exported method taking no arguments and returning a
// single value, the way Django calls methods during variable lookup.
func methodValue(rv reflect.Value, name string) (any, bool) {
	if !rv.IsValid() || name == "" {
		return nil, false
	}
	r, size := utf8.DecodeRuneInString(name)
	m := rv.MethodByName(string(unicode.ToUpper(r)) + name[size:])
	if !m.IsValid() {
		return nil, false
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() != 1 {
		return nil, false
	}
	return m.Call(nil)[0].Interface(), true
}
