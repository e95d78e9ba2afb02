package templating

import (
	"errors"
	"fmt"
	"html/template"
	"reflect"

	"github.com/CTAG07/philterz/pkg/syntax"
)

// builtinTags are the Django tags understood by *.dj.html templates and
// ExecuteDjangoString.
var builtinTags = []syntax.TagSpec{
	// Comparison
	{Name: "if_less", Func: "less", Kind: syntax.Condition, Args: 2},
	{Name: "if_less_or_equal", Func: "lessOrEqual", Kind: syntax.Condition, Args: 2},
	{Name: "if_greater", Func: "greater", Kind: syntax.Condition, Args: 2},
	{Name: "if_greater_or_equal", Func: "greaterOrEqual", Kind: syntax.Condition, Args: 2},
	{Name: "if_equal", Func: "equal", Kind: syntax.Condition, Args: 2},
	{Name: "if_not_equal", Func: "notEqual", Kind: syntax.Condition, Args: 2},

	// Predicates
	{Name: "if_matches", Func: "matches", Kind: syntax.Condition, Args: 2},
	{Name: "if_contains", Func: "contains", Kind: syntax.Condition, Args: 2},
	{Name: "if_divisible_by", Func: "divisibleBy", Kind: syntax.Condition, Args: 2},
	{Name: "if_startswith", Func: "startsWith", Kind: syntax.Condition, Args: 2},
	{Name: "if_endswith", Func: "endsWith", Kind: syntax.Condition, Args: 2},
	{Name: "if_subset", Func: "subset", Kind: syntax.Condition, Args: 2},
	{Name: "if_superset", Func: "superset", Kind: syntax.Condition, Args: 2},
	{Name: "if_setting", Func: "setting", Kind: syntax.Condition, Args: 1},

	// Variables
	{Name: "set", Func: "set", Kind: syntax.Assign, Args: syntax.Variadic},
	{Name: "del", Func: "del", Kind: syntax.Delete, Args: syntax.Variadic},
	{Name: "render_var", Func: "renderVar", Kind: syntax.Capture, Args: 2},

	// Output
	{Name: "serialize", Func: "serialize", Kind: syntax.Simple, Args: 2, LiteralArgs: 1, Safe: true},
	{Name: "hash", Func: "hash", Kind: syntax.Simple, Args: 2, LiteralArgs: 1},
}

// builtinFilters maps Django filter names to template functions. Hash
// algorithms are added by registerBuiltins.
var builtinFilters = map[string]string{
	"safe":           "safe",
	"default":        "default",
	"hash":           "hashValue",
	"serialize":      "serializeValue",
	"filesizeformat": "filesizeformat",
	"intcomma":       "intcomma",
	"ordinal":        "ordinal",
	"naturaltime":    "naturaltime",
	"add":            "add",
	"length":         "length",
}

func makeFuncMap() template.FuncMap {
	funcs := template.FuncMap{
		// Comparison (from funcs_compare.go)
		"less":           less,
		"lessOrEqual":    lessOrEqual,
		"greater":        greater,
		"greaterOrEqual": greaterOrEqual,
		"equal":          equal,
		"notEqual":       notEqual,

		// Predicates (from funcs_predicate.go)
		"contains":    contains,
		"divisibleBy": divisibleBy,
		"startsWith":  startsWith,
		"endsWith":    endsWith,
		"subset":      subset,
		"superset":    superset,

		// Hashing (from funcs_hash.go)
		"hash":      hashWith,
		"hashValue": hashValue,

		// Filters (from funcs_filters.go)
		"safe":           safe,
		"default":        defaultValue,
		"filesizeformat": filesizeformat,
		"intcomma":       intcomma,
		"ordinal":        ordinal,
		"naturaltime":    naturaltime,
		"add":            add,
		"length":         length,
	}
	for _, algorithm := range hashAlgorithms() {
		funcs[algorithm] = digestFunc(algorithm)
	}
	// Bound per render (from scope.go)
	for name, fn := range unboundFuncMap() {
		funcs[name] = fn
	}
	return funcs
}

func registerBuiltins(reg *syntax.Registry) error {
	var errs []error
	for _, spec := range builtinTags {
		errs = append(errs, reg.RegisterTag(spec))
	}
	for name, fn := range builtinFilters {
		errs = append(errs, reg.RegisterFilter(name, fn))
	}
	for _, algorithm := range hashAlgorithms() {
		errs = append(errs,
			reg.RegisterTag(syntax.TagSpec{Name: algorithm, Func: algorithm, Kind: syntax.Simple, Args: 1}),
			reg.RegisterFilter(algorithm, algorithm),
		)
	}
	return errors.Join(errs...)
}

// RegisterFilter adds fn to the function map under name and makes it
// available as a Django filter. The filtered value is passed as the first
// argument. Templates must be refreshed to use the new filter.
func (tm *TemplateManager) RegisterFilter(name string, fn any) error {
	if err := checkFunc(name, fn); err != nil {
		return err
	}
	if err := tm.registry.RegisterFilter(name, name); err != nil {
		return err
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.funcMap[name] = fn
	return nil
}

// RegisterTag adds a Django tag. If fn is non-nil it is stored in the
// function map under spec.Func; otherwise spec.Func must already exist.
// Templates must be refreshed to use the new tag.
func (tm *TemplateManager) RegisterTag(spec syntax.TagSpec, fn any) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if fn != nil {
		if err := checkFunc(spec.Func, fn); err != nil {
			return err
		}
	} else if _, ok := tm.funcMap[spec.Func]; !ok {
		return fmt.Errorf("tag %q: function %q is not registered", spec.Name, spec.Func)
	}
	if err := tm.registry.RegisterTag(spec); err != nil {
		return err
	}
	if fn != nil {
		tm.funcMap[spec.Func] = fn
	}
	return nil
}

// checkFunc applies html/template's rules for function map values, which
// would otherwise panic at parse time.
func checkFunc(name string, fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("value for %q is not a function", name)
	}
	errorType := reflect.TypeOf((*error)(nil)).Elem()
	switch t := v.Type(); {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return fmt.Errorf("function %q must return one value, or a value and an error", name)
	}
	return nil
}
