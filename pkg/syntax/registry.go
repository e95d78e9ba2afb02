package syntax

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Kind selects how a tag is translated.
type Kind int

const (
	// Condition tags open a block that is rendered when the function returns
	// true. They accept a trailing "negate" argument and an {% else %} branch.
	Condition Kind = iota
	// Simple tags print the function's result, or store it with "as name".
	Simple
	// Assign tags take name=value pairs ({% set a=1 %}).
	Assign
	// Delete tags take bare variable names ({% del a b %}).
	Delete
	// Capture tags render their body into a variable ({% render_var as x %}).
	Capture
)

func (k Kind) String() string {
	switch k {
	case Condition:
		return "condition"
	case Simple:
		return "simple"
	case Assign:
		return "assign"
	case Delete:
		return "delete"
	case Capture:
		return "capture"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Variadic marks a TagSpec that accepts any number of arguments.
const Variadic = -1

// TagSpec describes a single registered tag.
type TagSpec struct {
	// Name is the tag name as written in template source.
	Name string
	// Func is the template function the tag calls.
	Func string
	Kind Kind
	// Args is the exact argument count, or Variadic. It excludes "negate"
	// and "as name" suffixes.
	Args int
	// LiteralArgs is the number of leading arguments that are taken as
	// string literals when written as bare words ({% serialize json users %}).
	LiteralArgs int
	// Safe marks simple tags whose output must not be HTML-escaped.
	Safe bool
}

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	reservedTags = map[string]struct{}{
		"else": {},
		"load": {},
	}
)

// Registry holds the tags and filters a translation may use.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tags    map[string]TagSpec
	filters map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tags:    make(map[string]TagSpec),
		filters: make(map[string]string),
	}
}

// RegisterTag adds or replaces a tag.
func (r *Registry) RegisterTag(spec TagSpec) error {
	if !identRe.MatchString(spec.Name) {
		return fmt.Errorf("invalid tag name %q", spec.Name)
	}
	if _, ok := reservedTags[spec.Name]; ok || strings.HasPrefix(spec.Name, "end") {
		return fmt.Errorf("tag name %q is reserved", spec.Name)
	}
	if spec.Kind > Capture || spec.Kind < Condition {
		return fmt.Errorf("tag %q has unknown kind %v", spec.Name, spec.Kind)
	}
	if spec.Func == "" || !identRe.MatchString(spec.Func) {
		return fmt.Errorf("tag %q has invalid function name %q", spec.Name, spec.Func)
	}
	if spec.Args < Variadic {
		return fmt.Errorf("tag %q has invalid argument count %d", spec.Name, spec.Args)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[spec.Name] = spec
	return nil
}

// RegisterFilter makes a filter name available, calling the template
// function fn with the filtered value as its first argument.
func (r *Registry) RegisterFilter(name, fn string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid filter name %q", name)
	}
	if !identRe.MatchString(fn) {
		return fmt.Errorf("filter %q has invalid function name %q", name, fn)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
	return nil
}

// Tag returns the spec registered under name.
func (r *Registry) Tag(name string) (TagSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tags[name]
	return spec, ok
}

// Filter returns the function registered for a filter name.
func (r *Registry) Filter(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

// Tags returns every registered tag sorted by name.
func (r *Registry) Tags() []TagSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]TagSpec, 0, len(r.tags))
	for _, spec := range r.tags {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Filters returns every registered filter name mapped to its function.
func (r *Registry) Filters() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.filters))
	for name, fn := range r.filters {
		out[name] = fn
	}
	return out
}
