package records

import (
	"sort"
	"strings"
)

// Record is a single model instance.
type Record struct {
	Model  string         `json:"model" yaml:"model" toml:"model"`
	PK     any            `json:"pk" yaml:"pk" toml:"pk"`
	Fields map[string]any `json:"fields" yaml:"fields" toml:"fields"`
}

// Set is implemented by collections that can expose their records.
type Set interface {
	Records() []Record
}

// Resolve looks up "pk", "model" or a field by name. It lets templates
// address records as user.username.
func (r Record) Resolve(name string) (any, bool) {
	switch name {
	case "pk":
		return r.PK, true
	case "model":
		return r.Model, true
	}
	v, ok := r.Fields[name]
	return v, ok
}

// FieldNames returns the record's field names in sorted order.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collect reports whether value is a record or a collection of records and
// returns them.
func Collect(value any) ([]Record, bool) {
	switch v := value.(type) {
	case Record:
		return []Record{v}, true
	case *Record:
		if v == nil {
			return nil, false
		}
		return []Record{*v}, true
	case []Record:
		return v, true
	case []*Record:
		out := make([]Record, 0, len(v))
		for _, r := range v {
			if r != nil {
				out = append(out, *r)
			}
		}
		return out, true
	case Set:
		return v.Records(), true
	}
	return nil, false
}

// ModelLabel derives a model label from a table name the way Django names
// its tables: "auth_user" becomes "auth.user". Names without an underscore
// are returned unchanged.
func ModelLabel(table string) string {
	app, model, ok := strings.Cut(table, "_")
	if !ok || app == "" || model == "" {
		return table
	}
	return app + "." + model
}
