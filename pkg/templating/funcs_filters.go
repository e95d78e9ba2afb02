package templating

import (
	"html/template"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// safe marks a value as HTML that must not be escaped.
func safe(v any) template.HTML {
	if h, ok := v.(template.HTML); ok {
		return h
	}
	return template.HTML(toString(v))
}

// defaultValue returns fallback when v is not truthy.
func defaultValue(v, fallback any) any {
	if truthy(v) {
		return v
	}
	return fallback
}

// filesizeformat renders a byte count in 1024-based units, such as "83 MiB".
// Non-numeric input is returned unchanged.
func filesizeformat(v any) any {
	n, ok := toNumber(v)
	if !ok || n < 0 {
		return v
	}
	return humanize.IBytes(uint64(n))
}

// intcomma groups the digits of a number with commas.
func intcomma(v any) any {
	if i, ok := toInt(v); ok {
		return humanize.Comma(i)
	}
	if f, ok := toNumber(v); ok {
		return humanize.Commaf(f)
	}
	return v
}

// ordinal renders 1 as "1st", 2 as "2nd" and so on.
func ordinal(v any) any {
	i, ok := toInt(v)
	if !ok {
		return v
	}
	return humanize.Ordinal(int(i))
}

// naturaltime renders a time relative to now ("3 hours ago"). Strings are
// parsed as RFC 3339.
func naturaltime(v any) any {
	switch t := v.(type) {
	case time.Time:
		return humanize.Time(t)
	case *time.Time:
		if t != nil {
			return humanize.Time(*t)
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return humanize.Time(parsed)
		}
	}
	return v
}

// add sums two numbers. When either side is not a number the string forms
// are concatenated.
func add(a, b any) any {
	if ai, ok := toInt(a); ok {
		if bi, ok := toInt(b); ok {
			return ai + bi
		}
	}
	if af, ok := toNumber(a); ok {
		if bf, ok := toNumber(b); ok {
			return af + bf
		}
	}
	return toString(a) + toString(b)
}

// length counts the elements of a collection or the characters of a string.
func length(v any) int {
	rv := indirect(v)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String())
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len()
	}
	return 0
}
