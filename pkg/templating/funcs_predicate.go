package templating

import (
	"reflect"
	"regexp"
	"strings"
)

// contains reports whether item is a substring of a string container, an
// element of a slice or array, or a key of a map.
func contains(container, item any) bool {
	cv := indirect(container)
	if !cv.IsValid() {
		return false
	}
	switch cv.Kind() {
	case reflect.String:
		return strings.Contains(cv.String(), toString(item))
	case reflect.Map:
		iv := reflect.ValueOf(item)
		if iv.IsValid() && iv.Type().Comparable() && iv.Type().AssignableTo(cv.Type().Key()) {
			return cv.MapIndex(iv).IsValid()
		}
	}
	members, ok := elements(container)
	if !ok {
		return false
	}
	for _, m := range members {
		if looseEqual(m, item) {
			return true
		}
	}
	return false
}

// divisibleBy reports whether a is an integer multiple of b.
func divisibleBy(a, b any) bool {
	ai, aok := toInt(a)
	bi, bok := toInt(b)
	if !aok || !bok || bi == 0 {
		return false
	}
	return ai%bi == 0
}

func startsWith(s, prefix any) bool {
	return strings.HasPrefix(toString(s), toString(prefix))
}

func endsWith(s, suffix any) bool {
	return strings.HasSuffix(toString(s), toString(suffix))
}

// subset reports whether every element of a is also in b.
func subset(a, b any) bool {
	as, aok := elements(a)
	bs, bok := elements(b)
	if !aok || !bok {
		return false
	}
	for _, x := range as {
		found := false
		for _, y := range bs {
			if looseEqual(x, y) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// superset reports whether every element of b is also in a.
func superset(a, b any) bool {
	return subset(b, a)
}

// compileRegex returns the cached compiled form of a pattern anchored at the
// start of the input. Over-long and invalid patterns are logged and rejected.
func (tm *TemplateManager) compileRegex(pattern string, maxLength, cacheSize int) (*regexp.Regexp, bool) {
	if maxLength > 0 && len(pattern) > maxLength {
		tm.logger.Warn("matches: pattern exceeds MaxRegexLength", "length", len(pattern), "max", maxLength)
		return nil, false
	}

	tm.regexMu.Lock()
	defer tm.regexMu.Unlock()
	if re, ok := tm.regexCache[pattern]; ok {
		return re, true
	}
	// The raw pattern must compile on its own so an unbalanced ")" cannot
	// close the anchoring group.
	_, err := regexp.Compile(pattern)
	if err != nil {
		tm.logger.Warn("matches: invalid pattern", "pattern", pattern, "error", err)
		return nil, false
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		tm.logger.Warn("matches: invalid pattern", "pattern", pattern, "error", err)
		return nil, false
	}
	if cacheSize > 0 && len(tm.regexCache) >= cacheSize {
		clear(tm.regexCache)
	}
	tm.regexCache[pattern] = re
	return re, true
}
