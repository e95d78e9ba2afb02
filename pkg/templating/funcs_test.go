package templating

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"testing"
	"time"
)

// TestTemplateFunctions validates the behavior of each category of template functions.
func TestTemplateFunctions(t *testing.T) {
	t.Run("CompareFuncs", func(t *testing.T) {
		now := time.Now()
		tests := []struct {
			name string
			fn   func(a, b any) bool
			a, b any
			want bool
		}{
			{"less ints", less, 1, 2, true},
			{"less equal ints", less, 2, 2, false},
			{"less mixed number types", less, int64(1), 1.5, true},
			{"less numeric string", less, "9", 10, true},
			{"less strings", less, "abc", "abd", true},
			{"less times", less, now, now.Add(time.Second), true},
			{"less unordered", less, "a", 1, false},
			{"less nil", less, nil, 1, false},
			{"lessOrEqual", lessOrEqual, 2, 2, true},
			{"greater", greater, 3, 2, true},
			{"greater unordered", greater, "a", 1, false},
			{"greater huge float", greater, 1e20, 5, true},
			{"less huge float", less, 1e20, 5, false},
			{"less huge negative float", less, -1e20, 5, true},
			{"greater huge negative float", greater, -1e20, -5, false},
			{"greaterOrEqual", greaterOrEqual, 2.0, 2, true},
			{"equal across types", equal, int8(4), 4.0, true},
			{"equal strings", equal, "x", "x", true},
			{"equal slices", equal, []int{1, 2}, []int{1, 2}, true},
			{"notEqual", notEqual, "x", "y", true},
		}
		for _, tt := range tests {
			if got := tt.fn(tt.a, tt.b); got != tt.want {
				t.Errorf("%s(%v, %v) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
			}
		}
	})

	t.Run("PredicateFuncs", func(t *testing.T) {
		tests := []struct {
			name string
			got  bool
			want bool
		}{
			{"contains substring", contains("hello world", "lo w"), true},
			{"contains missing substring", contains("hello", "z"), false},
			{"contains slice", contains([]string{"a", "b"}, "b"), true},
			{"contains slice numbers", contains([]any{1, 2, 3}, int64(3)), true},
			{"contains map key", contains(map[string]int{"k": 1}, "k"), true},
			{"contains map value is not a key", contains(map[string]int{"k": 1}, 1), false},
			{"contains nil", contains(nil, "a"), false},
			{"divisibleBy", divisibleBy(10, 5), true},
			{"divisibleBy remainder", divisibleBy(10, 3), false},
			{"divisibleBy zero", divisibleBy(10, 0), false},
			{"divisibleBy string", divisibleBy("12", 4), true},
			{"divisibleBy fraction", divisibleBy(2.5, 5), false},
			{"divisibleBy float beyond int64", divisibleBy(1e20, 2), false},
			{"divisibleBy negative float beyond int64", divisibleBy(-1e20, 2), false},
			{"contains unhashable item in interface-keyed map", contains(map[any]int{"k": 1}, []int{1}), false},
			{"contains interface-keyed map", contains(map[any]int{"k": 1}, "k"), true},
			{"startsWith", startsWith("prefix-body", "prefix"), true},
			{"startsWith number", startsWith(1234, 12), true},
			{"endsWith", endsWith("body.txt", ".txt"), true},
			{"endsWith missing", endsWith("body.txt", ".md"), false},
			{"subset", subset([]int{1, 2}, []int{1, 2, 3}), true},
			{"subset missing", subset([]int{1, 4}, []int{1, 2, 3}), false},
			{"subset empty", subset([]int{}, []int{1}), true},
			{"subset not a collection", subset("ab", []string{"a", "b"}), false},
			{"superset", superset([]string{"a", "b", "c"}, []string{"c"}), true},
		}
		for _, tt := range tests {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		}
	})

	t.Run("Regex", func(t *testing.T) {
		tm := setupTestManager(t)
		if _, ok := tm.compileRegex(`(`, 1024, 10); ok {
			t.Error("invalid pattern should be rejected")
		}
		if _, ok := tm.compileRegex(`a)|(b`, 1024, 10); ok {
			t.Error("pattern with an unbalanced group should be rejected")
		}
		if _, ok := tm.compileRegex(`aaaaaaaa`, 4, 10); ok {
			t.Error("over-long pattern should be rejected")
		}
		re, ok := tm.compileRegex(`b+`, 1024, 10)
		if !ok {
			t.Fatal("valid pattern was rejected")
		}
		if re.MatchString("abb") {
			t.Error("pattern should only match at the start of the input")
		}
		if !re.MatchString("bba") {
			t.Error("pattern should match a prefix of the input")
		}
		again, _ := tm.compileRegex(`b+`, 1024, 10)
		if again != re {
			t.Error("compiled pattern was not cached")
		}
		for _, p := range []string{"c", "d", "e"} {
			tm.compileRegex(p, 1024, 2)
		}
		if len(tm.regexCache) > 2 {
			t.Errorf("regex cache grew past its bound: %d entries", len(tm.regexCache))
		}
	})

	t.Run("HashFuncs", func(t *testing.T) {
		if got := digestFunc("sha1")("bar"); got != "62cdb7020ff920e5aa642c3d4066950dd1f01f4d" {
			t.Errorf("sha1(bar) = %s", got)
		}
		if got := digestFunc("md5")("bar"); got != "37b51d194a7513e45b56f6524f2d51f2" {
			t.Errorf("md5(bar) = %s", got)
		}
		sum := sha256.Sum256([]byte("42"))
		got, err := hashWith("sha256", 42)
		if err != nil {
			t.Fatalf("hashWith failed: %v", err)
		}
		if got != hex.EncodeToString(sum[:]) {
			t.Errorf("sha256(42) = %s", got)
		}
		if got, _ = hashValue(nil, "md5"); got != "d41d8cd98f00b204e9800998ecf8427e" {
			t.Errorf("nil should hash as the empty string, got %s", got)
		}
		if _, err = hashWith("crc32", "x"); !errors.Is(err, ErrUnknownAlgorithm) {
			t.Errorf("expected ErrUnknownAlgorithm, got %v", err)
		}

		wantLen := map[string]int{
			"md5": 32, "sha1": 40, "sha224": 56, "sha256": 64, "sha384": 96, "sha512": 128,
			"sha3_256": 64, "sha3_512": 128, "blake2b": 128, "blake2s": 64,
		}
		for _, alg := range hashAlgorithms() {
			if n := len(digestFunc(alg)("x")); n != wantLen[alg] {
				t.Errorf("%s digest has length %d, want %d", alg, n, wantLen[alg])
			}
		}
	})

	t.Run("FilterFuncs", func(t *testing.T) {
		if got := safe("<b>"); got != template.HTML("<b>") {
			t.Errorf("safe = %q", got)
		}
		if got := defaultValue("", "fallback"); got != "fallback" {
			t.Errorf("defaultValue(empty) = %v", got)
		}
		if got := defaultValue("set", "fallback"); got != "set" {
			t.Errorf("defaultValue(set) = %v", got)
		}
		if got := filesizeformat(83 * 1024 * 1024); got != "83 MiB" {
			t.Errorf("filesizeformat = %v", got)
		}
		if got := filesizeformat("big"); got != "big" {
			t.Errorf("filesizeformat should pass through non-numbers, got %v", got)
		}
		if got := intcomma(1234567); got != "1,234,567" {
			t.Errorf("intcomma = %v", got)
		}
		if got := ordinal(2); got != "2nd" {
			t.Errorf("ordinal = %v", got)
		}
		if got := naturaltime(time.Now().Add(-3 * time.Hour)); got != "3 hours ago" {
			t.Errorf("naturaltime = %v", got)
		}
		if got := naturaltime("not a time"); got != "not a time" {
			t.Errorf("naturaltime should pass through unparsable strings, got %v", got)
		}
		if got := add(2, "3"); got != int64(5) {
			t.Errorf("add(2, \"3\") = %#v", got)
		}
		if got := add(1.5, 1); got != 2.5 {
			t.Errorf("add(1.5, 1) = %#v", got)
		}
		if got := add("a", 1); got != "a1" {
			t.Errorf("add(a, 1) = %#v", got)
		}
		if got := length("héllo"); got != 5 {
			t.Errorf("length(héllo) = %d", got)
		}
		if got := length(map[string]int{"a": 1}); got != 1 {
			t.Errorf("length(map) = %d", got)
		}
		if got := length(42); got != 0 {
			t.Errorf("length(42) = %d", got)
		}
	})

	t.Run("Truthy", func(t *testing.T) {
		for _, v := range []any{nil, "", "false", "0", "off", "no", 0, false, []int{}, map[string]int{}} {
			if truthy(v) {
				t.Errorf("truthy(%#v) = true, want false", v)
			}
		}
		for _, v := range []any{"yes", "1", 1, true, []int{0}, 0.5} {
			if !truthy(v) {
				t.Errorf("truthy(%#v) = false, want true", v)
			}
		}
	})

	t.Run("CheckFunc", func(t *testing.T) {
		if err := checkFunc("ok", func() string { return "" }); err != nil {
			t.Errorf("single return rejected: %v", err)
		}
		if err := checkFunc("ok", func() (int, error) { return 0, nil }); err != nil {
			t.Errorf("value and error rejected: %v", err)
		}
		if err := checkFunc("bad", func() {}); err == nil {
			t.Error("function without results should be rejected")
		}
		if err := checkFunc("bad", func() (int, int) { return 0, 0 }); err == nil {
			t.Error("second result must be an error")
		}
	})
}

// BenchmarkCompareValues measures the numeric comparison path used by the
// if_less family.
func BenchmarkCompareValues(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = compareValues(i, "500")
	}
}

// BenchmarkMatches measures a cached anchored match.
func BenchmarkMatches(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm, err := NewTemplateManager(logger, nil, nil, "")
	if err != nil {
		b.Fatal(err)
	}
	s := tm.newScope(nil, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.matches("philterz-template", `\w+-`)
	}
}
