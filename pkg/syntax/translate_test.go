package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, spec := range []TagSpec{
		{Name: "if_less", Func: "less", Kind: Condition, Args: 2},
		{Name: "if_setting", Func: "setting", Kind: Condition, Args: 1},
		{Name: "sha1", Func: "sha1", Kind: Simple, Args: 1},
		{Name: "serialize", Func: "serialize", Kind: Simple, Args: 2, LiteralArgs: 1, Safe: true},
		{Name: "set", Func: "set", Kind: Assign, Args: Variadic},
		{Name: "del", Func: "del", Kind: Delete, Args: Variadic},
		{Name: "render_var", Func: "renderVar", Kind: Capture, Args: 2},
	} {
		require.NoError(t, reg.RegisterTag(spec))
	}
	require.NoError(t, reg.RegisterFilter("sha1", "sha1"))
	require.NoError(t, reg.RegisterFilter("default", "defaultValue"))
	return reg
}

func TestTranslate(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"text", "plain text", "plain text"},
		{"escaped delimiters", "a {{ b", `a {{"{{"}} b`},
		{"brace before tag", "a{{% if_less 1 2 %}y{% endif_less %}", `a{{"{"}}{{if less 1 2}}y{{end}}`},
		{"variable", "{{ foo }}", `{{display (var "foo")}}`},
		{"dotted variable", "{{ user.name }}", `{{display (var "user.name")}}`},
		{"filter", "{{ foo|sha1 }}", `{{display (sha1 (var "foo"))}}`},
		{"filter argument", "{{ foo|default:'x|y' }}", `{{display (defaultValue (var "foo") "x|y")}}`},
		{"condition", "{% if_less 1 2 %}y{% endif_less %}", `{{if less 1 2}}y{{end}}`},
		{"negated condition", "{% if_less a 2 negate %}y{% else %}n{% endif_less %}", `{{if not (less (var "a") 2)}}y{{else}}n{{end}}`},
		{"regex literal", `{% if_less 'hiya' '\w{4}' %}{% endif_less %}`, `{{if less "hiya" "\\w{4}"}}{{end}}`},
		{"simple", "{% sha1 foo %}", `{{sha1 (var "foo")}}`},
		{"safe simple with literal", "{% serialize json users %}", `{{safe (serialize "json" (var "users"))}}`},
		{"simple as", "{% serialize json users as out %}", `{{set "out" (serialize "json" (var "users"))}}`},
		{"assign", "{% set src='import this' n=3 %}", `{{set "src" "import this"}}{{set "n" 3}}`},
		{"delete", "{% del a b %}", `{{del "a" "b"}}`},
		{"load", "{% load func_tools comparison %}", ""},
		{"comment", "a{# ignored #}b", "ab"},
		{"multi-line comment", "a{# x\ny #}b", "a{# x\ny #}b"},
		{"booleans", "{% if_less True None %}{% endif_less %}", `{{if less true nil}}{{end}}`},
		{
			"capture",
			"{% render_var as myvar %}hallo{% endrender_var %}{{ myvar }}",
			`{{renderVar "myvar" "page/render_var-1" .}}{{display (var "myvar")}}{{define "page/render_var-1"}}hallo{{end}}`,
		},
		{
			"nested capture",
			"{% render_var as a %}x{% render_var as b %}y{% endrender_var %}{% endrender_var %}",
			`{{renderVar "a" "page/render_var-1" .}}{{define "page/render_var-2"}}y{{end}}{{define "page/render_var-1"}}x{{renderVar "b" "page/render_var-2" .}}{{end}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate("page", tt.src, reg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_Errors(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown tag", "{% nope %}", 1},
		{"unknown filter", "{{ a|nope }}", 1},
		{"argument count", "{% if_less 1 %}{% endif_less %}", 1},
		{"unclosed", "line one\n{% if_less 1 2 %}", 2},
		{"mismatched end", "{% if_less 1 2 %}{% endrender_var %}", 1},
		{"stray end", "\n\n{% endif_less %}", 3},
		{"stray else", "{% else %}", 1},
		{"double else", "{% if_less 1 2 %}{% else %}{% else %}{% endif_less %}", 1},
		{"empty variable", "{{ }}", 1},
		{"bad expression", "{{ a.b- }}", 1},
		{"bad assign", "{% set 1=2 %}", 1},
		{"bad capture", "{% render_var myvar %}{% endrender_var %}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate("page", tt.src, reg)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "expected *SyntaxError, got %T", err)
			assert.Equal(t, "page", syntaxErr.Template)
			assert.Equal(t, tt.line, syntaxErr.Line)
		})
	}
}

func TestTokenize_UnterminatedTagIsText(t *testing.T) {
	tokens := tokenize("a {% b\nc %} d")
	require.Len(t, tokens, 1)
	assert.Equal(t, textToken, tokens[0].typ)
}

func TestSplitBits(t *testing.T) {
	assert.Equal(t, []string{"set", "src='import this'"}, splitBits("set src='import this'"))
	assert.Equal(t, []string{"if_matches", `'hi ya'`, `"a \" b"`}, splitBits(`if_matches 'hi ya' "a \" b"`))
	assert.Empty(t, splitBits("   "))
}

func TestRegistry_RegisterTag(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.RegisterTag(TagSpec{Name: "else", Func: "x"}))
	assert.Error(t, reg.RegisterTag(TagSpec{Name: "endthing", Func: "x"}))
	assert.Error(t, reg.RegisterTag(TagSpec{Name: "bad-name", Func: "x"}))
	assert.Error(t, reg.RegisterTag(TagSpec{Name: "ok", Func: ""}))
	require.NoError(t, reg.RegisterTag(TagSpec{Name: "ok", Func: "x", Kind: Simple, Args: Variadic}))

	spec, ok := reg.Tag("ok")
	require.True(t, ok)
	assert.Equal(t, Simple, spec.Kind)
	assert.Len(t, reg.Tags(), 1)
}
