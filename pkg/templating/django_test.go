package templating

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/philterz/pkg/records"
	_ "github.com/mattn/go-sqlite3"
)

func newDjangoManager(t *testing.T) *TemplateManager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm, err := NewTemplateManager(logger, nil, Settings{"DEBUG": true}, "")
	if err != nil {
		t.Fatalf("NewTemplateManager failed: %v", err)
	}
	return tm
}

func render(t *testing.T, tm *TemplateManager, src string, data any) string {
	t.Helper()
	var buf bytes.Buffer
	if err := tm.ExecuteDjangoString(&buf, src, data); err != nil {
		t.Fatalf("render %q failed: %v", src, err)
	}
	return buf.String()
}

// loadUsers returns the rows of a freshly created auth_user table.
func loadUsers(t *testing.T) []records.Record {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err = db.Exec(`
CREATE TABLE auth_user (id INTEGER PRIMARY KEY, username TEXT NOT NULL, email TEXT NOT NULL);
INSERT INTO auth_user (username, email) VALUES ('tester', 'test');`); err != nil {
		t.Fatalf("failed to create users: %v", err)
	}
	users, err := records.NewLoader(db).Table(context.Background(), "", "auth_user")
	if err != nil {
		t.Fatalf("failed to load users: %v", err)
	}
	return users
}

func firstUsername(t *testing.T, out string) string {
	t.Helper()
	recs, err := records.Deserialize(records.FormatJSON, []byte(out))
	if err != nil {
		t.Fatalf("output is not a serialized record set: %v\n%s", err, out)
	}
	if len(recs) == 0 {
		t.Fatalf("no records in %s", out)
	}
	username, _ := recs[0].Resolve("username")
	return toString(username)
}

func TestDjangoTags(t *testing.T) {
	tm := newDjangoManager(t)

	tests := []struct {
		name string
		src  string
		data any
		want string
	}{
		{"load", "{% load func_tools comparison %}", nil, ""},
		{"numeric", "{% if_less 1 2 %}y{% endif_less %}{% if_less_or_equal 1 2 %}y{% endif_less_or_equal %}{% if_greater 2 1 %}n{% endif_greater %}{% if_greater_or_equal 1 1 %}y{% endif_greater_or_equal %}", nil, "yyny"},
		{"set", "{% set src='import this' %}{{ src }}", nil, "import this"},
		{"set several", "{% set a=1 b=a %}{{ a }}{{ b }}", nil, "11"},
		{"del", "{% del test %}{{ test }}", map[string]any{"test": "yup"}, ""},
		{"matches", `{% if_matches 'hiya' '\w{4}' %}yup{% endif_matches %}`, nil, "yup"},
		{"matches anchored", `{% if_matches 'hiya' 'ya' %}yup{% endif_matches %}`, nil, ""},
		{"contains", "{% if_contains 'team' 'i' %}yup{% endif_contains %}", nil, ""},
		{"divisible_by", "{% if_divisible_by 150 5 %}buzz{% endif_divisible_by %}", nil, "buzz"},
		{"startswith", "{% if_startswith 'python' 'p' %}yup{% endif_startswith %}", nil, "yup"},
		{"subset", "{% if_subset l1 l2 %}yup{% endif_subset %}", map[string]any{"l1": []int{2, 3}, "l2": []int{0, 1, 2, 3, 4}}, "yup"},
		{"negate", "{% if_startswith 'python' 'p' negate %}yup{% endif_startswith %}", nil, ""},
		{"negate else", "{% if_startswith 'python' 'p' negate %}yup{% else %}nope{% endif_startswith %}", nil, "nope"},
		{"hassetting", "{% if_setting 'DEBUG' %}debug{% endif_setting %}", nil, "debug"},
		{"missing setting", "{% if_setting 'NOPE' %}debug{% else %}release{% endif_setting %}", nil, "release"},
		{"greater", "{% if_greater 2 1 %}yup{% endif_greater %}", nil, "yup"},
		{"greater huge float", "{% if_greater n 5 %}big{% else %}small{% endif_greater %}", map[string]any{"n": 1e20}, "big"},
		{"block", "{% render_var as myvar %}hallowtf{% endrender_var %}{{ myvar }}", nil, "hallowtf"},
		{"block sees variables", "{% set who='world' %}{% render_var as msg %}hello {{ who }}{% endrender_var %}{{ msg }}!", nil, "hello world!"},
		{"comment", "a{# hidden #}b", nil, "ab"},
		{"multi-line comment is text", "a{# one\ntwo #}b", nil, "a{# one\ntwo #}b"},
		{"matches unbalanced group", "{% if_matches 'xxb' 'a)|(b' %}matched{% else %}no{% endif_matches %}", nil, "no"},
		{"unterminated variable is text", "a {{ b", nil, "a {{ b"},
		{"brace literal", "{% if_equal 1 1 %}{{ '{' }}{% endif_equal %}", nil, "{"},
		{"escaping", "{{ v }}", map[string]any{"v": "<i>"}, "&lt;i&gt;"},
		{"safe filter", "{{ v|safe }}", map[string]any{"v": "<i>"}, "<i>"},
		{"default filter", "{{ missing|default:'none' }}", nil, "none"},
		{"length filter", "{% if_greater items|length 1 %}many{% endif_greater %}", map[string]any{"items": []int{1, 2}}, "many"},
		{"add filter", "{{ n|add:2 }}", map[string]any{"n": 40}, "42"},
		{"dotted lookup", "{{ user.name }}", map[string]any{"user": map[string]any{"name": "ann"}}, "ann"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := render(t, tm, tt.src, tt.data); got != tt.want {
				t.Errorf("render(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestDjangoTags_Hash(t *testing.T) {
	tm := newDjangoManager(t)
	ctx := map[string]any{"foo": "bar"}

	sha1 := "62cdb7020ff920e5aa642c3d4066950dd1f01f4d"
	if got := render(t, tm, "{{ foo|sha1 }}{% sha1 foo %}", ctx); got != sha1+sha1 {
		t.Errorf("sha1 output = %q", got)
	}
	md5 := "37b51d194a7513e45b56f6524f2d51f2"
	if got := render(t, tm, "{{ foo|md5 }}{% md5 foo %}", ctx); got != md5+md5 {
		t.Errorf("md5 output = %q", got)
	}
	if got := render(t, tm, "{% hash md5 foo as digest %}{{ digest }}{{ foo|hash:'md5' }}", ctx); got != md5+md5 {
		t.Errorf("hash tag output = %q", got)
	}

	var buf bytes.Buffer
	if err := tm.ExecuteDjangoString(&buf, "{{ foo|hash:'crc' }}", ctx); err == nil {
		t.Error("expected an error for an unknown algorithm")
	}
}

func TestDjangoTags_Serialize(t *testing.T) {
	tm := newDjangoManager(t)
	data := map[string]any{"users": loadUsers(t)}

	out := render(t, tm, "{% serialize json users %}", data)
	if got := firstUsername(t, out); got != "tester" {
		t.Errorf("serialize: username = %q, want tester", got)
	}

	out = render(t, tm, "{% serialize json users as jsoncontent %}{{ jsoncontent|safe }}", data)
	if got := firstUsername(t, out); got != "tester" {
		t.Errorf("serialize as: username = %q, want tester", got)
	}

	out = render(t, tm, "{{ users|serialize:'yaml'|safe }}", data)
	if !strings.Contains(out, "model: auth.user") {
		t.Errorf("yaml filter output missing model:\n%s", out)
	}
}

func TestDjangoTags_SerializeLimit(t *testing.T) {
	tm := newDjangoManager(t)
	config := DefaultConfig()
	config.MaxSerializeItems = 1
	tm.SetConfig(config)

	users := append(loadUsers(t), records.Record{Model: "auth.user", PK: int64(2), Fields: map[string]any{"username": "other"}})
	out := render(t, tm, "{% serialize json users %}", map[string]any{"users": users})
	recs, err := records.Deserialize(records.FormatJSON, []byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("expected serialize to truncate to 1 record, got %d", len(recs))
	}
}

func TestDjangoTags_CaptureDepth(t *testing.T) {
	tm := newDjangoManager(t)
	config := DefaultConfig()
	config.MaxCaptureDepth = 1
	tm.SetConfig(config)

	src := "{% render_var as outer %}{% render_var as inner %}x{% endrender_var %}{% endrender_var %}"
	var buf bytes.Buffer
	if err := tm.ExecuteDjangoString(&buf, src, nil); err == nil {
		t.Error("expected nested captures beyond MaxCaptureDepth to fail")
	}
}

func TestDjangoTags_SyntaxErrors(t *testing.T) {
	tm := newDjangoManager(t)
	for _, src := range []string{
		"{% if_less 1 2 %}",
		"{% endif_less %}",
		"{% if_less 1 %}{% endif_less %}",
		"{% nosuchtag %}",
		"{{ x|nosuchfilter }}",
	} {
		var buf bytes.Buffer
		if err := tm.ExecuteDjangoString(&buf, src, nil); err == nil {
			t.Errorf("expected a syntax error for %q", src)
		}
	}
}
