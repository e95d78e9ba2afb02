package templating

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"settings.json": `{"DEBUG": true, "NAME": "site"}`,
		"settings.yaml": "DEBUG: true\nNAME: site\n",
		"settings.toml": "DEBUG = true\nNAME = \"site\"\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		t.Run(name, func(t *testing.T) {
			settings, err := LoadSettings(path)
			if err != nil {
				t.Fatalf("LoadSettings failed: %v", err)
			}
			if !settings.Enabled("DEBUG") {
				t.Error("DEBUG should be enabled")
			}
			if v, _ := settings.Get("NAME"); v != "site" {
				t.Errorf("NAME = %v, want site", v)
			}
		})
	}

	if _, err := LoadSettings(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
	ini := filepath.Join(dir, "settings.ini")
	if err := os.WriteFile(ini, []byte("DEBUG=1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(ini); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}

func TestSettings_WithEnv(t *testing.T) {
	base := Settings{"DEBUG": false, "KEEP": "x"}
	env := []string{
		"PHILTERZ_DEBUG=true",
		"PHILTERZ_WORKERS=4",
		"PHILTERZ_NAME=site",
		"PHILTERZ_=ignored",
		"OTHER_DEBUG=false",
		"malformed",
	}
	got := base.WithEnv("PHILTERZ_", env)

	if got["DEBUG"] != true {
		t.Errorf("DEBUG = %v, want true", got["DEBUG"])
	}
	if got["WORKERS"] != int64(4) {
		t.Errorf("WORKERS = %#v, want int64(4)", got["WORKERS"])
	}
	if got["NAME"] != "site" || got["KEEP"] != "x" {
		t.Errorf("unexpected settings: %v", got)
	}
	if _, ok := got[""]; ok {
		t.Error("bare prefix should be ignored")
	}
	if base["DEBUG"] != false {
		t.Error("WithEnv modified the receiver")
	}
}
