package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is a config file, template directory and database in a temp dir.
type testEnv struct {
	dir        string
	configPath string
	config     *Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	templateDir := filepath.Join(dir, "templates")
	require.NoError(t, os.Mkdir(templateDir, 0755))

	files := map[string]string{
		"index.dj.html":   `home{% if_equal 1 1 %}!{% endif_equal %}`,
		"users.dj.html":   `{% if_setting 'DEBUG' %}debug:{% endif_setting %}{{ users.0.username }}|{{ request.query.q }}`,
		"about.tmpl.html": `about {{sha1 "bar"}}`,
		"nav.part.html":   `{{define "nav"}}<nav></nav>{{end}}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(templateDir, name), []byte(content), 0644))
	}

	dbPath := filepath.Join(dir, "site.db")
	db, err := initDB(dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
CREATE TABLE auth_user (id INTEGER PRIMARY KEY, username TEXT NOT NULL, email TEXT NOT NULL);
INSERT INTO auth_user (username, email) VALUES ('tester', 'test');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	settingsPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(settingsPath, []byte("DEBUG: true\n"), 0644))

	config := DefaultConfig()
	config.Server.TemplateDir = templateDir
	config.Server.DatabasePath = dbPath
	config.Server.SettingsPath = settingsPath
	config.Server.SettingsPrefix = ""
	config.Server.Tables = map[string]string{"users": "auth_user"}

	env := &testEnv{dir: dir, configPath: filepath.Join(dir, "config.json"), config: config}
	data, err := json.MarshalIndent(config, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env.configPath, data, 0644))
	return env
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, env *testEnv) *App {
	t.Helper()
	app, err := NewApp(env.config, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root, _ := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}
