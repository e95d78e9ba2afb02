package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/CTAG07/philterz/pkg/records"
	"github.com/CTAG07/philterz/pkg/templating"
	"gopkg.in/yaml.v3"
)

// App holds what the render and serve commands share: the template manager
// and the optional database backing table variables. Table mappings are
// copied at construction and change only with a restart.
type App struct {
	tables map[string]string
	logger *slog.Logger
	tm     *templating.TemplateManager
	db     *sql.DB
}

// NewApp builds the template manager from config and opens the database
// when one is configured.
func NewApp(config *Config, logger *slog.Logger) (*App, error) {
	settings, err := loadSettings(config.Server)
	if err != nil {
		return nil, err
	}

	tm, err := templating.NewTemplateManager(logger, config.Templates, settings, config.Server.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}

	app := &App{tables: maps.Clone(config.Server.Tables), logger: logger, tm: tm}
	if config.Server.DatabasePath != "" {
		if app.db, err = initDB(config.Server.DatabasePath); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}
	return app, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	a.logger.Info("Closing database connection.")
	return a.db.Close()
}

// loadSettings reads the settings file, if any, and overlays
// environment variables carrying the configured prefix.
func loadSettings(config *ServerConfig) (templating.Settings, error) {
	settings := templating.Settings{}
	if config.SettingsPath != "" {
		var err error
		if settings, err = templating.LoadSettings(config.SettingsPath); err != nil {
			return nil, err
		}
	}
	if config.SettingsPrefix != "" {
		settings = settings.WithEnv(config.SettingsPrefix, os.Environ())
	}
	return settings, nil
}

// TableData loads every configured table into a map keyed by the render
// variable name.
func (a *App) TableData(ctx context.Context) (map[string]any, error) {
	data := make(map[string]any, len(a.tables))
	if len(a.tables) == 0 {
		return data, nil
	}
	if a.db == nil {
		return nil, fmt.Errorf("tables are configured but database_path is empty")
	}
	loader := records.NewLoader(a.db)
	for name, table := range a.tables {
		recs, err := loader.Table(ctx, "", table)
		if err != nil {
			return nil, fmt.Errorf("failed to load table %q: %w", table, err)
		}
		data[name] = recs
	}
	return data, nil
}

// decodeData parses a JSON, YAML or TOML document into render data. The
// format is chosen by the file extension; unknown extensions are read as JSON.
func decodeData(name string, content []byte) (map[string]any, error) {
	data := map[string]any{}
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &data)
	case ".toml":
		_, err = toml.Decode(string(content), &data)
	default:
		err = json.Unmarshal(content, &data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse data %s: %w", name, err)
	}
	return data, nil
}

// mergeData copies src into dst, overwriting existing keys.
func mergeData(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
