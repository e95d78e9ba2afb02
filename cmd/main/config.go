package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/CTAG07/philterz/pkg/templating"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the CLI and the HTTP server.
type ServerConfig struct {
	ServerAddr     string            `json:"server_addr"`
	LogLevel       string            `json:"log_level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	APIKey         string            `json:"api_key,omitempty"`
	TemplateDir    string            `json:"template_dir"`
	WatchTemplates bool              `json:"watch_templates"`
	SettingsPath   string            `json:"settings_path,omitempty"`
	SettingsPrefix string            `json:"settings_env_prefix"`
	DatabasePath   string            `json:"database_path,omitempty"`
	Tables         map[string]string `json:"tables,omitempty" jsonschema:"description=Render variable name to sqlite table"`
	Headers        map[string]string `json:"headers"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server    *ServerConfig              `json:"server_config"`
	Templates *templating.TemplateConfig `json:"template_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:     ":7280",
		LogLevel:       "info",
		TemplateDir:    "./templates",
		WatchTemplates: false,
		SettingsPrefix: "PHILTERZ_",
		Tables:         map[string]string{},
		Headers: map[string]string{
			"Cache-Control": "no-cache",
			"Content-Type":  "text/html; charset=utf-8",
		},
	}
}

// DefaultConfig returns a Config with every section set to its defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Templates: templating.DefaultConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err = writeConfig(path, config); err != nil {
				// The defaults are still usable without a file on disk.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Templates == nil {
		config.Templates = templating.DefaultConfig()
	}
	return config, nil
}

func writeConfig(path string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigManager handles thread-safe access to configuration and pushes
// template settings to the TemplateManager.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	tm         *templating.TemplateManager
}

// NewConfigManager wraps an already loaded config. An empty path disables
// persisting updates.
func NewConfigManager(config *Config, path string) *ConfigManager {
	return &ConfigManager{config: config, configPath: path}
}

// SetTemplateManager registers the template manager to receive config updates.
func (cm *ConfigManager) SetTemplateManager(tm *templating.TemplateManager) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tm = tm
	if tm != nil {
		tm.SetConfig(cm.config.Templates)
	}
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Update validates the new configuration against the template manager,
// applies it and saves it to disk. A template config that fails to refresh
// is rolled back.
func (cm *ConfigManager) Update(newConfig Config) error {
	if newConfig.Server == nil || newConfig.Templates == nil {
		return fmt.Errorf("config must contain server_config and template_config")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.tm != nil {
		oldTmplConfig := cm.config.Templates
		cm.tm.SetConfig(newConfig.Templates)
		if err := cm.tm.Refresh(); err != nil {
			cm.tm.SetConfig(oldTmplConfig)
			_ = cm.tm.Refresh()
			return fmt.Errorf("template configuration rejected: %w", err)
		}
	}

	*cm.config = newConfig
	if cm.configPath == "" {
		return nil
	}
	return writeConfig(cm.configPath, cm.config)
}
