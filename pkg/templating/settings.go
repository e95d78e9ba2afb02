package templating

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings are the named values tested by if_setting.
type Settings map[string]any

// LoadSettings reads settings from a JSON, YAML or TOML file, chosen by the
// file extension.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	settings := Settings{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &settings)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &settings)
	case ".toml":
		_, err = toml.Decode(string(data), &settings)
	default:
		return nil, fmt.Errorf("unsupported settings file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return settings, nil
}

// WithEnv returns a copy of s overlaid with environment entries carrying the
// given prefix. PHILTERZ_DEBUG=true with prefix "PHILTERZ_" sets DEBUG to the
// boolean true. Integers and booleans are parsed; anything else stays a string.
func (s Settings) WithEnv(prefix string, environ []string) Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
			continue
		}
		out[strings.TrimPrefix(key, prefix)] = parseEnvValue(value)
	}
	return out
}

func parseEnvValue(value string) any {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	return value
}

// Get returns the named setting.
func (s Settings) Get(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Enabled reports whether the named setting exists and is truthy.
func (s Settings) Enabled(name string) bool {
	v, ok := s[name]
	return ok && truthy(v)
}
