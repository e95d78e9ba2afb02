package templating

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/CTAG07/philterz/pkg/syntax"
)

const (
	// NativeSuffix marks templates written in Go template syntax.
	NativeSuffix = ".tmpl.html"
	// DjangoSuffix marks templates written in Django tag syntax.
	DjangoSuffix = ".dj.html"
	// PartialSuffix marks Go-syntax templates that define blocks for others.
	PartialSuffix = ".part.html"

	inlineTemplateName = "inline"
)

// TemplateManager is the central controller for the templating engine.
// It manages the template set, configuration, settings, function map and
// tag registry. It is responsible for loading, parsing, and executing
// templates in a concurrent-safe manner.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger        *slog.Logger
	config        *TemplateConfig
	settings      Settings
	registry      *syntax.Registry
	funcMap       template.FuncMap
	templates     *template.Template
	templateNames []string
	templateDir   string
	mu            sync.RWMutex

	regexCache map[string]*regexp.Regexp
	regexMu    sync.Mutex
}

// NewTemplateManager creates, initializes, and returns a new TemplateManager.
// A nil config uses DefaultConfig. templateDir may be empty, in which case
// only string templates can be executed. It performs an initial Refresh.
func NewTemplateManager(logger *slog.Logger, config *TemplateConfig, settings Settings, templateDir string) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if settings == nil {
		settings = Settings{}
	}
	tm := &TemplateManager{
		logger:      logger,
		config:      config,
		settings:    settings,
		registry:    syntax.NewRegistry(),
		funcMap:     makeFuncMap(),
		templateDir: templateDir,
		regexCache:  make(map[string]*regexp.Regexp),
	}
	if err := registerBuiltins(tm.registry); err != nil {
		return nil, fmt.Errorf("failed to register builtin tags: %w", err)
	}

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "tags", len(tm.registry.Tags()), "filters", len(tm.registry.Filters()))
	return tm, nil
}

// SetConfig applies a new configuration to the TemplateManager. Renders that
// are already running keep the configuration they started with.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config

	tm.regexMu.Lock()
	clear(tm.regexCache)
	tm.regexMu.Unlock()
}

// SetSettings replaces the settings tested by if_setting.
func (tm *TemplateManager) SetSettings(settings Settings) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.settings = settings
}

// Refresh reloads all templates from the filesystem. Native and partial files
// are parsed as they are; Django files are translated first. On error the
// previously loaded set stays in place.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	root := template.New("").Funcs(tm.funcMap)
	var names []string
	if tm.templateDir == "" {
		tm.templates = root
		tm.templateNames = names
		return nil
	}

	tm.logger.Info("Loading template files...", "dir", tm.templateDir)
	files, err := filepath.Glob(filepath.Join(tm.templateDir, "*"+NativeSuffix))
	if err != nil {
		return err
	}
	if len(files) > 0 {
		if root, err = root.ParseFiles(files...); err != nil {
			tm.logger.Error("failed to parse template files", "error", err)
			return err
		}
		for _, f := range files {
			names = append(names, filepath.Base(f))
		}
	}

	tm.logger.Info("Loading django template files...")
	files, err = filepath.Glob(filepath.Join(tm.templateDir, "*"+DjangoSuffix))
	if err != nil {
		return err
	}
	for _, f := range files {
		name := filepath.Base(f)
		if err = tm.parseDjangoFile(root, f, name); err != nil {
			tm.logger.Error("failed to parse django template", "template", name, "error", err)
			return err
		}
		names = append(names, name)
	}

	tm.logger.Info("Loading partial files...")
	files, err = filepath.Glob(filepath.Join(tm.templateDir, "*"+PartialSuffix))
	if err != nil {
		return err
	}
	if len(files) > 0 {
		if root, err = root.ParseFiles(files...); err != nil {
			tm.logger.Error("failed to parse partial files", "error", err)
			return err
		}
	}
	// templateNames only holds full templates, not partials.

	if len(names) == 0 {
		tm.logger.Warn("No template files found", "dir", tm.templateDir)
	}
	sort.Strings(names)

	tm.templates = root
	tm.templateNames = names
	tm.logger.Info("Loaded template and partial files", "count", len(names))
	return nil
}

func (tm *TemplateManager) parseDjangoFile(root *template.Template, path, name string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	translated, err := syntax.Translate(name, string(src), tm.registry)
	if err != nil {
		return err
	}
	_, err = root.New(name).Parse(translated)
	return err
}

// prepare clones the parsed set and binds a fresh scope to the clone. The
// parsed set itself is never executed, so it can always be cloned. The
// caller must hold tm.mu.
func (tm *TemplateManager) prepare(data any) (*template.Template, error) {
	tmpl, err := tm.templates.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to clone templates: %w", err)
	}
	s := tm.newScope(tmpl, data)
	tmpl.Funcs(s.funcMap())
	return tmpl, nil
}

// Execute renders a specific template by name, writing the output to the provided io.Writer.
// The `data` argument is passed to the template and can be used to provide context or
// dynamic values.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	if name == "" {
		return nil
	}
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tmpl, err := tm.prepare(data)
	if err != nil {
		return err
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// ExecuteTemplateString parses and executes a raw Go-syntax template string.
// Loaded partials can be referenced with {{template}}.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tmpl, err := tm.prepare(data)
	if err != nil {
		return err
	}
	t, err := tmpl.New(inlineTemplateName).Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}
	return t.Execute(w, data)
}

// ExecuteDjangoString translates and executes a Django-syntax template string.
func (tm *TemplateManager) ExecuteDjangoString(w io.Writer, content string, data any) error {
	translated, err := syntax.Translate(inlineTemplateName, content, tm.registry)
	if err != nil {
		return err
	}
	return tm.ExecuteTemplateString(w, translated, data)
}

// Translate converts Django-syntax source to the Go template text this
// manager would parse.
func (tm *TemplateManager) Translate(name, content string) (string, error) {
	return syntax.Translate(name, content, tm.registry)
}

// GetTemplateNames returns the names of the loaded full templates.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return append([]string(nil), tm.templateNames...)
}

// GetConfig returns a copy of the current configuration.
// This mainly exists for concurrency-safety reasons.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetTemplateDir returns the template dir that the TemplateManager uses.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}

// Registry returns the tag and filter registry used for Django templates.
func (tm *TemplateManager) Registry() *syntax.Registry {
	return tm.registry
}

// FuncMap returns a copy of the function map. The scope functions in it
// return ErrNoScope when called outside a TemplateManager render.
func (tm *TemplateManager) FuncMap() template.FuncMap {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	out := make(template.FuncMap, len(tm.funcMap))
	for k, v := range tm.funcMap {
		out[k] = v
	}
	return out
}

// IsDjangoTemplate reports whether a file name uses Django syntax.
func IsDjangoTemplate(name string) bool {
	return strings.HasSuffix(name, DjangoSuffix)
}

// isTemplateFile reports whether a file is one that Refresh loads.
func isTemplateFile(name string) bool {
	return strings.HasSuffix(name, NativeSuffix) || strings.HasSuffix(name, DjangoSuffix) || strings.HasSuffix(name, PartialSuffix)
}
