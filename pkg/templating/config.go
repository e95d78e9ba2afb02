package templating

// TemplateConfig holds all configuration options for the templating engine.
type TemplateConfig struct {
	// StringIfInvalid is printed in place of variables that do not resolve.
	StringIfInvalid string

	// MaxRegexLength sets a hard upper limit on the length of patterns accepted
	// by matches. Longer patterns never match.
	MaxRegexLength int

	// RegexCacheSize bounds the number of compiled patterns kept between renders.
	RegexCacheSize int

	// MaxSerializeItems sets the maximum number of records written by serialize.
	// Larger collections are truncated.
	MaxSerializeItems int

	// SerializeIndent is the indentation used by serialize. Zero produces
	// compact output.
	SerializeIndent int

	// MaxCaptureDepth limits how deeply renderVar calls may nest.
	MaxCaptureDepth int

	// WatchDebounceMs is how long Watch waits for filesystem events to settle
	// before refreshing.
	WatchDebounceMs int
}

// DefaultConfig returns a TemplateConfig with safe default values.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		StringIfInvalid:   "",
		MaxRegexLength:    1024,
		RegexCacheSize:    256,
		MaxSerializeItems: 10_000,
		SerializeIndent:   0,
		MaxCaptureDepth:   16,
		WatchDebounceMs:   250,
	}
}
