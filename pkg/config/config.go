// Package config provides unified configuration for the ollamagate proxy.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (OLLAMAGATE_ prefix)
//  4. Backward-compatible env var mapping for the original deployment's
//     variable names (LITELLM_PROVIDER, PROXY_PORT, ...)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
//
// Everything is read once at process start. No component reads the
// process environment after boot; changing configuration requires a
// restart.
package config

import "time"

// Provider identifiers understood by the gateway.
const (
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Models        ModelsConfig        `yaml:"models"`
	Observability ObservabilityConfig `yaml:"observability"`
	Accounting    AccountingConfig    `yaml:"accounting"`
	Log           LogConfig           `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`          // default: "0.0.0.0"
	Port         int           `yaml:"port"`          // default: 11434 (the Ollama port)
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 0 (streams have no fixed bound)
}

// GatewayConfig holds request pipeline settings.
type GatewayConfig struct {
	// DefaultProvider breaks ties when an alias could map to more than
	// one enabled provider, and is the fallback target for unknown
	// aliases.
	DefaultProvider string `yaml:"default_provider"` // default: "gemini"

	// DefaultModel overrides the per-provider default upstream model
	// used for fallback resolutions. Empty means use the provider's own
	// default.
	DefaultModel string `yaml:"default_model"`

	RequestTimeout time.Duration `yaml:"request_timeout"` // default: 120s
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`   // default: 2s

	// MaxRetries bounds retry attempts for transient upstream failures
	// on non-streaming calls. Streaming calls are never retried once
	// output has begun.
	MaxRetries   int           `yaml:"max_retries"`   // default: 2
	RetryBackoff time.Duration `yaml:"retry_backoff"` // default: 500ms
}

// ProvidersConfig holds per-provider settings.
type ProvidersConfig struct {
	Vertex VertexConfig `yaml:"vertex"`
	Gemini GeminiConfig `yaml:"gemini"`
	OpenAI OpenAIConfig `yaml:"openai"`
}

// VertexConfig configures the Vertex AI provider, which authenticates
// through application default credentials.
type VertexConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Project  string `yaml:"project"`
	Location string `yaml:"location"` // default: "us-central1"
	Endpoint string `yaml:"endpoint"` // default derived from location
}

// GeminiConfig configures the Google AI Studio provider, which
// authenticates with a static API key.
type GeminiConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
	BaseURL    string `yaml:"base_url"` // default: "https://generativelanguage.googleapis.com"
}

// OpenAIConfig configures an OpenAI-compatible provider. This covers
// both a real OpenAI-style API and the agent backend when the gateway
// is chained in front of it.
type OpenAIConfig struct {
	Enabled    *bool  `yaml:"enabled"`
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
	BaseURL    string `yaml:"base_url"` // default: "https://api.openai.com"
}

// ModelsConfig overlays the built-in model mapping table.
type ModelsConfig struct {
	// Mapping maps a client alias to "provider/upstream-model", e.g.
	// "gemini-2.0-flash" -> "gemini/gemini-2.0-flash". Entries here are
	// merged over the built-in table; keys are case-insensitive.
	Mapping map[string]string `yaml:"mapping"`

	// Families lists prefix rules applied when no exact alias matches.
	Families []FamilyRule `yaml:"families"`
}

// FamilyRule collapses every alias containing Prefix onto one upstream
// model, so arbitrary client-chosen names in a known family still work.
type FamilyRule struct {
	Prefix   string `yaml:"prefix"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// AccountingConfig holds request accounting settings. Accounting stores
// per-request routing metadata (alias, provider, status, token counts),
// never message content.
type AccountingConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Path    string `yaml:"path"`    // SQLite file, default: "ollamagate.db"
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error, default: "info"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        11434,
			ReadTimeout: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			DefaultProvider: ProviderGemini,
			RequestTimeout:  120 * time.Second,
			ProbeTimeout:    2 * time.Second,
			MaxRetries:      2,
			RetryBackoff:    500 * time.Millisecond,
		},
		Providers: ProvidersConfig{
			Vertex: VertexConfig{
				Location: "us-central1",
			},
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com",
			},
			OpenAI: OpenAIConfig{
				BaseURL: "https://api.openai.com",
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Accounting: AccountingConfig{
			Path: "ollamagate.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ProviderEnabled reports whether the named provider is usable. A
// provider is enabled when explicitly switched on, or implicitly when
// its credentials are present and it was not explicitly switched off.
func (c *Config) ProviderEnabled(name string) bool {
	switch name {
	case ProviderVertex:
		return enabledOr(c.Providers.Vertex.Enabled, c.Providers.Vertex.Project != "")
	case ProviderGemini:
		return enabledOr(c.Providers.Gemini.Enabled, c.Providers.Gemini.APIKey != "" || c.Providers.Gemini.APIKeyFile != "")
	case ProviderOpenAI:
		return enabledOr(c.Providers.OpenAI.Enabled, c.Providers.OpenAI.APIKey != "" || c.Providers.OpenAI.APIKeyFile != "")
	default:
		return false
	}
}

// EnabledProviders returns the enabled provider names in a stable order.
func (c *Config) EnabledProviders() []string {
	var out []string
	for _, name := range []string{ProviderVertex, ProviderGemini, ProviderOpenAI} {
		if c.ProviderEnabled(name) {
			out = append(out, name)
		}
	}
	return out
}

func enabledOr(explicit *bool, implicit bool) bool {
	if explicit != nil {
		return *explicit
	}
	return implicit
}
