package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, OLLAMAGATE_CONFIG env, ./config.yaml,
//     /etc/ollamagate/config.yaml)
//  3. OLLAMAGATE_* environment variable overrides
//  4. Legacy environment variable mapping (original deployment names)
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)
	applyLegacyEnv(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. OLLAMAGATE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/ollamagate/config.yaml
//
// Returns empty string if no config file is found. The gateway is fully
// configurable from environment variables alone; the file is optional.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("OLLAMAGATE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/ollamagate/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps OLLAMAGATE_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OLLAMAGATE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("OLLAMAGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OLLAMAGATE_PROVIDER"); v != "" {
		cfg.Gateway.DefaultProvider = normalizeProvider(v)
	}
	if v := os.Getenv("OLLAMAGATE_DEFAULT_MODEL"); v != "" {
		cfg.Gateway.DefaultModel = v
	}
	if v := os.Getenv("OLLAMAGATE_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.RequestTimeout = d
		}
	}
	if v := os.Getenv("OLLAMAGATE_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Gateway.ProbeTimeout = d
		}
	}
	if v := os.Getenv("OLLAMAGATE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.MaxRetries = n
		}
	}
	if v := os.Getenv("OLLAMAGATE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("OLLAMAGATE_VERTEX_PROJECT"); v != "" {
		cfg.Providers.Vertex.Project = v
	}
	if v := os.Getenv("OLLAMAGATE_VERTEX_LOCATION"); v != "" {
		cfg.Providers.Vertex.Location = v
	}
	if v := os.Getenv("OLLAMAGATE_GEMINI_API_KEY"); v != "" {
		cfg.Providers.Gemini.APIKey = v
	}
	if v := os.Getenv("OLLAMAGATE_GEMINI_API_KEY_FILE"); v != "" {
		cfg.Providers.Gemini.APIKeyFile = v
	}
	if v := os.Getenv("OLLAMAGATE_GEMINI_BASE_URL"); v != "" {
		cfg.Providers.Gemini.BaseURL = v
	}
	if v := os.Getenv("OLLAMAGATE_OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("OLLAMAGATE_OPENAI_API_KEY_FILE"); v != "" {
		cfg.Providers.OpenAI.APIKeyFile = v
	}
	if v := os.Getenv("OLLAMAGATE_OPENAI_BASE_URL"); v != "" {
		cfg.Providers.OpenAI.BaseURL = v
	}

	// OLLAMAGATE_MODEL_MAPPING: JSON object alias -> "provider/model".
	if v := os.Getenv("OLLAMAGATE_MODEL_MAPPING"); v != "" {
		if mapping, err := parseMappingJSON(v); err == nil && len(mapping) > 0 {
			if cfg.Models.Mapping == nil {
				cfg.Models.Mapping = map[string]string{}
			}
			for alias, target := range mapping {
				cfg.Models.Mapping[alias] = target
			}
		}
	}

	if v := os.Getenv("OLLAMAGATE_ACCOUNTING"); v != "" {
		cfg.Accounting.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OLLAMAGATE_ACCOUNTING_PATH"); v != "" {
		cfg.Accounting.Path = v
	}
	if v := os.Getenv("OLLAMAGATE_METRICS"); v != "" {
		cfg.Observability.Metrics.Enabled = v == "true" || v == "1"
	}
}

// applyLegacyEnv maps the original deployment's environment variables so
// existing Helm values keep working unchanged. OLLAMAGATE_* variables
// take precedence: a legacy variable only fills a field still at its
// default or empty value.
func applyLegacyEnv(cfg *Config) {
	if os.Getenv("OLLAMAGATE_PROVIDER") == "" {
		if v := os.Getenv("LITELLM_PROVIDER"); v != "" {
			cfg.Gateway.DefaultProvider = normalizeProvider(v)
		}
	}
	if os.Getenv("OLLAMAGATE_HOST") == "" {
		if v := os.Getenv("PROXY_HOST"); v != "" {
			cfg.Server.Host = v
		}
	}
	if os.Getenv("OLLAMAGATE_PORT") == "" {
		if v := os.Getenv("PROXY_PORT"); v != "" {
			if port, err := strconv.Atoi(v); err == nil {
				cfg.Server.Port = port
			}
		}
	}
	if cfg.Providers.Gemini.APIKey == "" && cfg.Providers.Gemini.APIKeyFile == "" {
		for _, name := range []string{"GOOGLE_AI_STUDIO_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
			if v := os.Getenv(name); v != "" {
				cfg.Providers.Gemini.APIKey = v
				break
			}
		}
	}
	if cfg.Providers.OpenAI.APIKey == "" && cfg.Providers.OpenAI.APIKeyFile == "" {
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.Providers.OpenAI.APIKey = v
		}
	}
	if cfg.Providers.Vertex.Project == "" {
		for _, name := range []string{"VERTEX_PROJECT_ID", "VERTEX_PROJECT", "GOOGLE_CLOUD_PROJECT"} {
			if v := os.Getenv(name); v != "" {
				cfg.Providers.Vertex.Project = v
				break
			}
		}
	}
	if os.Getenv("OLLAMAGATE_VERTEX_LOCATION") == "" {
		for _, name := range []string{"VERTEX_LOCATION", "GOOGLE_CLOUD_LOCATION"} {
			if v := os.Getenv(name); v != "" {
				cfg.Providers.Vertex.Location = v
				break
			}
		}
	}
}

// normalizeProvider folds the original deployment's provider spellings
// onto the gateway's canonical names.
func normalizeProvider(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vertex", "vertex_ai", "google_vertex_ai":
		return ProviderVertex
	case "gemini", "google_ai_studio":
		return ProviderGemini
	case "openai":
		return ProviderOpenAI
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// parseMappingJSON parses a JSON object of alias -> "provider/model".
func parseMappingJSON(jsonStr string) (map[string]string, error) {
	var mapping map[string]string
	if err := json.Unmarshal([]byte(jsonStr), &mapping); err != nil {
		return nil, fmt.Errorf("parsing model mapping JSON: %w", err)
	}
	return mapping, nil
}

// resolveFileReferences reads _file fields and populates the
// corresponding value fields. The value field wins if both are set.
func resolveFileReferences(cfg *Config) error {
	if cfg.Providers.Gemini.APIKeyFile != "" && cfg.Providers.Gemini.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.Gemini.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.gemini.api_key_file: %w", err)
		}
		cfg.Providers.Gemini.APIKey = val
	}

	if cfg.Providers.OpenAI.APIKeyFile != "" && cfg.Providers.OpenAI.APIKey == "" {
		val, err := readSecretFile(cfg.Providers.OpenAI.APIKeyFile)
		if err != nil {
			return fmt.Errorf("providers.openai.api_key_file: %w", err)
		}
		cfg.Providers.OpenAI.APIKey = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
