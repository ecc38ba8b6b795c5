package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	switch c.Gateway.DefaultProvider {
	case ProviderVertex, ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("gateway.default_provider must be one of %q, %q, %q, got %q",
			ProviderVertex, ProviderGemini, ProviderOpenAI, c.Gateway.DefaultProvider))
	}

	if len(c.EnabledProviders()) == 0 {
		errs = append(errs, fmt.Errorf("no provider is enabled; configure credentials for at least one of vertex, gemini, openai"))
	} else if !c.ProviderEnabled(c.Gateway.DefaultProvider) {
		errs = append(errs, fmt.Errorf("gateway.default_provider %q is not enabled", c.Gateway.DefaultProvider))
	}

	if c.Gateway.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.request_timeout must be > 0"))
	}
	if c.Gateway.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.probe_timeout must be > 0"))
	}
	if c.Gateway.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("gateway.max_retries must be >= 0, got %d", c.Gateway.MaxRetries))
	}

	if c.ProviderEnabled(ProviderVertex) && c.Providers.Vertex.Project == "" {
		errs = append(errs, fmt.Errorf("providers.vertex.project is required when vertex is enabled"))
	}

	// Every mapping entry must reference a known provider. Entries
	// pointing at disabled providers are legal; the resolver treats
	// them as unavailable and falls through to the default.
	for alias, target := range c.Models.Mapping {
		provider, model, ok := strings.Cut(target, "/")
		if !ok || provider == "" || model == "" {
			errs = append(errs, fmt.Errorf("models.mapping[%q] must be \"provider/model\", got %q", alias, target))
			continue
		}
		if !knownProvider(provider) {
			errs = append(errs, fmt.Errorf("models.mapping[%q] references unknown provider %q", alias, provider))
		}
	}

	for i, rule := range c.Models.Families {
		if rule.Prefix == "" {
			errs = append(errs, fmt.Errorf("models.families[%d].prefix must not be empty", i))
		}
		if !knownProvider(rule.Provider) {
			errs = append(errs, fmt.Errorf("models.families[%d] references unknown provider %q", i, rule.Provider))
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if c.Accounting.Enabled && c.Accounting.Path == "" {
		errs = append(errs, fmt.Errorf("accounting.path is required when accounting is enabled"))
	}

	return errors.Join(errs...)
}

func knownProvider(name string) bool {
	switch name {
	case ProviderVertex, ProviderGemini, ProviderOpenAI:
		return true
	}
	return false
}
