// Package resolver maps client-facing model aliases to a concrete
// provider and upstream model name. Resolution never fails: an unknown
// alias falls back to the configured default so that any client-chosen
// name still reaches a working backend.
package resolver

import (
	"log/slog"
	"sort"
	"strings"
)

// Target is one mapping table entry.
type Target struct {
	Provider      string
	UpstreamModel string
}

// FamilyRule routes aliases containing a family substring to a
// provider. When Model is empty the alias itself is used as the
// upstream model name.
type FamilyRule struct {
	Match    string
	Provider string
	Model    string
}

// Resolution is the outcome of resolving an alias.
type Resolution struct {
	Alias         string
	Provider      string
	UpstreamModel string

	// Fallback is true when the alias had no usable mapping and the
	// default took over. Fallbacks mask naming mismatches, so they are
	// logged and counted rather than silently absorbed.
	Fallback bool
}

// Options configures a Resolver.
type Options struct {
	// Mapping keys are matched case-insensitively.
	Mapping map[string]Target
	// Families are tried in order after an exact match fails.
	Families []FamilyRule
	// DefaultProvider and DefaultModel take over when nothing matches.
	// The default provider must be enabled.
	DefaultProvider string
	DefaultModel    string
	// Enabled lists the providers that can actually serve requests.
	// Mappings pointing at a disabled provider fall through.
	Enabled map[string]bool

	Logger *slog.Logger
	// OnFallback is invoked once per fallback resolution, for metrics.
	OnFallback func(alias string)
}

// Resolver holds the immutable mapping tables. Safe for concurrent use.
type Resolver struct {
	mapping         map[string]Target
	families        []FamilyRule
	defaultProvider string
	defaultModel    string
	enabled         map[string]bool
	logger          *slog.Logger
	onFallback      func(alias string)
}

// New builds a Resolver from the given options. Mapping keys are
// normalized to lower case once, here.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mapping := make(map[string]Target, len(opts.Mapping))
	for alias, target := range opts.Mapping {
		mapping[strings.ToLower(alias)] = target
	}

	return &Resolver{
		mapping:         mapping,
		families:        opts.Families,
		defaultProvider: opts.DefaultProvider,
		defaultModel:    opts.DefaultModel,
		enabled:         opts.Enabled,
		logger:          logger,
		onFallback:      opts.OnFallback,
	}
}

// Resolve maps an alias to a provider and upstream model. The order is
// exact match, family rules, configured default. Entries pointing at a
// disabled provider are skipped as if absent.
func (r *Resolver) Resolve(alias string) Resolution {
	key := normalize(alias)

	if target, ok := r.mapping[key]; ok && r.providerEnabled(target.Provider) {
		return Resolution{
			Alias:         alias,
			Provider:      target.Provider,
			UpstreamModel: target.UpstreamModel,
		}
	}

	for _, rule := range r.families {
		if !strings.Contains(key, rule.Match) || !r.providerEnabled(rule.Provider) {
			continue
		}
		model := rule.Model
		if model == "" {
			model = key
		}
		return Resolution{
			Alias:         alias,
			Provider:      rule.Provider,
			UpstreamModel: model,
		}
	}

	r.logger.Warn("unknown model alias, falling back to default",
		"alias", alias,
		"provider", r.defaultProvider,
		"model", r.defaultModel,
	)
	if r.onFallback != nil {
		r.onFallback(alias)
	}

	return Resolution{
		Alias:         alias,
		Provider:      r.defaultProvider,
		UpstreamModel: r.defaultModel,
		Fallback:      true,
	}
}

// Aliases returns every mapping key whose provider is enabled, sorted,
// in the original (lower-cased) spelling. Used by the model listing
// endpoints.
func (r *Resolver) Aliases() []string {
	aliases := make([]string, 0, len(r.mapping))
	for alias, target := range r.mapping {
		if r.providerEnabled(target.Provider) {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	return aliases
}

// Lookup returns the mapping entry for an alias without any fallback,
// reporting whether it exists and is backed by an enabled provider.
func (r *Resolver) Lookup(alias string) (Target, bool) {
	target, ok := r.mapping[normalize(alias)]
	if !ok || !r.providerEnabled(target.Provider) {
		return Target{}, false
	}
	return target, true
}

// Default returns the fallback provider and model.
func (r *Resolver) Default() (provider, model string) {
	return r.defaultProvider, r.defaultModel
}

func (r *Resolver) providerEnabled(provider string) bool {
	if r.enabled == nil {
		return true
	}
	return r.enabled[provider]
}

// normalize lower-cases an alias and strips the Ollama ":latest" tag,
// which clients append to untagged model names.
func normalize(alias string) string {
	key := strings.ToLower(strings.TrimSpace(alias))
	return strings.TrimSuffix(key, ":latest")
}
