// Command gateway runs the Ollama-compatible model serving gateway.
//
// Configuration is layered: built-in defaults, then an optional YAML
// file (-config flag, OLLAMAGATE_CONFIG, ./config.yaml, or
// /etc/ollamagate/config.yaml), then OLLAMAGATE_* environment
// variables. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/chatfront/ollamagate/pkg/accounting"
	"github.com/chatfront/ollamagate/pkg/config"
	"github.com/chatfront/ollamagate/pkg/observability"
	"github.com/chatfront/ollamagate/pkg/provider"
	"github.com/chatfront/ollamagate/pkg/provider/gemini"
	"github.com/chatfront/ollamagate/pkg/provider/openaicompat"
	"github.com/chatfront/ollamagate/pkg/provider/vertex"
	"github.com/chatfront/ollamagate/pkg/resolver"
	transporthttp "github.com/chatfront/ollamagate/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	// A missing .env file is the normal case.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx := context.Background()

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, p := range providers {
			p.Close()
		}
	}()

	defaultModel := cfg.Gateway.DefaultModel
	if defaultModel == "" {
		defaultModel = resolver.DefaultModelFor(cfg.Gateway.DefaultProvider)
	}

	res := resolver.New(resolver.Options{
		Mapping:         buildMapping(cfg),
		Families:        buildFamilies(cfg),
		DefaultProvider: cfg.Gateway.DefaultProvider,
		DefaultModel:    defaultModel,
		Enabled:         enabledSet(cfg),
		Logger:          logger,
		OnFallback:      func(string) { observability.ResolverFallbackTotal.Inc() },
	})

	var recorder accounting.Recorder = accounting.Nop{}
	if cfg.Accounting.Enabled {
		store, err := accounting.Open(cfg.Accounting.Path)
		if err != nil {
			return fmt.Errorf("opening accounting store: %w", err)
		}
		defer store.Close()
		recorder = store
		logger.Info("accounting enabled", "path", cfg.Accounting.Path)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	gateway := transporthttp.NewGateway(transporthttp.Options{
		Resolver:        res,
		Providers:       providers,
		DefaultProvider: cfg.Gateway.DefaultProvider,
		DefaultModel:    defaultModel,
		RequestTimeout:  cfg.Gateway.RequestTimeout,
		ProbeTimeout:    cfg.Gateway.ProbeTimeout,
		Retry: provider.RetryPolicy{
			MaxRetries: cfg.Gateway.MaxRetries,
			Backoff:    cfg.Gateway.RetryBackoff,
			OnRetry: func(name string) {
				observability.RetriesTotal.WithLabelValues(name).Inc()
			},
		},
		Logger:      logger,
		Recorder:    recorder,
		MetricsPath: metricsPath,
	})

	srv := transporthttp.NewServer(gateway, transporthttp.ServerConfig{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Logger:       logger,
	})

	logger.Info("gateway configured",
		"default_provider", cfg.Gateway.DefaultProvider,
		"default_model", defaultModel,
		"providers", cfg.EnabledProviders(),
	)

	return srv.ListenAndServe()
}

// buildProviders constructs one adapter per enabled provider.
func buildProviders(ctx context.Context, cfg *config.Config) (map[string]provider.Provider, error) {
	providers := make(map[string]provider.Provider)

	for _, name := range cfg.EnabledProviders() {
		switch name {
		case config.ProviderVertex:
			p, err := vertex.New(ctx, vertex.Config{
				Project:  cfg.Providers.Vertex.Project,
				Location: cfg.Providers.Vertex.Location,
				Endpoint: cfg.Providers.Vertex.Endpoint,
				Timeout:  cfg.Gateway.RequestTimeout,
			})
			if err != nil {
				return nil, fmt.Errorf("creating vertex provider: %w", err)
			}
			providers[name] = p

		case config.ProviderGemini:
			providers[name] = gemini.New(gemini.Config{
				APIKey:  cfg.Providers.Gemini.APIKey,
				BaseURL: cfg.Providers.Gemini.BaseURL,
				Timeout: cfg.Gateway.RequestTimeout,
			})

		case config.ProviderOpenAI:
			providers[name] = openaicompat.New(openaicompat.Config{
				BaseURL: cfg.Providers.OpenAI.BaseURL,
				APIKey:  cfg.Providers.OpenAI.APIKey,
				Timeout: cfg.Gateway.RequestTimeout,
			})
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers enabled; configure credentials for at least one")
	}

	return providers, nil
}

// buildMapping merges config mapping entries over the built-in table.
func buildMapping(cfg *config.Config) map[string]resolver.Target {
	mapping := resolver.BuiltinMapping()
	for alias, target := range cfg.Models.Mapping {
		providerName, model, ok := strings.Cut(target, "/")
		if !ok {
			continue // validation already rejected these
		}
		mapping[alias] = resolver.Target{Provider: providerName, UpstreamModel: model}
	}
	return mapping
}

// buildFamilies puts config family rules ahead of the built-in ones.
func buildFamilies(cfg *config.Config) []resolver.FamilyRule {
	var rules []resolver.FamilyRule
	for _, fr := range cfg.Models.Families {
		rules = append(rules, resolver.FamilyRule{
			Match:    strings.ToLower(fr.Prefix),
			Provider: fr.Provider,
			Model:    fr.Model,
		})
	}
	return append(rules, resolver.BuiltinFamilies(cfg.Gateway.DefaultProvider)...)
}

func enabledSet(cfg *config.Config) map[string]bool {
	enabled := make(map[string]bool)
	for _, name := range cfg.EnabledProviders() {
		enabled[name] = true
	}
	return enabled
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
