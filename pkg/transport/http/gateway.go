// Package http exposes the Ollama wire protocol over HTTP and routes
// requests through the resolver to the provider adapters.
package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatfront/ollamagate/pkg/accounting"
	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/observability"
	"github.com/chatfront/ollamagate/pkg/provider"
	"github.com/chatfront/ollamagate/pkg/resolver"
	"github.com/chatfront/ollamagate/pkg/translate"
)

// Options wires a Gateway to its collaborators.
type Options struct {
	Resolver  *resolver.Resolver
	Providers map[string]provider.Provider

	DefaultProvider string
	DefaultModel    string

	// RequestTimeout bounds one upstream call, streaming included.
	RequestTimeout time.Duration
	// ProbeTimeout bounds each health probe.
	ProbeTimeout time.Duration
	Retry        provider.RetryPolicy

	Logger   *slog.Logger
	Recorder accounting.Recorder
	// MetricsPath mounts the Prometheus endpoint when non-empty.
	MetricsPath string
}

// Gateway holds the HTTP handlers for the Ollama protocol surface.
type Gateway struct {
	resolver  *resolver.Resolver
	providers map[string]provider.Provider

	defaultProvider string
	defaultModel    string

	requestTimeout time.Duration
	probeTimeout   time.Duration
	retry          provider.RetryPolicy

	logger      *slog.Logger
	recorder    accounting.Recorder
	metricsPath string
}

// NewGateway creates a Gateway from the given options.
func NewGateway(opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = accounting.Nop{}
	}
	requestTimeout := opts.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 120 * time.Second
	}
	probeTimeout := opts.ProbeTimeout
	if probeTimeout == 0 {
		probeTimeout = 2 * time.Second
	}

	return &Gateway{
		resolver:        opts.Resolver,
		providers:       opts.Providers,
		defaultProvider: opts.DefaultProvider,
		defaultModel:    opts.DefaultModel,
		requestTimeout:  requestTimeout,
		probeTimeout:    probeTimeout,
		retry:           opts.Retry,
		logger:          logger,
		recorder:        rec,
		metricsPath:     opts.MetricsPath,
	}
}

// Routes builds the router with the full endpoint surface.
func (g *Gateway) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.MetricsMiddleware)
	r.Use(requestLogger(g.logger))

	r.Get("/health", g.handleHealth)
	r.Get("/api/tags", g.handleTags)
	r.Post("/api/show", g.handleShow)
	r.Post("/api/generate", g.handleGenerate)
	r.Post("/api/chat", g.handleChat)
	r.Post("/api/pull", g.handlePull)
	r.Delete("/api/delete", g.handleDelete)

	if g.metricsPath != "" {
		r.Handle(g.metricsPath, promhttp.Handler())
	}

	return r
}

// handleHealth probes every provider concurrently. The gateway is
// healthy when the default provider answers; other providers being down
// degrades the report without failing it.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.probeTimeout)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	availability := make(map[string]bool, len(g.providers))

	for name, p := range g.providers {
		wg.Add(1)
		go func(name string, p provider.Provider) {
			defer wg.Done()
			err := p.Probe(ctx)
			if err != nil {
				g.logger.Warn("provider probe failed", "provider", name, "error", err.Error())
			}
			mu.Lock()
			availability[name] = err == nil
			mu.Unlock()
		}(name, p)
	}
	wg.Wait()

	status := "healthy"
	if !availability[g.defaultProvider] {
		status = "degraded"
	}

	writeJSON(w, api.HealthResponse{
		Status:       status,
		Provider:     g.defaultProvider,
		DefaultModel: g.defaultModel,
		Timestamp:    api.Timestamp(time.Now()),
		Providers:    availability,
	})
}

// handleTags lists every alias from the mapping table. No upstream call
// is made; the answer comes entirely from configuration.
func (g *Gateway) handleTags(w http.ResponseWriter, r *http.Request) {
	aliases := g.resolver.Aliases()

	models := make([]api.ModelSummary, 0, len(aliases))
	for _, alias := range aliases {
		target, ok := g.resolver.Lookup(alias)
		if !ok {
			continue
		}
		models = append(models, api.ModelSummary{
			Name:   alias,
			Model:  alias,
			Size:   0,
			Digest: aliasDigest(alias),
			Details: api.ModelDetails{
				Format:        "cloud",
				Family:        familyOf(alias),
				Provider:      target.Provider,
				UpstreamModel: target.UpstreamModel,
			},
		})
	}

	writeJSON(w, api.TagsResponse{Models: models})
}

func (g *Gateway) handleShow(w http.ResponseWriter, r *http.Request) {
	var req api.ShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("body", "invalid JSON in request body"))
		return
	}
	if err := api.ValidateShow(&req); err != nil {
		writeError(w, err)
		return
	}

	name := req.Name
	if name == "" {
		name = req.Model
	}

	target, ok := g.resolver.Lookup(name)
	if !ok {
		writeNotFound(w, name)
		return
	}

	writeJSON(w, api.ShowResponse{
		Details: api.ModelDetails{
			Format:        "cloud",
			Family:        familyOf(name),
			Provider:      target.Provider,
			UpstreamModel: target.UpstreamModel,
		},
		Capabilities: []string{"completion", "chat"},
	})
}

func (g *Gateway) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("body", "invalid JSON in request body"))
		return
	}
	if err := api.ValidateGenerate(&req); err != nil {
		writeError(w, err)
		return
	}

	var messages []api.Message
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

	g.dispatch(w, r, "generate", req.Model, messages, req.Options, req.Stream, chunkFuncs{
		chunk: func(alias, delta string) any { return translate.GenerateChunk(alias, delta) },
		done: func(alias string, ev provider.Event, started time.Time) any {
			return translate.GenerateDone(alias, ev, started)
		},
		fail: func(alias string, err error) any { return translate.GenerateError(alias, err) },
		complete: func(alias string, resp *provider.Response, started time.Time) any {
			return translate.Generate(alias, resp, started)
		},
	})
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("body", "invalid JSON in request body"))
		return
	}
	if err := api.ValidateChat(&req); err != nil {
		writeError(w, err)
		return
	}

	g.dispatch(w, r, "chat", req.Model, req.Messages, req.Options, req.Stream, chunkFuncs{
		chunk: func(alias, delta string) any { return translate.ChatChunk(alias, delta) },
		done: func(alias string, ev provider.Event, started time.Time) any {
			return translate.ChatDone(alias, ev, started)
		},
		fail: func(alias string, err error) any { return translate.ChatError(alias, err) },
		complete: func(alias string, resp *provider.Response, started time.Time) any {
			return translate.Chat(alias, resp, started)
		},
	})
}

// handlePull acknowledges a pull for any known alias. Cloud models have
// nothing to download, so success is immediate; unknown names are a 404
// like a missing registry entry would be.
func (g *Gateway) handlePull(w http.ResponseWriter, r *http.Request) {
	var req api.ShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("body", "invalid JSON in request body"))
		return
	}

	name := req.Name
	if name == "" {
		name = req.Model
	}

	if _, ok := g.resolver.Lookup(name); !ok {
		writeNotFound(w, name)
		return
	}

	writeJSON(w, api.StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Model %s is available", name),
	})
}

// handleDelete acknowledges a delete without doing anything; cloud
// models cannot be deleted.
func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req api.ShowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, api.NewInvalidRequestError("body", "invalid JSON in request body"))
		return
	}

	name := req.Name
	if name == "" {
		name = req.Model
	}

	writeJSON(w, api.StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Model %s deletion simulated (cloud models cannot be deleted)", name),
	})
}

func writeNotFound(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: fmt.Sprintf("model %q not found", name),
	})
}

// aliasDigest derives a stable digest for an alias. There is no local
// blob, so the alias name itself is hashed; clients that parse the
// digest still get a well-formed sha256 value.
func aliasDigest(alias string) string {
	sum := sha256.Sum256([]byte(alias))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// familyOf classifies an alias for the details block.
func familyOf(alias string) string {
	lower := strings.ToLower(alias)
	switch {
	case strings.Contains(lower, "gemini"):
		return "gemini"
	case strings.Contains(lower, "gpt") || strings.Contains(lower, "o1"):
		return "gpt"
	default:
		return "unknown"
	}
}
