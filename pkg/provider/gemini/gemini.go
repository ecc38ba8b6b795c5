// Package gemini implements the provider adapter for the Google AI
// Studio API, authenticated with an API key.
package gemini

import (
	"net/http"
	"strings"
	"time"

	"github.com/chatfront/ollamagate/pkg/provider"
	"github.com/chatfront/ollamagate/pkg/provider/googlegenai"
)

// DefaultBaseURL is the public AI Studio endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Config holds the settings for the AI Studio backend.
type Config struct {
	// APIKey is the AI Studio key, sent in the x-goog-api-key header.
	APIKey string
	// BaseURL overrides the endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds non-streaming requests.
	Timeout time.Duration
}

// Provider talks to the AI Studio generateContent API.
type Provider struct {
	*googlegenai.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Provider for the AI Studio backend.
func New(cfg Config) *Provider {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	client := googlegenai.NewClient(googlegenai.ClientConfig{
		GenerateURL: func(model string, stream bool) string {
			if stream {
				return base + "/v1beta/models/" + model + ":streamGenerateContent?alt=sse"
			}
			return base + "/v1beta/models/" + model + ":generateContent"
		},
		ProbeURL: base + "/v1beta/models?pageSize=1",
		Auth: func(req *http.Request) error {
			req.Header.Set("x-goog-api-key", cfg.APIKey)
			return nil
		},
		Timeout: cfg.Timeout,
	})

	return &Provider{Client: client}
}

// Name returns the provider identifier used in model mappings.
func (p *Provider) Name() string {
	return "gemini"
}
