// Package vertex implements the provider adapter for Vertex AI,
// authenticated with Application Default Credentials.
package vertex

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
	"github.com/chatfront/ollamagate/pkg/provider/googlegenai"
)

// cloudPlatformScope is the OAuth scope Vertex AI requires.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Config holds the settings for the Vertex AI backend.
type Config struct {
	// Project is the Google Cloud project ID. Required.
	Project string
	// Location is the Vertex region, e.g. "us-central1".
	Location string
	// Endpoint overrides the regional endpoint, mainly for tests.
	Endpoint string
	// Timeout bounds non-streaming requests.
	Timeout time.Duration
	// TokenSource overrides ADC, mainly for tests.
	TokenSource oauth2.TokenSource
}

// Provider talks to the Vertex AI generateContent API.
type Provider struct {
	*googlegenai.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Provider for Vertex AI. Credentials are resolved from
// Application Default Credentials unless cfg.TokenSource is set; a
// missing credential setup surfaces here, not at request time.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Project == "" {
		return nil, api.NewUnavailableError("vertex provider requires a project ID")
	}

	location := cfg.Location
	if location == "" {
		location = "us-central1"
	}

	ts := cfg.TokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, api.NewUnavailableError("application default credentials not found: " + err.Error())
		}
		ts = oauth2.ReuseTokenSource(nil, ts)
	}

	base := strings.TrimRight(cfg.Endpoint, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", location)
	}

	modelsRoot := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models",
		base, cfg.Project, location)

	client := googlegenai.NewClient(googlegenai.ClientConfig{
		GenerateURL: func(model string, stream bool) string {
			if stream {
				return modelsRoot + "/" + model + ":streamGenerateContent?alt=sse"
			}
			return modelsRoot + "/" + model + ":generateContent"
		},
		ProbeURL: modelsRoot,
		Auth: func(req *http.Request) error {
			tok, err := ts.Token()
			if err != nil {
				return err
			}
			tok.SetAuthHeader(req)
			return nil
		},
		Timeout: cfg.Timeout,
	})

	return &Provider{Client: client}, nil
}

// Name returns the provider identifier used in model mappings.
func (p *Provider) Name() string {
	return "vertex"
}
