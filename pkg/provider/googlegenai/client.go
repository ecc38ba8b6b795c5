package googlegenai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// AuthFunc attaches credentials to an outgoing request. AI Studio sets
// an API key header, Vertex a Bearer token from ADC.
type AuthFunc func(req *http.Request) error

// ClientConfig wires a Client to a concrete endpoint layout.
type ClientConfig struct {
	// GenerateURL builds the generateContent or streamGenerateContent
	// URL for a model. Streaming URLs must request alt=sse.
	GenerateURL func(model string, stream bool) string
	// ProbeURL is fetched with GET to check reachability and
	// credentials.
	ProbeURL string
	// Auth attaches credentials to every request.
	Auth AuthFunc
	// Timeout bounds non-streaming requests. Zero means 120s.
	Timeout time.Duration
}

// Client performs generateContent calls against a Google backend. The
// AI Studio and Vertex adapters embed it and delegate their Complete,
// Stream, and Probe calls here.
type Client struct {
	httpClient  *http.Client
	generateURL func(model string, stream bool) string
	probeURL    string
	auth        AuthFunc
}

// NewClient creates a Client for a Google generateContent backend.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		generateURL: cfg.GenerateURL,
		probeURL:    cfg.ProbeURL,
		auth:        cfg.Auth,
	}
}

// Complete performs non-streaming inference.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	genReq := TranslateRequest(req)

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.generateURL(req.Model, false)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.auth(httpReq); err != nil {
		return nil, api.NewAuthError("failed to attach credentials: " + err.Error())
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var genResp GenerateContentResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&genResp); err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("failed to parse backend response: %s", err.Error()))
	}

	out := TranslateResponse(&genResp)
	if out.Model == "" {
		out.Model = req.Model
	}
	return out, nil
}

// Stream performs streaming inference. The returned channel is closed
// when the stream completes, errors, or the context is cancelled.
//
// The HTTP client timeout is not applied for streaming requests; the
// context controls the request lifetime instead.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	genReq := TranslateRequest(req)

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.generateURL(req.Model, true)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInternalError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if err := c.auth(httpReq); err != nil {
		return nil, api.NewAuthError("failed to attach credentials: " + err.Error())
	}

	streamClient := &http.Client{Transport: c.httpClient.Transport}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, MapHTTPError(httpResp)
	}

	ch := make(chan provider.Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, httpResp.Body, ch)
	}()

	return ch, nil
}

// Probe checks backend reachability and credential validity.
func (c *Client) Probe(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.probeURL, nil)
	if err != nil {
		return api.NewInternalError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	if err := c.auth(httpReq); err != nil {
		return api.NewAuthError("failed to attach credentials: " + err.Error())
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return MapHTTPError(httpResp)
	}

	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
