package http

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
	"github.com/chatfront/ollamagate/pkg/resolver"
)

// fakeProvider is a scriptable in-memory backend.
type fakeProvider struct {
	name string

	completeResp *provider.Response
	completeErr  error

	streamEvents []provider.Event
	streamErr    error
	streamDelay  time.Duration

	probeErr error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.completeResp, nil
}

func (f *fakeProvider) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan provider.Event, len(f.streamEvents))
	go func() {
		defer close(ch)
		for _, ev := range f.streamEvents {
			if f.streamDelay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(f.streamDelay):
				}
			}
			ch <- ev
		}
	}()
	return ch, nil
}

func (f *fakeProvider) Probe(ctx context.Context) error { return f.probeErr }
func (f *fakeProvider) Close() error                    { return nil }

func testGateway(t *testing.T, p *fakeProvider, opts ...func(*Options)) *Gateway {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res := resolver.New(resolver.Options{
		Mapping:         resolver.BuiltinMapping(),
		Families:        resolver.BuiltinFamilies("gemini"),
		DefaultProvider: "gemini",
		DefaultModel:    "gemini-2.0-flash",
		Enabled:         map[string]bool{"gemini": true},
		Logger:          logger,
	})

	o := Options{
		Resolver:        res,
		Providers:       map[string]provider.Provider{"gemini": p},
		DefaultProvider: "gemini",
		DefaultModel:    "gemini-2.0-flash",
		RequestTimeout:  5 * time.Second,
		ProbeTimeout:    time.Second,
		Logger:          logger,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewGateway(o)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGenerate_NonStreaming(t *testing.T) {
	p := &fakeProvider{
		name: "gemini",
		completeResp: &provider.Response{
			Content:      "hello there",
			FinishReason: "stop",
			Usage:        &api.Usage{PromptTokens: 4, CompletionTokens: 2},
		},
	}
	g := testGateway(t, p)

	rec := postJSON(t, g.Routes(), "/api/generate",
		`{"model":"gemini-2.0-flash","prompt":"say hello","stream":false}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp api.GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.Response != "hello there" {
		t.Errorf("response = %q", resp.Response)
	}
	if !resp.Done {
		t.Error("done = false")
	}
	if resp.PromptEvalCount != 4 || resp.EvalCount != 2 {
		t.Errorf("usage = %d/%d", resp.PromptEvalCount, resp.EvalCount)
	}
}

func TestGenerate_ValidationErrors(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})
	routes := g.Routes()

	cases := []struct {
		name string
		body string
	}{
		{"missing model", `{"prompt":"hi"}`},
		{"empty prompt", `{"model":"gemini-2.0-flash","prompt":""}`},
		{"invalid json", `{"model":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, routes, "/api/generate", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			var er api.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil || er.Error == "" {
				t.Errorf("error body = %q", rec.Body.String())
			}
		})
	}
}

func TestGenerate_UnknownAliasFallsBack(t *testing.T) {
	p := &fakeProvider{
		name:         "gemini",
		completeResp: &provider.Response{Content: "ok", FinishReason: "stop"},
	}
	g := testGateway(t, p)

	rec := postJSON(t, g.Routes(), "/api/generate",
		`{"model":"totally-unknown-model","prompt":"hi","stream":false}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want fallback to succeed", rec.Code)
	}

	var resp api.GenerateResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	// The client's alias is echoed back even on fallback.
	if resp.Model != "totally-unknown-model" {
		t.Errorf("model = %q, want client alias", resp.Model)
	}
}

func TestGenerate_UpstreamAuthErrorIs502(t *testing.T) {
	p := &fakeProvider{name: "gemini", completeErr: api.NewAuthError("bad key")}
	g := testGateway(t, p)

	rec := postJSON(t, g.Routes(), "/api/generate",
		`{"model":"gemini-2.0-flash","prompt":"hi"}`)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestChat_Streaming(t *testing.T) {
	p := &fakeProvider{
		name: "gemini",
		streamEvents: []provider.Event{
			{Type: provider.EventTextDelta, Delta: "Hel"},
			{Type: provider.EventTextDelta, Delta: "lo"},
			{Type: provider.EventDone, FinishReason: "stop", Usage: &api.Usage{PromptTokens: 3, CompletionTokens: 2}},
		},
	}
	g := testGateway(t, p)

	rec := postJSON(t, g.Routes(), "/api/chat",
		`{"model":"gemini-2.0-flash","messages":[{"role":"user","content":"hi"}],"stream":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content-type = %q", ct)
	}

	var chunks []api.ChatResponse
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var chunk api.ChatResponse
		if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
			t.Fatalf("chunk decode: %v (line %q)", err, scanner.Text())
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0].Message.Content != "Hel" || chunks[1].Message.Content != "lo" {
		t.Errorf("delta order broken: %+v", chunks[:2])
	}
	for _, c := range chunks[:2] {
		if c.Done {
			t.Error("non-terminal chunk marked done")
		}
	}
	last := chunks[2]
	if !last.Done || last.DoneReason != "stop" {
		t.Errorf("terminal chunk = %+v", last)
	}
	if last.PromptEvalCount != 3 || last.EvalCount != 2 {
		t.Errorf("terminal usage = %d/%d", last.PromptEvalCount, last.EvalCount)
	}
}

func TestChat_StreamErrorBecomesTerminalChunk(t *testing.T) {
	p := &fakeProvider{
		name: "gemini",
		streamEvents: []provider.Event{
			{Type: provider.EventTextDelta, Delta: "partial"},
			{Type: provider.EventError, Err: api.NewTransientError("upstream dropped")},
		},
	}
	g := testGateway(t, p)

	rec := postJSON(t, g.Routes(), "/api/chat",
		`{"model":"gemini-2.0-flash","messages":[{"role":"user","content":"hi"}],"stream":true}`)

	// The stream already started, so the status is 200 and the error
	// arrives in-band.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	var last api.ChatResponse
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("decode terminal chunk: %v", err)
	}
	if !last.Done {
		t.Error("terminal error chunk not marked done")
	}
	if last.Error != "upstream dropped" {
		t.Errorf("error = %q", last.Error)
	}
}

func TestChat_ValidationRejectsBadRole(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})

	rec := postJSON(t, g.Routes(), "/api/chat",
		`{"model":"gemini-2.0-flash","messages":[{"role":"wizard","content":"hi"}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	g.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp api.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Provider != "gemini" || resp.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("provider/default = %q/%q", resp.Provider, resp.DefaultModel)
	}
	if ok, present := resp.Providers["gemini"]; !present || !ok {
		t.Errorf("providers map = %v", resp.Providers)
	}
}

func TestHealth_DegradedWhenDefaultProbeFails(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini", probeErr: api.NewAuthError("expired")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	g.Routes().ServeHTTP(rec, req)

	var resp api.HealthResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestTags(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})

	req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
	rec := httptest.NewRecorder()
	g.Routes().ServeHTTP(rec, req)

	var resp api.TagsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Only gemini is enabled, so only gemini-backed aliases are listed.
	if len(resp.Models) == 0 {
		t.Fatal("no models listed")
	}
	for _, m := range resp.Models {
		if m.Details.Provider != "gemini" {
			t.Errorf("alias %q listed with provider %q", m.Name, m.Details.Provider)
		}
		if m.Details.Format != "cloud" {
			t.Errorf("format = %q", m.Details.Format)
		}
		// Strict clients parse the digest, so it must be a real
		// sha256 value: 64 hex characters after the prefix.
		hexPart, ok := strings.CutPrefix(m.Digest, "sha256:")
		if !ok || len(hexPart) != 64 {
			t.Errorf("digest = %q, want sha256: plus 64 hex chars", m.Digest)
			continue
		}
		if _, err := hex.DecodeString(hexPart); err != nil {
			t.Errorf("digest %q is not hex: %v", m.Digest, err)
		}
	}
}

func TestTags_Idempotent(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})
	routes := g.Routes()

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/tags", nil)
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Error("listing is not stable across calls")
	}
}

func TestShow(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})

	rec := postJSON(t, g.Routes(), "/api/show", `{"name":"gemini-1.5-pro"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp api.ShowResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Details.UpstreamModel != "gemini-1.5-pro" || resp.Details.Provider != "gemini" {
		t.Errorf("details = %+v", resp.Details)
	}
}

func TestShow_UnknownIs404(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})

	rec := postJSON(t, g.Routes(), "/api/show", `{"name":"nope"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPullAndDelete(t *testing.T) {
	g := testGateway(t, &fakeProvider{name: "gemini"})
	routes := g.Routes()

	rec := postJSON(t, routes, "/api/pull", `{"name":"gemini-2.0-flash"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("pull status = %d", rec.Code)
	}
	var status api.StatusResponse
	json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Status != "success" {
		t.Errorf("pull status body = %+v", status)
	}

	rec = postJSON(t, routes, "/api/pull", `{"name":"unknown-model"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("pull unknown status = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/delete", strings.NewReader(`{"name":"gemini-2.0-flash"}`))
	delRec := httptest.NewRecorder()
	routes.ServeHTTP(delRec, req)
	if delRec.Code != http.StatusOK {
		t.Errorf("delete status = %d", delRec.Code)
	}
}

func TestGenerate_TimeoutEmitsTerminalErrorChunk(t *testing.T) {
	p := &fakeProvider{
		name: "gemini",
		streamEvents: []provider.Event{
			{Type: provider.EventTextDelta, Delta: "slow"},
			{Type: provider.EventDone},
		},
		streamDelay: 200 * time.Millisecond,
	}
	g := testGateway(t, p, func(o *Options) {
		o.RequestTimeout = 50 * time.Millisecond
	})

	rec := postJSON(t, g.Routes(), "/api/generate",
		`{"model":"gemini-2.0-flash","prompt":"hi","stream":true}`)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	var last api.GenerateResponse
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("decode terminal chunk: %v (body %q)", err, rec.Body.String())
	}
	if !last.Done || last.Error == "" {
		t.Errorf("terminal chunk = %+v, want done error chunk", last)
	}
}
