// Package integration tests the gateway end to end: a real HTTP server
// wired through the resolver and an OpenAI-compatible provider to a
// mock Chat Completions backend, all in-process via net/http/httptest.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chatfront/ollamagate/pkg/provider"
	"github.com/chatfront/ollamagate/pkg/provider/openaicompat"
	"github.com/chatfront/ollamagate/pkg/resolver"
	transporthttp "github.com/chatfront/ollamagate/pkg/transport/http"
)

var testEnv *TestEnvironment

// TestEnvironment holds the gateway server and the mock backend.
type TestEnvironment struct {
	GatewayServer *httptest.Server
	MockBackend   *httptest.Server
}

func TestMain(m *testing.M) {
	testEnv = setup(5 * time.Second)
	code := m.Run()
	testEnv.Teardown()
	os.Exit(code)
}

// setup builds a full gateway in front of a mock backend. The mock
// answers "You said: <last user message>"; a message containing "slow"
// stalls each streamed chunk by 200ms so timeout behavior can be
// exercised.
func setup(requestTimeout time.Duration) *TestEnvironment {
	mock := httptest.NewServer(http.HandlerFunc(mockChatCompletions))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prov := openaicompat.New(openaicompat.Config{BaseURL: mock.URL})

	res := resolver.New(resolver.Options{
		Mapping:         resolver.BuiltinMapping(),
		Families:        resolver.BuiltinFamilies("openai"),
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o",
		Enabled:         map[string]bool{"openai": true},
		Logger:          logger,
	})

	gateway := transporthttp.NewGateway(transporthttp.Options{
		Resolver:        res,
		Providers:       map[string]provider.Provider{"openai": prov},
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o",
		RequestTimeout:  requestTimeout,
		ProbeTimeout:    time.Second,
		Retry:           provider.RetryPolicy{MaxRetries: 1, Backoff: 10 * time.Millisecond},
		Logger:          logger,
	})

	return &TestEnvironment{
		GatewayServer: httptest.NewServer(gateway.Routes()),
		MockBackend:   mock,
	}
}

func (env *TestEnvironment) Teardown() {
	if env.GatewayServer != nil {
		env.GatewayServer.Close()
	}
	if env.MockBackend != nil {
		env.MockBackend.Close()
	}
}

func (env *TestEnvironment) BaseURL() string {
	return env.GatewayServer.URL
}

// --- mock backend ---

type mockChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

func mockChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/v1/models" {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o","object":"model","owned_by":"mock"}]}`)
		return
	}
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}

	var req mockChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid JSON"}}`, http.StatusBadRequest)
		return
	}

	var lastUser string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUser = req.Messages[i].Content
			break
		}
	}
	content := "You said: " + lastUser

	delay := time.Duration(0)
	if strings.Contains(lastUser, "slow") {
		delay = 200 * time.Millisecond
	}

	if !req.Stream {
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-mock",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	// Send headers before the per-chunk stall; the stall is meant to
	// delay chunks of an already-started stream, not the response itself.
	flusher.Flush()
	writeChunk := func(v map[string]any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	for i, word := range strings.Fields(content) {
		time.Sleep(delay)
		part := word
		if i > 0 {
			part = " " + word
		}
		writeChunk(map[string]any{
			"id": "chatcmpl-mock", "object": "chat.completion.chunk", "model": req.Model,
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": part}, "finish_reason": nil},
			},
		})
	}
	writeChunk(map[string]any{
		"id": "chatcmpl-mock", "object": "chat.completion.chunk", "model": req.Model,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]string{}, "finish_reason": "stop"},
		},
	})
	writeChunk(map[string]any{
		"id": "chatcmpl-mock", "object": "chat.completion.chunk", "model": req.Model,
		"choices": []map[string]any{},
		"usage":   map[string]int{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
	})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// --- HTTP helpers ---

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func jsonBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	return bytes.NewReader(data)
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(data)
}

// readChunks decodes every NDJSON line of a streaming response into the
// given slice pointer's element type via the supplied decode callback.
func readChunks(t *testing.T, resp *http.Response, decode func([]byte)) {
	t.Helper()
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		decode(line)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
}
