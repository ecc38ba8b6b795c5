package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/chatfront/ollamagate/pkg/api"
)

func TestGenerateNonStreaming(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/generate", map[string]any{
		"model":  "gpt-4o",
		"prompt": "hello",
		"stream": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var out api.GenerateResponse
	decodeJSON(t, resp, &out)

	if out.Model != "gpt-4o" {
		t.Errorf("model = %q", out.Model)
	}
	if out.Response != "You said: hello" {
		t.Errorf("response = %q", out.Response)
	}
	if !out.Done {
		t.Error("done = false")
	}
	if out.DoneReason != "stop" {
		t.Errorf("done_reason = %q", out.DoneReason)
	}
	if out.PromptEvalCount != 7 || out.EvalCount != 3 {
		t.Errorf("usage = %d/%d", out.PromptEvalCount, out.EvalCount)
	}
	if out.TotalDuration <= 0 {
		t.Error("total_duration missing")
	}
	if _, err := time.Parse(time.RFC3339Nano, out.CreatedAt); err != nil {
		t.Errorf("created_at = %q: %v", out.CreatedAt, err)
	}
}

func TestGenerateUnknownAliasFallsBack(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/generate", map[string]any{
		"model":  "some-model-nobody-registered",
		"prompt": "hi",
		"stream": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want fallback to succeed: %s", resp.StatusCode, readBody(t, resp))
	}

	var out api.GenerateResponse
	decodeJSON(t, resp, &out)
	if out.Model != "some-model-nobody-registered" {
		t.Errorf("model = %q, want the client alias echoed back", out.Model)
	}
	if !out.Done || out.Response == "" {
		t.Errorf("response = %+v", out)
	}
}

func TestGenerateValidation(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing model", map[string]any{"prompt": "hi"}},
		{"empty prompt", map[string]any{"model": "gpt-4o", "prompt": ""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, testEnv.BaseURL()+"/api/generate", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var er api.ErrorResponse
			decodeJSON(t, resp, &er)
			if er.Error == "" {
				t.Error("error body missing")
			}
		})
	}
}

func TestChatNonStreaming(t *testing.T) {
	resp := postJSON(t, testEnv.BaseURL()+"/api/chat", map[string]any{
		"model": "gpt-4o",
		"messages": []map[string]string{
			{"role": "system", "content": "Be nice."},
			{"role": "user", "content": "hello"},
		},
		"stream": false,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, readBody(t, resp))
	}

	var out api.ChatResponse
	decodeJSON(t, resp, &out)

	if out.Message == nil || out.Message.Role != "assistant" {
		t.Fatalf("message = %+v", out.Message)
	}
	if out.Message.Content != "You said: hello" {
		t.Errorf("content = %q", out.Message.Content)
	}
	if !out.Done {
		t.Error("done = false")
	}
}

func TestStreamingMatchesNonStreaming(t *testing.T) {
	body := map[string]any{
		"model":    "gpt-4o",
		"messages": []map[string]string{{"role": "user", "content": "equivalence"}},
	}

	body["stream"] = false
	resp := postJSON(t, testEnv.BaseURL()+"/api/chat", body)
	var full api.ChatResponse
	decodeJSON(t, resp, &full)

	body["stream"] = true
	resp = postJSON(t, testEnv.BaseURL()+"/api/chat", body)

	var assembled string
	readChunks(t, resp, func(line []byte) {
		var chunk api.ChatResponse
		mustUnmarshal(t, line, &chunk)
		if chunk.Message != nil {
			assembled += chunk.Message.Content
		}
	})

	if assembled != full.Message.Content {
		t.Errorf("streamed %q != non-streamed %q", assembled, full.Message.Content)
	}
}
