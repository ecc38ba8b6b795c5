package googlegenai

import (
	"testing"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

func TestTranslateRequest_RolesAndSystem(t *testing.T) {
	temp := 0.5
	maxTokens := 128

	req := &provider.Request{
		Model: "gemini-2.0-flash",
		Messages: []api.Message{
			{Role: "system", Content: "Be terse."},
			{Role: "user", Content: "Hello"},
			{Role: "assistant", Content: "Hi!"},
			{Role: "user", Content: "Bye"},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}

	out := TranslateRequest(req)

	if out.SystemInstruction == nil {
		t.Fatal("systemInstruction missing")
	}
	if got := out.SystemInstruction.Parts[0].Text; got != "Be terse." {
		t.Errorf("system text = %q", got)
	}
	if out.SystemInstruction.Role != "" {
		t.Errorf("systemInstruction role = %q, want empty", out.SystemInstruction.Role)
	}

	if len(out.Contents) != 3 {
		t.Fatalf("contents = %d, want 3", len(out.Contents))
	}
	wantRoles := []string{"user", "model", "user"}
	for i, want := range wantRoles {
		if out.Contents[i].Role != want {
			t.Errorf("contents[%d].role = %q, want %q", i, out.Contents[i].Role, want)
		}
	}

	if out.GenerationConfig == nil {
		t.Fatal("generationConfig missing")
	}
	if out.GenerationConfig.Temperature == nil || *out.GenerationConfig.Temperature != 0.5 {
		t.Error("temperature not carried over")
	}
	if out.GenerationConfig.MaxOutputTokens == nil || *out.GenerationConfig.MaxOutputTokens != 128 {
		t.Error("maxOutputTokens not carried over")
	}
}

func TestTranslateRequest_NoOptionsNoConfig(t *testing.T) {
	out := TranslateRequest(&provider.Request{
		Messages: []api.Message{{Role: "user", Content: "Hi"}},
	})

	if out.GenerationConfig != nil {
		t.Errorf("generationConfig = %+v, want nil", out.GenerationConfig)
	}
	if out.SystemInstruction != nil {
		t.Errorf("systemInstruction = %+v, want nil", out.SystemInstruction)
	}
}

func TestTranslateResponse(t *testing.T) {
	resp := &GenerateContentResponse{
		Candidates: []Candidate{
			{
				Content:      Content{Role: "model", Parts: []Part{{Text: "Hello "}, {Text: "there"}}},
				FinishReason: "STOP",
			},
		},
		UsageMetadata: &UsageMetadata{PromptTokenCount: 8, CandidatesTokenCount: 2, TotalTokenCount: 10},
		ModelVersion:  "gemini-2.0-flash-001",
	}

	out := TranslateResponse(resp)

	if out.Content != "Hello there" {
		t.Errorf("content = %q, want parts concatenated", out.Content)
	}
	if out.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want %q", out.FinishReason, "stop")
	}
	if out.Usage == nil || out.Usage.PromptTokens != 8 || out.Usage.CompletionTokens != 2 {
		t.Errorf("usage = %+v", out.Usage)
	}
}

func TestMapFinishReason(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"STOP":       "stop",
		"MAX_TOKENS": "length",
		"SAFETY":     "content_filter",
		"OTHER":      "stop",
	}
	for in, want := range cases {
		if got := MapFinishReason(in); got != want {
			t.Errorf("MapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
