package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTimestampFormat(t *testing.T) {
	ts := Timestamp(time.Date(2024, 6, 1, 12, 30, 0, 123456789, time.UTC))
	if ts != "2024-06-01T12:30:00.123456789Z" {
		t.Errorf("Timestamp() = %q", ts)
	}

	// Non-UTC input must be normalized.
	loc := time.FixedZone("X", 3600)
	ts = Timestamp(time.Date(2024, 6, 1, 13, 30, 0, 0, loc))
	if !strings.HasSuffix(ts, "Z") {
		t.Errorf("Timestamp() = %q, want UTC suffix", ts)
	}
}

func TestOptionsMaxOutputTokens(t *testing.T) {
	n := func(v int) *int { return &v }

	tests := []struct {
		name string
		opts *Options
		want *int
	}{
		{name: "nil options", opts: nil, want: nil},
		{name: "empty", opts: &Options{}, want: nil},
		{name: "num_predict", opts: &Options{NumPredict: n(64)}, want: n(64)},
		{name: "max_tokens alias", opts: &Options{MaxTokens: n(128)}, want: n(128)},
		{name: "num_predict wins", opts: &Options{NumPredict: n(64), MaxTokens: n(128)}, want: n(64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.MaxOutputTokens()
			switch {
			case got == nil && tt.want != nil:
				t.Errorf("got nil, want %d", *tt.want)
			case got != nil && tt.want == nil:
				t.Errorf("got %d, want nil", *got)
			case got != nil && *got != *tt.want:
				t.Errorf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}

func TestGenerateResponseOmitsUsageWhenUnset(t *testing.T) {
	data, err := json.Marshal(GenerateResponse{
		Model:     "gemini-2.0-flash",
		CreatedAt: Timestamp(time.Now()),
		Response:  "hello",
		Done:      true,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, absent := range []string{"prompt_eval_count", "eval_count", "total_duration", "error", "done_reason"} {
		if strings.Contains(string(data), absent) {
			t.Errorf("marshaled response contains %q when unset: %s", absent, data)
		}
	}
}

func TestChatResponseTerminalChunkShape(t *testing.T) {
	data, err := json.Marshal(ChatResponse{
		Model:     "gpt-4o",
		CreatedAt: Timestamp(time.Now()),
		Message:   &Message{Role: "assistant", Content: ""},
		Done:      true,
		EvalCount: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["done"] != true {
		t.Error("terminal chunk must carry done=true")
	}
	msg, ok := decoded["message"].(map[string]any)
	if !ok {
		t.Fatal("terminal chat chunk must keep the message object")
	}
	if msg["content"] != "" {
		t.Errorf("terminal chunk content = %v, want empty", msg["content"])
	}
}
