// Command mock-upstream runs a deterministic fake backend for manual
// testing and demos. It speaks both upstream dialects the gateway
// translates to: OpenAI Chat Completions (with SSE streaming) and the
// Gemini generateContent API (with alt=sse streaming).
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("POST /v1beta/models/{model}", handleGenerateContent)
	mux.HandleFunc("GET /v1beta/models", handleListGeminiModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock upstream starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock upstream failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock upstream shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// reply builds a deterministic answer from the last user message so
// clients can assert on the content.
func reply(lastUser string) string {
	if lastUser == "" {
		return "Hello from the mock upstream."
	}
	return "You said: " + lastUser
}

// splitWords chops a reply into streaming-sized fragments.
func splitWords(s string) []string {
	words := strings.Fields(s)
	parts := make([]string, 0, len(words))
	for i, w := range words {
		if i == 0 {
			parts = append(parts, w)
		} else {
			parts = append(parts, " "+w)
		}
	}
	return parts
}

// --- Chat Completions dialect ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid JSON"}}`, http.StatusBadRequest)
		return
	}

	content := reply(lastUserMessage(req.Messages))

	if req.Stream {
		streamChat(w, req.Model, content)
		return
	}

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
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": len(strings.Fields(content)),
			"total_tokens":      10 + len(strings.Fields(content)),
		},
	})
}

func streamChat(w http.ResponseWriter, model, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)

	writeChunk := func(chunk map[string]any) {
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	for _, part := range splitWords(content) {
		writeChunk(map[string]any{
			"id":     "chatcmpl-mock",
			"object": "chat.completion.chunk",
			"model":  model,
			"choices": []map[string]any{
				{"index": 0, "delta": map[string]string{"content": part}, "finish_reason": nil},
			},
		})
		time.Sleep(10 * time.Millisecond)
	}

	writeChunk(map[string]any{
		"id":     "chatcmpl-mock",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]string{}, "finish_reason": "stop"},
		},
	})
	writeChunk(map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion.chunk",
		"model":   model,
		"choices": []map[string]any{},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": len(strings.Fields(content)),
			"total_tokens":      10 + len(strings.Fields(content)),
		},
	})

	fmt.Fprint(w, "data: [DONE]\n\n")
	if flusher != nil {
		flusher.Flush()
	}
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data": []map[string]string{
			{"id": "mock-model", "object": "model", "owned_by": "mock"},
		},
	})
}

// --- Gemini generateContent dialect ---

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func lastGeminiUserText(req *geminiRequest) string {
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role != "user" || len(req.Contents[i].Parts) == 0 {
			continue
		}
		return req.Contents[i].Parts[0].Text
	}
	return ""
}

// handleGenerateContent serves both models/{m}:generateContent and
// models/{m}:streamGenerateContent; the verb rides in the path value
// after the colon.
func handleGenerateContent(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	name, verb, ok := strings.Cut(model, ":")
	if !ok {
		http.Error(w, `{"error":{"code":404,"message":"unknown path"}}`, http.StatusNotFound)
		return
	}

	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"code":400,"message":"invalid JSON"}}`, http.StatusBadRequest)
		return
	}

	content := reply(lastGeminiUserText(&req))

	switch verb {
	case "generateContent":
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(geminiChunk(name, content, true))
	case "streamGenerateContent":
		streamGemini(w, name, content)
	default:
		http.Error(w, `{"error":{"code":404,"message":"unknown method"}}`, http.StatusNotFound)
	}
}

func geminiChunk(model, text string, final bool) map[string]any {
	cand := map[string]any{
		"content": map[string]any{
			"role":  "model",
			"parts": []map[string]string{{"text": text}},
		},
	}
	chunk := map[string]any{
		"candidates":   []map[string]any{cand},
		"modelVersion": model,
	}
	if final {
		cand["finishReason"] = "STOP"
		chunk["usageMetadata"] = map[string]int{
			"promptTokenCount":     10,
			"candidatesTokenCount": len(strings.Fields(text)),
			"totalTokenCount":      10 + len(strings.Fields(text)),
		}
	}
	return chunk
}

func streamGemini(w http.ResponseWriter, model, content string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)

	parts := splitWords(content)
	for i, part := range parts {
		chunk := geminiChunk(model, part, i == len(parts)-1)
		data, _ := json.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func handleListGeminiModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"models": []map[string]string{
			{"name": "models/mock-gemini"},
		},
	})
}
