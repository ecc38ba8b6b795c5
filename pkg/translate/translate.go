// Package translate turns backend responses and events into the wire
// shapes of /api/generate and /api/chat. The alias the client sent is
// echoed back in every chunk; the upstream model name never leaks into
// the response.
package translate

import (
	"time"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// Generate converts a complete backend response into the /api/generate
// reply. started anchors total_duration.
func Generate(alias string, resp *provider.Response, started time.Time) *api.GenerateResponse {
	out := &api.GenerateResponse{
		Model:      alias,
		CreatedAt:  api.Timestamp(time.Now()),
		Response:   resp.Content,
		Done:       true,
		DoneReason: doneReason(resp.FinishReason),
	}
	applyGenerateUsage(out, resp.Usage, started)
	return out
}

// Chat converts a complete backend response into the /api/chat reply.
func Chat(alias string, resp *provider.Response, started time.Time) *api.ChatResponse {
	out := &api.ChatResponse{
		Model:      alias,
		CreatedAt:  api.Timestamp(time.Now()),
		Message:    &api.Message{Role: "assistant", Content: resp.Content},
		Done:       true,
		DoneReason: doneReason(resp.FinishReason),
	}
	applyChatUsage(out, resp.Usage, started)
	return out
}

// GenerateChunk converts one text delta into a non-terminal streaming
// chunk. Every delta produces exactly one chunk; nothing is coalesced.
func GenerateChunk(alias, delta string) *api.GenerateResponse {
	return &api.GenerateResponse{
		Model:     alias,
		CreatedAt: api.Timestamp(time.Now()),
		Response:  delta,
		Done:      false,
	}
}

// GenerateDone builds the terminal chunk of a /api/generate stream from
// the backend's done event.
func GenerateDone(alias string, ev provider.Event, started time.Time) *api.GenerateResponse {
	out := &api.GenerateResponse{
		Model:      alias,
		CreatedAt:  api.Timestamp(time.Now()),
		Done:       true,
		DoneReason: doneReason(ev.FinishReason),
	}
	applyGenerateUsage(out, ev.Usage, started)
	return out
}

// GenerateError builds the terminal error chunk of a stream that failed
// after output had begun. It carries done:true so clients stop reading.
func GenerateError(alias string, err error) *api.GenerateResponse {
	return &api.GenerateResponse{
		Model:     alias,
		CreatedAt: api.Timestamp(time.Now()),
		Done:      true,
		Error:     api.AsGatewayError(err).Message,
	}
}

// ChatChunk converts one text delta into a non-terminal /api/chat
// streaming chunk.
func ChatChunk(alias, delta string) *api.ChatResponse {
	return &api.ChatResponse{
		Model:     alias,
		CreatedAt: api.Timestamp(time.Now()),
		Message:   &api.Message{Role: "assistant", Content: delta},
		Done:      false,
	}
}

// ChatDone builds the terminal chunk of a /api/chat stream.
func ChatDone(alias string, ev provider.Event, started time.Time) *api.ChatResponse {
	out := &api.ChatResponse{
		Model:      alias,
		CreatedAt:  api.Timestamp(time.Now()),
		Message:    &api.Message{Role: "assistant", Content: ""},
		Done:       true,
		DoneReason: doneReason(ev.FinishReason),
	}
	applyChatUsage(out, ev.Usage, started)
	return out
}

// ChatError builds the terminal error chunk of a /api/chat stream.
func ChatError(alias string, err error) *api.ChatResponse {
	return &api.ChatResponse{
		Model:     alias,
		CreatedAt: api.Timestamp(time.Now()),
		Done:      true,
		Error:     api.AsGatewayError(err).Message,
	}
}

// doneReason maps a backend finish reason onto Ollama's vocabulary.
// Absent reasons default to "stop"; a terminal chunk always names one.
func doneReason(finishReason string) string {
	switch finishReason {
	case "", "stop":
		return "stop"
	case "length":
		return "length"
	default:
		return finishReason
	}
}

func applyGenerateUsage(out *api.GenerateResponse, usage *api.Usage, started time.Time) {
	out.TotalDuration = time.Since(started).Nanoseconds()
	if usage != nil {
		out.PromptEvalCount = usage.PromptTokens
		out.EvalCount = usage.CompletionTokens
	}
}

func applyChatUsage(out *api.ChatResponse, usage *api.Usage, started time.Time) {
	out.TotalDuration = time.Since(started).Nanoseconds()
	if usage != nil {
		out.PromptEvalCount = usage.PromptTokens
		out.EvalCount = usage.CompletionTokens
	}
}
