package openaicompat

import (
	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// TranslateRequest converts a provider request into the Chat
// Completions format. For streaming requests, usage reporting on the
// final chunk is requested explicitly via stream_options.
func TranslateRequest(req *provider.Request) *ChatCompletionRequest {
	out := &ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]ChatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}

	for _, m := range req.Messages {
		out.Messages = append(out.Messages, ChatMessage{Role: m.Role, Content: m.Content})
	}

	if req.Stream {
		out.StreamOptions = &ChatStreamOptions{IncludeUsage: true}
	}

	return out
}

// TranslateResponse converts a Chat Completions response into a
// provider response. Unknown backend fields are dropped; absent usage
// stays nil rather than being zero-filled.
func TranslateResponse(resp *ChatCompletionResponse) *provider.Response {
	out := &provider.Response{Model: resp.Model}

	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		out.FinishReason = choice.FinishReason
	}

	if resp.Usage != nil {
		out.Usage = &api.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	return out
}
