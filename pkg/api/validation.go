package api

import "strings"

// ValidateGenerate checks the minimal required shape of a generate
// request. A missing model or an empty prompt fails fast; content is
// never silently defaulted.
func ValidateGenerate(req *GenerateRequest) *GatewayError {
	if strings.TrimSpace(req.Model) == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if req.Prompt == "" {
		return NewInvalidRequestError("prompt", "prompt must not be empty")
	}
	return nil
}

// ValidateChat checks the minimal required shape of a chat request.
func ValidateChat(req *ChatRequest) *GatewayError {
	if strings.TrimSpace(req.Model) == "" {
		return NewInvalidRequestError("model", "model is required")
	}
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must not be empty")
	}
	for i, m := range req.Messages {
		if m.Role == "" {
			return NewInvalidRequestError("messages", "message role must not be empty")
		}
		switch m.Role {
		case "system", "user", "assistant", "tool":
		default:
			return NewInvalidRequestError("messages", "unknown message role: "+m.Role)
		}
		// Only the final assistant prefill may be empty.
		if m.Content == "" && i != len(req.Messages)-1 {
			return NewInvalidRequestError("messages", "message content must not be empty")
		}
	}
	return nil
}

// ValidateShow checks the body of POST /api/show.
func ValidateShow(req *ShowRequest) *GatewayError {
	if strings.TrimSpace(req.Name) == "" && strings.TrimSpace(req.Model) == "" {
		return NewInvalidRequestError("name", "model name is required")
	}
	return nil
}
