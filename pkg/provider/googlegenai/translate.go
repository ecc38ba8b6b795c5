package googlegenai

import (
	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// TranslateRequest converts a provider request into the generateContent
// format. System messages are collected into systemInstruction; the
// assistant role maps to "model". Tool messages are folded into user
// turns since the text-only surface has no separate slot for them.
func TranslateRequest(req *provider.Request) *GenerateContentRequest {
	out := &GenerateContentRequest{}

	var systemParts []Part
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemParts = append(systemParts, Part{Text: m.Content})
		case "assistant":
			out.Contents = append(out.Contents, Content{
				Role:  "model",
				Parts: []Part{{Text: m.Content}},
			})
		default:
			out.Contents = append(out.Contents, Content{
				Role:  "user",
				Parts: []Part{{Text: m.Content}},
			})
		}
	}

	if len(systemParts) > 0 {
		out.SystemInstruction = &Content{Parts: systemParts}
	}

	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil {
		out.GenerationConfig = &GenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	return out
}

// TranslateResponse converts a generateContent response into a provider
// response.
func TranslateResponse(resp *GenerateContentResponse) *provider.Response {
	out := &provider.Response{Model: resp.ModelVersion}

	if len(resp.Candidates) > 0 {
		cand := resp.Candidates[0]
		out.Content = CandidateText(&cand)
		out.FinishReason = MapFinishReason(cand.FinishReason)
	}

	if resp.UsageMetadata != nil {
		out.Usage = translateUsage(resp.UsageMetadata)
	}

	return out
}

// CandidateText concatenates all text parts of a candidate.
func CandidateText(cand *Candidate) string {
	var text string
	for _, part := range cand.Content.Parts {
		text += part.Text
	}
	return text
}

// MapFinishReason converts a Gemini finish reason to the Chat
// Completions vocabulary the rest of the gateway speaks.
func MapFinishReason(reason string) string {
	switch reason {
	case "":
		return ""
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return "stop"
	}
}

func translateUsage(u *UsageMetadata) *api.Usage {
	return &api.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}
