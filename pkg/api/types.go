package api

import "time"

// Timestamp formats a time in the RFC3339Nano form Ollama uses for
// created_at fields.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Message is a single turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries the tuning parameters a client may send alongside a
// request. Unknown keys sent by clients are dropped during decoding;
// absent fields stay nil and are never defaulted here.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
	// MaxTokens is accepted as an alias for num_predict; some clients
	// (and the OpenAI-flavoured ones in particular) send this name.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// MaxOutputTokens returns the effective output token limit, preferring
// the native num_predict over the max_tokens alias. Returns nil when
// neither is set.
func (o *Options) MaxOutputTokens() *int {
	if o == nil {
		return nil
	}
	if o.NumPredict != nil {
		return o.NumPredict
	}
	return o.MaxTokens
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	System  string   `json:"system,omitempty"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// GenerateResponse is one /api/generate reply: the full response for
// non-streaming calls, or a single chunk of a streaming reply.
type GenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`

	// DoneReason and the usage fields are set only on the terminal
	// chunk, and only when the upstream reported them.
	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`

	// Error is set on a terminal error chunk of a stream that failed
	// after output had already begun.
	Error string `json:"error,omitempty"`
}

// ChatResponse is one /api/chat reply, shaped like GenerateResponse but
// carrying a message object instead of a bare response string.
type ChatResponse struct {
	Model     string   `json:"model"`
	CreatedAt string   `json:"created_at"`
	Message   *Message `json:"message,omitempty"`
	Done      bool     `json:"done"`

	DoneReason      string `json:"done_reason,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`

	Error string `json:"error,omitempty"`
}

// ModelDetails describes a model in /api/tags and /api/show replies.
// Upstream cloud models have no local file, so Format is always "cloud"
// and the quantization fields stay empty.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families,omitempty"`
	ParameterSize     string   `json:"parameter_size,omitempty"`
	QuantizationLevel string   `json:"quantization_level,omitempty"`

	// Provider and UpstreamModel expose where an alias actually routes.
	// Extra fields are harmless to Ollama clients and save operators a
	// round-trip to /api/show.
	Provider      string `json:"provider,omitempty"`
	UpstreamModel string `json:"upstream_model,omitempty"`
}

// ModelSummary is one entry in the /api/tags listing.
type ModelSummary struct {
	Name       string       `json:"name"`
	Model      string       `json:"model"`
	ModifiedAt string       `json:"modified_at,omitempty"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details"`
}

// TagsResponse is the body of GET /api/tags.
type TagsResponse struct {
	Models []ModelSummary `json:"models"`
}

// ShowRequest is the body of POST /api/show.
type ShowRequest struct {
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
}

// ShowResponse is the body of a successful POST /api/show.
type ShowResponse struct {
	ModifiedAt   string       `json:"modified_at,omitempty"`
	Details      ModelDetails `json:"details"`
	Capabilities []string     `json:"capabilities,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string          `json:"status"`
	Provider     string          `json:"provider"`
	DefaultModel string          `json:"default_model"`
	Timestamp    string          `json:"timestamp"`
	Providers    map[string]bool `json:"providers,omitempty"`
}

// StatusResponse is used by the /api/pull and /api/delete compatibility
// stubs, which acknowledge the request without moving any bytes.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the wire error body. Ollama clients expect a single
// top-level error string.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Usage aggregates token accounting reported by an upstream provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
