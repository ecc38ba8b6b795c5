package provider

import "github.com/chatfront/ollamagate/pkg/api"

// Request is the backend-facing request. It contains only what an
// adapter needs, stripped of wire-protocol and transport concerns. The
// Model field carries the resolved upstream model name, never the
// client alias.
type Request struct {
	Model       string
	Messages    []api.Message
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Stream      bool
}

// Response is a backend's complete non-streaming answer.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	Usage        *api.Usage
}

// EventType classifies a streaming event from a backend.
type EventType int

const (
	// EventTextDelta carries one incremental content fragment.
	EventTextDelta EventType = iota
	// EventDone signals upstream completion; Usage and FinishReason may
	// be populated.
	EventDone
	// EventError signals a mid-stream failure; Err is populated and the
	// channel is closed afterwards.
	EventError
)

// Event is a single streaming event from a backend. Within one stream,
// events arrive in upstream order and are never merged or reordered.
type Event struct {
	Type         EventType
	Delta        string
	FinishReason string
	Usage        *api.Usage
	Err          error
}
