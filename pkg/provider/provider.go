package provider

import "context"

// Provider abstracts one upstream LLM backend. Implementations must be
// safe for concurrent use by multiple goroutines and hold no per-call
// state between invocations.
type Provider interface {
	// Name returns the provider identifier (e.g. "vertex", "gemini",
	// "openai").
	Name() string

	// Complete performs non-streaming inference.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Stream performs streaming inference. The returned channel yields
	// Event values in upstream order and is closed by the provider when
	// the stream completes, errors, or ctx is cancelled. Adapters must
	// not buffer the whole upstream stream before yielding.
	Stream(ctx context.Context, req *Request) (<-chan Event, error)

	// Probe checks reachability and credential validity with a request
	// that is cheap on the upstream. It must respect ctx's deadline and
	// never perform a full model invocation.
	Probe(ctx context.Context) error

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
