// Package api defines the Ollama wire protocol types served by the gateway.
//
// The shapes here must stay byte-compatible with what Ollama clients
// (OpenWebUI and friends) expect: /api/tags, /api/show, /api/generate,
// /api/chat and /health. Streaming responses are newline-delimited JSON
// where every chunk carries done=false until the single terminal chunk
// with done=true.
package api
