// Package openaicompat implements the provider adapter for
// OpenAI-compatible Chat Completions backends. It covers a hosted
// OpenAI-style API as well as the agent backend's own endpoint when the
// gateway is chained in front of it; both speak the same protocol and
// differ only in base URL and key.
package openaicompat
