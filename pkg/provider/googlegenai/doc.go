// Package googlegenai holds the Gemini generateContent wire format and
// the shared HTTP client used by both Google backends. The AI Studio
// and Vertex adapters differ only in endpoint layout and credentials;
// everything else, request translation, SSE parsing, and error
// classification, lives here.
package googlegenai
