package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// ParseSSEStream reads Chat Completions SSE chunks from the given
// reader, translates them to provider events, and sends them on ch.
// The channel is NOT closed by this function; the caller is
// responsible for closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Exactly one EventDone is emitted per stream, after all deltas. The
// finish_reason chunk and the usage-only chunk (sent separately when
// stream_options.include_usage is set) are folded into it. Malformed
// chunks are logged and skipped. Context cancellation stops reading
// immediately without an error event; every send also waits on ctx, so
// a consumer that stops draining cannot wedge this goroutine.
func ParseSSEStream(ctx context.Context, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		finishReason string
		usage        *api.Usage
		sawAny       bool
	)

	send := func(ev provider.Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	emitDone := func() {
		send(provider.Event{
			Type:         provider.EventDone,
			FinishReason: finishReason,
			Usage:        usage,
		})
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// SSE lines that don't start with "data: " are ignored
		// (empty lines, comments starting with ":").
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")

		if payload == "[DONE]" {
			emitDone()
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}
		sawAny = true

		if chunk.Usage != nil {
			usage = &api.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		// A chunk may carry both the last delta and the finish_reason.
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			if !send(provider.Event{Type: provider.EventTextDelta, Delta: *choice.Delta.Content}) {
				return
			}
		}
		if choice.FinishReason != nil {
			finishReason = *choice.FinishReason
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		send(provider.Event{
			Type: provider.EventError,
			Err:  api.NewTransientError("SSE stream read error: " + err.Error()),
		})
		return
	}

	// Stream ended without the [DONE] sentinel. Treat a stream that
	// produced output as complete rather than dropping its terminal
	// marker.
	if sawAny {
		emitDone()
	} else {
		send(provider.Event{
			Type: provider.EventError,
			Err:  api.NewTransientError("backend closed the stream without sending any data"),
		})
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
