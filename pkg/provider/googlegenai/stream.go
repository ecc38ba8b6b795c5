package googlegenai

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

// ParseSSEStream reads streamGenerateContent?alt=sse chunks from the
// given reader, translates them to provider events, and sends them on
// ch. The channel is NOT closed by this function; the caller is
// responsible for closing it.
//
// Each data line is a complete GenerateContentResponse. There is no
// done sentinel: the last chunk carries the finishReason and
// usageMetadata, and the stream simply ends. Exactly one EventDone is
// emitted, after all deltas. Malformed chunks are logged and skipped.
// Context cancellation stops reading immediately without an error
// event; every send also waits on ctx, so a consumer that stops
// draining cannot wedge this goroutine.
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

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var chunk GenerateContentResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}
		sawAny = true

		if chunk.UsageMetadata != nil {
			usage = translateUsage(chunk.UsageMetadata)
		}

		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]

		if text := CandidateText(&cand); text != "" {
			if !send(provider.Event{Type: provider.EventTextDelta, Delta: text}) {
				return
			}
		}
		if cand.FinishReason != "" {
			finishReason = MapFinishReason(cand.FinishReason)
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		send(provider.Event{
			Type: provider.EventError,
			Err:  api.NewTransientError("SSE stream read error: " + err.Error()),
		})
		return
	}

	if sawAny {
		send(provider.Event{
			Type:         provider.EventDone,
			FinishReason: finishReason,
			Usage:        usage,
		})
	} else {
		send(provider.Event{
			Type: provider.EventError,
			Err:  api.NewTransientError("backend closed the stream without sending any data"),
		})
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
