package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chatfront/ollamagate/pkg/accounting"
	"github.com/chatfront/ollamagate/pkg/api"
	"github.com/chatfront/ollamagate/pkg/observability"
	"github.com/chatfront/ollamagate/pkg/provider"
)

// chunkFuncs abstracts the shape difference between /api/generate and
// /api/chat replies so both endpoints share one dispatch path.
type chunkFuncs struct {
	chunk    func(alias, delta string) any
	done     func(alias string, ev provider.Event, started time.Time) any
	fail     func(alias string, err error) any
	complete func(alias string, resp *provider.Response, started time.Time) any
}

// dispatch resolves the alias, picks the provider, and runs the request
// either as a single exchange or as an NDJSON stream.
func (g *Gateway) dispatch(w http.ResponseWriter, r *http.Request, endpoint, alias string, messages []api.Message, opts *api.Options, stream bool, funcs chunkFuncs) {
	res := g.resolver.Resolve(alias)

	p, ok := g.providers[res.Provider]
	if !ok {
		writeError(w, api.NewUnavailableError("provider "+res.Provider+" is not configured"))
		return
	}

	preq := &provider.Request{
		Model:     res.UpstreamModel,
		Messages:  messages,
		MaxTokens: opts.MaxOutputTokens(),
		Stream:    stream,
	}
	if opts != nil {
		preq.Temperature = opts.Temperature
		preq.TopP = opts.TopP
	}

	started := time.Now()
	rec := &accounting.Record{
		Endpoint:      endpoint,
		Alias:         alias,
		Provider:      res.Provider,
		UpstreamModel: res.UpstreamModel,
		Fallback:      res.Fallback,
		Streamed:      stream,
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.requestTimeout)
	defer cancel()

	if stream {
		g.streamCall(ctx, w, p, preq, res.Alias, rec, started, funcs)
	} else {
		g.completeCall(ctx, w, p, preq, res.Alias, rec, started, funcs)
	}
}

func (g *Gateway) completeCall(ctx context.Context, w http.ResponseWriter, p provider.Provider, preq *provider.Request, alias string, rec *accounting.Record, started time.Time, funcs chunkFuncs) {
	resp, err := provider.CompleteWithRetry(ctx, p, preq, g.retry, g.logger)
	elapsed := time.Since(started)

	if err != nil {
		g.finishRecord(rec, err, elapsed, nil)
		observability.ObserveProviderCall(p.Name(), preq.Model, "error", elapsed.Seconds())

		if errors.Is(err, context.Canceled) {
			// Client gone; nothing left to write.
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = api.NewTransientError("upstream request timed out")
		}
		writeError(w, err)
		return
	}

	g.finishRecord(rec, nil, elapsed, resp.Usage)
	observability.ObserveProviderCall(p.Name(), preq.Model, "ok", elapsed.Seconds())
	if resp.Usage != nil {
		observability.ObserveTokens(p.Name(), preq.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	writeJSON(w, funcs.complete(alias, resp, started))
}

// streamCall forwards upstream events as NDJSON chunks. Errors before
// the first byte map to an HTTP status; after that the status is
// already 200 and failures become a terminal error chunk.
func (g *Gateway) streamCall(ctx context.Context, w http.ResponseWriter, p provider.Provider, preq *provider.Request, alias string, rec *accounting.Record, started time.Time, funcs chunkFuncs) {
	ch, err := p.Stream(ctx, preq)
	if err != nil {
		g.finishRecord(rec, err, time.Since(started), nil)
		observability.ObserveProviderCall(p.Name(), preq.Model, "error", time.Since(started).Seconds())

		if errors.Is(err, context.Canceled) {
			return
		}
		writeError(w, err)
		return
	}

	observability.StreamingActive.Inc()
	defer observability.StreamingActive.Dec()

	nw := newNDJSONWriter(w)

	var usage *api.Usage
	var streamErr error

	for {
		select {
		case <-ctx.Done():
			// A timeout still owes the client a terminal chunk; a
			// client cancellation has nobody left to read one.
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				streamErr = api.NewTransientError("upstream request timed out")
				nw.write(funcs.fail(alias, streamErr))
			} else {
				streamErr = ctx.Err()
			}
			g.finish(p, preq, rec, started, usage, streamErr)
			return

		case ev, open := <-ch:
			if !open {
				// Channel closed without a done event; the adapters
				// always emit one, so this is a defensive exit.
				g.finish(p, preq, rec, started, usage, nil)
				return
			}

			switch ev.Type {
			case provider.EventTextDelta:
				if err := nw.write(funcs.chunk(alias, ev.Delta)); err != nil {
					g.logger.Debug("client disconnected mid-stream", "error", err.Error())
					g.finish(p, preq, rec, started, usage, context.Canceled)
					return
				}

			case provider.EventDone:
				usage = ev.Usage
				nw.write(funcs.done(alias, ev, started))
				g.finish(p, preq, rec, started, usage, nil)
				return

			case provider.EventError:
				streamErr = ev.Err
				nw.write(funcs.fail(alias, ev.Err))
				g.finish(p, preq, rec, started, usage, streamErr)
				return
			}
		}
	}
}

// finish closes out metrics and accounting for one streamed call.
func (g *Gateway) finish(p provider.Provider, preq *provider.Request, rec *accounting.Record, started time.Time, usage *api.Usage, err error) {
	elapsed := time.Since(started)

	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.ObserveProviderCall(p.Name(), preq.Model, status, elapsed.Seconds())
	if usage != nil {
		observability.ObserveTokens(p.Name(), preq.Model, usage.PromptTokens, usage.CompletionTokens)
	}

	g.finishRecord(rec, err, elapsed, usage)
}

func (g *Gateway) finishRecord(rec *accounting.Record, err error, elapsed time.Duration, usage *api.Usage) {
	rec.DurationMS = elapsed.Milliseconds()
	if err == nil {
		rec.Status = "ok"
	} else if errors.Is(err, context.Canceled) {
		rec.Status = "cancelled"
	} else {
		rec.Status = string(api.AsGatewayError(err).Kind)
	}
	if usage != nil {
		rec.PromptTokens = usage.PromptTokens
		rec.CompletionTokens = usage.CompletionTokens
	}

	// Accounting must not delay or fail the response path.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.recorder.Record(ctx, rec); err != nil {
		g.logger.Warn("accounting write failed", "error", err.Error())
	}
}
