package http

import (
	"encoding/json"
	"net/http"
)

// ndjsonWriter emits newline-delimited JSON chunks and flushes after
// every one, so a client sees each chunk as soon as the upstream
// produced it.
type ndjsonWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// newNDJSONWriter prepares the response for streaming. Headers are sent
// immediately; after this point errors can only be reported in-band as
// a terminal chunk.
func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	return &ndjsonWriter{w: w, rc: http.NewResponseController(w)}
}

// write marshals one chunk, appends the newline, and flushes. A write
// error means the client is gone; the caller stops streaming.
func (nw *ndjsonWriter) write(chunk any) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := nw.w.Write(data); err != nil {
		return err
	}
	return nw.rc.Flush()
}
