package http

import (
	"encoding/json"
	"net/http"

	"github.com/chatfront/ollamagate/pkg/api"
)

// statusFor maps an error kind onto the HTTP status of the wire
// protocol: client mistakes are 400, deployment problems 503, upstream
// failures 502, and everything the gateway broke itself 500.
func statusFor(ge *api.GatewayError) int {
	switch ge.Kind {
	case api.ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case api.ErrorKindUnavailable:
		return http.StatusServiceUnavailable
	case api.ErrorKindTransient, api.ErrorKindAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends the wire error body. Ollama clients expect a single
// top-level error string.
func writeError(w http.ResponseWriter, err error) {
	ge := api.AsGatewayError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(ge))
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: ge.Message})
}

// writeJSON sends a 200 JSON body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
