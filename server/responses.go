package server

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/vendormesh/wabridge/client"
	"github.com/vendormesh/wabridge/token"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeClientError maps an API client failure to a boundary response. The
// upstream message from an APIError is surfaced verbatim.
func (s *Server) writeClientError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	var parseErr *client.ParseError
	var transientErr *client.TransientError
	var authErr *client.AuthenticationError

	switch {
	case errors.As(err, &apiErr):
		writeError(w, http.StatusBadGateway, apiErr.Message)
	case errors.As(err, &parseErr):
		writeError(w, http.StatusBadGateway, "invalid response from messaging service")
	case errors.As(err, &transientErr):
		writeError(w, http.StatusGatewayTimeout, "messaging service unreachable")
	case errors.As(err, &authErr):
		if errors.Is(err, token.ErrUnauthorized) {
			writeError(w, http.StatusForbidden, "not authorized for messaging operations")
			return
		}
		writeError(w, http.StatusInternalServerError, "credential issuance failed")
	default:
		s.logger.Error().Err(err).Msg("unexpected client failure")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
