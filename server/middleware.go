package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vendormesh/wabridge/token"
)

type contextKey string

const credentialContextKey contextKey = "credential"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// APIMiddleware is the common chain for credential-protected endpoints.
func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.AuthMiddleware,
	}
}

// ServiceMiddleware is the chain for endpoints called by the host platform
// itself (token exchange, secret rotation, webhooks).
func (s *Server) ServiceMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.ServiceSecretMiddleware,
	}
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered from panic")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next(w, r)
	}
}

// AuthMiddleware validates the bearer credential and stores the decoded
// payload in the request context.
func (s *Server) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer credential")
			return
		}

		credential := s.issuer.Validate(strings.TrimPrefix(header, "Bearer "))
		if !credential.Active {
			writeError(w, http.StatusUnauthorized, "invalid credential")
			return
		}

		ctx := context.WithValue(r.Context(), credentialContextKey, credential)
		next(w, r.WithContext(ctx))
	}
}

// ServiceSecretMiddleware authenticates calls from the host platform via the
// shared service secret header.
func (s *Server) ServiceSecretMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := s.config.GetServiceSecret()
		if secret == "" {
			writeError(w, http.StatusServiceUnavailable, "service secret not configured")
			return
		}
		presented := r.Header.Get("X-Service-Secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(presented)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid service secret")
			return
		}
		next(w, r)
	}
}

// credentialFromContext returns the validated credential, or nil when the
// handler was reached without AuthMiddleware.
func credentialFromContext(ctx context.Context) *token.Credential {
	credential, _ := ctx.Value(credentialContextKey).(*token.Credential)
	return credential
}
