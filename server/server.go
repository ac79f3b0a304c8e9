// Package server exposes the bridge operations over HTTP to the host
// marketplace platform: token exchange, vendor session lifecycle, message
// sending, media upload, and the inbound status webhook.
package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/vendormesh/wabridge/client"
	"github.com/vendormesh/wabridge/internal/config"
	"github.com/vendormesh/wabridge/sessions"
	"github.com/vendormesh/wabridge/token"
	"github.com/vendormesh/wabridge/token/secrets"
	"github.com/vendormesh/wabridge/vendors"
)

type Server struct {
	env         string
	mux         *http.ServeMux
	config      config.Config
	issuer      *token.Issuer
	secretStore secrets.Store
	tracker     *sessions.Tracker
	apiClient   *client.Client
	resolver    vendors.Resolver
	logger      zerolog.Logger
}

func New(
	cfg config.Config,
	issuer *token.Issuer,
	secretStore secrets.Store,
	tracker *sessions.Tracker,
	apiClient *client.Client,
	resolver vendors.Resolver,
	logger zerolog.Logger,
) (*Server, error) {
	if issuer == nil {
		return nil, errors.New("[server.New] issuer is required")
	}
	if secretStore == nil {
		return nil, errors.New("[server.New] secretStore is required")
	}
	if tracker == nil {
		return nil, errors.New("[server.New] tracker is required")
	}
	if apiClient == nil {
		return nil, errors.New("[server.New] apiClient is required")
	}
	if resolver == nil {
		return nil, errors.New("[server.New] resolver is required")
	}

	s := &Server{
		env:         cfg.GetEnv(),
		mux:         http.NewServeMux(),
		config:      cfg,
		issuer:      issuer,
		secretStore: secretStore,
		tracker:     tracker,
		apiClient:   apiClient,
		resolver:    resolver,
		logger:      logger,
	}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
