package server

func (s *Server) routes() {
	s.mux.HandleFunc(HealthRoute, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// Host-platform surface, authenticated by the shared service secret.
	s.mux.HandleFunc(TokenRoute, ChainMiddleware(s.TokenHandler(), s.ServiceMiddleware()...))
	s.mux.HandleFunc(RotateSecretRoute, ChainMiddleware(s.RotateSecretHandler(), s.ServiceMiddleware()...))
	s.mux.HandleFunc(SessionWebhook, ChainMiddleware(s.SessionWebhookHandler(), s.ServiceMiddleware()...))

	// Vendor surface, authenticated by bearer credential.
	s.mux.HandleFunc(SessionRoute, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.mux.HandleFunc(SessionStatusRoute, ChainMiddleware(s.SessionStatusHandler(), s.APIMiddleware()...))
	s.mux.HandleFunc(MessagesRoute, ChainMiddleware(s.SendMessageHandler(), s.APIMiddleware()...))
	s.mux.HandleFunc(MediaRoute, ChainMiddleware(s.UploadMediaHandler(), s.APIMiddleware()...))
}
