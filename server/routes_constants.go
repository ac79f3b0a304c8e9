package server

const (
	HealthRoute        = "/health"
	TokenRoute         = "/api/v1/token"
	RotateSecretRoute  = "/api/v1/admin/rotate-secret"
	SessionRoute       = "/api/v1/session"
	SessionStatusRoute = "/api/v1/session/status"
	MessagesRoute      = "/api/v1/messages"
	MediaRoute         = "/api/v1/media"
	SessionWebhook     = "/webhook/session"
)
