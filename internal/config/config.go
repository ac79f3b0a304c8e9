package config

type Config interface {
	EnvConfig
	APIConfig
	AuthConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// APIConfig configures the outbound connection to the messaging service.
type APIConfig interface {
	GetAPIBaseURL() string
	GetConnectTimeoutSeconds() int
	GetMaxRetries() int
	GetDebug() bool
	GetUsageTracking() bool
}

// AuthConfig configures credential issuance and inbound authentication.
type AuthConfig interface {
	GetSigningSecret() string
	GetTokenIssuer() string
	GetAllowedRoles() []string
	GetServiceSecret() string
}

// StoreConfig configures the session record store.
type StoreConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
