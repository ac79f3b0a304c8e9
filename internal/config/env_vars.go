package config

import (
	"fmt"
	"strconv"
	"strings"

	"os"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	apiBaseURLVar    = "WA_API_BASE_URL"
	signingSecretVar = "SIGNING_SECRET"
	serviceSecretVar = "SERVICE_SECRET"
	tokenIssuerVar   = "TOKEN_ISSUER"
	allowedRolesVar  = "ALLOWED_ROLES"

	defaultConnectTimeoutSeconds = 30
	defaultMaxRetries            = 3
)

// defaultAllowedRoles mirrors the marketplace roles permitted to request
// credentials when ALLOWED_ROLES is not set.
var defaultAllowedRoles = []string{"administrator", "shop_manager", "vendor", "seller", "vendor_staff", "wcfm_vendor", "dc_vendor"}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ APIConfig = EnvVars{}
var _ AuthConfig = EnvVars{}
var _ StoreConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "WA Bridge")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAPIBaseURL returns the base URL of the external messaging service.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:3000")
}

func (EnvVars) GetConnectTimeoutSeconds() int {
	return GetEnvInt("WA_CONNECT_TIMEOUT_SECONDS", defaultConnectTimeoutSeconds)
}

func (EnvVars) GetMaxRetries() int {
	return GetEnvInt("WA_MAX_RETRIES", defaultMaxRetries)
}

func (EnvVars) GetDebug() bool {
	return GetEnvBool("WA_DEBUG", false)
}

func (EnvVars) GetUsageTracking() bool {
	return GetEnvBool("WA_USAGE_TRACKING", false)
}

// GetSigningSecret returns the configured signing secret. An empty value
// means no secret is configured yet and one should be generated at startup.
func (EnvVars) GetSigningSecret() string {
	return GetEnv(signingSecretVar, "")
}

func (EnvVars) GetTokenIssuer() string {
	return GetEnv(tokenIssuerVar, "wabridge")
}

func (EnvVars) GetAllowedRoles() []string {
	raw := GetEnv(allowedRolesVar, "")
	if raw == "" {
		return defaultAllowedRoles
	}
	roles := make([]string, 0)
	for _, role := range strings.Split(raw, ",") {
		role = strings.TrimSpace(role)
		if role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// GetServiceSecret returns the shared secret the host platform presents on
// token-exchange and webhook calls.
func (EnvVars) GetServiceSecret() string {
	return GetEnv(serviceSecretVar, "")
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "127.0.0.1:6379")
}

func (EnvVars) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (EnvVars) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
