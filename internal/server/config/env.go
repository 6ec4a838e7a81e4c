package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays configuration from environment variables, the layer
// container deployments rely on. Unset variables keep the current values.
func parseEnv(config *Config) {
	envString(&config.EndpointAddrHTTP, "ENDPOINT_ADDR_HTTP")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.AuthServiceURL, "AUTH_SERVICE_URL")
	envString(&config.GeneratorBackend, "GENERATOR_BACKEND")
	envString(&config.MLServiceURL, "ML_SERVICE_URL")
	envString(&config.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&config.OpenAIModel, "OPENAI_MODEL")
	envString(&config.OpenAIBaseURL, "OPENAI_BASE_URL")
	envString(&config.EncryptionKey, "ENCRYPTION_KEY")
	envString(&config.EncryptionPassphrase, "ENCRYPTION_PASSPHRASE")
	envString(&config.EncryptionSalt, "ENCRYPTION_SALT")
	envString(&config.APITokenSecret, "API_TOKEN_SECRET")

	if v, ok := os.LookupEnv("TRUNCATE_LIMIT"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.TruncateLimit = n
		}
	}
	if v, ok := os.LookupEnv("CONTEXT_WINDOW_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.ContextWindowSize = n
		}
	}
	if v, ok := os.LookupEnv("COLLABORATOR_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.CollaboratorTimeout = d
		}
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}
