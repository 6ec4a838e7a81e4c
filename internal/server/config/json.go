package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dsavelev/dialogvault/internal/flagx"
	"github.com/dsavelev/dialogvault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "30s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	DatabaseDSN          string         `json:"database_dsn"`
	AuthServiceURL       string         `json:"auth_service_url"`
	GeneratorBackend     string         `json:"generator_backend"`
	MLServiceURL         string         `json:"ml_service_url"`
	OpenAIAPIKey         string         `json:"openai_api_key"`
	OpenAIModel          string         `json:"openai_model"`
	OpenAIBaseURL        string         `json:"openai_base_url"`
	EncryptionKey        string         `json:"encryption_key"`
	EncryptionPassphrase string         `json:"encryption_passphrase"`
	EncryptionSalt       string         `json:"encryption_salt"`
	APITokenSecret       string         `json:"api_token_secret"`
	TruncateLimit        int            `json:"truncate_limit"`
	ContextWindowSize    int            `json:"context_window_size"`
	CollaboratorTimeout  timex.Duration `json:"collaborator_timeout"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags. Unset JSON fields keep the values already in config.
// An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIfNotEmpty(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIfNotEmpty(&config.DatabaseDSN, c.DatabaseDSN)
	setIfNotEmpty(&config.AuthServiceURL, c.AuthServiceURL)
	setIfNotEmpty(&config.GeneratorBackend, c.GeneratorBackend)
	setIfNotEmpty(&config.MLServiceURL, c.MLServiceURL)
	setIfNotEmpty(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	setIfNotEmpty(&config.OpenAIModel, c.OpenAIModel)
	setIfNotEmpty(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	setIfNotEmpty(&config.EncryptionKey, c.EncryptionKey)
	setIfNotEmpty(&config.EncryptionPassphrase, c.EncryptionPassphrase)
	setIfNotEmpty(&config.EncryptionSalt, c.EncryptionSalt)
	setIfNotEmpty(&config.APITokenSecret, c.APITokenSecret)
	if c.TruncateLimit > 0 {
		config.TruncateLimit = c.TruncateLimit
	}
	if c.ContextWindowSize > 0 {
		config.ContextWindowSize = c.ContextWindowSize
	}
	if c.CollaboratorTimeout.Duration > 0 {
		config.CollaboratorTimeout = time.Duration(c.CollaboratorTimeout.Duration)
	}
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
