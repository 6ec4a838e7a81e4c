package config

import (
	"flag"
	"os"
	"time"

	"github.com/dsavelev/dialogvault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8002")
//	-d string   PostgreSQL DSN
//	-u string   authorization service base URL
//	-g string   generator backend ("openai" or "http")
//	-m string   ML service base URL (http backend)
//	-k string   base64-encoded AES-256 key
//	-s string   API bearer token secret
//	-l int      truncation limit, characters
//	-w int      context window size, turns
//	-o int      collaborator timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-u", "-g", "-m", "-k", "-s", "-l", "-w", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AuthServiceURL, "u", config.AuthServiceURL, "authorization service URL")
	fs.StringVar(&config.GeneratorBackend, "g", config.GeneratorBackend, "generator backend")
	fs.StringVar(&config.MLServiceURL, "m", config.MLServiceURL, "ML service URL")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "base64-encoded encryption key")
	fs.StringVar(&config.APITokenSecret, "s", config.APITokenSecret, "API token secret")

	fs.IntVar(&config.TruncateLimit, "l", config.TruncateLimit, "truncation limit (characters)")
	fs.IntVar(&config.ContextWindowSize, "w", config.ContextWindowSize, "context window size (turns)")
	collaboratorTimeout := fs.Int("o", int(config.CollaboratorTimeout.Seconds()), "collaborator timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CollaboratorTimeout = time.Duration(*collaboratorTimeout) * time.Second
}
