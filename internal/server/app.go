// Package server initializes and runs the dialogue orchestration server.
// It opens the database, runs migrations, builds the encryption cipher and
// the collaborator clients, and serves the HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dsavelev/dialogvault/internal/common"
	"github.com/dsavelev/dialogvault/internal/cryptox"
	"github.com/dsavelev/dialogvault/internal/logging"
	"github.com/dsavelev/dialogvault/internal/server/authz"
	"github.com/dsavelev/dialogvault/internal/server/config"
	"github.com/dsavelev/dialogvault/internal/server/generation"
	"github.com/dsavelev/dialogvault/internal/server/httpapi"
	"github.com/dsavelev/dialogvault/internal/server/repositories/repomanager"
	"github.com/dsavelev/dialogvault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	repos  repomanager.RepositoryManager
	server *http.Server
	ready  *atomic.Bool
}

func NewApp(cfg *config.Config) (*App, error) {
	var logger logging.Logger = logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	// Distinguishes replicas in aggregated logs.
	if instance, err := common.MakeRandHexString(4); err == nil {
		logger = logger.With("instance", instance)
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	cipher, err := buildCipher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("cipher init error: %w", err)
	}

	generator, err := buildGenerator(cfg)
	if err != nil {
		return nil, fmt.Errorf("generator init error: %w", err)
	}

	authorizer := authz.NewHTTPAuthorizer(cfg.AuthServiceURL, cfg.CollaboratorTimeout)

	repos := repomanager.NewPostgresRepositoryManager()

	dialogue := services.NewDialogueService(db, repos, cipher, generator, authorizer,
		cfg.ContextWindowSize, cfg.TruncateLimit, logger)
	state := services.NewStateService(db, repos, logger)

	ready := &atomic.Bool{}
	handler := httpapi.NewHandler(dialogue, state, ready, logger)
	router := httpapi.NewRouter(handler, []byte(cfg.APITokenSecret))

	srv := &http.Server{
		Addr:    cfg.EndpointAddrHTTP,
		Handler: router,
	}

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		repos:  repos,
		server: srv,
		ready:  ready,
	}, nil
}

// buildCipher resolves the data-at-rest key: an explicit base64 key wins,
// then passphrase derivation, and as a last resort a generated key with a
// loud warning, since its ciphertexts are unreadable after restart.
func buildCipher(cfg *config.Config, logger logging.Logger) (*cryptox.Cipher, error) {
	ctx := context.Background()

	if cfg.EncryptionKey != "" {
		key, err := cryptox.KeyFromBase64(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		defer common.WipeByteArray(key)
		return cryptox.NewCipher(key)
	}

	if cfg.EncryptionPassphrase != "" {
		salt, err := base64.StdEncoding.DecodeString(cfg.EncryptionSalt)
		if err != nil {
			return nil, fmt.Errorf("invalid encryption salt: %w", err)
		}
		key := cryptox.DeriveKey([]byte(cfg.EncryptionPassphrase), salt)
		defer common.WipeByteArray(key)
		return cryptox.NewCipher(key)
	}

	logger.Warn(ctx, "no encryption key configured, generating an ephemeral one; stored data will be unreadable after restart")
	return cryptox.NewCipher(cryptox.GenerateKey())
}

func buildGenerator(cfg *config.Config) (generation.Generator, error) {
	switch cfg.GeneratorBackend {
	case config.GeneratorOpenAI:
		return generation.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case config.GeneratorHTTP:
		return generation.NewHTTPGenerator(cfg.MLServiceURL, cfg.CollaboratorTimeout), nil
	default:
		return nil, fmt.Errorf("unknown generator backend: %q", cfg.GeneratorBackend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	// /health answers 200 from here on.
	app.ready.Store(true)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "HTTP server listening", "addr", app.config.EndpointAddrHTTP)
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Shutting down...")
	app.ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := app.db.Close(); err != nil {
		return fmt.Errorf("db close error: %w", err)
	}

	app.logger.Info(ctx, "Shutdown complete")
	return nil
}
