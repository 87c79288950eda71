package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"huddle/auth"
	"huddle/config"
	"huddle/crypto"
	"huddle/games"
	"huddle/httpapi"
	"huddle/logger"
	"huddle/migrations"
	"huddle/room"
	"huddle/storage"
)

func openRepo(ctx context.Context, cfg config.StorageConfig) (storage.Repository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := migrations.Up(db, migrations.SQLite); err != nil {
			db.Close()
			return nil, err
		}
		return storage.NewSQLiteRepo(db), nil
	case config.DriverPostgres:
		if err := migrations.MigratePostgres(cfg.PostgresURL); err != nil {
			return nil, err
		}
		return storage.NewPostgresRepo(ctx, cfg.PostgresURL)
	}
	return storage.NewMemoryRepo(), nil
}

func main() {
	flags := pflag.NewFlagSet("huddle", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	flags.String("listen", "", "address to listen on, e.g. :5000")
	flags.String("storage", "", "storage driver: memory, sqlite or postgres")
	_ = flags.Parse(os.Args[1:])

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.ApplyFlags(flags)
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	repo, err := openRepo(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("failed to open storage")
	}

	sessionAge := time.Duration(cfg.Auth.SessionTTLHours) * time.Hour
	passcodeHasher := crypto.NewArgon2idHasher(cfg.Auth.HashIterations, cfg.Auth.HashMemoryKB, 32, 16, 1)
	tokenManager := crypto.NewJWTManager(cfg.Auth.JWTKey, sessionAge)
	authService := auth.NewService(repo, passcodeHasher, tokenManager)

	hub := room.NewHub(room.Options{
		Repo:      repo,
		Verifier:  authService,
		Games:     games.NewRegistry(games.DefaultRand()),
		InboxSize: cfg.Rooms.InboxSize,
	})

	r := httpapi.CreateServer(cfg.AllowedOrigins)
	handler := httpapi.NewHandler(authService, hub, httpapi.ClientLimits{
		OutboxSize:        cfg.Rooms.OutboxSize,
		MessagesPerSecond: cfg.Rooms.MessagesPerSecond,
		Burst:             cfg.Rooms.Burst,
	}, sessionAge, cfg.AllowedOrigins)
	handler.Register(r)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("listen", cfg.Listen).Str("storage", cfg.Storage.Driver).Msg("server started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	<-sigCh
	log.Info().Msg("SIGTERM or SIGINT received, stopping rooms before shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("rooms did not stop in time")
	}
	if err := repo.Close(); err != nil {
		log.Error().Err(err).Msg("closing storage")
	}
	log.Info().Msg("shutting down now")
}
