// Command api serves the credential HTTP API.
//
//	@title						Forecasting Teller Auth API
//	@version					1.0
//	@description				Account registration, login, password recovery and email verification.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/forecastingteller/auth-api/internal/api"
	"github.com/forecastingteller/auth-api/internal/api/handler"
	"github.com/forecastingteller/auth-api/internal/core/ports"
	"github.com/forecastingteller/auth-api/internal/core/service"
	"github.com/forecastingteller/auth-api/internal/infrastructure/auth"
	"github.com/forecastingteller/auth-api/internal/infrastructure/config"
	"github.com/forecastingteller/auth-api/internal/infrastructure/db/memory"
	"github.com/forecastingteller/auth-api/internal/infrastructure/db/mongo"
	"github.com/forecastingteller/auth-api/internal/infrastructure/db/redis"
	"github.com/forecastingteller/auth-api/internal/infrastructure/notify"
	"github.com/forecastingteller/auth-api/internal/infrastructure/queue"
	"github.com/forecastingteller/auth-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Init(logger.Options{})
		logger.Get().Fatal().Err(err).Msg("configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "auth-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var readiness []handler.Dependency

	// --- Identity store ---
	var repo ports.IdentityRepository
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("using in-memory identity store; data is lost on restart")
		repo = memory.NewIdentityRepository()
	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer disconnectMongo(client, log)

		mongoRepo := mongo.NewIdentityRepository(db)
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = mongoRepo
		readiness = append(readiness, handler.Dependency{Name: "mongodb", Ping: mongo.Pinger(client)})
	}

	// --- Notifications ---
	var sender ports.NotificationSender
	switch cfg.Notify.Sender {
	case "redis":
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer closeRedis(rdb, log)

		sender = redis.NewOutbox(rdb, redis.DefaultOutboxKey)
		readiness = append(readiness, handler.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	case "postmark":
		pm, err := notify.NewPostmarkSender(notify.PostmarkConfig{
			ServerToken:   cfg.Postmark.ServerToken,
			AccountToken:  cfg.Postmark.AccountToken,
			SenderEmail:   cfg.Postmark.SenderEmail,
			BaseURL:       cfg.Postmark.BaseURL,
			ResetTokenTTL: cfg.Policy.ResetTokenTTL,
		})
		if err != nil {
			return err
		}
		sender = pm
	default:
		sender = notify.NewLogSender(log.With().Str("component", "notify").Logger())
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, sender, log.With().Str("component", "dispatcher").Logger())
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	// --- Core ---
	issuer, err := auth.NewJWTIssuer(auth.JWTConfig{
		Secret:        cfg.JWT.Secret,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		ExpiryMinutes: cfg.JWT.ExpiryMinutes,
	})
	if err != nil {
		return err
	}

	svc := service.NewCredentialService(
		repo,
		auth.NewPBKDF2Hasher(),
		issuer,
		auth.NewRandomTokenGenerator(),
		dispatcher,
		service.Options{
			RequireEmailVerification: cfg.Policy.RequireEmailVerification,
			ResetTokenTTL:            cfg.Policy.ResetTokenTTL,
		},
		log.With().Str("component", "credentials").Logger(),
	)

	e := api.NewRouter(api.Deps{
		Service:   svc,
		Sessions:  issuer,
		Readiness: readiness,
		Log:       log.With().Str("component", "http").Logger(),
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Str("notifier", cfg.Notify.Sender).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func disconnectMongo(client *mongodriver.Client, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect")
	}
}

func closeRedis(rdb *goredis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("redis close")
	}
}
