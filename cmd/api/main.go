// @title                       User Portal Auth API
// @version                     1.0
// @description                 Sign-up, sign-in and role-protected user directory.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/userportal/auth-service/internal/api"
	"github.com/userportal/auth-service/internal/api/handler"
	"github.com/userportal/auth-service/internal/core/service"
	mongodb "github.com/userportal/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/userportal/auth-service/internal/infrastructure/db/redis"
	"github.com/userportal/auth-service/internal/infrastructure/queue"
	"github.com/userportal/auth-service/internal/infrastructure/security"
	"github.com/userportal/auth-service/internal/pkg/config"
	"github.com/userportal/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "userportal",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "userportal-auth",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	roles := mongodb.NewRoleRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	if err := mongodb.EnsureIndexes(ctx, users, roles, auditRepo); err != nil {
		return err
	}

	// --- Audit trail ---
	auditService := service.NewAuditService(auditRepo, logger.Component("audit"))
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditService, logger.Component("audit"))
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Close()

	// --- Services ---
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := security.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn)

	authService, err := service.NewAuthService(users, roles, hasher, tokens, logger.Component("auth"),
		service.WithAttemptLimiter(redisdb.NewAttemptLimiter(rdb, cfg.SignIn.MaxAttempts, cfg.SignIn.AttemptWindow)),
		service.WithAuditSink(dispatcher),
		service.WithAllowedSignUpRoles(cfg.Auth.SignUpAllowedRoles),
	)
	if err != nil {
		return err
	}
	userService := service.NewUserService(users, logger.Component("users"))

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		UserService: userService,
		Tokens:      tokens,
		HealthChecks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		PhoneRegion: cfg.Auth.PhoneRegion,
		Log:         logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	return e.Shutdown(shutdownCtx)
}
