package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"telenotes/cmd/internal/config"
	"telenotes/cmd/internal/domain/database"
	"telenotes/cmd/internal/domain/database/repository"
	"telenotes/cmd/internal/http/middleware"
	"telenotes/cmd/internal/http/server"
	"telenotes/cmd/internal/security"
	"telenotes/cmd/internal/service"
	"telenotes/cmd/internal/utils/validators"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const (
	envVarsPrefix   = "/telenotes/prod/"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Loads env vars depending on environment
	if os.Getenv("GO_ENV") == "production" {
		loadProdEnv() // AWS SSM Parameter Store
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("unable to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	log.SetLevel(cfg.GommonLevel())

	db, err := database.Open(cfg.DSN(), cfg.Debug)
	if err != nil {
		log.Fatalf("unable to open database: %v", err)
	}

	tokens, err := security.NewTokenIssuer(cfg.SecretKey, cfg.Algorithm, cfg.TokenLifetime())
	if err != nil {
		log.Fatalf("unable to create token issuer: %v", err)
	}

	validate := validators.New()

	// Gettings repos
	userRepo := repository.NewUserRepository(db)
	noteRepo := repository.NewNoteRepository(db)

	// Getting services
	userService := service.NewUserService(userRepo, tokens, validate)
	noteService := service.NewNoteService(noteRepo, validate)

	e := server.New(&server.Dependencies{
		UserService: userService,
		NoteService: noteService,
		Auth: &middleware.AuthMiddlewareConfig{
			Tokens:   tokens,
			UserRepo: userRepo,
		},
		RateLimitStore: newRateLimitStore(cfg),
		Origins:        cfg.Origins(),
		RequestTimeout: cfg.RequestTimeout(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + strconv.Itoa(cfg.ServerPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newRateLimitStore prefers the shared redis store and falls back to the
// in-process one when redis is not configured or not reachable.
func newRateLimitStore(cfg *config.Config) echomw.RateLimiterStore {
	if cfg.RateLimitPerMinute == 0 {
		return nil
	}

	if cfg.RateLimiterURL == "" {
		return middleware.NewMemoryRateLimiterStore(cfg.RateLimitPerMinute)
	}

	opts, err := redis.ParseURL(cfg.RateLimiterURL)
	if err != nil {
		log.Warnf("invalid RATE_LIMITER_URL, using in-memory rate limiter: %v", err)
		return middleware.NewMemoryRateLimiterStore(cfg.RateLimitPerMinute)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err = client.Ping(ctx).Err(); err != nil {
		log.Warnf("rate limiter backend unreachable, using in-memory rate limiter: %v", err)
		_ = client.Close()
		return middleware.NewMemoryRateLimiterStore(cfg.RateLimitPerMinute)
	}
	return middleware.NewRedisRateLimiterStore(client, cfg.RateLimitPerMinute)
}

func loadProdEnv() {
	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	client := ssm.NewFromConfig(cfg)
	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	loaded := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			log.Fatalf("unable to load prod environment, %v", err)
		}

		// Export vars
		for _, param := range out.Parameters {
			key := (*param.Name)[len(envVarsPrefix):]
			if enverr := os.Setenv(key, aws.ToString(param.Value)); enverr != nil {
				log.Fatalf("unable to set environment variable, %v", enverr)
			}
			loaded++
		}
	}
	log.Debugf("loaded %d prod environment variables", loaded)
}
