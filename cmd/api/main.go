// Command api serves account registration, login and bearer-token protected
// routes over HTTP.
//
// @title                       Deathkiller Auth API
// @version                     1.0.0
// @description                 Account registration, login and bearer-token access control.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deathkiller/api/internal/api"
	"github.com/deathkiller/api/internal/core/ports"
	"github.com/deathkiller/api/internal/core/service"
	mongostore "github.com/deathkiller/api/internal/infrastructure/db/mongo"
	pgstore "github.com/deathkiller/api/internal/infrastructure/db/postgres"
	redisstore "github.com/deathkiller/api/internal/infrastructure/db/redis"
	"github.com/deathkiller/api/internal/infrastructure/security/password"
	"github.com/deathkiller/api/internal/infrastructure/security/token"
	"github.com/deathkiller/api/internal/pkg/config"
	"github.com/deathkiller/api/pkg/logger"
)

const serviceName = "deathkiller-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.OptionsFor(cfg.Env, cfg.LogLevel, serviceName))

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			log.Error().Err(err).Str("driver", cfg.StoreDriver).Msg("close store")
		}
	}()

	hasher, err := password.New(password.Config{
		Algorithm:  password.Algorithm(cfg.Auth.PasswordAlgorithm),
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		return err
	}

	tokens, err := token.New(token.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		TTL:      cfg.Auth.JWTExpiresIn,
	})
	if err != nil {
		return err
	}

	authService, err := service.NewAuthService(store, hasher, tokens, log.With().Str("component", "auth").Logger())
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Tokens:      tokens,
		Store:       store,
		StoreName:   cfg.StoreDriver,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins(),
	})

	addr := net.JoinHostPort("", cfg.Port)
	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", addr).
			Str("env", cfg.Env).
			Str("store", cfg.StoreDriver).
			Msg("server started")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// storeCloser releases the connection behind a user store.
type storeCloser func(ctx context.Context) error

// openStore connects the user store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (ports.UserRepository, storeCloser, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgstore.Connect(ctx, pgstore.Config{
			DSN:            cfg.Postgres.DSN(),
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
			MigrateOnStart: cfg.Postgres.Migrate,
		})
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewUserRepository(pool), func(context.Context) error {
			pool.Close()
			return nil
		}, nil

	case config.DriverMongo:
		client, repo, err := mongostore.Open(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, client.Disconnect, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewUserRepository(client), func(context.Context) error {
			return client.Close()
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
