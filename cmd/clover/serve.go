package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/handlers"
	"github.com/Ramsey-B/clover/internal/repositories/document"
	"github.com/Ramsey-B/clover/internal/services/configstore"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/health"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/projection"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/schema"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the config HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(envFiles(envFile)...)
			if err != nil {
				return err
			}

			logger, sync, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")
	return cmd
}

// app holds what the startup dependencies build for the server.
type app struct {
	cfg      *config.Config
	logger   ectologger.Logger
	db       database.DB
	redis    *redis.Client
	producer *kafka.Producer
	server   *echo.Echo
	health   *health.Checker
	migrated bool
}

func serve(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	schemas := schema.Default()
	for _, key := range schemas.Keys() {
		sch, _ := schemas.Lookup(key)
		if _, err := sch.Seed(); err != nil {
			logger.WithError(err).WithField("key", key).Error("Seed document is invalid")
			return fmt.Errorf("seed for %q is invalid: %w", key, err)
		}
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.AppName, cfg.Version, otlpConfig(cfg))
	if err != nil {
		logger.WithError(err).Error("Failed to set up tracing")
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	a := &app{cfg: cfg, logger: logger}
	s := startup.NewStartup(logger, cfg.StartupMaxAttempts)

	s.AddDependency(&startup.Func{
		Name: "database",
		OnStart: func(ctx context.Context) error {
			conn, err := connectDatabase(ctx, cfg, logger)
			if err != nil {
				return err
			}
			a.db = conn
			return nil
		},
		OnStop: func(context.Context) error {
			return a.db.Close()
		},
	})

	s.AddDependency(&startup.Func{
		Name:     "migrations",
		Requires: []string{"database"},
		OnStart: func(context.Context) error {
			if !cfg.DatabaseMigrateOnStartup {
				return nil
			}
			if err := runMigrations(cfg, a.db, logger); err != nil {
				return err
			}
			a.migrated = true
			return nil
		},
	})

	serverDeps := []string{"database", "migrations"}

	if cfg.RedisEnabled {
		s.AddDependency(&startup.Func{
			Name: "redis",
			OnStart: func(ctx context.Context) error {
				client, err := redis.NewClient(ctx, redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				a.redis = client
				return nil
			},
			OnStop: func(context.Context) error {
				return a.redis.Close()
			},
		})
		serverDeps = append(serverDeps, "redis")
	}

	if cfg.KafkaEnabled {
		s.AddDependency(&startup.Func{
			Name: "kafka",
			OnStart: func(context.Context) error {
				a.producer = kafka.NewProducer(kafka.ProducerConfig{
					Brokers:     cfg.KafkaBrokerList(),
					Topic:       cfg.KafkaDocumentTopic,
					Compression: cfg.KafkaCompression,
				}, logger)
				return nil
			},
			OnStop: func(context.Context) error {
				return a.producer.Close()
			},
		})
		serverDeps = append(serverDeps, "kafka")
	}

	s.AddDependency(&startup.Func{
		Name:     "server",
		Requires: serverDeps,
		OnStart: func(context.Context) error {
			return a.startServer(schemas)
		},
		OnStop: func(ctx context.Context) error {
			a.health.SetReady(false)
			return a.server.Shutdown(ctx)
		},
	})

	if err := s.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.Stop(stopCtx)
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

func (a *app) startServer(schemas *schema.Registry) error {
	cfg := a.cfg

	var publisher events.Publisher
	if a.producer != nil {
		publisher = a.producer
	}

	store := configstore.NewStore(
		document.NewRepository(a.db, a.logger),
		schemas,
		events.NewEmitter(publisher, a.logger),
		a.logger,
		configstore.Options{AllowUnversionedWrites: cfg.AllowUnversionedWrites},
	)
	if a.migrated {
		store.MarkSchemaReady()
	}

	var redisPinger health.RedisPinger
	var limiter middleware.RateLimiter
	if a.redis != nil {
		redisPinger = a.redis
		limiter = redis.NewRateLimiter(a.redis, cfg.AppName+":ratelimit:")
	}
	a.health = health.NewChecker(a.db, redisPinger, store.SchemaReady, cfg.Version)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:  cfg.AllowOriginList(),
		AllowMethods:  cfg.AllowMethodList(),
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderXRequestID, middleware.HeaderUserID},
		ExposeHeaders: []string{echo.HeaderXRequestID, middleware.HeaderDocumentVersion, "Retry-After"},
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.WriteRateLimit(limiter, int64(cfg.WriteRateLimit), cfg.WriteRateWindow, a.logger))

	a.health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	configHandler := handlers.NewConfigHandler(store, projection.NewEvaluator())
	configHandler.RegisterRoutes(e.Group("/api/v1"))
	handlers.NewPricingHandler(configHandler).RegisterRoutes(e.Group("/api"))

	a.server = e

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server stopped")
		}
	}()

	a.health.SetReady(true)
	a.logger.WithField("port", cfg.Port).Info("HTTP server listening")
	return nil
}

func otlpConfig(cfg *config.Config) *exporters.OTLPConfig {
	if !cfg.OTLPEnabled {
		return nil
	}
	return &exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Headers:  exporters.ParseHeaders(cfg.OTLPHeaders),
	}
}
