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

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	zikauth "github.com/Fpierr/zikauth"
	"github.com/Fpierr/zikauth/httpapi"
	"github.com/Fpierr/zikauth/internal/logattr"
	"github.com/Fpierr/zikauth/internal/userdir"
	otelexport "github.com/Fpierr/zikauth/metrics/export/otel"
	promexport "github.com/Fpierr/zikauth/metrics/export/prometheus"
)

const serviceName = "zikauth"

// serverEnv holds process settings that are not part of zikauth.Config.
type serverEnv struct {
	Addr            string        `env:"ZIK_HTTP_ADDR" envDefault:":8000"`
	RedisURL        string        `env:"ZIK_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	UsersFile       string        `env:"ZIK_USERS_FILE" envDefault:"users.yaml"`
	AllowedOrigins  []string      `env:"ZIK_CORS_ORIGINS" envSeparator:","`
	LoginRateLimit  int           `env:"ZIK_LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"ZIK_LOGIN_RATE_WINDOW" envDefault:"1m"`
	LogLevel        string        `env:"ZIK_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"ZIK_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Telemetry       telemetryEnv
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authentication HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		senv, err := env.ParseAs[serverEnv]()
		if err != nil {
			return fmt.Errorf("server environment: %w", err)
		}
		logger := newLogger(senv.LogLevel)

		cfg, err := zikauth.LoadConfigFromEnv()
		if err != nil {
			return fmt.Errorf("auth config: %w", err)
		}

		dir, err := userdir.Load(senv.UsersFile)
		if err != nil {
			return err
		}

		opts, err := redis.ParseURL(senv.RedisURL)
		if err != nil {
			return fmt.Errorf("parse ZIK_REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		b := zikauth.New().
			WithConfig(cfg).
			WithRedis(rdb).
			WithUserProvider(userdir.NewProvider(dir)).
			WithLogger(logger)
		if cfg.Audit.Enabled {
			b.WithAuditSink(zikauth.NewSlogSink(logger.With(logattr.Component("audit"))))
		}
		engine, err := b.Build()
		if err != nil {
			return err
		}
		defer engine.Close()

		if _, err := engine.Ping(cmd.Context()); err != nil {
			logger.Warn("session backend not reachable at startup", logattr.Error(err))
		}

		tel, err := newTelemetry(cmd.Context(), senv.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), senv.ShutdownTimeout)
			defer cancel()
			if err := tel.Shutdown(ctx); err != nil {
				logger.Warn("telemetry shutdown", logattr.Error(err))
			}
		}()

		meterExporter, err := otelexport.NewExporter(tel.meterProvider.Meter(serviceName), engine)
		if err != nil {
			return err
		}
		defer meterExporter.Close()

		router := httpapi.NewRouter(httpapi.Options{
			Engine:          engine,
			Logger:          logger,
			AllowedOrigins:  senv.AllowedOrigins,
			LoginRateLimit:  senv.LoginRateLimit,
			LoginRateWindow: senv.LoginRateWindow,
			Metrics:         promexport.NewCollector(engine).Handler(),
		})

		handler := otelhttp.NewHandler(router, serviceName,
			otelhttp.WithTracerProvider(tel.tracerProvider),
			otelhttp.WithMeterProvider(tel.meterProvider),
		)

		server := &http.Server{
			Addr:              senv.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("listening",
			"addr", senv.Addr,
			"users", dir.Len(),
			"refresh_access_policy", cfg.Refresh.AccessPolicy.String(),
		)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), senv.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
