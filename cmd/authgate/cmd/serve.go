package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/api"
	"github.com/MrEthical07/authgate/oidclogin"
	"github.com/MrEthical07/authgate/session"
)

// serveEnv holds the settings that belong to the binary rather than the gateway.
type serveEnv struct {
	Addr         string        `env:"AUTHGATE_ADDR,default=:8080"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	OIDCIssuer   string        `env:"AUTHGATE_OIDC_ISSUER"`
	OIDCClientID string        `env:"AUTHGATE_OIDC_CLIENT_ID"`
	OIDCRole     string        `env:"AUTHGATE_OIDC_ROLE_CLAIM"`
	SessionTTL   time.Duration `env:"AUTHGATE_SESSION_TTL,default=8h"`
	LogLevel     string        `env:"AUTHGATE_LOG_LEVEL,default=info"`
}

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authentication gateway HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var env serveEnv
		if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return fmt.Errorf("decode environment: %w", err)
		}
		if serveAddr != "" {
			env.Addr = serveAddr
		}

		logger, err := newLogger(env.LogLevel)
		if err != nil {
			return err
		}

		cfg, err := authgate.LoadConfigFromEnv()
		if err != nil {
			return err
		}

		rdb, closeRedis, err := connectRedis(env.RedisAddr, logger)
		if err != nil {
			return err
		}
		defer closeRedis()

		b := authgate.New().
			WithConfig(cfg).
			WithRedis(rdb).
			WithLogger(logger)
		if cfg.Audit.Enabled {
			b.WithAuditSink(authgate.NewSlogSink(logger.With("component", "audit")))
		}
		gw, err := b.Build()
		if err != nil {
			return fmt.Errorf("build gateway: %w", err)
		}
		defer gw.Close()

		report := gw.SecurityReport()
		for _, w := range report.Warnings {
			logger.Warn("security posture", "warning", w)
		}

		opts := []api.Option{
			api.WithSessionStore(session.NewRedisStore(rdb, "")),
			api.WithLogger(logger),
		}
		if env.OIDCIssuer != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			completer, err := oidclogin.NewFromDiscovery(ctx, gw, oidclogin.Config{
				Issuer:    env.OIDCIssuer,
				ClientID:  env.OIDCClientID,
				RoleClaim: env.OIDCRole,
			})
			cancel()
			if err != nil {
				return err
			}
			opts = append(opts, api.WithOIDC(completer, env.SessionTTL))
		}

		r := chi.NewRouter()
		r.Use(chimw.RealIP)
		r.Use(chimw.Logger)
		r.Mount("/", api.New(gw, opts...).Router())

		server := &http.Server{
			Addr:              env.Addr,
			Handler:           r,
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

		logger.Info("authgate listening",
			"addr", env.Addr,
			"basic", cfg.Mechanisms.BasicAPIKey,
			"challenge", cfg.Mechanisms.Challenge,
			"client_credentials", cfg.Mechanisms.ClientCredentials,
			"oidc", env.OIDCIssuer != "",
		)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid AUTHGATE_LOG_LEVEL %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides AUTHGATE_ADDR)")
}
