package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "kestrel/backend/docs" // registers the swagger document
	"kestrel/backend/internal/auth"
	"kestrel/backend/internal/catalog"
	"kestrel/backend/internal/comment"
	"kestrel/backend/internal/config"
	"kestrel/backend/internal/database"
	"kestrel/backend/internal/handler"
	"kestrel/backend/internal/hub"
	"kestrel/backend/internal/igdb"
	"kestrel/backend/internal/logger"
	ginlogger "kestrel/backend/internal/logger/adapter/gin"
	"kestrel/backend/internal/membership"
)

const (
	serviceName     = "kestrel"
	shutdownTimeout = 10 * time.Second
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Kestrel HTTP API",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		return serve(cfg)
	},
}

func logConfig(cfg *config.Config) logger.Log {
	return logger.Log{
		LogLevel:                 cfg.LogLevel,
		ServiceName:              serviceName,
		EnableAccessLogToConsole: true,
		Console: logger.Console{
			Enabled:          true,
			UseConsoleWriter: cfg.LogConsolePretty,
		},
		File: logger.DefaultFile(cfg.LogFilePath),
	}
}

func serve(cfg *config.Config) error {
	logCfg := logConfig(cfg)
	if err := logger.Init(logCfg); err != nil {
		return err
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DBEngine, cfg.DatabaseURL)
	if err != nil {
		return err
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	upstream, cleanup := newUpstream(ctx, cfg)
	defer cleanup()

	liveHub := hub.New()
	repo := catalog.NewRepository(db)

	h := handler.New(handler.Deps{
		Catalog:    repo,
		External:   catalog.NewExternal(upstream, repo),
		Membership: membership.NewService(db),
		Comments:   comment.NewService(db, liveHub),
		Gate:       auth.NewGate(db),
		Hub:        liveHub,
		Verifier:   verifier,
	})

	router := gin.New()
	router.Use(
		ginlogger.New(ginlogger.Config{
			Config: logCfg,
			Skip: func(c *gin.Context) bool {
				return c.FullPath() == "/metrics" || strings.HasPrefix(c.FullPath(), "/swagger")
			},
		}),
		gin.Recovery(),
	)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown does not cancel open comment streams
	srv.RegisterOnShutdown(liveHub.Close)

	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server is running")
		log.Info().Msgf("swagger UI is available at http://localhost%s/swagger/index.html", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err = <-errCh:
		return errors.Wrap(err, "http listen")
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown requested, stopping http server ...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	log.Info().Msg("http server was stopped ... good bye...")

	return nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (auth.TokenVerifier, error) {
	if cfg.AuthIssuer == "" {
		log.Warn().Msg("AUTH_ISSUER is empty, accepting HS256 tokens signed with JWT_SECRET")
		return auth.NewHMACVerifier(cfg.JWTSecret), nil
	}

	v, err := auth.NewOIDCVerifier(ctx, cfg.AuthIssuer, cfg.AuthAudience)
	if err != nil {
		return nil, err
	}

	log.Info().Str("issuer", cfg.AuthIssuer).Msg("verifying bearer tokens against identity provider")

	return v, nil
}

// newUpstream builds the IGDB client, or returns nil when no credentials are configured.
func newUpstream(ctx context.Context, cfg *config.Config) (catalog.Upstream, func()) {
	if !cfg.IGDBEnabled() {
		log.Warn().Msg("IGDB credentials missing, search and import are disabled")
		return nil, func() {}
	}

	cleanup := func() {}

	var cache igdb.Cache = igdb.NopCache{}

	if cfg.RedisURL != "" {
		rc, err := igdb.NewRedisCache(cfg.RedisURL)
		if err == nil {
			err = rc.Ping(ctx)
		}

		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, IGDB responses will not be cached")
		} else {
			cache = rc
			cleanup = func() {
				if err := rc.Close(); err != nil {
					log.Error().Err(err).Msg("close redis")
				}
			}
		}
	}

	client := igdb.New(ctx, igdb.Config{
		ClientID:     cfg.IGDBClientID,
		ClientSecret: cfg.IGDBClientSecret,
		BaseURL:      cfg.IGDBBaseURL,
		TokenURL:     cfg.IGDBTokenURL,
		RateLimit:    cfg.IGDBRateLimit,
		Timeout:      cfg.IGDBTimeout,
		Cache:        cache,
		CacheTTL:     cfg.CacheTTL,
	})

	return client, cleanup
}
