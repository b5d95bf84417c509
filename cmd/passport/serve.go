package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vbonduro/propertypassport/internal/apicache"
	"github.com/vbonduro/propertypassport/internal/classify"
	"github.com/vbonduro/propertypassport/internal/classify/claude"
	"github.com/vbonduro/propertypassport/internal/classify/ollama"
	"github.com/vbonduro/propertypassport/internal/config"
	"github.com/vbonduro/propertypassport/internal/db"
	"github.com/vbonduro/propertypassport/internal/govdata"
	"github.com/vbonduro/propertypassport/internal/metrics"
	"github.com/vbonduro/propertypassport/internal/objectstore"
	"github.com/vbonduro/propertypassport/internal/objectstore/local"
	"github.com/vbonduro/propertypassport/internal/scheduler"
	"github.com/vbonduro/propertypassport/internal/service"
	"github.com/vbonduro/propertypassport/internal/store"
	"github.com/vbonduro/propertypassport/internal/web"
	"github.com/vbonduro/propertypassport/internal/web/templates"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	objects, err := local.New(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	cache, closeCache, err := newCache(ctx, cfg, database, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	m := metrics.New()
	secret := []byte(cfg.JWTSecret)
	signer := objectstore.NewSigner(secret, cfg.SignedURLTTL)
	services := service.New(database, objects, signer, newClassifier(cfg, logger), logger)

	gov := govdata.NewService(govdata.Config{
		EPCBaseURL:          cfg.EPCBaseURL,
		EPCEmail:            cfg.EPCEmail,
		EPCKey:              cfg.EPCKey,
		LandRegistryBaseURL: cfg.LandRegistryBaseURL,
		FloodBaseURL:        cfg.FloodBaseURL,
		PoliceBaseURL:       cfg.PoliceBaseURL,
		Timeout:             cfg.UpstreamTimeout,
	}, cache, m)

	sched := scheduler.New(m)
	if err := sched.Add(scheduler.CachePurgeJob(cache, cfg.CachePurgeSchedule)); err != nil {
		return err
	}
	if err := sched.Add(scheduler.InvitationPurgeJob(store.NewInvitationStore(database))); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	server := web.NewServer(web.Options{
		Services:  services,
		GovData:   gov,
		Users:     store.NewUserStore(database),
		Objects:   objects,
		Signer:    signer,
		Templates: templates.FS,
		Metrics:   m,
		DB:        database,
		JWTSecret: secret,
		RateLimit: cfg.GovDataRateLimit,
		RateBurst: cfg.GovDataRateBurst,
		Logger:    logger,
	})

	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newCache returns the government-data cache and a func releasing it.
func newCache(ctx context.Context, cfg *config.Config, database *sql.DB, logger *slog.Logger) (apicache.Cache, func(), error) {
	if cfg.CacheBackend == "redis" {
		client, err := apicache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis cache backend", "addr", cfg.RedisAddr)
		return apicache.NewRedisCache(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("failed to close redis client", "error", err)
			}
		}, nil
	}
	logger.Info("using sql cache backend")
	return apicache.NewSQLCache(database), func() {}, nil
}

func newClassifier(cfg *config.Config, logger *slog.Logger) classify.Classifier {
	switch cfg.ClassifierBackend {
	case "claude":
		logger.Info("using Claude document classifier", "model", cfg.ClaudeModel)
		return claude.New(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	case "ollama":
		logger.Info("using Ollama document classifier", "model", cfg.OllamaModel)
		return ollama.New(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("document classification disabled")
		return classify.None{}
	}
}
