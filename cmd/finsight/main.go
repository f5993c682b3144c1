package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finsight/internal/amqp"
	"finsight/internal/auth"
	"finsight/internal/backend"
	"finsight/internal/cache"
	"finsight/internal/cli"
	"finsight/internal/config"
	apphttp "finsight/internal/http"
	"finsight/internal/insight"
	"finsight/internal/insight/gemini"
	"finsight/internal/ledger"
	"finsight/internal/log"
	"finsight/internal/middleware/ratelimit"
	"finsight/internal/middleware/security"
	"finsight/internal/services"
)

const (
	dashboardCacheSize = 256
	dashboardCacheTTL  = 5 * time.Minute
	janitorInterval    = time.Minute
	shutdownTimeout    = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	dashboards := cache.NewLRUCache[services.Dashboard](dashboardCacheSize, dashboardCacheTTL)
	opts := []services.Option{
		services.WithFallback(ledger.WithFallbackEnabled(cfg.FallbackEnabled)),
		services.WithDashboardCache(dashboards),
	}
	if cfg.EventsEnabled() {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, services.WithPublisher(publisher))
		logger.Info("Transaction events enabled", "exchange", cfg.AMQPExchange)
	}
	txs := services.NewTransactionService(result.Store, logger, opts...)

	var gen insight.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return err
		}
		gen = g
		logger.Info("Analysis enabled", "model", g.Model())
	} else {
		logger.Warn("GEMINI_API_KEY not set, analysis is disabled")
	}
	analysis := services.NewAnalysisService(insight.NewRequester(gen, logger), txs, logger)

	secret, err := jwtSecret(cfg, logger)
	if err != nil {
		return err
	}
	revoked := auth.NewRevocationList(cfg.SessionTTL)
	authSvc := auth.NewService(result.Users, auth.NewTokens(secret, cfg.SessionTTL), revoked, logger)

	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions:    txs,
		Analysis:        analysis,
		Auth:            authSvc,
		AuthRequired:    cfg.AuthRequired,
		Limiter:         limiter,
		Detector:        detector,
		Ready:           result.Ping,
		AnalysisTimeout: cfg.AnalysisTimeout,
		Logger:          logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finsight server", "port", cfg.Port, "backend", cfg.DataBackend, "auth_required", cfg.AuthRequired)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return cache.NewJanitor(logger, dashboards, revoked).Run(gctx, janitorInterval)
	})
	g.Go(func() error { return limiter.Run(gctx) })

	return g.Wait()
}

// jwtSecret returns the configured signing secret. Without one, and with
// auth optional, a per-process secret is generated so sessions still work
// until restart.
func jwtSecret(cfg *config.Config, logger *log.Logger) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	logger.Warn("JWT_SECRET not set, sessions will not survive a restart")
	return hex.EncodeToString(buf), nil
}
