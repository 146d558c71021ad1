package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paradise-007/healthally/internal/app"
	"github.com/paradise-007/healthally/internal/config"
	"github.com/paradise-007/healthally/internal/jobs"
	"github.com/paradise-007/healthally/internal/server"
	"github.com/paradise-007/healthally/internal/util"
	"github.com/paradise-007/healthally/pkg/ai"
	"github.com/paradise-007/healthally/pkg/analytics"
	"github.com/paradise-007/healthally/pkg/queue"
	"github.com/paradise-007/healthally/pkg/reference"
	"github.com/paradise-007/healthally/pkg/storage"
	"github.com/paradise-007/healthally/pkg/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel)
	flushErrors, err := util.InitErrorReporting(cfg.SentryDSN, cfg.SentryEnvironment)
	if err != nil {
		util.Fatal("failed to init error reporting", "err", err)
	}
	defer flushErrors()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		util.Fatal("failed to connect to mongodb", "err", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = docs.Close(closeCtx)
	}()
	if err := docs.EnsureIndexes(ctx); err != nil {
		logger.Warn("ensure indexes failed", "err", err)
	}

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			util.Fatal("failed to connect to redis", "addr", cfg.RedisAddr, "err", err)
		}
		defer redisClient.Close()
	}

	sessions, err := newSessionStore(cfg, redisClient)
	if err != nil {
		util.Fatal("failed to init sessions", "err", err)
	}

	medicines, err := reference.LoadMedicineCSV(cfg.MedicineDataPath)
	if err != nil {
		util.Fatal("failed to load medicine dataset", "path", cfg.MedicineDataPath, "err", err)
	}
	symptoms, err := reference.LoadSymptomCSV(cfg.SymptomDataPath)
	if err != nil {
		util.Fatal("failed to load symptom dataset", "path", cfg.SymptomDataPath, "err", err)
	}
	logger.Info("reference data loaded", "medicines", medicines.Len(), "symptoms", symptoms.Len())

	generator, err := ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.GenerationProvider,
		BaseURL:  cfg.GenerationBaseURL,
		APIKey:   cfg.GenerationAPIKey,
		Model:    cfg.GenerationModel,
		Sampling: ai.Sampling{
			Temperature: *cfg.GenerationTemperature,
			MaxTokens:   cfg.GenerationMaxTokens,
		},
		Timeout: cfg.GenerationTimeoutDuration(),
	})
	if err != nil {
		util.Fatal("failed to init generation provider", "err", err)
	}

	var (
		recorder      analytics.Recorder = analytics.NopRecorder{}
		analyticsRead analytics.Store
		eventQueue    *queue.RedisEventQueue
	)
	if cfg.DatabaseURL != "" {
		gormStore, err := analytics.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			util.Fatal("failed to init analytics store", "err", err)
		}
		defer gormStore.Close()
		analyticsRead = gormStore
		recorder = analytics.NewDirectRecorder(gormStore)
		if cfg.AnalyticsQueue.Enabled() {
			eventQueue, err = queue.NewRedisEventQueue(redisClient, queue.RedisQueueConfig{
				Stream: cfg.AnalyticsQueue.Stream,
				Group:  cfg.AnalyticsQueue.Group,
			})
			if err != nil {
				util.Fatal("failed to init analytics queue", "err", err)
			}
			if err := eventQueue.Start(ctx, cfg.AnalyticsQueue.Concurrency, analytics.NewEventHandler(gormStore)); err != nil {
				util.Fatal("failed to start analytics consumers", "err", err)
			}
			recorder = analytics.NewQueueRecorder(eventQueue)
			logger.Info("analytics queue started", "stream", cfg.AnalyticsQueue.Stream, "group", cfg.AnalyticsQueue.Group)
		}
	} else {
		logger.Info("analytics disabled: databaseURL not set")
	}

	var exports storage.ObjectStore
	if cfg.Minio.Enabled() {
		minioStore, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			util.Fatal("failed to init object storage", "err", err)
		}
		exports = minioStore
	}

	appCore, err := app.New(app.Config{
		Store:         docs,
		Sessions:      sessions,
		Medicines:     medicines,
		Symptoms:      symptoms,
		Advisor:       ai.NewAdvisor(generator),
		Recorder:      recorder,
		Analytics:     analyticsRead,
		Exports:       exports,
		ExportLinkTTL: cfg.ExportLinkTTLDuration(),
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	created, err := appCore.EnsureBootstrapAdmin(ctx, app.AdminInput{
		Username: cfg.BootstrapAdmin.Username,
		Email:    cfg.BootstrapAdmin.Email,
		Password: cfg.BootstrapAdmin.Password,
	})
	if err != nil {
		util.Fatal("failed to create bootstrap admin", "err", err)
	}
	if created {
		logger.Info("bootstrap admin created", "username", cfg.BootstrapAdmin.Username)
	}

	if exports != nil {
		scheduler, err := jobs.Start(ctx, jobs.Config{
			Exports:    appCore,
			PurgeEvery: cfg.ExportPurgeIntervalDuration(),
			Logger:     logger,
		})
		if err != nil {
			util.Fatal("failed to schedule jobs", "err", err)
		}
		defer scheduler.Stop()
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("failed to parse trusted proxies", "err", err)
	}
	httpServer, err := server.New(server.Config{
		App:                      appCore,
		Redis:                    redisClient,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		TrustedProxies:           trusted,
		AllowedOrigins:           cfg.AllowedOrigins,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	slog.Info("healthally server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
	stop()
	if eventQueue != nil {
		eventQueue.Wait()
	}
	slog.Info("server stopped")
}

// newSessionStore picks JWT sessions when a secret is configured, Redis-backed
// opaque tokens when Redis is available, and in-process tokens otherwise.
func newSessionStore(cfg config.FileConfig, client *redis.Client) (store.SessionStore, error) {
	ttl := cfg.SessionTTLDuration()
	if cfg.JWTSecret != "" {
		var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
		if client != nil {
			revoker = store.NewRedisTokenRevoker(client, ttl)
		}
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, ttl, revoker, store.JWTOptions{})
		if err != nil {
			return nil, err
		}
		return jwtStore, nil
	}
	if client != nil {
		return store.NewRedisSessionStore(client, ttl), nil
	}
	slog.Warn("sessions kept in memory: set redisAddr or jwtSecret for multi-instance deployments")
	return store.NewMemorySessionStore(ttl), nil
}
