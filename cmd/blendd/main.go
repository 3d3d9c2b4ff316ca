package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/blend/pkg/application/services"
	"github.com/vsinha/blend/pkg/application/services/optimizer"
	"github.com/vsinha/blend/pkg/domain/repositories"
	"github.com/vsinha/blend/pkg/infrastructure/cache"
	"github.com/vsinha/blend/pkg/infrastructure/config"
	"github.com/vsinha/blend/pkg/infrastructure/database"
	"github.com/vsinha/blend/pkg/infrastructure/events"
	"github.com/vsinha/blend/pkg/infrastructure/logging"
	"github.com/vsinha/blend/pkg/infrastructure/repositories/csv"
	gormrepository "github.com/vsinha/blend/pkg/infrastructure/repositories/gorm"
	"github.com/vsinha/blend/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/blend/pkg/infrastructure/scheduler"
	handler "github.com/vsinha/blend/pkg/interfaces/http"
)

func main() {
	cfgPath := os.Getenv("BLEND_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("BLEND_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		batchRepo repositories.BatchRepository
		blendRepo repositories.BlendRepository
		ping      func(context.Context) error
	)
	if cfg.DB.DSN != "" {
		dbConn, err := database.Open(cfg.DB)
		if err != nil {
			logger.Fatal("db open failed", zap.Error(err))
		}
		defer database.Close(dbConn)

		if cfg.DB.AutoMigrate {
			if err := database.AutoMigrate(dbConn); err != nil {
				logger.Fatal("auto-migrate failed", zap.Error(err))
			}
		}
		store := gormrepository.New(dbConn.Gorm)
		batchRepo, blendRepo = store, store
		ping = func(ctx context.Context) error { return database.Ping(ctx, dbConn) }
		if cfg.App.SeedBatches != "" {
			logger.Info("app.seed_batches ignored with a database configured", zap.String("file", cfg.App.SeedBatches))
		}
	} else {
		batches := memory.NewBatchRepository()
		batchRepo, blendRepo = batches, memory.NewBlendRepository(batches)
		logger.Warn("no database configured, using in-memory storage")

		if cfg.App.SeedBatches != "" {
			seed, err := csv.NewLoader().LoadBatches(cfg.App.SeedBatches)
			if err != nil {
				logger.Fatal("seed batches failed", zap.String("file", cfg.App.SeedBatches), zap.Error(err))
			}
			if err := batchRepo.LoadBatches(ctx, seed); err != nil {
				logger.Fatal("seed batches failed", zap.Error(err))
			}
			logger.Info("seeded batches", zap.String("file", cfg.App.SeedBatches), zap.Int("count", len(seed)))
		}
	}

	var cacheStore cache.Store = cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisStore := cache.NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisStore.Close()
		if err := redisStore.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, proposal cache falls back to memory", zap.Error(err))
		} else {
			cacheStore = redisStore
		}
	}
	proposals := cache.NewProposalCache(cacheStore, cfg.Redis.ProposalTTL)

	eventStore := events.NewInMemoryEventStore(logger)
	audit := events.NewAuditLog(logger)
	if err := eventStore.Subscribe(audit.EventTypes(), audit); err != nil {
		logger.Fatal("event subscription failed", zap.Error(err))
	}

	opt := optimizer.New(
		optimizer.WithMaxAttempts(cfg.Optimizer.RandomMaxAttempts),
		optimizer.WithMeanTolerance(cfg.Optimizer.MeanTolerance),
		optimizer.WithBagWeight(cfg.Optimizer.BagWeight),
	)
	blendService := services.NewBlendService(batchRepo, blendRepo, opt,
		services.WithPublisher(eventStore),
		services.WithProposalCache(proposals),
		services.WithLogger(logger),
	)

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := handler.NewRouter(logger,
		&handler.HealthHandler{Ping: ping},
		&handler.BlendHandler{Service: blendService, Logger: logger},
		&handler.BatchHandler{Service: blendService, Logger: logger},
	)

	if cfg.Cron.Enabled {
		cronRunner := scheduler.New(logger, ctx)
		if _, err := cronRunner.Add(cfg.Cron.PoolReport, scheduler.PoolReportJob(blendService, logger, nil)); err != nil {
			logger.Fatal("cron pool report schedule invalid", zap.String("spec", cfg.Cron.PoolReport), zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	eventStore.Wait()
}
