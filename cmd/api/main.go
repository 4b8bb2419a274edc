package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/joefazee/marketcore/app"
	"github.com/joefazee/marketcore/app/api"
	"github.com/joefazee/marketcore/app/database"
	"github.com/joefazee/marketcore/app/markets"
	"github.com/joefazee/marketcore/app/prediction"
	"github.com/joefazee/marketcore/app/wallet"
	"github.com/joefazee/marketcore/internal/cache"
	"github.com/joefazee/marketcore/internal/deps"
	"github.com/joefazee/marketcore/internal/logger"
	"github.com/joefazee/marketcore/internal/nexus"
	"github.com/joefazee/marketcore/internal/router"
	"github.com/joefazee/marketcore/internal/security"
)

const riskPruneInterval = 5 * time.Minute

func main() {
	describe := flag.Bool("env", false, "print the environment variables the server reads and exit")
	flag.Parse()

	if *describe {
		text, err := nexus.Describe(&app.Config{}, "marketcore api environment:")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(text)
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewZeroLogger(os.Stdout, logger.LevelInfo, logger.Fields{"service": "marketcore-api"})

	cfg, err := app.LoadConfig(ctx)
	if err != nil {
		log.Fatal(err, map[string]interface{}{"op": "load configuration"})
	}
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(err, nil)
	}
}

func run(ctx context.Context, cfg *app.Config, log logger.Logger) error {
	db, err := database.New(&cfg.DB)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	tokenMaker, err := security.NewPasetoMaker(cfg.TokenSymmetricKey)
	if err != nil {
		return err
	}

	opts := deps.Options{
		DB:          db,
		RedisPrefix: cfg.Redis.KeyPrefix,
		LockTTL:     cfg.Redis.LockTTL,
		LockWait:    cfg.LockWait,
		EventBuffer: cfg.EventBuffer,
		TokenMaker:  tokenMaker,
		Logger:      log,
	}
	if cfg.Redis.Enabled() {
		client := cache.NewRedisClient(&cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		opts.Redis = client
	}

	container, err := deps.NewContainer(opts)
	if err != nil {
		return err
	}
	defer container.Close()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), api.CORS(cfg.CORSOrigins))

	var (
		marketSvc markets.Service
		risk      prediction.RiskEngine
	)

	mounter := router.NewMounter(container)
	mounter.Public(engine).Mount(func(r *gin.RouterGroup, c *deps.Container) {
		r.GET("/healthz", api.HealthCheck(cfg.Env, cfg.Version, sqlDB))
	})
	mounter.Authenticated(engine).Mount(func(r *gin.RouterGroup, c *deps.Container) {
		marketSvc = markets.Init(r, markets.Dependencies{
			DB:          c.DB,
			Config:      &cfg.Markets,
			Sanitizer:   c.Sanitizer,
			PriceStore:  c.PriceStore,
			Coordinator: c.Coordinator,
			Events:      c.Events,
			Clock:       c.Clock,
			Logger:      c.Logger,
		})
		_, _, risk = prediction.Init(r, prediction.Dependencies{
			DB:          c.DB,
			Config:      &cfg.Prediction,
			Markets:     marketSvc,
			Sanitizer:   c.Sanitizer,
			Coordinator: c.Coordinator,
			Events:      c.Events,
			Clock:       c.Clock,
			Logger:      c.Logger,
		})
		wallet.Init(r, wallet.Dependencies{
			DB:          c.DB,
			Sanitizer:   c.Sanitizer,
			Coordinator: c.Coordinator,
			Events:      c.Events,
			Clock:       c.Clock,
			Logger:      c.Logger,
		})
	})

	go markets.RunExpirySweeper(ctx, marketSvc, cfg.Markets.ExpirySweepInterval, log)
	go pruneRiskBuckets(ctx, risk, log)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting marketcore api", map[string]interface{}{
			"addr":  srv.Addr,
			"env":   cfg.Env,
			"redis": cfg.Redis.Enabled(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pruneRiskBuckets(ctx context.Context, risk prediction.RiskEngine, log logger.Logger) {
	ticker := time.NewTicker(riskPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Debug("rate limit buckets pruned", map[string]interface{}{"remaining": risk.Prune()})
		}
	}
}
