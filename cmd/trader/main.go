package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"kistrader/internal/client/kis"
	"kistrader/internal/config"
	cronrunner "kistrader/internal/cron"
	"kistrader/internal/db"
	"kistrader/internal/handler"
	"kistrader/internal/ledger"
	"kistrader/internal/logger"
	"kistrader/internal/metrics"
	"kistrader/internal/rebalance"
	gormrepository "kistrader/internal/repository/gorm"
	"kistrader/internal/service"
)

func main() {
	cfgPath := os.Getenv("TRADER_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("TRADER_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	kisHTTP := &http.Client{Timeout: cfg.KIS.Timeout}
	broker := kis.NewClient(kisHTTP, kis.Options{
		Host:            cfg.BaseURL(),
		AppKey:          cfg.Trading.AppKey,
		AppSecret:       cfg.Trading.AppSecret,
		Sandbox:         cfg.Trading.Sandbox,
		RateLimitPerSec: cfg.KIS.RateLimitPerSec,
	})
	store := gormrepository.New(dbConn.Gorm)
	recorder := metrics.NewRecorder()

	reconciler := &ledger.Reconciler{Repo: store, Logger: logger}
	planner := &rebalance.Planner{Weights: cfg.Strategy.Weights, Logger: logger}
	executor := &rebalance.Executor{
		Gateway: broker,
		Repo:    store,
		Logger:  logger,
		Account: cfg.Account,
	}
	cycle := service.NewCycleService()
	cycle.Balance = broker
	cycle.Margin = broker
	cycle.Quotes = broker
	cycle.Executions = broker
	cycle.Reconciler = reconciler
	cycle.Planner = planner
	cycle.Executor = executor
	cycle.Account = cfg.Account
	cycle.Logger = logger
	cycle.Metrics = recorder

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	orderHandler := &handler.OrderHandler{Repo: store}
	orderHandler.Register(engine)
	positionHandler := &handler.PositionHandler{Repo: store}
	positionHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Repo: store}
	tradeHandler.Register(engine)
	cycleHandler := &handler.CycleHandler{Cycle: cycle}
	cycleHandler.Register(engine)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add("rebalance-cycle", cfg.Cron.Rebalance, func(ctx context.Context) error {
			_, err := cycle.RunOnce(ctx)
			if errors.Is(err, service.ErrCycleInFlight) {
				logger.Warn("scheduled cycle skipped, previous run still in flight")
				return nil
			}
			return err
		})
		if err != nil {
			logger.Warn("cron register rebalance cycle failed", zap.Error(err))
		}
		_, err = cronRunner.Add("token-refresh", cfg.Cron.TokenRefresh, func(ctx context.Context) error {
			return broker.RefreshToken(ctx)
		})
		if err != nil {
			logger.Warn("cron register token refresh failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	if cfg.Trading.HtsID != "" {
		execNotice := &service.ExecNoticeService{
			Broker: broker,
			WSURL:  cfg.KIS.WSURL,
			HtsID:  cfg.Trading.HtsID,
			Logger: logger,
		}
		go func() {
			if err := execNotice.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("execution notice stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
