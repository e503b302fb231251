package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signalarchive/internal/config"
	cronrunner "signalarchive/internal/cron"
	"signalarchive/internal/db"
	"signalarchive/internal/handler"
	"signalarchive/internal/logger"
	gormrepository "signalarchive/internal/repository/gorm"
	"signalarchive/internal/service"
	"signalarchive/internal/tabular"
)

func main() {
	runOnce := flag.Bool("once", false, "run the pipeline once and exit (same semantics as the scheduled run)")
	flag.Parse()

	cfgPath := os.Getenv("SA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if raw := os.Getenv("SA_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
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

	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	sheets := &tabular.Store{Repo: store}
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default feature switches failed", zap.Error(err))
	}
	if err := service.EnsureSourceSchemas(context.Background(), sheets, cfg.Sources); err != nil {
		logger.Warn("seed source schemas failed", zap.Error(err))
	}
	ledger := &service.ErrorLedgerService{Repo: store, Logger: logger}
	pipelineSvc := &service.PipelineService{
		Repo:      store,
		Source:    sheets,
		Ledger:    ledger,
		Flags:     settingsSvc,
		Logger:    logger,
		Sources:   cfg.Sources,
		Pipeline:  cfg.Pipeline,
		Retention: cfg.Retention,
	}

	if *runOnce {
		if _, err := pipelineSvc.Run(context.Background(), service.TriggerManual); err != nil {
			logger.Error("pipeline run failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

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
	archiveHandler := &handler.ArchiveHandler{Repo: store, Logger: logger}
	archiveHandler.Register(engine)
	pipelineHandler := &handler.PipelineHandler{Service: pipelineSvc, Repo: store, Logger: logger}
	pipelineHandler.Register(engine)
	sourcesHandler := &handler.SourcesHandler{Store: sheets, Repo: store, Logger: logger}
	sourcesHandler.Register(engine)
	errorsHandler := &handler.ErrorsHandler{Repo: store}
	errorsHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Settings: settingsSvc}
	settingsHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err := cronRunner.Add(cfg.Cron.Pipeline, func(ctx context.Context) {
			if _, err := pipelineSvc.Run(ctx, service.TriggerCron); err != nil {
				if errors.Is(err, service.ErrPipelineDisabled) {
					logger.Info("scheduled pipeline run skipped, switch is off")
					return
				}
				logger.Warn("cron pipeline run failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register pipeline failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)
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

// corsMiddleware advertises permissive cross-origin access; the archive is
// consumed by a separately hosted frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
