package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"venture/internal/ceo"
	brokerclient "venture/internal/client/broker"
	executorclient "venture/internal/client/executor"
	gatewayclient "venture/internal/client/gateway"
	"venture/internal/config"
	cronrunner "venture/internal/cron"
	"venture/internal/db"
	"venture/internal/handler"
	"venture/internal/logger"
	"venture/internal/models"
	"venture/internal/phase"
	"venture/internal/repository"
	gormrepository "venture/internal/repository/gorm"
	"venture/internal/risk"
	"venture/internal/service"
	"venture/internal/trading"

	_ "venture/docs"
)

func main() {
	cfgPath := os.Getenv("VN_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("VN_ENV_ONLY"); envOnlyRaw != "" {
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

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}
	if err := seedAgentRoster(context.Background(), store); err != nil {
		logger.Warn("agent roster seed failed", zap.Error(err))
	}

	hub := service.NewStreamHub()
	activitySvc := &service.ActivityService{Repo: store, Hub: hub, Logger: logger}
	notifier := &service.Notifier{Repo: store, Logger: logger}

	executorHTTP := &http.Client{Timeout: cfg.Executor.Timeout}
	workExecutor := executorclient.NewClient(executorHTTP, cfg.Executor.BaseURL)
	brokerHTTP := &http.Client{Timeout: cfg.Broker.Timeout}
	brokerAdapter := brokerclient.NewClient(brokerHTTP, cfg.Broker.BaseURL)
	gatewayHTTP := &http.Client{Timeout: cfg.Gateway.Timeout}
	orderGateway := gatewayclient.NewClient(gatewayHTTP, cfg.Gateway.BaseURL)

	worker := &phase.Worker{
		Repo:                    store,
		Executor:                workExecutor,
		Activity:                activitySvc,
		Notifier:                notifier,
		Logger:                  logger,
		AdvanceCreatesChecklist: cfg.Phases.AdvanceCreatesChecklist,
	}
	gate := &phase.Gate{
		Repo:     store,
		Executor: workExecutor,
		Activity: activitySvc,
		Notifier: notifier,
	}
	guard := &risk.Guard{
		Repo:                  store,
		Activity:              activitySvc,
		Notifier:              notifier,
		Logger:                logger,
		DefaultMaxDrawdownPct: cfg.Risk.DefaultMaxDrawdownPct,
	}
	loop := &trading.Loop{
		Repo:               store,
		Broker:             brokerAdapter,
		Gateway:            orderGateway,
		Guard:              guard,
		Activity:           activitySvc,
		Notifier:           notifier,
		Flags:              settingsSvc,
		Logger:             logger,
		TickInterval:       cfg.TradingLoop.TickInterval,
		ProjectConcurrency: cfg.TradingLoop.ProjectConcurrency,
		MaxProjects:        cfg.TradingLoop.MaxProjects,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Settings: settingsSvc}
	healthHandler.Register(engine)
	projectHandler := &handler.ProjectHandler{Repo: store, Worker: worker}
	projectHandler.Register(engine)
	phaseHandler := &handler.PhaseHandler{Repo: store, Worker: worker}
	phaseHandler.Register(engine)
	deliverableHandler := &handler.DeliverableHandler{Repo: store, Gate: gate}
	deliverableHandler.Register(engine)
	tradingHandler := &handler.TradingHandler{Repo: store, Loop: loop, Guard: guard}
	tradingHandler.Register(engine)
	alertHandler := &handler.AlertHandler{Repo: store}
	alertHandler.Register(engine)
	activityHandler := &handler.ActivityHandler{Repo: store, Hub: hub}
	activityHandler.Register(engine)
	notificationHandler := &handler.NotificationHandler{Repo: store}
	notificationHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	_, err = cronRunner.Add("phase-monitor", "@every 1m", func(ctx context.Context) {
		if !settingsSvc.IsEnabled(ctx, service.FeaturePhaseMonitor, true) {
			return
		}
		if err := monitorActiveProjects(ctx, store, worker, logger); err != nil {
			logger.Warn("phase monitor pass failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("cron register phase monitor failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if cfg.TradingLoop.Enabled {
		go loop.Run(ctx)
	}

	if cfg.CEOReview.Enabled {
		apiKey := strings.TrimSpace(os.Getenv(cfg.CEOReview.APIKeyEnv))
		if apiKey == "" {
			logger.Warn("ceo review enabled but api key env is empty",
				zap.String("env", cfg.CEOReview.APIKeyEnv))
		} else {
			reviewer := &ceo.Reviewer{
				Repo:         store,
				Gate:         gate,
				LLM:          ceo.NewOpenAIClient(apiKey, cfg.CEOReview.Model),
				Flags:        settingsSvc,
				Logger:       logger,
				ScanInterval: cfg.CEOReview.ScanInterval,
				BatchSize:    cfg.CEOReview.BatchSize,
			}
			go reviewer.Run(ctx)
		}
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

// monitorActiveProjects logs per-project progress for active projects so
// dashboards and the activity stream stay warm even without API traffic.
func monitorActiveProjects(ctx context.Context, store *gormrepository.Store, worker *phase.Worker, logger *zap.Logger) error {
	status := "active"
	projects, err := store.ListProjects(ctx, repository.ListProjectsParams{Status: &status})
	if err != nil {
		return err
	}
	for i := range projects {
		report, err := worker.MonitorProgress(ctx, &projects[i])
		if err != nil {
			logger.Warn("progress read failed",
				zap.String("project_id", projects[i].ID),
				zap.Error(err))
			continue
		}
		for _, ph := range report.Phases {
			if ph.Status == "active" {
				logger.Debug("phase progress",
					zap.String("project_id", projects[i].ID),
					zap.Int("phase", ph.PhaseNumber),
					zap.Float64("percent_done", ph.PercentDone))
			}
		}
	}
	return nil
}

func seedAgentRoster(ctx context.Context, store *gormrepository.Store) error {
	now := time.Now().UTC()
	for _, tpl := range phase.AllTemplates() {
		agent := &models.Agent{
			ID:        uuid.NewString(),
			Code:      tpl.AgentCode,
			Name:      tpl.AgentName,
			Role:      tpl.AgentRole,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.UpsertAgent(ctx, agent); err != nil {
			return err
		}
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
