package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"animesanta/internal/bot"
	"animesanta/internal/cache"
	"animesanta/internal/client/shikimori"
	"animesanta/internal/config"
	cronrunner "animesanta/internal/cron"
	"animesanta/internal/db"
	"animesanta/internal/handler"
	"animesanta/internal/logger"
	"animesanta/internal/notify"
	"animesanta/internal/ops"
	"animesanta/internal/paas"
	"animesanta/internal/repository"
	gormrepository "animesanta/internal/repository/gorm"
	"animesanta/internal/repository/memory"
	"animesanta/internal/restriction"
	"animesanta/internal/santa"
	"animesanta/internal/scheduler"
	"animesanta/internal/session"
	"animesanta/internal/transport"
	"animesanta/internal/transport/telegram"

	_ "animesanta/docs"
)

func main() {
	cfgPath := os.Getenv("SANTA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SANTA_ENV_ONLY"); envOnlyRaw != "" {
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
	if cfg.AdminAPIUnprotected() {
		logger.Warn("server.admin_token is empty; the admin API accepts any bearer token", zap.String("env", cfg.App.Env))
	}

	var (
		store  repository.Repository
		dbConn *db.DB
	)
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		logger.Warn("db dsn is empty; using in-memory store, data is lost on restart")
		store = memory.New()
	} else {
		dbConn, err = db.Open(cfg.DB)
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
		store = gormrepository.New(dbConn.Gorm)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheStore := cache.New(cfg.Cache, logger)
	if rs, ok := cacheStore.(*cache.RedisStore); ok {
		if err := rs.Ping(ctx); err != nil {
			logger.Warn("redis ping failed", zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		}
		defer rs.Close()
	}

	paasClient := paas.NewClient(cfg.Paas.BaseURL, cfg.Paas.APIKey)
	baseCtx := ctx
	if paasClient != nil {
		baseCtx = paas.WithClient(ctx, paasClient)
	}

	tg, err := telegram.New(cfg.Telegram.Token, logger.Named("telegram"), cfg.Telegram.PollTimeout)
	if err != nil {
		logger.Fatal("telegram init failed", zap.Error(err))
	}
	username := cfg.Telegram.BotUsername
	if username == "" {
		if username, err = tg.Username(ctx); err != nil {
			logger.Warn("bot username lookup failed; join links will be incomplete", zap.Error(err))
		}
	}

	out := transport.WithRetry(tg, transport.PolicyFromConfig(cfg.Retry), logger.Named("transport"))
	notifier := &notify.Notifier{Transport: out, Logger: logger, DateLayout: cfg.Santa.DateLayout}
	reporter := &ops.Reporter{
		Logger:         logger.Named("ops"),
		Paas:           paasClient,
		Notifier:       notifier,
		OperatorChatID: cfg.Telegram.OperatorChatID,
	}

	metadata := &shikimori.Cached{
		Next:   shikimori.NewClient(&http.Client{Timeout: cfg.Shikimori.Timeout}, cfg.Shikimori.BaseURL, cfg.Shikimori.UserAgent),
		Cache:  cacheStore,
		TTL:    cfg.Shikimori.CacheTTL,
		Logger: logger,
	}
	loc := cfg.Santa.Location()

	santaBot := &bot.Bot{
		Repo:      store,
		Sessions:  &session.Store{Cache: cacheStore, TTL: cfg.Santa.SessionTTL},
		Notifier:  notifier,
		Validator: &restriction.Validator{Metadata: metadata, Logger: logger},
		Reporter:  reporter,
		Logger:    logger.Named("bot"),
		Settings: bot.Settings{
			BotUsername:    username,
			DateLayout:     cfg.Santa.DateLayout,
			Location:       loc,
			Gaps:           santa.GapRule{MinDays: cfg.Santa.MinGapDays, MaxDays: cfg.Santa.MaxGapDays},
			MinReviewWords: cfg.Santa.MinReviewWords,
		},
	}
	dispatcher := bot.NewDispatcher(santaBot.Handle, logger.Named("dispatcher"))

	sweeps := &scheduler.Scheduler{
		Repo:     store,
		Notifier: notifier,
		Reporter: reporter,
		Logger:   logger.Named("scheduler"),
		Location: loc,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(paas.RequireBearerMiddleware(cfg.Server.AdminToken))
	engine.Use(paas.InjectClientMiddleware(paasClient))
	engine.Use(paas.WriteAuditMiddleware(paasClient, logger))

	healthHandler := &handler.HealthHandler{}
	if dbConn != nil {
		healthHandler.DB = dbConn.Gorm
	}
	healthHandler.Register(engine)
	paas.RegisterDocs(engine)
	eventHandler := &handler.EventHandler{Repo: store, Location: loc}
	eventHandler.Register(engine)
	schedulerHandler := &handler.SchedulerHandler{Scheduler: sweeps}
	schedulerHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, baseCtx, loc)
	if cfg.Scheduler.Enabled {
		if _, err := cronRunner.Add("phase_sweeps", cfg.Scheduler.Cron, sweeps.Run); err != nil {
			logger.Warn("cron register phase sweeps failed", zap.Error(err))
		} else if next := config.NextRun(cfg.Scheduler.Cron, time.Now().In(loc)); !next.IsZero() {
			logger.Info("phase sweeps scheduled", zap.String("spec", cfg.Scheduler.Cron), zap.Time("next_run", next))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	updates, err := tg.Updates(ctx)
	if err != nil {
		logger.Fatal("telegram polling failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(baseCtx)
	if cfg.Scheduler.Enabled && cfg.Scheduler.RunOnStart {
		g.Go(func() error {
			sweeps.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("bot polling", zap.String("username", username))
		return dispatcher.Run(gctx, updates)
	})
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("stopped")
}
