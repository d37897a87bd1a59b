package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adityapallipati/voice-agent/internal/appointments"
	"github.com/adityapallipati/voice-agent/internal/audit"
	"github.com/adityapallipati/voice-agent/internal/auth"
	"github.com/adityapallipati/voice-agent/internal/calendar"
	"github.com/adityapallipati/voice-agent/internal/callbacks"
	"github.com/adityapallipati/voice-agent/internal/calls"
	"github.com/adityapallipati/voice-agent/internal/config"
	"github.com/adityapallipati/voice-agent/internal/dispatch"
	"github.com/adityapallipati/voice-agent/internal/httpapi"
	"github.com/adityapallipati/voice-agent/internal/intent"
	"github.com/adityapallipati/voice-agent/internal/llm"
	"github.com/adityapallipati/voice-agent/internal/notify"
	"github.com/adityapallipati/voice-agent/internal/orchestrator"
	"github.com/adityapallipati/voice-agent/internal/prompts"
	"github.com/adityapallipati/voice-agent/internal/reporting"
	"github.com/adityapallipati/voice-agent/internal/telephony"
	"github.com/adityapallipati/voice-agent/pkg/logger"
	"github.com/adityapallipati/voice-agent/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	completer, err := llm.NewAnthropicClient(cfg.LLM)
	if err != nil {
		log.Error("llm init failed", "err", err)
		os.Exit(1)
	}

	promptStore := prompts.NewStore(prompts.NewPostgresRepo(db), rdb)
	classifier := intent.NewClassifier(promptStore, completer, cfg.Business.DefaultRegion)

	provider := telephony.NewVAPIProvider(cfg.Voice)
	calendarClient := calendar.NewHTTPClient(cfg.Calendar)
	smsGateway := notify.NewSMSGateway(cfg.SMS)

	apptService := appointments.NewService(appointments.NewPostgresRepo(db), calendarClient, smsGateway)
	cbRepo := callbacks.NewPostgresRepo(db)
	cbService := callbacks.NewService(cbRepo, cfg.Business.DefaultRegion)
	sweeper := callbacks.NewSweeper(cbRepo, promptStore, completer, provider, cfg.Scheduler, cfg.Business, log)

	tracker := calls.NewTracker(calls.NewPostgresRepo(db), cfg.Scheduler.StalenessWindow)
	dispatcher := dispatch.NewDispatcher(dispatch.NewPostgresKeyStore(db))
	auditService := audit.NewService(audit.NewPostgresRepo(db))
	reportService := reporting.NewService(reporting.NewPostgresRepo(db))

	engine := orchestrator.NewEngine(tracker, classifier, dispatcher,
		apptService, cbService, sweeper, provider, promptStore, completer, cfg.Business, log)

	handlers := httpapi.Handlers{
		Auth:         authManager,
		Engine:       engine,
		Appointments: apptService,
		Callbacks:    cbService,
		Sweeper:      sweeper,
		Calls:        tracker,
		Prompts:      promptStore,
		Reports:      reportService,
		Audit:        auditService,
	}

	// Background schedules: callback sweep and stale call reaping.
	sched := cron.New()
	_, err = sched.AddFunc("@every "+cfg.Scheduler.SweepInterval.String(), func() {
		res, err := sweeper.RunSweep(rootCtx)
		if err != nil {
			log.Error("callback sweep failed", "err", err)
			return
		}
		if res.Due > 0 {
			log.Info("callback sweep finished", "due", res.Due, "placed", res.Placed,
				"rescheduled", res.Rescheduled, "exhausted", res.Exhausted)
			summary := fmt.Sprintf("scheduled sweep: due=%d placed=%d rescheduled=%d exhausted=%d",
				res.Due, res.Placed, res.Rescheduled, res.Exhausted)
			if err := auditService.LogCallbackSweep(rootCtx, "", "", "", summary); err != nil {
				log.Warn("audit write failed", "err", err)
			}
		}
	})
	if err != nil {
		log.Error("sweep schedule failed", "err", err)
		os.Exit(1)
	}
	_, err = sched.AddFunc("@every "+cfg.Scheduler.StalenessWindow.String(), func() {
		if _, err := engine.ReapStale(rootCtx); err != nil {
			log.Error("stale call reap failed", "err", err)
		}
	})
	if err != nil {
		log.Error("reap schedule failed", "err", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, routeConfig{
		authMW:        auth.RequireAccessToken(authManager),
		webhookSecret: cfg.Voice.WebhookSecret,
		redis:         rdb,
		maxConcurrent: cfg.Scheduler.MaxConcurrentCalls,
		capTTL:        cfg.Scheduler.CallTimeout,
		db:            db,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
