// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"telegram-credit-ledger/internal/application"
	"telegram-credit-ledger/internal/config"
	"telegram-credit-ledger/internal/domain/ports/adapter"
	"telegram-credit-ledger/internal/infra/api"
	"telegram-credit-ledger/internal/infra/db"
	"telegram-credit-ledger/internal/infra/i18n"
	"telegram-credit-ledger/internal/infra/logging"
	"telegram-credit-ledger/internal/infra/metrics"
	red "telegram-credit-ledger/internal/infra/redis"
	"telegram-credit-ledger/internal/infra/sched"
	"telegram-credit-ledger/internal/infra/telegram"
	"telegram-credit-ledger/internal/infra/tracing"
	"telegram-credit-ledger/internal/infra/worker"
	"telegram-credit-ledger/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (verbose logs, unredacted codes)")
	mintFor := flag.String("mint-token", "", "print an API token for the given subject and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	auth := api.NewAuthManager(cfg.API.JWTSecret, cfg.API.TokenTTL)
	if *mintFor != "" {
		tok, err := auth.Mint(*mintFor)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("tracing")
	}

	// ---- Store ----
	store, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("store")
	}
	defer store.Close()
	metrics.SetBuildInfo(version, commit, store.Driver)
	metrics.MustRegister()

	accounts := store.Accounts

	// ---- Redis (optional) ----
	var limiter usecase.AttemptLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		if cfg.Limits.RedeemAttempts > 0 {
			limiter = red.NewAttemptLimiter(redisClient, cfg.Limits.RedeemAttempts, cfg.Limits.RedeemWindow)
		}
		accounts = red.NewReportCache(accounts, redisClient, cfg.Redis.ReportTTL, logger)
	}

	// ---- Notifications ----
	var notifier adapter.Notifier = telegram.NewLogNotifier(logger)
	if cfg.Bot.Token != "" {
		bn, err := telegram.NewBotNotifier(&cfg.Bot, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		notifier = bn
	}
	translator, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	pool := worker.NewPool(cfg.Bot.Workers, logger)
	pool.Start(context.Background())

	// ---- Use cases ----
	policy := usecase.AccountPolicy{InitialCredits: cfg.Ledger.InitialCredits, ReferralBonus: cfg.Ledger.ReferralBonus}
	accountUC := usecase.NewAccountUseCase(accounts, store.Codes, store.Redemptions, store.Ledger, store.TM, policy, notifier, pool, logger).WithMessages(translator)
	codeUC := usecase.NewCodeUseCase(store.Codes, store.Redemptions, store.TM, cfg.Ledger.GeneratedCodePrefix, logger, cfg.Runtime.Dev)
	redemptionUC := usecase.NewRedemptionUseCase(accounts, store.Codes, store.Redemptions, store.Ledger, store.TM, limiter, logger, cfg.Runtime.Dev)
	statsUC := usecase.NewStatsUseCase(accounts, store.Redemptions, logger)

	// ---- Facade ----
	ledger := application.NewLedger(accountUC, codeUC, redemptionUC, statsUC)

	// ---- Cleanup job ----
	var job *sched.CleanupJob
	if cfg.Scheduler.CleanupCron != "" {
		job, err = sched.NewCleanupJob(cfg.Scheduler.CleanupCron, ledger, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler")
		}
		job.Start()
	}

	// ---- Pool gauges ----
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				store.ReportPoolStats()
			}
		}
	}()

	// ---- HTTP API ----
	srv := api.NewServer(ledger, auth, cfg.API.RequestTimeout, logger)
	httpServer := api.NewHTTPServer(cfg.API.Port, srv.Routes(), logger)
	errc := make(chan error, 1)
	go func() { errc <- httpServer.Start() }()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			logger.Error().Err(err).Msg("api server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api shutdown")
	}
	if job != nil {
		job.Stop(shutdownCtx)
	}
	pool.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracing shutdown")
	}
	logger.Info().Msg("bye")
}
