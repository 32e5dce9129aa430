package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/handler"
	"github.com/rachelfoods/payoutgate/internal/middleware"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
	"github.com/rachelfoods/payoutgate/internal/repository"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/rachelfoods/payoutgate/internal/stream"
	"gorm.io/gorm"
)

type cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

func main() {
	// 0. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 1. Initialize Logger
	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	// Withdrawals / Policies / Audit (Postgres > Memory)
	var (
		db          *gorm.DB
		withdrawals service.WithdrawalRepo = repository.NewMemoryWithdrawalRepo()
		policies    service.PolicyRepo     = repository.NewMemoryPolicyRepo()
		auditRepo   service.AuditRepo
		idemStore   middleware.IdempotencyStore
		snapshots   service.SnapshotStore = repository.NewMemorySnapshotStore()
		cleaners    = map[string]cleaner{}
		storage     = "memory"
	)
	if cfg.Database.DSN != "" {
		db, err = repository.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Info("✅ Connected to PostgreSQL")
		storage = "postgres"
		withdrawals = repository.NewPostgresWithdrawalRepo(db)
		policies = repository.NewPostgresPolicyRepo(db)
		pgAudit := repository.NewPostgresAuditRepo(db)
		pgIdem := repository.NewPostgresIdempotencyStore(db)
		auditRepo, idemStore = pgAudit, pgIdem
		cleaners["audit"] = pgAudit
		cleaners["idempotency"] = pgIdem
	} else {
		logger.Warn("⚠️ No database configured, withdrawals and policies are kept in memory")
	}

	// Snapshots / Idempotency (Redis > Postgres > Memory)
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			snapshots = repository.NewRedisSnapshotStore(redisClient, time.Duration(cfg.Redis.SnapshotTTLHours)*time.Hour)
			idemStore = repository.NewRedisIdempotencyStore(redisClient, time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
			if auditRepo == nil {
				auditRepo = repository.NewRedisAuditRepo(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
			}
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back", "error", err)
			redisClient = nil
		}
	}
	if idemStore == nil {
		idemStore = middleware.NewMemoryIdempotencyStore(time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second)
	}

	adaptive, err := cfg.AdaptiveTable()
	if err != nil {
		log.Fatalf("Invalid adaptive config: %v", err)
	}

	// 3. Initialize Core Services
	accounts := service.NewAccountManager(cfg)
	hub := stream.NewHub(stream.DefaultBacklog)
	lookback := time.Duration(cfg.Risk.HistoryLookbackDays) * 24 * time.Hour

	engine := service.NewRiskEngine(withdrawals, cfg.CoolingRules(), lookback).WithUsers(accounts)
	policySvc := service.NewPolicyService(policies)
	limits := service.NewLimitEvaluator(policySvc, withdrawals, adaptive)
	escalation := service.NewEscalationService(engine, withdrawals, snapshots, hub,
		cfg.Escalation.BaselineMode, cfg.Escalation.ScoreDeltaThreshold)
	guard := service.NewTransitionGuard(engine, withdrawals, cfg.GuardRules())
	withdrawalSvc := service.NewWithdrawalService(withdrawals, engine, limits, escalation, guard)
	auditSvc := service.NewAuditService(auditRepo, 1000)

	// 4. Setup Router
	r := handler.NewRouter(cfg, handler.Deps{
		Accounts:    accounts,
		Engine:      engine,
		Policies:    policySvc,
		Limits:      limits,
		Escalation:  escalation,
		Guard:       guard,
		Withdrawals: withdrawalSvc,
		Audit:       auditSvc,
		Idempotency: idemStore,
		Hub:         hub,
		Storage:     storage,
	})

	// 5. Background retention cleanup
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if len(cleaners) > 0 {
		go runCleanup(ctx, cfg, cleaners)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 PayoutGate started",
			"port", cfg.Server.Port,
			"storage", storage,
			"baseline_mode", cfg.Escalation.BaselineMode,
			"read_only", cfg.Server.ReadOnly,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	auditSvc.Close()
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	logger.Info("Server exiting")
}

// runCleanup prunes idempotency keys and audit rows past their retention.
func runCleanup(ctx context.Context, cfg *config.Config, cleaners map[string]cleaner) {
	interval := time.Duration(cfg.Database.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	retention := map[string]time.Duration{
		"idempotency": time.Duration(cfg.Database.IdempotencyRetentionHours) * time.Hour,
		"audit":       time.Duration(cfg.Database.AuditRetentionDays) * 24 * time.Hour,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, c := range cleaners {
				olderThan := retention[name]
				if olderThan <= 0 {
					continue
				}
				if err := c.Cleanup(ctx, olderThan); err != nil {
					logger.LogError(ctx, err, "retention cleanup failed", "table", name)
				}
			}
		}
	}
}
