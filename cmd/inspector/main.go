// Command inspector prints what the engine thinks about one user: the live
// risk profile, the cooling period, the effective and adaptive policy and a
// limit simulation. History comes from postgres (-dsn or PAYOUTGATE_DATABASE_DSN)
// or from a JSON fixture file (-fixture) for offline analysis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/rachelfoods/payoutgate/internal/config"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/pkg/logger"
	"github.com/rachelfoods/payoutgate/internal/repository"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/rachelfoods/payoutgate/internal/service"
	"github.com/shopspring/decimal"
)

// fixture is the offline input format.
type fixture struct {
	Withdrawals []model.Withdrawal       `json:"withdrawals"`
	Policies    []model.WithdrawalPolicy `json:"policies"`
}

type report struct {
	UserID          string                       `json:"user_id"`
	EvaluatedAt     time.Time                    `json:"evaluated_at"`
	Profile         *model.UserRiskProfile       `json:"profile"`
	Cooling         model.CoolingPeriodResult    `json:"cooling_period"`
	Approval        model.ApprovalContext        `json:"approval_context"`
	EffectivePolicy *model.EffectivePolicy       `json:"effective_policy"`
	AdaptivePolicy  *model.AdaptivePolicy        `json:"adaptive_policy,omitempty"`
	Simulation      *model.LimitEvaluationResult `json:"simulation,omitempty"`
}

func main() {
	var (
		userID   = flag.String("user", "", "user id to inspect (required)")
		role     = flag.String("role", model.RoleSeller, "role used for policy resolution")
		currency = flag.String("currency", "INR", "currency used for policy resolution")
		amount   = flag.String("amount", "", "simulate a withdrawal of this amount")
		dsn      = flag.String("dsn", "", "postgres DSN; overrides config")
		path     = flag.String("fixture", "", "JSON file with withdrawals and policies")
		at       = flag.String("at", "", "evaluate as of this RFC3339 time (default now)")
	)
	flag.Parse()

	if *userID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	now := time.Now().UTC()
	if *at != "" {
		if now, err = time.Parse(time.RFC3339, *at); err != nil {
			log.Fatalf("Invalid -at: %v", err)
		}
	}
	clock := func() time.Time { return now }

	ctx := context.Background()
	withdrawals, policies, err := openRepos(ctx, cfg, *path)
	if err != nil {
		log.Fatalf("Failed to open repositories: %v", err)
	}

	adaptive, err := cfg.AdaptiveTable()
	if err != nil {
		log.Fatalf("Invalid adaptive config: %v", err)
	}
	lookback := time.Duration(cfg.Risk.HistoryLookbackDays) * 24 * time.Hour
	engine := service.NewRiskEngine(withdrawals, cfg.CoolingRules(), lookback).WithClock(clock)
	policySvc := service.NewPolicyService(policies).WithClock(clock)
	limits := service.NewLimitEvaluator(policySvc, withdrawals, adaptive).WithClock(clock)

	assessment, err := engine.Assess(ctx, *userID)
	if err != nil {
		log.Fatalf("Risk assessment failed: %v", err)
	}
	out := report{
		UserID:      *userID,
		EvaluatedAt: now,
		Profile:     assessment.Profile,
		Cooling:     assessment.Cooling,
		Approval:    risk.ApprovalContextFor(assessment.Profile, now),
	}

	roleName := strings.ToUpper(*role)
	if out.EffectivePolicy, err = policySvc.Resolve(ctx, roleName, *currency); err != nil {
		log.Fatalf("Policy resolution failed: %v", err)
	}
	if out.AdaptivePolicy, err = limits.AdaptivePolicy(ctx, roleName, *currency, risk.ContextOf(assessment.Profile)); err != nil {
		log.Fatalf("Adaptive policy failed: %v", err)
	}

	if *amount != "" {
		amt, err := decimal.NewFromString(*amount)
		if err != nil {
			log.Fatalf("Invalid -amount: %v", err)
		}
		out.Simulation, err = limits.Evaluate(ctx, service.EvaluateInput{
			UserID:   *userID,
			Amount:   amt,
			Currency: *currency,
			Role:     roleName,
			Risk:     risk.ContextOf(assessment.Profile),
		})
		if err != nil {
			log.Fatalf("Simulation failed: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

func openRepos(ctx context.Context, cfg *config.Config, path string) (service.WithdrawalRepo, service.PolicyRepo, error) {
	if path == "" && cfg.Database.DSN != "" {
		// 只读检查，不做迁移
		cfg.Database.AutoMigrate = false
		db, err := repository.NewDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresWithdrawalRepo(db), repository.NewPostgresPolicyRepo(db), nil
	}

	withdrawals := repository.NewMemoryWithdrawalRepo()
	policies := repository.NewMemoryPolicyRepo()
	if path == "" {
		fmt.Fprintln(os.Stderr, "no -fixture or database configured; inspecting an empty history")
		return withdrawals, policies, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i := range fx.Withdrawals {
		if err := withdrawals.Create(ctx, &fx.Withdrawals[i]); err != nil {
			return nil, nil, fmt.Errorf("load withdrawal %s: %w", fx.Withdrawals[i].ID, err)
		}
	}
	for i := range fx.Policies {
		p := &fx.Policies[i]
		if p.ID == "" {
			p.ID = fmt.Sprintf("fixture-%d", i+1)
		}
		if err := policies.Create(ctx, p); err != nil {
			return nil, nil, fmt.Errorf("load policy %s: %w", p.Name, err)
		}
	}
	return withdrawals, policies, nil
}
