package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/rachelfoods/payoutgate/internal/risk"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Adaptive   AdaptiveConfig   `mapstructure:"adaptive"`
	Guard      GuardConfig      `mapstructure:"guard"`
	Cooling    CoolingConfig    `mapstructure:"cooling"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Accounts   []AccountConfig  `mapstructure:"accounts"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	// When false, requests without X-Api-Key run as the first configured account.
	RequireAPIKey bool `mapstructure:"require_api_key"`
}

type DatabaseConfig struct {
	DSN                       string `mapstructure:"dsn"`
	AutoMigrate               bool   `mapstructure:"auto_migrate"`
	IdempotencyRetentionHours int    `mapstructure:"idempotency_retention_hours"`
	AuditRetentionDays        int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes    int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	SnapshotTTLHours      int    `mapstructure:"snapshot_ttl_hours"`
	AuditListKey          string `mapstructure:"audit_list_key"`
	AuditListMax          int    `mapstructure:"audit_list_max"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RiskConfig struct {
	// 0 means the whole history is scored
	HistoryLookbackDays int `mapstructure:"history_lookback_days"`
}

type AdaptiveTierConfig struct {
	MaxSingleFactor       string `mapstructure:"max_single_factor"`
	DailyAmountFactor     string `mapstructure:"daily_amount_factor"`
	WeeklyAmountFactor    string `mapstructure:"weekly_amount_factor"`
	MonthlyAmountFactor   string `mapstructure:"monthly_amount_factor"`
	DailyCountReduction   int    `mapstructure:"daily_count_reduction"`
	WeeklyCountReduction  int    `mapstructure:"weekly_count_reduction"`
	MonthlyCountReduction int    `mapstructure:"monthly_count_reduction"`
}

type AdaptiveConfig struct {
	High   AdaptiveTierConfig `mapstructure:"high"`
	Medium AdaptiveTierConfig `mapstructure:"medium"`
}

type GuardConfig struct {
	MediumCompleteMinReason int `mapstructure:"medium_complete_min_reason"`
	HighProcessMinReason    int `mapstructure:"high_process_min_reason"`
	HighCompleteMinReason   int `mapstructure:"high_complete_min_reason"`
}

type CoolingConfig struct {
	HighCooldownHours   float64 `mapstructure:"high_cooldown_hours"`
	MediumCooldownHours float64 `mapstructure:"medium_cooldown_hours"`
	MediumMinAttempts   int     `mapstructure:"medium_min_attempts"`
}

type EscalationConfig struct {
	// "persisted" compares against the approval-time snapshot, "default"
	// against the fixed LOW/30 baseline.
	BaselineMode        string `mapstructure:"baseline_mode"`
	ScoreDeltaThreshold int    `mapstructure:"score_delta_threshold"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type AccountConfig struct {
	ID        string          `mapstructure:"id"`
	Name      string          `mapstructure:"name"`
	APIKey    string          `mapstructure:"api_key"`
	Role      string          `mapstructure:"role"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

func Load() (*Config, error) {
	// .env is optional; real env vars still win over it
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// e.g. PAYOUTGATE_DATABASE_DSN
	viper.SetEnvPrefix("payoutgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_only", false)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("auth.require_api_key", true)
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("database.idempotency_retention_hours", 168)
	viper.SetDefault("database.audit_retention_days", 30)
	viper.SetDefault("database.cleanup_interval_minutes", 60)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.idempotency_ttl_seconds", 86400)
	viper.SetDefault("redis.snapshot_ttl_hours", 720)
	viper.SetDefault("redis.audit_list_key", "audit_logs")
	viper.SetDefault("redis.audit_list_max", 10000)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("risk.history_lookback_days", 0)

	viper.SetDefault("adaptive.high.max_single_factor", "0.5")
	viper.SetDefault("adaptive.high.daily_amount_factor", "0.6")
	viper.SetDefault("adaptive.high.weekly_amount_factor", "0.7")
	viper.SetDefault("adaptive.high.monthly_amount_factor", "0.8")
	viper.SetDefault("adaptive.high.daily_count_reduction", 1)
	viper.SetDefault("adaptive.high.weekly_count_reduction", 2)
	viper.SetDefault("adaptive.high.monthly_count_reduction", 3)
	viper.SetDefault("adaptive.medium.max_single_factor", "0.75")
	viper.SetDefault("adaptive.medium.daily_amount_factor", "0.8")
	viper.SetDefault("adaptive.medium.weekly_amount_factor", "0.85")
	viper.SetDefault("adaptive.medium.monthly_amount_factor", "0.9")
	viper.SetDefault("adaptive.medium.daily_count_reduction", 0)
	viper.SetDefault("adaptive.medium.weekly_count_reduction", 1)
	viper.SetDefault("adaptive.medium.monthly_count_reduction", 1)

	viper.SetDefault("guard.medium_complete_min_reason", 10)
	viper.SetDefault("guard.high_process_min_reason", 10)
	viper.SetDefault("guard.high_complete_min_reason", 20)
	viper.SetDefault("cooling.high_cooldown_hours", 12)
	viper.SetDefault("cooling.medium_cooldown_hours", 2)
	viper.SetDefault("cooling.medium_min_attempts", 2)
	viper.SetDefault("escalation.baseline_mode", "persisted")
	viper.SetDefault("escalation.score_delta_threshold", 20)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the parts of the config the engine cannot run without.
func (c *Config) Validate() error {
	switch c.Escalation.BaselineMode {
	case risk.BaselinePersisted, risk.BaselineDefault:
	default:
		return fmt.Errorf("escalation.baseline_mode must be %q or %q, got %q",
			risk.BaselinePersisted, risk.BaselineDefault, c.Escalation.BaselineMode)
	}
	if _, err := c.AdaptiveTable(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.ID == "" || a.APIKey == "" {
			return fmt.Errorf("account %q: id and api_key are required", a.Name)
		}
		if seen[a.APIKey] {
			return fmt.Errorf("account %q: duplicate api_key", a.ID)
		}
		seen[a.APIKey] = true
	}
	return nil
}

func (t AdaptiveTierConfig) factors() (risk.AdaptiveFactors, error) {
	parse := func(name, v string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", name, err)
		}
		return d, nil
	}
	var f risk.AdaptiveFactors
	var err error
	if f.MaxSingle, err = parse("max_single_factor", t.MaxSingleFactor); err != nil {
		return f, err
	}
	if f.DailyAmount, err = parse("daily_amount_factor", t.DailyAmountFactor); err != nil {
		return f, err
	}
	if f.WeeklyAmount, err = parse("weekly_amount_factor", t.WeeklyAmountFactor); err != nil {
		return f, err
	}
	if f.MonthlyAmount, err = parse("monthly_amount_factor", t.MonthlyAmountFactor); err != nil {
		return f, err
	}
	f.DailyCountReduction = t.DailyCountReduction
	f.WeeklyCountReduction = t.WeeklyCountReduction
	f.MonthlyCountReduction = t.MonthlyCountReduction
	return f, nil
}

// AdaptiveTable freezes the adaptive section into the engine's lookup table.
func (c *Config) AdaptiveTable() (risk.AdaptiveFactorTable, error) {
	high, err := c.Adaptive.High.factors()
	if err != nil {
		return risk.AdaptiveFactorTable{}, fmt.Errorf("adaptive.high: %w", err)
	}
	medium, err := c.Adaptive.Medium.factors()
	if err != nil {
		return risk.AdaptiveFactorTable{}, fmt.Errorf("adaptive.medium: %w", err)
	}
	return risk.NewAdaptiveFactorTable(high, medium)
}

func (c *Config) GuardRules() risk.GuardRules {
	return risk.GuardRules{
		MediumCompleteMinReason: c.Guard.MediumCompleteMinReason,
		HighProcessMinReason:    c.Guard.HighProcessMinReason,
		HighCompleteMinReason:   c.Guard.HighCompleteMinReason,
	}
}

func (c *Config) CoolingRules() risk.CoolingRules {
	rules := risk.DefaultCoolingRules()
	rules.HighCooldown = hours(c.Cooling.HighCooldownHours)
	rules.MediumCooldown = hours(c.Cooling.MediumCooldownHours)
	rules.MediumMinAttempts = c.Cooling.MediumMinAttempts
	return rules
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// AccountModels converts configured accounts into domain accounts.
func (c *Config) AccountModels() []*model.Account {
	out := make([]*model.Account, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		role := strings.ToUpper(strings.TrimSpace(a.Role))
		if role == "" {
			role = model.RoleSeller
		}
		out = append(out, &model.Account{
			ID:     a.ID,
			Name:   a.Name,
			ApiKey: a.APIKey,
			Role:   role,
			Rate: model.RateLimitConfig{
				QPS:   a.RateLimit.QPS,
				Burst: a.RateLimit.Burst,
			},
		})
	}
	return out
}
