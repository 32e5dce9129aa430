package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ViolationType enumerates the limit checks.
type ViolationType string

const (
	ViolationBelowMinSingle        ViolationType = "BELOW_MIN_SINGLE"
	ViolationExceedsMaxSingle      ViolationType = "EXCEEDS_MAX_SINGLE"
	ViolationDailyCountExceeded    ViolationType = "DAILY_COUNT_EXCEEDED"
	ViolationDailyAmountExceeded   ViolationType = "DAILY_AMOUNT_EXCEEDED"
	ViolationWeeklyCountExceeded   ViolationType = "WEEKLY_COUNT_EXCEEDED"
	ViolationWeeklyAmountExceeded  ViolationType = "WEEKLY_AMOUNT_EXCEEDED"
	ViolationMonthlyCountExceeded  ViolationType = "MONTHLY_COUNT_EXCEEDED"
	ViolationMonthlyAmountExceeded ViolationType = "MONTHLY_AMOUNT_EXCEEDED"
)

type LimitViolation struct {
	ViolationType ViolationType   `json:"violation_type"`
	Message       string          `json:"message"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	LimitValue    decimal.Decimal `json:"limit_value"`
}

// WindowUsage is the consumed volume in one trailing window.
type WindowUsage struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type UsageSnapshot struct {
	Daily   WindowUsage `json:"daily"`
	Weekly  WindowUsage `json:"weekly"`
	Monthly WindowUsage `json:"monthly"`
}

type LimitEvaluationResult struct {
	Allowed         bool             `json:"allowed"`
	Violations      []LimitViolation `json:"violations"`
	PolicyApplied   *AdaptivePolicy  `json:"policy_applied"`
	Usage           *UsageSnapshot   `json:"usage,omitempty"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	Currency        string           `json:"currency"`
	EvaluatedAt     time.Time        `json:"evaluated_at"`
}

// TransitionGuardDecision always carries the live risk view, allowed or not.
type TransitionGuardDecision struct {
	Allowed                   bool             `json:"allowed"`
	FromStatus                WithdrawalStatus `json:"from_status"`
	ToStatus                  WithdrawalStatus `json:"to_status"`
	Guarded                   bool             `json:"guarded"`
	RequiresAdminConfirmation bool             `json:"requires_admin_confirmation"`
	MinReasonLength           int              `json:"min_reason_length,omitempty"`
	Reason                    string           `json:"reason"`
	Advisory                  string           `json:"advisory,omitempty"`
	RiskLevel                 RiskLevel        `json:"risk_level"`
	RiskScore                 int              `json:"risk_score"`
	ActiveSignals             []SignalType     `json:"active_signals"`
	EvaluatedAt               time.Time        `json:"evaluated_at"`
}

type ApprovalRouting string

const (
	RoutingAutoApproveEligible  ApprovalRouting = "AUTO_APPROVE_ELIGIBLE"
	RoutingManualReviewRequired ApprovalRouting = "MANUAL_REVIEW_REQUIRED"
)

// ApprovalContext never represents a failure: errors collapse into a
// MEDIUM manual-review context with Fallback set.
type ApprovalContext struct {
	UserID         string          `json:"user_id"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	RiskScore      int             `json:"risk_score"`
	ActiveSignals  []SignalType    `json:"active_signals"`
	Routing        ApprovalRouting `json:"routing"`
	RequiresReason bool            `json:"requires_reason"`
	Fallback       bool            `json:"fallback"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
	ComputedAt     time.Time       `json:"computed_at"`
}

type CoolingPeriodResult struct {
	UserID           string     `json:"user_id"`
	RiskLevel        RiskLevel  `json:"risk_level"`
	CoolingRequired  bool       `json:"cooling_required"`
	AttemptsLast24h  int        `json:"attempts_last_24h"`
	LastAttemptAt    *time.Time `json:"last_attempt_at,omitempty"`
	CooldownHours    float64    `json:"cooldown_hours,omitempty"`
	CooldownEndsAt   *time.Time `json:"cooldown_ends_at,omitempty"`
	RemainingMinutes int        `json:"remaining_minutes"`
	Reason           string     `json:"reason"`
}
