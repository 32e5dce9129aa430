package model

import "time"

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Rank orders levels for escalation comparisons. Unknown levels rank below LOW.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// SignalType identifies one of the independent risk indicators.
type SignalType string

const (
	SignalFrequencyAcceleration  SignalType = "FREQUENCY_ACCELERATION"
	SignalHighFailureRate        SignalType = "HIGH_FAILURE_RATE"
	SignalAmountDeviation        SignalType = "AMOUNT_DEVIATION"
	SignalMultipleBankAccounts   SignalType = "MULTIPLE_BANK_ACCOUNTS"
	SignalRecentRejections       SignalType = "RECENT_REJECTIONS"
	SignalPolicyViolationDensity SignalType = "POLICY_VIOLATION_DENSITY"
)

// RiskSignal is computed per request and never stored.
type RiskSignal struct {
	SignalType  SignalType             `json:"signal_type"`
	Severity    RiskLevel              `json:"severity"`
	Score       int                    `json:"score"` // 0-100
	Explanation string                 `json:"explanation"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// EvaluationContext summarises the history a profile was computed from.
type EvaluationContext struct {
	TotalWithdrawals      int       `json:"total_withdrawals"`
	WithdrawalsLast7Days  int       `json:"withdrawals_last_7_days"`
	WithdrawalsLast30Days int       `json:"withdrawals_last_30_days"`
	SuccessRate           float64   `json:"success_rate"`
	FailureRate           float64   `json:"failure_rate"`
	EvaluatedAt           time.Time `json:"evaluated_at"`
}

// UserRiskProfile is derived on demand; RiskLevel is always a function of OverallScore.
type UserRiskProfile struct {
	UserID            string            `json:"user_id"`
	RiskLevel         RiskLevel         `json:"risk_level"`
	OverallScore      int               `json:"overall_score"`
	ActiveSignals     []RiskSignal      `json:"active_signals"`
	EvaluationContext EvaluationContext `json:"evaluation_context"`
}

// SignalTypes lists the active signal types in profile order.
func (p *UserRiskProfile) SignalTypes() []SignalType {
	if p == nil {
		return nil
	}
	out := make([]SignalType, 0, len(p.ActiveSignals))
	for _, s := range p.ActiveSignals {
		out = append(out, s.SignalType)
	}
	return out
}

// RiskContext is the slice of a profile the adaptive adjuster needs.
type RiskContext struct {
	RiskLevel RiskLevel `json:"risk_level"`
	RiskScore int       `json:"risk_score"`
}

// RiskSnapshot is the escalation baseline captured at approval.
type RiskSnapshot struct {
	WithdrawalID  string       `json:"withdrawal_id,omitempty"`
	UserID        string       `json:"user_id,omitempty"`
	RiskLevel     RiskLevel    `json:"risk_level"`
	RiskScore     int          `json:"risk_score"`
	ActiveSignals []SignalType `json:"active_signals"`
	SnapshotAt    time.Time    `json:"snapshot_at"`
	Source        string       `json:"source,omitempty"` // supplied | persisted | default
}

// RiskEscalationDecision is advisory only; it never blocks a withdrawal.
type RiskEscalationDecision struct {
	WithdrawalID     string           `json:"withdrawal_id,omitempty"`
	UserID           string           `json:"user_id,omitempty"`
	CurrentStatus    WithdrawalStatus `json:"current_status,omitempty"`
	Escalated        bool             `json:"escalated"`
	FromRiskLevel    RiskLevel        `json:"from_risk_level"`
	ToRiskLevel      RiskLevel        `json:"to_risk_level"`
	FromScore        int              `json:"from_score"`
	ToScore          int              `json:"to_score"`
	DeltaScore       int              `json:"delta_score"`
	NewSignals       []SignalType     `json:"new_signals"`
	EscalationType   string           `json:"escalation_type"`
	EscalationReason string           `json:"escalation_reason"`
	BaselineSource   string           `json:"baseline_source,omitempty"`
	CheckedAt        time.Time        `json:"checked_at"`
}
