package risk

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rachelfoods/payoutgate/internal/model"
)

// GuardRules holds the minimum confirmation reason lengths per guarded edge.
type GuardRules struct {
	MediumCompleteMinReason int
	HighProcessMinReason    int
	HighCompleteMinReason   int
}

func DefaultGuardRules() GuardRules {
	return GuardRules{
		MediumCompleteMinReason: 10,
		HighProcessMinReason:    10,
		HighCompleteMinReason:   20,
	}
}

// TransitionRequest is what the caller wants to do and who confirms it.
type TransitionRequest struct {
	From    model.WithdrawalStatus
	To      model.WithdrawalStatus
	AdminID string
	Reason  string
}

// IsGuarded reports whether the edge is gated on risk.
func IsGuarded(from, to model.WithdrawalStatus) bool {
	return (from == model.StatusApproved && to == model.StatusProcessing) ||
		(from == model.StatusProcessing && to == model.StatusCompleted)
}

// ReasonLength counts runes of the trimmed reason.
func ReasonLength(reason string) int {
	return utf8.RuneCountInString(strings.TrimSpace(reason))
}

// EvaluateTransition decides whether a withdrawal may advance given the live profile.
func (r GuardRules) EvaluateTransition(req TransitionRequest, profile *model.UserRiskProfile, now time.Time) model.TransitionGuardDecision {
	d := model.TransitionGuardDecision{
		FromStatus:    req.From,
		ToStatus:      req.To,
		ActiveSignals: []model.SignalType{},
		EvaluatedAt:   now,
	}
	if profile != nil {
		d.RiskLevel = profile.RiskLevel
		d.RiskScore = profile.OverallScore
		d.ActiveSignals = profile.SignalTypes()
	}

	if !model.CanTransition(req.From, req.To) {
		d.Reason = fmt.Sprintf("%s -> %s is not a valid lifecycle transition", req.From, req.To)
		return d
	}
	if !IsGuarded(req.From, req.To) {
		d.Allowed = true
		d.Reason = "transition is not risk gated"
		return d
	}
	d.Guarded = true
	toProcessing := req.To == model.StatusProcessing

	var minReason int
	switch d.RiskLevel {
	case model.RiskLow:
		d.Allowed = true
		d.Reason = "LOW risk, no confirmation required"
		return d
	case model.RiskMedium:
		if toProcessing {
			d.Allowed = true
			d.Reason = "MEDIUM risk, processing allowed"
			d.Advisory = fmt.Sprintf("MEDIUM risk user (score %d) moved to processing without confirmation", d.RiskScore)
			return d
		}
		minReason = r.MediumCompleteMinReason
	case model.RiskHigh:
		if toProcessing {
			minReason = r.HighProcessMinReason
		} else {
			minReason = r.HighCompleteMinReason
		}
	default:
		d.RequiresAdminConfirmation = true
		d.Reason = fmt.Sprintf("unrecognized risk level %q, admin review required", d.RiskLevel)
		return d
	}

	d.RequiresAdminConfirmation = true
	d.MinReasonLength = minReason

	var missing []string
	if strings.TrimSpace(req.AdminID) == "" {
		missing = append(missing, "admin id is required")
	}
	if n := ReasonLength(req.Reason); n < minReason {
		missing = append(missing, fmt.Sprintf("confirmation reason must be at least %d characters (got %d)", minReason, n))
	}
	if len(missing) > 0 {
		d.Reason = fmt.Sprintf("%s risk %s -> %s denied: %s", d.RiskLevel, req.From, req.To, strings.Join(missing, "; "))
		return d
	}
	d.Allowed = true
	d.Reason = fmt.Sprintf("%s risk %s -> %s confirmed by admin %s", d.RiskLevel, req.From, req.To, req.AdminID)
	return d
}
