package risk

import (
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
)

// Route maps a tier to approval routing. Only LOW is auto-approve eligible.
func Route(level model.RiskLevel) (model.ApprovalRouting, bool) {
	if level == model.RiskLow {
		return model.RoutingAutoApproveEligible, false
	}
	return model.RoutingManualReviewRequired, true
}

// ApprovalContextFor builds the routing view of a profile.
func ApprovalContextFor(p *model.UserRiskProfile, now time.Time) model.ApprovalContext {
	routing, requiresReason := Route(p.RiskLevel)
	return model.ApprovalContext{
		UserID:         p.UserID,
		RiskLevel:      p.RiskLevel,
		RiskScore:      p.OverallScore,
		ActiveSignals:  p.SignalTypes(),
		Routing:        routing,
		RequiresReason: requiresReason,
		ComputedAt:     now,
	}
}

// FallbackApprovalContext is the fail-safe used when the profile cannot be computed.
func FallbackApprovalContext(userID string, cause error, now time.Time) model.ApprovalContext {
	reason := "risk profile unavailable"
	if cause != nil {
		reason = cause.Error()
	}
	return model.ApprovalContext{
		UserID:         userID,
		RiskLevel:      model.RiskMedium,
		ActiveSignals:  []model.SignalType{},
		Routing:        model.RoutingManualReviewRequired,
		RequiresReason: true,
		Fallback:       true,
		FallbackReason: reason,
		ComputedAt:     now,
	}
}
