package risk

import (
	"testing"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestGuardHighApprovedToProcessing(t *testing.T) {
	rules := DefaultGuardRules()
	p := profile(model.RiskHigh, 85, model.RiskSignal{SignalType: model.SignalRecentRejections, Severity: model.RiskHigh, Score: 85})
	req := TransitionRequest{From: model.StatusApproved, To: model.StatusProcessing}

	d := rules.EvaluateTransition(req, p, testNow)
	assert.False(t, d.Allowed)
	assert.True(t, d.RequiresAdminConfirmation)
	assert.Contains(t, d.Reason, "admin id is required")
	assert.Equal(t, []model.SignalType{model.SignalRecentRejections}, d.ActiveSignals)
	assert.Equal(t, 85, d.RiskScore)

	req.AdminID = "admin-1"
	req.Reason = "ok"
	d = rules.EvaluateTransition(req, p, testNow)
	assert.False(t, d.Allowed)
	assert.True(t, d.RequiresAdminConfirmation)
	assert.Contains(t, d.Reason, "at least 10 characters (got 2)")
	assert.NotContains(t, d.Reason, "admin id")

	req.Reason = "kyc re-verified"
	d = rules.EvaluateTransition(req, p, testNow)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.RiskHigh, d.RiskLevel)
}

func TestGuardHighProcessingToCompleted(t *testing.T) {
	rules := DefaultGuardRules()
	req := TransitionRequest{From: model.StatusProcessing, To: model.StatusCompleted, AdminID: "admin-1", Reason: "kyc re-verified"}

	d := rules.EvaluateTransition(req, profile(model.RiskHigh, 75), testNow)
	assert.False(t, d.Allowed)
	assert.Equal(t, 20, d.MinReasonLength)

	req.Reason = "bank ownership confirmed by call"
	assert.True(t, rules.EvaluateTransition(req, profile(model.RiskHigh, 75), testNow).Allowed)
}

func TestGuardDeniesIllegalEdges(t *testing.T) {
	rules := DefaultGuardRules()
	p := profile(model.RiskHigh, 85, model.RiskSignal{SignalType: model.SignalRecentRejections, Severity: model.RiskHigh, Score: 85})

	for _, req := range []TransitionRequest{
		{From: model.StatusRequested, To: model.StatusCompleted, AdminID: "admin-1", Reason: "bank ownership confirmed by call"},
		{From: model.StatusCompleted, To: model.StatusProcessing},
		{From: model.StatusRequested, To: model.StatusProcessing},
	} {
		d := rules.EvaluateTransition(req, p, testNow)
		assert.False(t, d.Allowed, "%s -> %s", req.From, req.To)
		assert.False(t, d.Guarded)
		assert.Contains(t, d.Reason, "not a valid lifecycle transition")
		assert.Equal(t, model.RiskHigh, d.RiskLevel)
		assert.Equal(t, 85, d.RiskScore)
		assert.Equal(t, []model.SignalType{model.SignalRecentRejections}, d.ActiveSignals)
	}

	// 合法的非风控边照常放行
	d := rules.EvaluateTransition(TransitionRequest{From: model.StatusRequested, To: model.StatusCancelled}, p, testNow)
	assert.True(t, d.Allowed)
	assert.Equal(t, model.RiskHigh, d.RiskLevel)
}

func TestGuardMedium(t *testing.T) {
	rules := DefaultGuardRules()
	p := profile(model.RiskMedium, 50)

	d := rules.EvaluateTransition(TransitionRequest{From: model.StatusApproved, To: model.StatusProcessing}, p, testNow)
	assert.True(t, d.Allowed)
	assert.False(t, d.RequiresAdminConfirmation)
	assert.NotEmpty(t, d.Advisory)

	d = rules.EvaluateTransition(TransitionRequest{From: model.StatusProcessing, To: model.StatusCompleted, AdminID: "admin-1"}, p, testNow)
	assert.False(t, d.Allowed)
	assert.True(t, d.RequiresAdminConfirmation)

	d = rules.EvaluateTransition(TransitionRequest{
		From: model.StatusProcessing, To: model.StatusCompleted,
		AdminID: "admin-1", Reason: "确认风险已人工复核完毕了",
	}, p, testNow)
	assert.True(t, d.Allowed, "reason length counts characters, not bytes")
}

func TestGuardLowAndUnguarded(t *testing.T) {
	rules := DefaultGuardRules()

	d := rules.EvaluateTransition(TransitionRequest{From: model.StatusProcessing, To: model.StatusCompleted}, profile(model.RiskLow, 10), testNow)
	assert.True(t, d.Allowed)
	assert.True(t, d.Guarded)

	d = rules.EvaluateTransition(TransitionRequest{From: model.StatusRequested, To: model.StatusApproved}, profile(model.RiskHigh, 99), testNow)
	assert.True(t, d.Allowed)
	assert.False(t, d.Guarded)
	assert.Equal(t, model.RiskHigh, d.RiskLevel)
}

func TestGuardUnknownTierDenied(t *testing.T) {
	d := DefaultGuardRules().EvaluateTransition(
		TransitionRequest{From: model.StatusApproved, To: model.StatusProcessing, AdminID: "admin-1", Reason: "a long enough reason here"},
		profile(model.RiskLevel("SEVERE"), 50), testNow)
	assert.False(t, d.Allowed)
	assert.True(t, d.RequiresAdminConfirmation)
	assert.Contains(t, d.Reason, "unrecognized risk level")
}
