package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payoutgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RiskProfiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_risk_profiles_total",
		Help: "Risk profile evaluations by resulting level",
	}, []string{"level"})

	LimitEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_limit_evaluations_total",
		Help: "Limit evaluations by outcome",
	}, []string{"outcome", "adapted"})

	LimitViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_limit_violations_total",
		Help: "Limit violations by type",
	}, []string{"type"})

	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_escalations_total",
		Help: "Detected risk escalations by type",
	}, []string{"type"})

	TransitionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_transition_decisions_total",
		Help: "Transition guard decisions",
	}, []string{"transition", "outcome"})

	ApprovalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payoutgate_approval_context_fallbacks_total",
		Help: "Approval contexts that fell back to manual review after an error",
	})

	CoolingDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_cooling_denials_total",
		Help: "Withdrawal requests refused during a cooling period",
	}, []string{"level"})

	WithdrawalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payoutgate_withdrawal_transitions_total",
		Help: "Withdrawal status changes",
	}, []string{"to"})
)
