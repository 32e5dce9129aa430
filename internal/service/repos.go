package service

import (
	"context"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/shopspring/decimal"
)

// WithdrawalRepo is the withdrawal history the engine reads, plus the
// compare-and-swap status write owned by the lifecycle service.
type WithdrawalRepo interface {
	Create(ctx context.Context, w *model.Withdrawal) error
	GetByID(ctx context.Context, id string) (*model.Withdrawal, error)
	ListByUser(ctx context.Context, userID string, since *time.Time) ([]model.Withdrawal, error)
	AggregateSince(ctx context.Context, userID string, since time.Time, statuses []model.WithdrawalStatus) (int, decimal.Decimal, error)
	UpdateStatus(ctx context.Context, id string, from, to model.WithdrawalStatus, patch model.StatusPatch) (*model.Withdrawal, error)
}

type PolicyRepo interface {
	Create(ctx context.Context, p *model.WithdrawalPolicy) error
	Get(ctx context.Context, id string) (*model.WithdrawalPolicy, error)
	List(ctx context.Context, filter model.PolicyFilter) ([]model.WithdrawalPolicy, error)
	Update(ctx context.Context, p *model.WithdrawalPolicy) error
	Delete(ctx context.Context, id string) error
	// FindEnabled returns (nil, nil) when nothing matches.
	FindEnabled(ctx context.Context, scope model.PolicyScope, role, currency string) (*model.WithdrawalPolicy, error)
}

type SnapshotStore interface {
	Save(ctx context.Context, snap model.RiskSnapshot) error
	Load(ctx context.Context, withdrawalID string) (*model.RiskSnapshot, error)
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter model.AuditFilter) ([]*model.AuditLog, error)
}

// UserDirectory knows which user ids exist. AccountManager satisfies it.
type UserDirectory interface {
	GetByID(id string) (*model.Account, bool)
}

// EscalationPublisher fans escalations out to live subscribers.
type EscalationPublisher interface {
	Publish(decision model.RiskEscalationDecision)
}

// Clock returns the current time; services take one so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
