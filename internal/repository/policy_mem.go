package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/rachelfoods/payoutgate/internal/model"
)

type MemoryPolicyRepo struct {
	mu       sync.RWMutex
	policies map[string]model.WithdrawalPolicy
}

func NewMemoryPolicyRepo() *MemoryPolicyRepo {
	return &MemoryPolicyRepo{policies: make(map[string]model.WithdrawalPolicy)}
}

func sameScope(a, b *model.WithdrawalPolicy) bool {
	return a.ScopeType == b.ScopeType && a.Currency == b.Currency && a.Role == b.Role
}

// conflictLocked reports another enabled policy on p's scope. Caller holds mu.
func (r *MemoryPolicyRepo) conflictLocked(p *model.WithdrawalPolicy) bool {
	if !p.Enabled {
		return false
	}
	for id, other := range r.policies {
		if id != p.ID && other.Enabled && sameScope(&other, p) {
			return true
		}
	}
	return false
}

func (r *MemoryPolicyRepo) Create(_ context.Context, p *model.WithdrawalPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictLocked(p) {
		return model.ErrPolicyConflict
	}
	stored := *p
	stored.PolicyLimits = p.PolicyLimits.Clone()
	r.policies[p.ID] = stored
	return nil
}

func (r *MemoryPolicyRepo) Get(_ context.Context, id string) (*model.WithdrawalPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	if !ok {
		return nil, model.ErrPolicyNotFound
	}
	p.PolicyLimits = p.PolicyLimits.Clone()
	return &p, nil
}

func (r *MemoryPolicyRepo) List(_ context.Context, filter model.PolicyFilter) ([]model.WithdrawalPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.WithdrawalPolicy, 0, len(r.policies))
	for _, p := range r.policies {
		if filter.ScopeType != "" && p.ScopeType != filter.ScopeType {
			continue
		}
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.Currency != "" && p.Currency != filter.Currency {
			continue
		}
		if filter.Enabled != nil && p.Enabled != *filter.Enabled {
			continue
		}
		p.PolicyLimits = p.PolicyLimits.Clone()
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryPolicyRepo) Update(_ context.Context, p *model.WithdrawalPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.policies[p.ID]
	if !ok {
		return model.ErrPolicyNotFound
	}
	if r.conflictLocked(p) {
		return model.ErrPolicyConflict
	}
	stored := *p
	stored.PolicyLimits = p.PolicyLimits.Clone()
	stored.CreatedAt = existing.CreatedAt
	stored.CreatedBy = existing.CreatedBy
	r.policies[p.ID] = stored
	return nil
}

func (r *MemoryPolicyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[id]; !ok {
		return model.ErrPolicyNotFound
	}
	delete(r.policies, id)
	return nil
}

func (r *MemoryPolicyRepo) FindEnabled(_ context.Context, scope model.PolicyScope, role, currency string) (*model.WithdrawalPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.policies {
		if !p.Enabled || p.ScopeType != scope || p.Currency != currency {
			continue
		}
		if scope == model.ScopeRole && p.Role != role {
			continue
		}
		p.PolicyLimits = p.PolicyLimits.Clone()
		return &p, nil
	}
	return nil, nil
}
