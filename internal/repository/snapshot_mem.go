package repository

import (
	"context"
	"sync"

	"github.com/rachelfoods/payoutgate/internal/model"
)

type MemorySnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]model.RiskSnapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]model.RiskSnapshot)}
}

func (s *MemorySnapshotStore) Save(_ context.Context, snap model.RiskSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ActiveSignals = append([]model.SignalType(nil), snap.ActiveSignals...)
	s.snaps[snap.WithdrawalID] = snap
	return nil
}

func (s *MemorySnapshotStore) Load(_ context.Context, withdrawalID string) (*model.RiskSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[withdrawalID]
	if !ok {
		return nil, model.ErrSnapshotNotFound
	}
	return &snap, nil
}
