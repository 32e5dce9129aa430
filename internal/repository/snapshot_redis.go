package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rachelfoods/payoutgate/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps the approval-time risk snapshot of each withdrawal.
type RedisSnapshotStore struct {
	client *RedisClient
	ttl    time.Duration
	prefix string
}

func NewRedisSnapshotStore(client *RedisClient, ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisSnapshotStore{client: client, ttl: ttl, prefix: "risk_snapshot:"}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap model.RiskSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Client.Set(ctx, s.prefix+snap.WithdrawalID, payload, s.ttl).Err()
}

func (s *RedisSnapshotStore) Load(ctx context.Context, withdrawalID string) (*model.RiskSnapshot, error) {
	raw, err := s.client.Client.Get(ctx, s.prefix+withdrawalID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap model.RiskSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
