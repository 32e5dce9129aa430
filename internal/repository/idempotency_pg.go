package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rachelfoods/payoutgate/internal/middleware"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyKey is the postgres row behind PostgresIdempotencyStore.
type IdempotencyKey struct {
	Key          string    `gorm:"primaryKey;type:text"`
	StatusCode   int       `gorm:"not null;default:0"`
	ResponseBody []byte    `gorm:"type:bytea"`
	Processing   bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

type PostgresIdempotencyStore struct {
	db *gorm.DB
}

func NewPostgresIdempotencyStore(db *gorm.DB) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db}
}

func (s *PostgresIdempotencyStore) GetOrLock(key string) (*middleware.IdempotencyRecord, bool) {
	ctx := context.Background()
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&IdempotencyKey{Key: key, Processing: true, CreatedAt: time.Now().UTC()})
	if res.Error == nil && res.RowsAffected > 0 {
		return nil, false
	}

	var row IdempotencyKey
	if err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return nil, false
	}
	return &middleware.IdempotencyRecord{
		Status:     row.StatusCode,
		Body:       row.ResponseBody,
		CreatedAt:  row.CreatedAt,
		Processing: row.Processing,
	}, true
}

func (s *PostgresIdempotencyStore) Save(key string, status int, body []byte) {
	s.db.WithContext(context.Background()).
		Model(&IdempotencyKey{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{
			"status_code":   status,
			"response_body": body,
			"processing":    false,
		})
}

func (s *PostgresIdempotencyStore) Unlock(key string) {
	s.db.WithContext(context.Background()).Delete(&IdempotencyKey{}, "key = ?", key)
}

// Cleanup drops keys older than the retention window.
func (s *PostgresIdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return errors.New("retention must be positive")
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&IdempotencyKey{}).Error
}
