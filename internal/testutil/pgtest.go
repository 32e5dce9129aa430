// Package testutil provides shared infrastructure for integration tests.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// appTables are truncated after each integration test.
var appTables = []string{"withdrawals", "withdrawal_policies", "audit_logs", "idempotency_keys"}

// PGTest opens a gorm connection against POSTGRES_URL, runs migrate and
// returns the handle plus a cleanup function that truncates app tables.
//
//	db, cleanup := testutil.PGTest(t, repository.Migrate)
//	defer cleanup()
//
// If POSTGRES_URL is not set, the test is skipped.
func PGTest(t *testing.T, migrate func(*gorm.DB) error) (*gorm.DB, func()) {
	t.Helper()

	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("pgtest: open database: %v", err)
	}
	if migrate != nil {
		if err := migrate(db); err != nil {
			t.Fatalf("pgtest: migrate: %v", err)
		}
	}
	truncateAll(db)

	cleanup := func() {
		truncateAll(db)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup
}

func truncateAll(db *gorm.DB) {
	for _, table := range appTables {
		db.Exec("TRUNCATE TABLE " + table + " CASCADE")
	}
}

// RedisTest connects to REDIS_ADDR on a scratch DB and flushes it on cleanup.
// If REDIS_ADDR is not set, the test is skipped.
func RedisTest(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("redistest: connect: %v", err)
	}
	rdb.FlushDB(ctx)

	cleanup := func() {
		rdb.FlushDB(context.Background())
		_ = rdb.Close()
	}
	return rdb, cleanup
}
