package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore implements the ReviewLedger interface on Redis. The key layout
// is the ledger's canonical scheme: resolved:{doc_id} holds "1"|"0" and
// resolved:{doc_id}:ts holds the RFC3339 review timestamp.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisStore creates a new Redis-backed review ledger from a redis:// URL.
func NewRedisStore(redisURL string, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, logger: logger}, nil
}

// IsReviewed reports the acknowledged state for a record. A missing key or
// backend failure reads as not-reviewed.
func (r *RedisStore) IsReviewed(ctx context.Context, docID string) bool {
	val, err := r.client.Get(ctx, FlagKey(docID)).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		r.logger.WithError(err).WithField("doc_id", docID).Warn("Ledger read failed, treating as not reviewed")
		return false
	}
	return val == "1"
}

// SetReviewed toggles the acknowledged state. Both keys change together:
// reviewing writes flag and timestamp, un-reviewing writes "0" and deletes
// the timestamp key.
func (r *RedisStore) SetReviewed(ctx context.Context, docID string, reviewed bool) error {
	pipe := r.client.TxPipeline()
	if reviewed {
		pipe.Set(ctx, FlagKey(docID), "1", 0)
		pipe.Set(ctx, TimestampKey(docID), time.Now().Format(timestampLayout), 0)
	} else {
		pipe.Set(ctx, FlagKey(docID), "0", 0)
		pipe.Del(ctx, TimestampKey(docID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set reviewed flag: %w", err)
	}
	return nil
}

// ReviewedAt returns the acknowledgment timestamp, ok=false when absent.
func (r *RedisStore) ReviewedAt(ctx context.Context, docID string) (time.Time, bool) {
	val, err := r.client.Get(ctx, TimestampKey(docID)).Result()
	if err == redis.Nil {
		return time.Time{}, false
	}
	if err != nil {
		r.logger.WithError(err).WithField("doc_id", docID).Warn("Ledger timestamp read failed")
		return time.Time{}, false
	}

	ts, err := time.Parse(timestampLayout, val)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
