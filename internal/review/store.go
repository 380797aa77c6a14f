package review

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aiglow/satbank/internal/domain"
)

// DefaultBatchTTL is how long a parsed batch stays reviewable before the
// cache evicts it.
const DefaultBatchTTL = 1 * time.Hour

// Store holds parsed question batches in Redis between upload and
// finalization. It implements domain.TemporaryStore.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new review batch store
func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// Store writes a batch under key with the given time-to-live
func (s *Store) Store(ctx context.Context, key string, drafts []domain.QuestionDraft, ttl time.Duration) error {
	data, err := json.Marshal(drafts)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}

	return nil
}

// Load retrieves a batch. A missing key and an expired key are
// indistinguishable; both yield domain.ErrBatchNotFound.
func (s *Store) Load(ctx context.Context, key string) ([]domain.QuestionDraft, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	var drafts []domain.QuestionDraft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}

	return drafts, nil
}

// Delete removes a batch from Redis
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}

	return nil
}

// Keys enumerates stored batch keys matching the prefix
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan batch keys: %w", err)
	}

	return keys, nil
}

// TTL reports the remaining time-to-live for a key
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get batch TTL: %w", err)
	}

	return ttl, nil
}
