package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

// SlotCacheRepository caches per-day free-slot listings in Redis. A nil
// client degrades to a cache that always misses.
type SlotCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSlotCacheRepository constructs a slot cache repository.
func NewSlotCacheRepository(client *redis.Client, logger *zap.Logger) *SlotCacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotCacheRepository{client: client, logger: logger}
}

func slotKey(consultantID, date string, durationMinutes int) string {
	return fmt.Sprintf("slots:%s:%s:%d", consultantID, date, durationMinutes)
}

// Get retrieves cached slots for a consultant, date and duration.
func (r *SlotCacheRepository) Get(ctx context.Context, consultantID, date string, durationMinutes int) ([]models.Slot, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	key := slotKey(consultantID, date, durationMinutes)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var slots []models.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("unmarshal cached slots for %s: %w", key, err)
	}
	return slots, nil
}

// Set stores slots with the given TTL.
func (r *SlotCacheRepository) Set(ctx context.Context, consultantID, date string, durationMinutes int, slots []models.Slot, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	key := slotKey(consultantID, date, durationMinutes)
	payload, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("marshal slots for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// InvalidateConsultant drops all cached slot listings for a consultant.
// Called whenever a booking changes that consultant's calendar.
func (r *SlotCacheRepository) InvalidateConsultant(ctx context.Context, consultantID string) error {
	if r.client == nil {
		return nil
	}

	pattern := fmt.Sprintf("slots:%s:*", consultantID)
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}
	return nil
}
