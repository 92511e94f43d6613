package storage

import (
	"context"
	"encoding/json"
	"errors"

	"fadechat/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "pending:"

// StagePending stores the full message payload in Redis under its guid with a
// bounded TTL. The entry bridges the window between fanout and durable
// persistence so state-advance calls can resolve the guid before the DB row
// exists. Entries survive a failed durable write for later reconciliation and
// otherwise expire on their own.
func (s *Service) StagePending(ctx context.Context, msg *models.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.Redis.SetEx(ctx, pendingKeyPrefix+msg.Guid, data, s.PendingTTL).Err()
}

// GetPending returns nil, nil when the guid is not staged (never staged or
// already evicted/expired).
func (s *Service) GetPending(ctx context.Context, guid string) (*models.ChatMessage, error) {
	data, err := s.Redis.Get(ctx, pendingKeyPrefix+guid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Service) EvictPending(ctx context.Context, guid string) error {
	return s.Redis.Del(ctx, pendingKeyPrefix+guid).Err()
}
