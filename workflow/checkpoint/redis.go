package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore Redis 检查点存储
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore 创建 Redis 检查点存储，ttl 为 0 表示永不过期
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "devcrew"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With(zap.String("store", "redis_checkpoint")),
	}
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) checkpointKey(taskID string) string {
	return fmt.Sprintf("%s:checkpoint:%s", s.prefix, taskID)
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":checkpoints"
}

// Save 保存检查点并写入任务索引
func (s *RedisStore) Save(ctx context.Context, taskID string, payload []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.checkpointKey(taskID), payload, s.ttl)
		pipe.SAdd(ctx, s.indexKey(), taskID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}

	s.logger.Debug("checkpoint saved to redis",
		zap.String("task_id", taskID),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

func (s *RedisStore) Load(ctx context.Context, taskID string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Delete(ctx context.Context, taskID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.checkpointKey(taskID))
		pipe.SRem(ctx, s.indexKey(), taskID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint from redis: %w", err)
	}
	return nil
}

// List 返回索引中仍然存在数据的任务 ID，过期条目会被清理
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints from redis: %w", err)
	}

	ids := make([]string, 0, len(members))
	for _, id := range members {
		n, err := s.client.Exists(ctx, s.checkpointKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check checkpoint %s: %w", id, err)
		}
		if n == 0 {
			s.client.SRem(ctx, s.indexKey(), id)
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
