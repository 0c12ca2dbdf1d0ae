package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/types"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	KeyPrefix   string
	TTL         time.Duration
	MaxMessages int
}

// RedisStore 基于 Redis 的会话记忆
//
// 消息以 JSON 追加到 <prefix>:session:<id>:messages 列表，
// 笔记保存在 <prefix>:session:<id>:notes 哈希中。
type RedisStore struct {
	client redis.UniversalClient
	opts   RedisOptions
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "devcrew"
	}
	return &RedisStore{
		client: client,
		opts:   opts,
		logger: logger.With(zap.String("component", "memory_store_redis")),
	}
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) messagesKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:messages", s.opts.KeyPrefix, sessionID)
}

func (s *RedisStore) notesKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:notes", s.opts.KeyPrefix, sessionID)
}

func (s *RedisStore) AppendMessage(ctx context.Context, sessionID string, msg types.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := s.messagesKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.opts.MaxMessages > 0 {
			pipe.LTrim(ctx, key, int64(-s.opts.MaxMessages), -1)
		}
		if s.opts.TTL > 0 {
			pipe.Expire(ctx, key, s.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (s *RedisStore) Messages(ctx context.Context, sessionID string) ([]types.Message, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}

	raw, err := s.client.LRange(ctx, s.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	messages := make([]types.Message, 0, len(raw))
	for _, item := range raw {
		var msg types.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			s.logger.Warn("skipping malformed message", zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *RedisStore) SaveNote(ctx context.Context, sessionID, key, value string) error {
	notes := s.notesKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, notes, key, value)
		if s.opts.TTL > 0 {
			pipe.Expire(ctx, notes, s.opts.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

func (s *RedisStore) Note(ctx context.Context, sessionID, key string) (string, error) {
	value, err := s.client.HGet(ctx, s.notesKey(sessionID), key).Result()
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read note: %w", err)
	}
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return "", err
	}
	return "", ErrNoteNotFound
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.messagesKey(sessionID), s.notesKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (s *RedisStore) ensureSession(ctx context.Context, sessionID string) error {
	n, err := s.client.Exists(ctx, s.messagesKey(sessionID), s.notesKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
