package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/internal/cache"
	"github.com/BaSui01/devcrew/types"
)

var (
	// ErrSessionNotFound is returned when a session has no stored state.
	ErrSessionNotFound = errors.New("memory session not found")
	// ErrNoteNotFound is returned when a session exists but the note key does not.
	ErrNoteNotFound = errors.New("memory note not found")
)

// Store keeps per-session conversation history and notes.
type Store interface {
	// AppendMessage appends msg to the session history, creating the session if needed.
	AppendMessage(ctx context.Context, sessionID string, msg types.Message) error
	// Messages returns the session history in append order.
	Messages(ctx context.Context, sessionID string) ([]types.Message, error)
	// SaveNote stores value under key, replacing any previous value.
	SaveNote(ctx context.Context, sessionID, key, value string) error
	// Note returns the value stored under key.
	Note(ctx context.Context, sessionID, key string) (string, error)
	// Clear removes everything stored for the session.
	Clear(ctx context.Context, sessionID string) error
}

// Close releases store's connections when it holds any. A nil store is fine.
func Close(store Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Backend types.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Config 记忆服务配置
type Config struct {
	// 存储类型: memory, redis；为空表示不启用
	Type string `yaml:"type" json:"type" env:"TYPE"`

	// Redis 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`

	// 会话过期时间（仅 Redis）
	TTL time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`

	// 每个会话保留的最大消息数，0 表示不限制
	MaxMessages int `yaml:"max_messages" json:"max_messages" env:"MAX_MESSAGES"`

	Redis cache.Config `yaml:"redis" json:"redis" env:"REDIS"`
}

// NewStore creates the backend named by cfg.Type. An empty type yields a nil
// store. Stores returned here own their connections; release them with Close.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case TypeMemory:
		return NewInMemoryStore(cfg.MaxMessages), nil
	case TypeRedis:
		client, err := cache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, RedisOptions{
			KeyPrefix:   cfg.KeyPrefix,
			TTL:         cfg.TTL,
			MaxMessages: cfg.MaxMessages,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported memory store type: %s", cfg.Type)
	}
}
