package checkpoint

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/devcrew/internal/cache"
	"github.com/BaSui01/devcrew/internal/database"
)

// Config selects and configures a checkpoint backend.
type Config struct {
	// 存储类型: memory, file, redis, sql；为空表示不保存检查点
	Type string `yaml:"type" json:"type" env:"TYPE"`

	// 文件存储目录
	Dir string `yaml:"dir" json:"dir" env:"DIR"`

	// Redis 键前缀
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`

	// Redis 过期时间
	TTL time.Duration `yaml:"ttl" json:"ttl" env:"TTL"`

	Redis    cache.Config    `yaml:"redis" json:"redis" env:"REDIS"`
	Database database.Config `yaml:"database" json:"database" env:"DATABASE"`
}

// NewStore creates the backend named by cfg.Type. An empty type yields a nil
// store, meaning checkpointing is disabled. Stores returned here own their
// connections; release them with Close.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Type {
	case "":
		return nil, nil
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeFile:
		store, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case TypeRedis:
		client, err := cache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL, logger), nil
	case TypeSQL:
		db, err := database.Open(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return newOwnedSQLStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported checkpoint store type: %s", cfg.Type)
	}
}

// newOwnedSQLStore wraps db, closing it when the table cannot be migrated.
func newOwnedSQLStore(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	store, err := NewSQLStore(db, logger)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return store, nil
}
