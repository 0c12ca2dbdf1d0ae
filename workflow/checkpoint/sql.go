package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/devcrew/internal/database"
)

// Record is the gorm model backing SQLStore.
type Record struct {
	TaskID    string `gorm:"primaryKey;size:191"`
	Payload   string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (Record) TableName() string { return "devcrew_checkpoints" }

// SQLStore 基于 GORM 的检查点存储
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSQLStore 创建 SQL 检查点存储并自动迁移表结构
func NewSQLStore(db *gorm.DB, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate checkpoint table: %w", err)
	}
	return &SQLStore{db: db, logger: logger.With(zap.String("store", "sql_checkpoint"))}, nil
}

// Close 关闭数据库连接
func (s *SQLStore) Close() error {
	return database.Close(s.db)
}

// Save 插入或覆盖检查点
func (s *SQLStore) Save(ctx context.Context, taskID string, payload []byte) error {
	rec := Record{TaskID: taskID, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	s.logger.Debug("checkpoint saved", zap.String("task_id", taskID))
	return nil
}

func (s *SQLStore) Load(ctx context.Context, taskID string) ([]byte, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("task_id = ?", taskID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return []byte(rec.Payload), nil
}

func (s *SQLStore) Delete(ctx context.Context, taskID string) error {
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Record{}).Order("task_id").Pluck("task_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return ids, nil
}
