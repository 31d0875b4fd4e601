package dao

import (
	"context"
	"time"

	"github.com/quillpost/internal/db"
	"gorm.io/gorm"
)

type accessLogDAO struct {
	db *gorm.DB
}

// NewAccessLogDAO 创建访问日志DAO实例
func NewAccessLogDAO(gdb *gorm.DB) AccessLogDAO {
	return &accessLogDAO{db: gdb}
}

func (d *accessLogDAO) Append(ctx context.Context, entry *db.AccessLog) error {
	return d.db.WithContext(ctx).Create(entry).Error
}

func (d *accessLogDAO) CountBetween(ctx context.Context, articleID *uint, start, end time.Time) (int64, error) {
	query := d.db.WithContext(ctx).
		Model(&db.AccessLog{}).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC())
	if articleID != nil {
		query = query.Where("article_id = ?", *articleID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
