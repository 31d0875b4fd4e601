package dao

import (
	"context"
	"time"

	"github.com/quillpost/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type statisticsDAO struct {
	db *gorm.DB
}

// NewStatisticsDAO 创建每日统计DAO实例
func NewStatisticsDAO(gdb *gorm.DB) StatisticsDAO {
	return &statisticsDAO{db: gdb}
}

// Upsert 依赖 statistic_date 唯一索引，重复执行只覆盖计数，不会产生第二行。
// 写入后按日期重新读取，row 中的 ID 与 CreatedAt 与库中一致。
func (d *statisticsDAO) Upsert(ctx context.Context, row *db.SiteStatistic) error {
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "statistic_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"pv", "uv", "new_users", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return err
	}

	// 冲突更新时 created_at 保留首次写入的值
	var stored db.SiteStatistic
	if err := d.db.WithContext(ctx).Where("statistic_date = ?", row.StatisticDate).First(&stored).Error; err != nil {
		return err
	}
	*row = stored
	return nil
}

func (d *statisticsDAO) ListBetween(ctx context.Context, from, to string) ([]db.SiteStatistic, error) {
	var rows []db.SiteStatistic
	err := d.db.WithContext(ctx).
		Where("statistic_date >= ? AND statistic_date <= ?", from, to).
		Order("statistic_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
