package dao

import (
	"context"
	"errors"

	"github.com/quillpost/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// engagementDAO 点赞/收藏边的数据访问实现
type engagementDAO struct {
	db *gorm.DB
}

// NewEngagementDAO 创建边关系DAO实例
func NewEngagementDAO(gdb *gorm.DB) EngagementDAO {
	return &engagementDAO{db: gdb}
}

func (d *engagementDAO) Find(ctx context.Context, relation db.Relation, userID, articleID uint) (*db.Engagement, error) {
	var edge db.Engagement
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ? AND relation = ?", userID, articleID, relation).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &edge, nil
}

func (d *engagementDAO) Insert(ctx context.Context, edge *db.Engagement) (bool, error) {
	result := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "article_id"}, {Name: "relation"}},
		DoNothing: true,
	}).Create(edge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (d *engagementDAO) Delete(ctx context.Context, relation db.Relation, userID, articleID uint) (bool, error) {
	result := d.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ? AND relation = ?", userID, articleID, relation).
		Delete(&db.Engagement{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (d *engagementDAO) Count(ctx context.Context, relation db.Relation, articleID uint) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&db.Engagement{}).
		Where("article_id = ? AND relation = ?", articleID, relation).
		Count(&count).Error
	return count, err
}

func (d *engagementDAO) ListByUser(ctx context.Context, relation db.Relation, userID uint) ([]db.Engagement, error) {
	var edges []db.Engagement
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND relation = ?", userID, relation).
		Order("created_at DESC, id DESC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}
	return edges, nil
}
