package dao

import (
	"context"
	"errors"
	"fmt"

	"github.com/quillpost/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var counterColumns = map[string]struct{}{
	"like_count":    {},
	"collect_count": {},
	"view_count":    {},
	"comment_count": {},
}

// articleDAO 文章数据访问实现
type articleDAO struct {
	db *gorm.DB
}

// NewArticleDAO 创建文章DAO实例，传入事务句柄即可在事务内使用。
func NewArticleDAO(gdb *gorm.DB) ArticleDAO {
	return &articleDAO{db: gdb}
}

func (d *articleDAO) Get(ctx context.Context, id uint) (*db.Article, error) {
	return d.first(d.db.WithContext(ctx), id)
}

func (d *articleDAO) GetForUpdate(ctx context.Context, id uint) (*db.Article, error) {
	return d.first(d.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (d *articleDAO) first(query *gorm.DB, id uint) (*db.Article, error) {
	var article db.Article
	if err := query.Unscoped().First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &article, nil
}

func (d *articleDAO) AdjustCounter(ctx context.Context, id uint, column string, delta int64) (bool, error) {
	if _, ok := counterColumns[column]; !ok {
		return false, fmt.Errorf("unknown counter column %q", column)
	}

	expr := gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", column), delta, delta)
	result := d.db.WithContext(ctx).
		Model(&db.Article{}).
		Unscoped().
		Where("id = ?", id).
		UpdateColumn(column, expr)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (d *articleDAO) SetEngagementCounts(ctx context.Context, id uint, likes, collects int64) error {
	result := d.db.WithContext(ctx).
		Model(&db.Article{}).
		Unscoped().
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"like_count":    likes,
			"collect_count": collects,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *articleDAO) ListByIDs(ctx context.Context, ids []uint) ([]db.Article, error) {
	if len(ids) == 0 {
		return []db.Article{}, nil
	}

	var articles []db.Article
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (d *articleDAO) Totals(ctx context.Context) (ArticleTotals, error) {
	var totals ArticleTotals
	if err := d.db.WithContext(ctx).
		Model(&db.Article{}).
		Select("COUNT(*) AS articles, COALESCE(SUM(view_count), 0) AS views").
		Scan(&totals).Error; err != nil {
		return ArticleTotals{}, err
	}
	return totals, nil
}
