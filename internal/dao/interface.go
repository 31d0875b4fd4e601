package dao

import (
	"context"
	"time"

	"github.com/quillpost/internal/db"
)

// ArticleDAO 文章计数相关的数据访问接口
type ArticleDAO interface {
	// Get 读取文章，软删除的文章同样返回，由调用方判断 IsLive。
	Get(ctx context.Context, id uint) (*db.Article, error)
	// GetForUpdate 在事务内读取文章并加行锁（sqlite 下为空操作）。
	GetForUpdate(ctx context.Context, id uint) (*db.Article, error)
	// AdjustCounter 以单条 SQL 原子地调整计数，结果下限为 0；返回是否命中文章。
	AdjustCounter(ctx context.Context, id uint, column string, delta int64) (bool, error)
	// SetEngagementCounts 直接写入点赞与收藏计数，用于对账修复。
	SetEngagementCounts(ctx context.Context, id uint, likes, collects int64) error
	ListByIDs(ctx context.Context, ids []uint) ([]db.Article, error)
	Totals(ctx context.Context) (ArticleTotals, error)
}

// ArticleTotals 汇总未删除文章的数量与浏览量。
type ArticleTotals struct {
	Articles int64
	Views    int64
}

// EngagementDAO 点赞/收藏边的数据访问接口
type EngagementDAO interface {
	Find(ctx context.Context, relation db.Relation, userID, articleID uint) (*db.Engagement, error)
	// Insert 依赖唯一索引插入边，返回 false 表示边已存在（包括并发插入）。
	Insert(ctx context.Context, edge *db.Engagement) (bool, error)
	// Delete 删除边，返回 false 表示边不存在。
	Delete(ctx context.Context, relation db.Relation, userID, articleID uint) (bool, error)
	Count(ctx context.Context, relation db.Relation, articleID uint) (int64, error)
	ListByUser(ctx context.Context, relation db.Relation, userID uint) ([]db.Engagement, error)
}

// UserDAO 用户数据访问接口
type UserDAO interface {
	GetByUsername(ctx context.Context, username string) (*db.User, error)
	CountCreatedBetween(ctx context.Context, start, end time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// AccessLogDAO 访问事件的数据访问接口
type AccessLogDAO interface {
	Append(ctx context.Context, entry *db.AccessLog) error
	// CountBetween 统计 [start, end) 内的事件数，articleID 为空时统计全站。
	CountBetween(ctx context.Context, articleID *uint, start, end time.Time) (int64, error)
}

// StatisticsDAO 每日统计表的数据访问接口
type StatisticsDAO interface {
	// Upsert 按日期插入或覆盖 pv/uv/new_users。
	Upsert(ctx context.Context, row *db.SiteStatistic) error
	// ListBetween 返回 [from, to] 闭区间内的统计行，按日期升序。
	ListBetween(ctx context.Context, from, to string) ([]db.SiteStatistic, error)
}
