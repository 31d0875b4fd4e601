package db

import "time"

// Relation 区分点赞与收藏两种用户-文章关系。
type Relation string

const (
	RelationLike    Relation = "like"
	RelationCollect Relation = "collect"
)

// Valid 报告关系类型是否受支持。
func (r Relation) Valid() bool {
	return r == RelationLike || r == RelationCollect
}

// CounterColumn 返回该关系在 articles 表上对应的冗余计数列。
func (r Relation) CounterColumn() string {
	switch r {
	case RelationLike:
		return "like_count"
	case RelationCollect:
		return "collect_count"
	default:
		return ""
	}
}

// Engagement 记录一条用户对文章的点赞或收藏边。
// (user_id, article_id, relation) 上的唯一索引是并发下防止重复边的唯一手段。
type Engagement struct {
	ID        uint     `gorm:"primaryKey"`
	UserID    uint     `gorm:"not null;uniqueIndex:idx_engagement_edge"`
	ArticleID uint     `gorm:"not null;uniqueIndex:idx_engagement_edge;index"`
	Relation  Relation `gorm:"size:16;not null;uniqueIndex:idx_engagement_edge"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (Engagement) TableName() string {
	return "article_engagements"
}
