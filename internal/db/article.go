package db

import "gorm.io/gorm"

// Article 定义了文章模型。正文等字段由文章管理模块维护，这里只关心计数。
// 计数字段是边关系的冗余聚合，LikeCount 等于指向该文章的点赞边数量，CollectCount 同理。
type Article struct {
	gorm.Model
	UserID       uint `gorm:"index"`
	Title        string
	Summary      string
	LikeCount    int64 `gorm:"not null;default:0"`
	CollectCount int64 `gorm:"not null;default:0"`
	ViewCount    int64 `gorm:"not null;default:0"`
	CommentCount int64 `gorm:"not null;default:0"`
}

// IsLive 报告文章是否存在且未被软删除。
func (a *Article) IsLive() bool {
	return a != nil && a.ID != 0 && !a.DeletedAt.Valid
}
