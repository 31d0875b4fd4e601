package db

import "time"

// AccessLog 是只追加的文章访问事件，写入后不再更新或删除。
type AccessLog struct {
	ID        uint      `gorm:"primaryKey"`
	ArticleID uint      `gorm:"index"`
	UserID    *uint     `gorm:"index"`
	IPAddress string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName 指定自定义表名。
func (AccessLog) TableName() string {
	return "access_logs"
}
