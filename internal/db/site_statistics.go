package db

import "time"

// StatisticDateLayout 是 SiteStatistic.StatisticDate 的存储格式，字典序即时间序。
const StatisticDateLayout = "2006-01-02"

// SiteStatistic 记录站点每日的 PV/UV/新增用户，每个日期至多一行。
type SiteStatistic struct {
	ID            uint   `gorm:"primaryKey"`
	StatisticDate string `gorm:"size:10;not null;uniqueIndex"`
	PV            int64  `gorm:"column:pv;not null;default:0"`
	UV            int64  `gorm:"column:uv;not null;default:0"`
	NewUsers      int64  `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (SiteStatistic) TableName() string {
	return "site_statistics"
}
