package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/quillpost/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupServiceTestDB 打开独立的内存库；单连接让并发事务像生产 sqlite 一样串行执行。
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "failed to open test db")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb), "failed to migrate test db")
	return gdb
}

func createArticle(t *testing.T, gdb *gorm.DB, article db.Article) db.Article {
	t.Helper()
	require.NoError(t, gdb.Create(&article).Error, "failed to create article")
	return article
}

func reloadArticle(t *testing.T, gdb *gorm.DB, id uint) db.Article {
	t.Helper()
	var article db.Article
	require.NoError(t, gdb.Unscoped().First(&article, id).Error)
	return article
}

func countEdges(t *testing.T, gdb *gorm.DB, relation db.Relation, articleID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, gdb.Model(&db.Engagement{}).
		Where("article_id = ? AND relation = ?", articleID, relation).
		Count(&count).Error)
	return count
}
