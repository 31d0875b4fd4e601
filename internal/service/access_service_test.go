package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingAccessLogs struct {
	err   error
	panic bool
	calls int
}

func (f *failingAccessLogs) Append(context.Context, *db.AccessLog) error {
	f.calls++
	if f.panic {
		panic("storage exploded")
	}
	return f.err
}

func (f *failingAccessLogs) CountBetween(context.Context, *uint, time.Time, time.Time) (int64, error) {
	return 0, f.err
}

type countingArticles struct {
	dao.ArticleDAO
	gets     int
	adjusted int
}

func (c *countingArticles) Get(_ context.Context, id uint) (*db.Article, error) {
	c.gets++
	return &db.Article{}, nil
}

func (c *countingArticles) AdjustCounter(context.Context, uint, string, int64) (bool, error) {
	c.adjusted++
	return true, nil
}

func TestRecordAppendsEventAndBumpsViews(t *testing.T) {
	gdb := setupServiceTestDB(t)
	article := createArticle(t, gdb, db.Article{Title: "viewed", ViewCount: 4})
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	svc := NewAccessService(dao.NewAccessLogDAO(gdb), dao.NewArticleDAO(gdb), nil).
		WithClock(func() time.Time { return at })

	req := httptest.NewRequest(http.MethodGet, "/articles/1", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	req.Header.Set("User-Agent", "test-agent/1.0")

	userID := uint(11)
	svc.Record(context.Background(), article.ID, &userID, req)
	svc.Record(context.Background(), article.ID, nil, req)

	var logs []db.AccessLog
	require.NoError(t, gdb.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)

	assert.Equal(t, article.ID, logs[0].ArticleID)
	assert.Equal(t, "203.0.113.7", logs[0].IPAddress)
	assert.Equal(t, "test-agent/1.0", logs[0].UserAgent)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, uint(11), *logs[0].UserID)
	assert.Nil(t, logs[1].UserID)
	assert.True(t, logs[0].CreatedAt.Equal(at))

	assert.Equal(t, int64(6), reloadArticle(t, gdb, article.ID).ViewCount)
}

func TestRecordUnknownArticleStillLogsEvent(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewAccessService(dao.NewAccessLogDAO(gdb), dao.NewArticleDAO(gdb), nil)

	req := httptest.NewRequest(http.MethodGet, "/articles/404", nil)
	svc.Record(context.Background(), 404, nil, req)

	var count int64
	require.NoError(t, gdb.Model(&db.AccessLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordSwallowsAppendFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	events := &failingAccessLogs{err: errors.New("disk full")}
	articles := &countingArticles{}
	svc := NewAccessService(events, articles, logger.NewZap(zap.New(core)))

	req := httptest.NewRequest(http.MethodGet, "/articles/1", nil)
	assert.NotPanics(t, func() {
		svc.Record(context.Background(), 1, nil, req)
	})

	assert.Equal(t, 1, events.calls)
	assert.Equal(t, 0, articles.adjusted, "view count must not move when the event was not stored")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "append access log failed", logs.All()[0].Message)
}

func TestRecordRecoversFromPanickingStore(t *testing.T) {
	events := &failingAccessLogs{panic: true}
	articles := &countingArticles{}
	svc := NewAccessService(events, articles, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), 1, nil, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, 0, articles.gets)
}

func TestRecordSkipsViewCountForDeletedArticle(t *testing.T) {
	gdb := setupServiceTestDB(t)
	article := createArticle(t, gdb, db.Article{Title: "retracted", ViewCount: 0})
	require.NoError(t, gdb.Delete(&db.Article{}, article.ID).Error)

	svc := NewAccessService(dao.NewAccessLogDAO(gdb), dao.NewArticleDAO(gdb), nil)
	svc.Record(context.Background(), article.ID, nil, httptest.NewRequest(http.MethodGet, "/", nil))

	var count int64
	require.NoError(t, gdb.Model(&db.AccessLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "the event itself is still stored")
	assert.Equal(t, int64(0), reloadArticle(t, gdb, article.ID).ViewCount)
}

func TestRecordTruncatesUserAgentOnRuneBoundary(t *testing.T) {
	gdb := setupServiceTestDB(t)
	article := createArticle(t, gdb, db.Article{Title: "wide"})
	svc := NewAccessService(dao.NewAccessLogDAO(gdb), dao.NewArticleDAO(gdb), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "a"+strings.Repeat("中", 300))
	svc.Record(context.Background(), article.ID, nil, req)

	var entry db.AccessLog
	require.NoError(t, gdb.First(&entry).Error)
	assert.LessOrEqual(t, len(entry.UserAgent), maxUserAgentLength)
	assert.True(t, utf8.ValidString(entry.UserAgent))
	assert.Equal(t, "a"+strings.Repeat("中", 170), entry.UserAgent)
}

func TestTruncateUTF8(t *testing.T) {
	assert.Equal(t, "short", truncateUTF8("short", 10))
	assert.Equal(t, "ab", truncateUTF8("ab中", 4))
	assert.Equal(t, "ab中", truncateUTF8("ab中d", 5))
	assert.Equal(t, "", truncateUTF8("中", 2))
}
