package service

import (
	"context"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
)

const maxUserAgentLength = 512

// AccessService 记录文章访问事件并累加浏览量。
// 浏览记录是页面渲染的副作用，任何失败都只写日志，不会返回给调用方。
// 事件追加与浏览量累加是两次独立写入，没有共享事务。
type AccessService struct {
	events   dao.AccessLogDAO
	articles dao.ArticleDAO
	log      logger.Logger
	now      func() time.Time
}

// NewAccessService 创建 AccessService。
func NewAccessService(events dao.AccessLogDAO, articles dao.ArticleDAO, log logger.Logger) *AccessService {
	if log == nil {
		log = logger.NewNop()
	}
	return &AccessService{
		events:   events,
		articles: articles,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock 允许在测试中固定事件时间。
func (s *AccessService) WithClock(now func() time.Time) *AccessService {
	if now != nil {
		s.now = now
	}
	return s
}

// Record 追加一条访问事件，然后在文章存在时把浏览量加一。
func (s *AccessService) Record(ctx context.Context, articleID uint, userID *uint, r *http.Request) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.log.Error(ctx, "record access panicked",
				logger.F("article_id", articleID),
				logger.F("panic", recovered))
		}
	}()

	entry := &db.AccessLog{
		ArticleID: articleID,
		UserID:    userID,
		IPAddress: ClientIP(r),
		UserAgent: userAgent(r),
		CreatedAt: s.now().UTC(),
	}

	if err := s.events.Append(ctx, entry); err != nil {
		s.log.Error(ctx, "append access log failed",
			logger.F("article_id", articleID),
			logger.Err(err))
		return
	}
	s.log.Debug(ctx, "access log recorded",
		logger.F("article_id", articleID),
		logger.F("ip", entry.IPAddress))

	article, err := s.articles.Get(ctx, articleID)
	if err != nil {
		if !errors.Is(err, dao.ErrNotFound) {
			s.log.Error(ctx, "load article for view count failed",
				logger.F("article_id", articleID),
				logger.Err(err))
		}
		return
	}
	// 已删除的文章视同不存在，只保留访问事件。
	if !article.IsLive() {
		return
	}

	if _, err := s.articles.AdjustCounter(ctx, article.ID, "view_count", 1); err != nil {
		s.log.Error(ctx, "increment view count failed",
			logger.F("article_id", articleID),
			logger.Err(err))
	}
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return truncateUTF8(r.UserAgent(), maxUserAgentLength)
}

// truncateUTF8 把 s 截断到至多 max 字节，且不会切开多字节字符。
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
