package service

import (
	"context"

	"github.com/quillpost/internal/dao"
)

// SiteTotals 汇总仪表盘上的全站累计数据。
type SiteTotals struct {
	TotalArticles int64
	TotalUsers    int64
	TotalViews    int64
}

// DashboardService 为后台仪表盘提供累计数据。
type DashboardService struct {
	articles dao.ArticleDAO
	users    dao.UserDAO
}

// NewDashboardService 创建 DashboardService。
func NewDashboardService(articles dao.ArticleDAO, users dao.UserDAO) *DashboardService {
	return &DashboardService{articles: articles, users: users}
}

// Totals 返回未删除文章数、用户数与文章浏览量之和。
func (s *DashboardService) Totals(ctx context.Context) (SiteTotals, error) {
	const op = "dashboard.totals"

	articleTotals, err := s.articles.Totals(ctx)
	if err != nil {
		return SiteTotals{}, internalError(op, err)
	}

	users, err := s.users.Count(ctx)
	if err != nil {
		return SiteTotals{}, internalError(op, err)
	}

	return SiteTotals{
		TotalArticles: articleTotals.Articles,
		TotalUsers:    users,
		TotalViews:    articleTotals.Views,
	}, nil
}
