package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quillpost/internal/db"
)

type statisticPoint struct {
	Date     string `json:"date"`
	PV       int64  `json:"pv"`
	UV       int64  `json:"uv"`
	NewUsers int64  `json:"newUsers"`
}

func newStatisticPoints(rows []db.SiteStatistic) []statisticPoint {
	points := make([]statisticPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, statisticPoint{
			Date:     row.StatisticDate,
			PV:       row.PV,
			UV:       row.UV,
			NewUsers: row.NewUsers,
		})
	}
	return points
}

// GetStatistics 返回仪表盘数据。先同步刷新最近几天的统计，刷新失败时沿用已有数据。
func (a *API) GetStatistics(c *gin.Context) {
	ctx := c.Request.Context()
	a.task.Refresh(ctx)

	totals, err := a.dashboard.Totals(ctx)
	if err != nil {
		a.respondServiceError(c, err, "获取统计数据失败")
		return
	}

	recent, err := a.statistics.RecentStatistics(ctx, a.task.RefreshDays())
	if err != nil {
		a.respondServiceError(c, err, "获取统计数据失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalArticles":    totals.TotalArticles,
		"totalUsers":       totals.TotalUsers,
		"totalViews":       totals.TotalViews,
		"recentStatistics": newStatisticPoints(recent),
		"scheduler":        a.task.Status(),
	})
}

// RefreshStatistics 手动重算最近几天的统计。
func (a *API) RefreshStatistics(c *gin.Context) {
	a.task.Refresh(c.Request.Context())

	status := a.task.Status()
	c.JSON(http.StatusOK, gin.H{
		"message":   "统计数据刷新成功",
		"scheduler": status,
	})
}
