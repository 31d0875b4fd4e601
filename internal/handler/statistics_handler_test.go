package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/scheduler"
	"github.com/quillpost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingAggregator struct {
	windowCalls int
}

func (f *failingAggregator) AggregateForDate(context.Context, time.Time) (db.SiteStatistic, error) {
	return db.SiteStatistic{}, errors.New("aggregation unavailable")
}

func (f *failingAggregator) AggregateRecentWindow(context.Context, int) error {
	f.windowCalls++
	return errors.New("aggregation unavailable")
}

func (f *failingAggregator) Today() time.Time {
	return time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)
}

type statisticsStub struct {
	days int
	rows []db.SiteStatistic
	err  error
}

func (s *statisticsStub) RecentStatistics(_ context.Context, days int) ([]db.SiteStatistic, error) {
	s.days = days
	return s.rows, s.err
}

type totalsStub struct {
	totals service.SiteTotals
	err    error
}

func (s totalsStub) Totals(context.Context) (service.SiteTotals, error) {
	return s.totals, s.err
}

func statisticsRoutes(api *API, values map[string]interface{}) http.Handler {
	r := newTestRouter(values)
	admin := r.Group("/api/admin")
	admin.Use(AuthRequired(), AdminRequired())
	admin.GET("/statistics", api.GetStatistics)
	admin.POST("/statistics/refresh", api.RefreshStatistics)
	admin.POST("/articles/:articleId/reconcile", api.ReconcileArticle)
	return r
}

func TestGetStatisticsRendersWhenRefreshFails(t *testing.T) {
	aggregator := &failingAggregator{}
	stats := &statisticsStub{rows: []db.SiteStatistic{
		{StatisticDate: "2024-05-06", PV: 4, UV: 4, NewUsers: 1},
		{StatisticDate: "2024-05-07", PV: 2, UV: 2},
	}}
	api := NewAPI(Services{
		Task:       scheduler.NewStatisticsTask(aggregator, nil),
		Statistics: stats,
		Dashboard:  totalsStub{totals: service.SiteTotals{TotalArticles: 3, TotalUsers: 2, TotalViews: 40}},
	})
	r := statisticsRoutes(api, asAdmin(1))

	rr := perform(t, r, http.MethodGet, "/api/admin/statistics", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	assert.Equal(t, 1, aggregator.windowCalls)
	assert.Equal(t, scheduler.DefaultRefreshDays, stats.days)

	body := decodeBody(t, rr)
	assert.Equal(t, float64(3), body["totalArticles"])
	assert.Equal(t, float64(2), body["totalUsers"])
	assert.Equal(t, float64(40), body["totalViews"])

	points, ok := body["recentStatistics"].([]interface{})
	require.True(t, ok)
	require.Len(t, points, 2)
	first := points[0].(map[string]interface{})
	assert.Equal(t, "2024-05-06", first["date"])
	assert.Equal(t, float64(4), first["pv"])
	assert.Equal(t, float64(1), first["newUsers"])

	status := body["scheduler"].(map[string]interface{})
	assert.Contains(t, status["lastRefreshError"], "aggregation unavailable")
}

func TestGetStatisticsReadFailureIs500(t *testing.T) {
	api := NewAPI(Services{
		Task:       scheduler.NewStatisticsTask(&failingAggregator{}, nil),
		Statistics: &statisticsStub{err: errors.New("connection refused")},
		Dashboard:  totalsStub{},
	})
	r := statisticsRoutes(api, asAdmin(1))

	rr := perform(t, r, http.MethodGet, "/api/admin/statistics", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestAdminRoutesRejectNonAdmin(t *testing.T) {
	aggregator := &failingAggregator{}
	api := NewAPI(Services{Task: scheduler.NewStatisticsTask(aggregator, nil)})

	rr := perform(t, statisticsRoutes(api, asUser(2)), http.MethodPost, "/api/admin/statistics/refresh", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = perform(t, statisticsRoutes(api, nil), http.MethodPost, "/api/admin/statistics/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Equal(t, 0, aggregator.windowCalls)
}

func TestRefreshStatisticsSwallowsFailure(t *testing.T) {
	aggregator := &failingAggregator{}
	api := NewAPI(Services{Task: scheduler.NewStatisticsTask(aggregator, nil, scheduler.WithRefreshDays(3))})

	rr := perform(t, statisticsRoutes(api, asAdmin(1)), http.MethodPost, "/api/admin/statistics/refresh", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, aggregator.windowCalls)
}

func TestReconcileArticle(t *testing.T) {
	stub := &engagementStub{}
	api := NewAPI(Services{Engagement: stub})

	rr := perform(t, statisticsRoutes(api, asAdmin(1)), http.MethodPost, "/api/admin/articles/6/reconcile", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "reconcile", stub.lastAction)

	article := decodeBody(t, rr)["article"].(map[string]interface{})
	assert.Equal(t, float64(6), article["id"])
	assert.Equal(t, float64(2), article["likeCount"])

	stub.err = &service.Error{Kind: service.KindNotFound, Message: "article not found"}
	rr = perform(t, statisticsRoutes(api, asAdmin(1)), http.MethodPost, "/api/admin/articles/6/reconcile", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
