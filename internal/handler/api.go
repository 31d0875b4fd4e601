package handler

import (
	"context"
	"net/http"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
	"github.com/quillpost/internal/scheduler"
	"github.com/quillpost/internal/service"
	"gorm.io/gorm"
)

type engagementProvider interface {
	Toggle(ctx context.Context, relation db.Relation, articleID, userID uint) (bool, error)
	Like(ctx context.Context, articleID, userID uint) error
	Unlike(ctx context.Context, articleID, userID uint) error
	Collect(ctx context.Context, articleID, userID uint) error
	Uncollect(ctx context.Context, articleID, userID uint) error
	Status(ctx context.Context, articleID, userID uint) (service.EngagementStatus, error)
	ListEngaged(ctx context.Context, relation db.Relation, userID uint) ([]db.Article, error)
	ReconcileCounters(ctx context.Context, articleID uint) (*db.Article, error)
}

type accessRecorder interface {
	Record(ctx context.Context, articleID uint, userID *uint, r *http.Request)
}

type statisticsReader interface {
	RecentStatistics(ctx context.Context, days int) ([]db.SiteStatistic, error)
}

type totalsProvider interface {
	Totals(ctx context.Context) (service.SiteTotals, error)
}

type statisticsRefresher interface {
	Refresh(ctx context.Context)
	Status() scheduler.Status
	RefreshDays() int
}

type authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*db.User, error)
}

// Services lists the collaborators the HTTP layer delegates to.
type Services struct {
	DB         *gorm.DB
	Engagement engagementProvider
	Access     accessRecorder
	Statistics statisticsReader
	Dashboard  totalsProvider
	Task       statisticsRefresher
	Auth       authenticator
	Logger     logger.Logger
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	engagement engagementProvider
	access     accessRecorder
	statistics statisticsReader
	dashboard  totalsProvider
	task       statisticsRefresher
	auth       authenticator
	log        logger.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(s Services) *API {
	log := s.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &API{
		db:         s.DB,
		engagement: s.Engagement,
		access:     s.Access,
		statistics: s.Statistics,
		dashboard:  s.Dashboard,
		task:       s.Task,
		auth:       s.Auth,
		log:        log,
	}
}

// DB exposes the underlying gorm instance for health checks.
func (a *API) DB() *gorm.DB {
	return a.db
}
