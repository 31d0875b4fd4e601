// Package scheduler 负责触发每日统计聚合。
//
// 每日定时任务与仪表盘的按需刷新都是同一个幂等聚合函数的独立调用，
// 两者之间唯一共享的状态是仅供观察的“最近一次成功”记录。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSpec 每天凌晨 1 点执行。
const DefaultSpec = "0 1 * * *"

// DefaultRefreshDays 仪表盘刷新时重算的天数。
const DefaultRefreshDays = 7

// Aggregator 是 StatisticsService 中被调度的部分。
type Aggregator interface {
	AggregateForDate(ctx context.Context, date time.Time) (db.SiteStatistic, error)
	AggregateRecentWindow(ctx context.Context, days int) error
	Today() time.Time
}

// Status 描述调度的最近运行情况，仅用于观察。
type Status struct {
	LastDailyDate    string    `json:"lastDailyDate,omitempty"`
	LastDailyAt      time.Time `json:"lastDailyAt,omitempty"`
	LastDailyError   string    `json:"lastDailyError,omitempty"`
	LastRefreshAt    time.Time `json:"lastRefreshAt,omitempty"`
	LastRefreshError string    `json:"lastRefreshError,omitempty"`
}

// StatisticsTask 管理每日聚合的 cron 触发与按需刷新。
type StatisticsTask struct {
	aggregator  Aggregator
	log         logger.Logger
	spec        string
	refreshDays int
	loc         *time.Location
	cron        *cron.Cron
	now         func() time.Time

	mu     sync.Mutex
	status Status
}

// Option 调整 StatisticsTask 的可选参数。
type Option func(*StatisticsTask)

// WithSpec 设置 cron 表达式（分 时 日 月 周）。
func WithSpec(spec string) Option {
	return func(t *StatisticsTask) {
		if spec != "" {
			t.spec = spec
		}
	}
}

// WithRefreshDays 设置按需刷新覆盖的天数。
func WithRefreshDays(days int) Option {
	return func(t *StatisticsTask) {
		if days > 0 {
			t.refreshDays = days
		}
	}
}

// WithLocation 设置 cron 计算触发时间所用的时区。
func WithLocation(loc *time.Location) Option {
	return func(t *StatisticsTask) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// NewStatisticsTask 创建调度任务，需调用 Start 才会注册定时触发。
func NewStatisticsTask(aggregator Aggregator, log logger.Logger, opts ...Option) *StatisticsTask {
	if log == nil {
		log = logger.NewNop()
	}
	t := &StatisticsTask{
		aggregator:  aggregator,
		log:         log,
		spec:        DefaultSpec,
		refreshDays: DefaultRefreshDays,
		loc:         time.Local,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	cl := cronLogger{log: t.log}
	t.cron = cron.New(
		cron.WithLocation(t.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	return t
}

// Start 注册每日任务并启动 cron。
func (t *StatisticsTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, func() {
		t.RunDaily(context.Background())
	}); err != nil {
		return fmt.Errorf("register statistics cron %q: %w", t.spec, err)
	}
	t.cron.Start()
	t.log.Info(context.Background(), "statistics scheduler started", logger.F("spec", t.spec))
	return nil
}

// Stop 停止 cron，并等待正在执行的任务结束或 ctx 到期。
func (t *StatisticsTask) Stop(ctx context.Context) {
	done := t.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		t.log.Warn(ctx, "statistics scheduler stop timed out")
	}
}

// RunDaily 聚合昨天的数据，每次触发只执行一次，失败只记录日志不重试。
func (t *StatisticsTask) RunDaily(ctx context.Context) {
	yesterday := t.aggregator.Today().AddDate(0, 0, -1)
	day := yesterday.Format(db.StatisticDateLayout)

	t.log.Info(ctx, "daily statistics aggregation started", logger.F("date", day))
	if _, err := t.aggregator.AggregateForDate(ctx, yesterday); err != nil {
		t.log.Error(ctx, "daily statistics aggregation failed", logger.F("date", day), logger.Err(err))
		t.mu.Lock()
		t.status.LastDailyError = err.Error()
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.status.LastDailyDate = day
	t.status.LastDailyAt = t.now()
	t.status.LastDailyError = ""
	t.mu.Unlock()
	t.log.Info(ctx, "daily statistics aggregation finished", logger.F("date", day))
}

// Refresh 同步重算最近的统计窗口，错误被吞掉，仪表盘继续使用已有数据。
func (t *StatisticsTask) Refresh(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			t.log.Error(ctx, "statistics refresh panicked", logger.F("panic", recovered))
		}
	}()

	err := t.aggregator.AggregateRecentWindow(ctx, t.refreshDays)

	t.mu.Lock()
	t.status.LastRefreshAt = t.now()
	if err != nil {
		t.status.LastRefreshError = err.Error()
	} else {
		t.status.LastRefreshError = ""
	}
	t.mu.Unlock()

	if err != nil {
		t.log.Warn(ctx, "statistics refresh finished with errors",
			logger.F("days", t.refreshDays),
			logger.Err(err))
	}
}

// Status 返回最近运行情况的快照。
func (t *StatisticsTask) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// RefreshDays 返回按需刷新覆盖的天数。
func (t *StatisticsTask) RefreshDays() int {
	return t.refreshDays
}
