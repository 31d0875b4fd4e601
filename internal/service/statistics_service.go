package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
)

// StatisticsService 把访问事件与用户注册聚合为每日 PV/UV/新增用户，
// 按日期幂等写入 site_statistics，可以随时重算。
type StatisticsService struct {
	events dao.AccessLogDAO
	users  dao.UserDAO
	stats  dao.StatisticsDAO
	log    logger.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewStatisticsService 创建 StatisticsService，默认使用本地时区切分日期。
func NewStatisticsService(events dao.AccessLogDAO, users dao.UserDAO, stats dao.StatisticsDAO, log logger.Logger) *StatisticsService {
	if log == nil {
		log = logger.NewNop()
	}
	return &StatisticsService{
		events: events,
		users:  users,
		stats:  stats,
		log:    log,
		loc:    time.Local,
		now:    time.Now,
	}
}

// WithLocation 指定日期边界所在的时区。
func (s *StatisticsService) WithLocation(loc *time.Location) *StatisticsService {
	if loc != nil {
		s.loc = loc
	}
	return s
}

// WithClock 允许在测试中固定“今天”。
func (s *StatisticsService) WithClock(now func() time.Time) *StatisticsService {
	if now != nil {
		s.now = now
	}
	return s
}

// Location 返回切分日期使用的时区。
func (s *StatisticsService) Location() *time.Location {
	return s.loc
}

// Today 返回当前时区下今天的零点。
func (s *StatisticsService) Today() time.Time {
	return s.startOfDay(s.now())
}

func (s *StatisticsService) startOfDay(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

// AggregateForDate 统计 [当天零点, 次日零点) 内的数据并按日期写入统计表。
// UV 目前与 PV 相同，不按 IP 去重。空窗口同样写入全零的一行。
func (s *StatisticsService) AggregateForDate(ctx context.Context, date time.Time) (db.SiteStatistic, error) {
	const op = "statistics.aggregate"

	start := s.startOfDay(date)
	end := start.AddDate(0, 0, 1)
	day := start.Format(db.StatisticDateLayout)

	pv, err := s.events.CountBetween(ctx, nil, start, end)
	if err != nil {
		return db.SiteStatistic{}, internalError(op, fmt.Errorf("count page views for %s: %w", day, err))
	}
	uv := pv

	newUsers, err := s.users.CountCreatedBetween(ctx, start, end)
	if err != nil {
		return db.SiteStatistic{}, internalError(op, fmt.Errorf("count new users for %s: %w", day, err))
	}

	row := db.SiteStatistic{
		StatisticDate: day,
		PV:            pv,
		UV:            uv,
		NewUsers:      newUsers,
	}
	if err := s.stats.Upsert(ctx, &row); err != nil {
		return db.SiteStatistic{}, internalError(op, fmt.Errorf("upsert statistics for %s: %w", day, err))
	}

	s.log.Info(ctx, "statistics aggregated",
		logger.F("date", day),
		logger.F("pv", pv),
		logger.F("uv", uv),
		logger.F("new_users", newUsers))
	return row, nil
}

// AggregateRecentWindow 从今天起向前重算 days 天。单日失败只记录日志并继续，
// 返回值汇总了所有失败，便于调用方决定是否关心。
func (s *StatisticsService) AggregateRecentWindow(ctx context.Context, days int) error {
	const op = "statistics.aggregate_window"
	if days <= 0 {
		return validationError(op, "days must be positive, got %d", days)
	}

	today := s.Today()
	var failures []error
	for i := 0; i < days; i++ {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		date := today.AddDate(0, 0, -i)
		if _, err := s.AggregateForDate(ctx, date); err != nil {
			s.log.Error(ctx, "aggregate statistics failed",
				logger.F("date", date.Format(db.StatisticDateLayout)),
				logger.Err(err))
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// RecentStatistics 读取 [今天-(days-1), 今天] 的统计行，按日期升序，不触发聚合。
func (s *StatisticsService) RecentStatistics(ctx context.Context, days int) ([]db.SiteStatistic, error) {
	const op = "statistics.recent"
	if days <= 0 {
		return nil, validationError(op, "days must be positive, got %d", days)
	}

	to := s.Today()
	from := to.AddDate(0, 0, -(days - 1))

	rows, err := s.stats.ListBetween(ctx, from.Format(db.StatisticDateLayout), to.Format(db.StatisticDateLayout))
	if err != nil {
		return nil, internalError(op, err)
	}
	return rows, nil
}
