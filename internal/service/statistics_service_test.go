package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newStatisticsServiceForTest(gdb *gorm.DB, now time.Time, loc *time.Location) *StatisticsService {
	return NewStatisticsService(dao.NewAccessLogDAO(gdb), dao.NewUserDAO(gdb), dao.NewStatisticsDAO(gdb), nil).
		WithLocation(loc).
		WithClock(func() time.Time { return now })
}

func seedAccessLogs(t *testing.T, gdb *gorm.DB, times ...time.Time) {
	t.Helper()
	for _, at := range times {
		require.NoError(t, gdb.Create(&db.AccessLog{ArticleID: 1, IPAddress: "192.0.2.1", CreatedAt: at}).Error)
	}
}

func seedUser(t *testing.T, gdb *gorm.DB, name string, createdAt time.Time) {
	t.Helper()
	user := db.User{Username: name, Password: "x"}
	user.CreatedAt = createdAt
	require.NoError(t, gdb.Create(&user).Error)
}

func statisticRows(t *testing.T, gdb *gorm.DB) []db.SiteStatistic {
	t.Helper()
	var rows []db.SiteStatistic
	require.NoError(t, gdb.Order("statistic_date").Find(&rows).Error)
	return rows
}

func TestAggregateForDateCountsDayWindow(t *testing.T) {
	gdb := setupServiceTestDB(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	seedAccessLogs(t, gdb,
		day,
		day.Add(8*time.Hour),
		day.Add(24*time.Hour-time.Second),
		day.Add(-time.Second),
		day.Add(24*time.Hour),
	)
	seedUser(t, gdb, "newcomer", day.Add(10*time.Hour))
	seedUser(t, gdb, "veteran", day.AddDate(0, -1, 0))

	svc := newStatisticsServiceForTest(gdb, day.AddDate(0, 0, 3), time.UTC)

	row, err := svc.AggregateForDate(context.Background(), day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", row.StatisticDate)
	assert.Equal(t, int64(3), row.PV)
	assert.Equal(t, int64(3), row.UV)
	assert.Equal(t, int64(1), row.NewUsers)

	rows := statisticRows(t, gdb)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].PV)
	assert.Equal(t, int64(3), rows[0].UV)
	assert.Equal(t, int64(1), rows[0].NewUsers)
}

func TestAggregateForDateIgnoresDeletedUsers(t *testing.T) {
	gdb := setupServiceTestDB(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	seedUser(t, gdb, "kept", day.Add(9*time.Hour))
	seedUser(t, gdb, "removed", day.Add(10*time.Hour))
	require.NoError(t, gdb.Where("username = ?", "removed").Delete(&db.User{}).Error)

	svc := newStatisticsServiceForTest(gdb, day, time.UTC)
	row, err := svc.AggregateForDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.NewUsers)
}

func TestAggregateForDateIsIdempotent(t *testing.T) {
	gdb := setupServiceTestDB(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	seedAccessLogs(t, gdb, day.Add(time.Hour), day.Add(2*time.Hour))
	svc := newStatisticsServiceForTest(gdb, day, time.UTC)

	first, err := svc.AggregateForDate(context.Background(), day)
	require.NoError(t, err)
	second, err := svc.AggregateForDate(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, first.PV, second.PV)
	assert.Equal(t, first.UV, second.UV)
	assert.Equal(t, first.NewUsers, second.NewUsers)

	rows := statisticRows(t, gdb)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].PV)
}

func TestAggregateForDatePicksUpLateEventsOnRecompute(t *testing.T) {
	gdb := setupServiceTestDB(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	svc := newStatisticsServiceForTest(gdb, day, time.UTC)

	row, err := svc.AggregateForDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), row.PV, "an empty day still produces a zero row")
	require.Len(t, statisticRows(t, gdb), 1)

	seedAccessLogs(t, gdb, day.Add(23*time.Hour))

	row, err = svc.AggregateForDate(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), row.PV)

	rows := statisticRows(t, gdb)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].PV)
}

func TestAggregateForDateUsesConfiguredLocation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	cst := time.FixedZone("CST", 8*3600)

	// 2024-05-01 01:00 CST 即 2024-04-30 17:00 UTC。
	seedAccessLogs(t, gdb, time.Date(2024, 4, 30, 17, 0, 0, 0, time.UTC))
	// 2024-04-30 23:00 CST 属于前一天。
	seedAccessLogs(t, gdb, time.Date(2024, 4, 30, 15, 0, 0, 0, time.UTC))

	svc := newStatisticsServiceForTest(gdb, time.Date(2024, 5, 2, 0, 0, 0, 0, cst), cst)

	row, err := svc.AggregateForDate(context.Background(), time.Date(2024, 5, 1, 12, 0, 0, 0, cst))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", row.StatisticDate)
	assert.Equal(t, int64(1), row.PV)
}

func TestAggregateRecentWindowAndRecentStatistics(t *testing.T) {
	gdb := setupServiceTestDB(t)
	now := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)
	seedAccessLogs(t, gdb,
		time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 7, 8, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC),
	)
	svc := newStatisticsServiceForTest(gdb, now, time.UTC)
	ctx := context.Background()

	require.NoError(t, svc.AggregateRecentWindow(ctx, 7))

	rows, err := svc.RecentStatistics(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 7)

	expected := []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04", "2024-05-05", "2024-05-06", "2024-05-07"}
	for i, row := range rows {
		assert.Equal(t, expected[i], row.StatisticDate)
	}
	assert.Equal(t, int64(1), rows[0].PV)
	assert.Equal(t, int64(0), rows[3].PV)
	assert.Equal(t, int64(2), rows[6].PV)

	require.NoError(t, svc.AggregateRecentWindow(ctx, 7))
	assert.Len(t, statisticRows(t, gdb), 7, "re-running the window must not add rows")
}

func TestRecentStatisticsDoesNotAggregate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	now := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)
	seedAccessLogs(t, gdb, now)
	svc := newStatisticsServiceForTest(gdb, now, time.UTC)

	rows, err := svc.RecentStatistics(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWindowRejectsNonPositiveDays(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := newStatisticsServiceForTest(gdb, time.Now(), time.UTC)

	assert.ErrorIs(t, svc.AggregateRecentWindow(context.Background(), 0), ErrValidation)
	_, err := svc.RecentStatistics(context.Background(), -1)
	assert.ErrorIs(t, err, ErrValidation)
}

type flakyAccessLogs struct {
	failOn time.Time
}

func (f *flakyAccessLogs) Append(context.Context, *db.AccessLog) error { return nil }

func (f *flakyAccessLogs) CountBetween(_ context.Context, _ *uint, start, _ time.Time) (int64, error) {
	if start.Equal(f.failOn) {
		return 0, errors.New("connection reset")
	}
	return 5, nil
}

type zeroUsers struct {
	dao.UserDAO
}

func (zeroUsers) CountCreatedBetween(context.Context, time.Time, time.Time) (int64, error) {
	return 0, nil
}

type recordingStatistics struct {
	mu   sync.Mutex
	rows []db.SiteStatistic
}

func (r *recordingStatistics) Upsert(_ context.Context, row *db.SiteStatistic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *row)
	return nil
}

func (r *recordingStatistics) ListBetween(context.Context, string, string) ([]db.SiteStatistic, error) {
	return nil, nil
}

func TestAggregateRecentWindowContinuesAfterFailure(t *testing.T) {
	now := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)
	badDay := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	ledger := &recordingStatistics{}

	svc := NewStatisticsService(&flakyAccessLogs{failOn: badDay}, zeroUsers{}, ledger, nil).
		WithLocation(time.UTC).
		WithClock(func() time.Time { return now })

	err := svc.AggregateRecentWindow(context.Background(), 7)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)

	require.Len(t, ledger.rows, 6)
	for _, row := range ledger.rows {
		assert.NotEqual(t, "2024-05-05", row.StatisticDate)
		assert.Equal(t, int64(5), row.PV)
	}
}
