// 测试数据生成器：创建用户、文章、点赞收藏与访问记录，并聚合最近几天的统计。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/quillpost/internal/config"
	"github.com/quillpost/internal/dao"
	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/logger"
	"github.com/quillpost/internal/service"
	"gorm.io/gorm"
)

type seedOptions struct {
	Users    int
	Articles int
	Days     int
	MaxViews int
	Now      time.Time
	Location *time.Location
	Rand     *rand.Rand
}

type seedSummary struct {
	Users       int
	Articles    int
	Likes       int
	Collects    int
	AccessLogs  int
	AggregateOK bool
}

func main() {
	users := flag.Int("users", 5, "number of readers to create")
	articles := flag.Int("articles", 8, "number of articles to create")
	days := flag.Int("days", 7, "days of access history to generate")
	maxViews := flag.Int("max-views", 20, "max access events per article per day")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("时区无效:", err)
	}

	// 初始化数据库
	gdb, err := db.Init(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseDSN})
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}
	defer db.Close(gdb)

	if err := db.EnsureSuperRoot(gdb, cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatal("创建管理员失败:", err)
	}

	appLog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("日志初始化失败:", err)
	}
	defer appLog.Sync()

	fmt.Println("开始生成测试数据...")
	summary, err := seed(context.Background(), gdb, appLog, seedOptions{
		Users:    *users,
		Articles: *articles,
		Days:     *days,
		MaxViews: *maxViews,
		Now:      time.Now(),
		Location: loc,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	})
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: %d，文章: %d\n", summary.Users, summary.Articles)
	fmt.Printf("点赞: %d，收藏: %d，访问记录: %d\n", summary.Likes, summary.Collects, summary.AccessLogs)
	if !summary.AggregateOK {
		fmt.Println("部分日期的统计聚合失败，详见日志")
	}
}

// seed 写入测试数据。点赞收藏走 EngagementService，计数与边始终一致。
func seed(ctx context.Context, gdb *gorm.DB, log logger.Logger, opts seedOptions) (seedSummary, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Days <= 0 {
		opts.Days = 1
	}
	now := opts.Now.In(opts.Location)
	var summary seedSummary

	password, err := db.HashPassword("reader123")
	if err != nil {
		return summary, err
	}

	readers := make([]db.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user := db.User{
			Username: fmt.Sprintf("reader%d_%d", i+1, now.UnixNano()),
			Password: password,
			Nickname: fmt.Sprintf("读者%d", i+1),
		}
		// 注册时间分散在统计窗口内，便于观察每日新增用户。
		user.CreatedAt = now.AddDate(0, 0, -opts.Rand.Intn(opts.Days)).UTC()
		if err := gdb.WithContext(ctx).Create(&user).Error; err != nil {
			return summary, fmt.Errorf("create user: %w", err)
		}
		readers = append(readers, user)
	}
	summary.Users = len(readers)

	articles := make([]db.Article, 0, opts.Articles)
	for i := 0; i < opts.Articles; i++ {
		article := db.Article{
			Title:   fmt.Sprintf("测试文章 %d", i+1),
			Summary: "由测试数据生成器创建",
		}
		if err := gdb.WithContext(ctx).Create(&article).Error; err != nil {
			return summary, fmt.Errorf("create article: %w", err)
		}
		articles = append(articles, article)
	}
	summary.Articles = len(articles)

	engagement := service.NewEngagementService(gdb, log)
	for _, reader := range readers {
		for _, article := range articles {
			if opts.Rand.Intn(2) == 0 {
				if err := engagement.Like(ctx, article.ID, reader.ID); err != nil {
					return summary, err
				}
				summary.Likes++
			}
			if opts.Rand.Intn(3) == 0 {
				if err := engagement.Collect(ctx, article.ID, reader.ID); err != nil {
					return summary, err
				}
				summary.Collects++
			}
		}
	}

	// 访问记录直接写库以便回填历史时间，浏览量同步累加。
	events := dao.NewAccessLogDAO(gdb)
	articleStore := dao.NewArticleDAO(gdb)
	for _, article := range articles {
		for day := 0; day < opts.Days; day++ {
			views := 0
			if opts.MaxViews > 0 {
				views = opts.Rand.Intn(opts.MaxViews + 1)
			}
			base := now.AddDate(0, 0, -day)
			start := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, opts.Location)
			for v := 0; v < views; v++ {
				at := start.Add(time.Duration(opts.Rand.Int63n(int64(24 * time.Hour))))
				if at.After(now) {
					at = now
				}
				event := &db.AccessLog{
					ArticleID: article.ID,
					IPAddress: fmt.Sprintf("192.0.2.%d", opts.Rand.Intn(254)+1),
					UserAgent: "quillpost-seed/1.0",
					CreatedAt: at.UTC(),
				}
				if err := events.Append(ctx, event); err != nil {
					return summary, err
				}
				if _, err := articleStore.AdjustCounter(ctx, article.ID, "view_count", 1); err != nil {
					return summary, err
				}
				summary.AccessLogs++
			}
		}
	}

	statistics := service.NewStatisticsService(events, dao.NewUserDAO(gdb), dao.NewStatisticsDAO(gdb), log).
		WithLocation(opts.Location).
		WithClock(func() time.Time { return now })
	if err := statistics.AggregateRecentWindow(ctx, opts.Days); err != nil {
		log.Warn(ctx, "seed aggregation incomplete", logger.Err(err))
	} else {
		summary.AggregateOK = true
	}
	return summary, nil
}
