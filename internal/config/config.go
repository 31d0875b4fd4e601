package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabaseDriver    string
	DatabasePath      string
	DatabaseDSN       string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	Timezone          string
	StatisticsCron    string
	RefreshDays       int
	SuperRootUserName string
	SuperRootPassword string
}

// Load 从环境变量与可选的 config.yaml 读取应用配置，并为缺失项提供安全的默认值。
// 环境变量名为键名大写且以下划线替换点号，例如 database.driver -> DATABASE_DRIVER。
func Load() (AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("listen_addr", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "quillpost.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("session_secret", "quillpost-dev-secret")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("timezone", "Local")
	v.SetDefault("statistics.cron", "0 1 * * *")
	v.SetDefault("statistics.refresh_days", 7)
	v.SetDefault("super_root.username", "")
	v.SetDefault("super_root.password", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, fmt.Errorf("read config file: %w", err)
		}
	}

	port := strings.TrimSpace(v.GetString("port"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(v.GetString("listen_addr"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("database.driver")))
	switch driver {
	case "", "sqlite":
		driver = "sqlite"
	case "postgres":
	default:
		return AppConfig{}, fmt.Errorf("unsupported database driver %q", driver)
	}

	dsn := strings.TrimSpace(v.GetString("database.dsn"))
	if driver == "postgres" && dsn == "" {
		return AppConfig{}, errors.New("database.dsn is required for the postgres driver")
	}

	refreshDays := v.GetInt("statistics.refresh_days")
	if refreshDays <= 0 {
		refreshDays = 7
	}

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabaseDriver:    driver,
		DatabasePath:      strings.TrimSpace(v.GetString("database.path")),
		DatabaseDSN:       dsn,
		SessionSecret:     strings.TrimSpace(v.GetString("session_secret")),
		GinMode:           strings.TrimSpace(v.GetString("gin_mode")),
		LogLevel:          strings.TrimSpace(v.GetString("log.level")),
		Timezone:          strings.TrimSpace(v.GetString("timezone")),
		StatisticsCron:    strings.TrimSpace(v.GetString("statistics.cron")),
		RefreshDays:       refreshDays,
		SuperRootUserName: strings.TrimSpace(v.GetString("super_root.username")),
		SuperRootPassword: strings.TrimSpace(v.GetString("super_root.password")),
	}, nil
}

// Location 解析统计使用的时区，空值或 Local 表示服务器本地时区。
func (c AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
