package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// FeedConfig 聚合 / 合并 / 分页缓存参数
type FeedConfig struct {
	Locale            string        `mapstructure:"locale"`
	MergeWindow       time.Duration `mapstructure:"merge_window"`
	BadgeThreshold    int           `mapstructure:"badge_threshold"`
	SummaryOrder      []string      `mapstructure:"summary_order"`
	MaxDetails        int           `mapstructure:"max_details"`
	DisplayLimit      int           `mapstructure:"display_limit"`
	LiveFeedMax       int           `mapstructure:"live_feed_max"`
	RecentWindow      time.Duration `mapstructure:"recent_window"`
	RecentLimit       int           `mapstructure:"recent_limit"`
	PhotoRecency      time.Duration `mapstructure:"photo_recency"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MinPollInterval   time.Duration `mapstructure:"min_poll_interval"`
	MaxPollInterval   time.Duration `mapstructure:"max_poll_interval"`
	PageSize          int           `mapstructure:"page_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	MaxPhotoAge       time.Duration `mapstructure:"max_photo_age"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	TrackBatchSize    int           `mapstructure:"track_batch_size"`
	ActivityRetention time.Duration `mapstructure:"activity_retention"`
	SweepSchedule     string        `mapstructure:"sweep_schedule"`
	SessionIdle       time.Duration `mapstructure:"session_idle"`
}

// UpstreamConfig 公共 API 访问参数
type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"` // 含 %s 占位，替换为酒店域名
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryCount  int           `mapstructure:"retry_count"`
	RateLimit   float64       `mapstructure:"rate_limit"` // 每秒请求数
	Burst       int           `mapstructure:"burst"`
	Concurrency int           `mapstructure:"concurrency"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Load 读取 config/config.yaml（可选）并允许 FEED_ 前缀环境变量覆盖
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom 从指定文件加载；path 为空时按默认搜索路径查找
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验关键参数
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("feed.page_size must be positive")
	}
	if c.Feed.MergeWindow <= 0 {
		return fmt.Errorf("feed.merge_window must be positive")
	}
	if c.Feed.MinPollInterval > c.Feed.MaxPollInterval {
		return fmt.Errorf("feed.min_poll_interval exceeds feed.max_poll_interval")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:feed.db?cache=shared")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("feed.locale", "pt-BR")
	v.SetDefault("feed.merge_window", time.Hour)
	v.SetDefault("feed.badge_threshold", 5)
	v.SetDefault("feed.summary_order", []string{"groups", "rooms", "badges", "figure", "motto", "photos"})
	v.SetDefault("feed.max_details", 5)
	v.SetDefault("feed.display_limit", 30)
	v.SetDefault("feed.live_feed_max", 200)
	v.SetDefault("feed.recent_window", 12*time.Hour)
	v.SetDefault("feed.recent_limit", 200)
	v.SetDefault("feed.photo_recency", 24*time.Hour)
	v.SetDefault("feed.poll_interval", 10*time.Second)
	v.SetDefault("feed.min_poll_interval", 5*time.Second)
	v.SetDefault("feed.max_poll_interval", 30*time.Second)
	v.SetDefault("feed.page_size", 50)
	v.SetDefault("feed.cache_ttl", 24*time.Hour)
	v.SetDefault("feed.max_photo_age", 7*24*time.Hour)
	v.SetDefault("feed.fetch_timeout", 10*time.Second)
	v.SetDefault("feed.track_batch_size", 10)
	v.SetDefault("feed.activity_retention", 48*time.Hour)
	v.SetDefault("feed.sweep_schedule", "*/30 * * * *")
	v.SetDefault("feed.session_idle", 30*time.Minute)

	v.SetDefault("upstream.base_url", "https://www.habbo.%s")
	v.SetDefault("upstream.timeout", 8*time.Second)
	v.SetDefault("upstream.retry_count", 2)
	v.SetDefault("upstream.rate_limit", 10.0)
	v.SetDefault("upstream.burst", 10)
	v.SetDefault("upstream.concurrency", 10)
	v.SetDefault("upstream.user_agent", "habbo-feed/1.0")

	v.SetDefault("jwt.issuer", "habbo-feed")

	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.traces_sample_rate", 0.0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "habbo-feed")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.insecure", true)
}
