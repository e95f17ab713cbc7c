package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eclassbot-backend/internal/components/chrono"
	"eclassbot-backend/internal/components/configutil"
	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/components/kv"
	"eclassbot-backend/internal/components/metrics"
	"eclassbot-backend/internal/components/queue"
	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/reminder"
	"eclassbot-backend/internal/scrapers/eclass"
	"eclassbot-backend/internal/service"
	"eclassbot-backend/internal/snapshot"

	"github.com/redis/go-redis/v9"
)

type PortalConfig struct {
	BaseUrl           string  `json:"base_url"`
	LoginPath         string  `json:"login_path"`
	UserAgent         string  `json:"user_agent"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxAttempts       int     `json:"max_attempts"`
}

type TelegramConfig struct {
	Token             string  `json:"token"`
	ApiBase           string  `json:"api_base"`
	MessagesPerSecond float64 `json:"messages_per_second"`
}

type QueueConfig struct {
	// Backend is "redis" or "memory", memory is only useful for a single
	// serve process.
	Backend string `json:"backend"`
	Key     string `json:"key"`
}

type ScheduleConfig struct {
	ScrapeAll      string `json:"scrape_all"`
	ClassReminders string `json:"class_reminders"`
	DailyDigest    string `json:"daily_digest"`
}

type Config struct {
	Database    db.Config      `json:"database"`
	Redis       kv.Config      `json:"redis"`
	Portal      PortalConfig   `json:"portal"`
	Telegram    TelegramConfig `json:"telegram"`
	Queue       QueueConfig    `json:"queue"`
	Schedule    ScheduleConfig `json:"schedule"`
	Timezone    string         `json:"timezone"`
	MetricsPort int            `json:"metrics_port"`
}

func (c Config) withDefaults() Config {
	if c.Schedule.ScrapeAll == "" {
		c.Schedule.ScrapeAll = "0 */3 * * *"
	}
	if c.Schedule.ClassReminders == "" {
		c.Schedule.ClassReminders = "*/10 9-18 * * *"
	}
	if c.Schedule.DailyDigest == "" {
		c.Schedule.DailyDigest = "45 16 * * *"
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9100
	}
	if c.Queue.Backend == "" {
		c.Queue.Backend = "redis"
	}
	return c
}

func (c PortalConfig) options() eclass.Options {
	retry := eclass.DefaultRetryPolicy()
	if c.MaxAttempts > 0 {
		retry.MaxAttempts = c.MaxAttempts
	}
	return eclass.Options{
		BaseUrl:           c.BaseUrl,
		LoginPath:         c.LoginPath,
		UserAgent:         c.UserAgent,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		Retry:             retry,
	}
}

// app is everything a command needs, built from the config file.
type app struct {
	cfg       Config
	sqlite    *sql.DB
	redis     *redis.Client
	q         *db.Queries
	time      chrono.StandardTime
	tel       telemetry.API
	metrics   *metrics.Metrics
	queue     queue.Queue
	dispatch  notify.Dispatcher
	service   service.Service
	reminders reminder.Reminders
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := configutil.ReadConfig[Config](configPath)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}
	cfg = cfg.withDefaults()

	tel := telemetry.SlogAPI{}
	clock, err := chrono.NewStandardTime(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	sqlite, err := cfg.Database.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	q := db.New(sqlite)

	a := &app{
		cfg:     cfg,
		sqlite:  sqlite,
		q:       q,
		time:    clock,
		tel:     tel,
		metrics: metrics.New(),
	}

	var store kv.API
	if cfg.Redis.Addr != "" {
		a.redis = kv.NewRedisClient(cfg.Redis)
		redisKV := kv.NewRedis(a.redis)
		if !redisKV.Healthy(ctx) {
			tel.ReportWarning("app.redis", "redis did not answer ping", cfg.Redis.Addr)
		}
		store = redisKV
	} else {
		tel.ReportWarning("app.redis", "no redis configured, dedupe keys live in memory")
		store = kv.NewMemory(clock)
	}

	switch {
	case cfg.Queue.Backend == "redis" && a.redis != nil:
		a.queue = queue.NewRedisQueue(a.redis, cfg.Queue.Key)
	default:
		a.queue = queue.NewInMemory(64)
	}

	var sender notify.Sender = notify.LogSender{Tel: tel}
	if cfg.Telegram.Token != "" {
		sender = notify.NewTelegram(notify.TelegramOptions{
			Token:             cfg.Telegram.Token,
			ApiBase:           cfg.Telegram.ApiBase,
			MessagesPerSecond: cfg.Telegram.MessagesPerSecond,
		}, tel)
	}
	a.dispatch = notify.NewDispatcher(store, sender, a.metrics, tel)
	snapshots := snapshot.NewStore(store, clock, tel)

	a.service = service.NewService(service.Deps{
		DB:         q,
		MakeTx:     db.NewMakeTx(sqlite),
		Portal:     eclass.NewPortal(cfg.Portal.options(), tel),
		Dispatcher: a.dispatch,
		KV:         store,
		Queue:      a.queue,
		Snapshots:  snapshots,
		Metrics:    a.metrics,
		Time:       clock,
		Tel:        tel,
	})
	a.reminders = reminder.NewReminders(q, a.dispatch, snapshots, tel)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.sqlite.Close()
}
