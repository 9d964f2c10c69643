package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns int
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLTTL          time.Duration
}

type StorageConfig struct {
	Driver       string // "local" or "s3"
	ExportDir    string
	PublicPrefix string
	ExternalURL  string
	ExportTTL    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TrackingConfig struct {
	Timezone     string
	SweepWorkers int
	AppURL       string
}

type JobsConfig struct {
	Token   string
	LockTTL time.Duration
	RunsTTL time.Duration
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

type AppConfig struct {
	Env       string
	Port      string
	Postgres  PostgresConfig
	Redis     RedisConfig
	S3        S3Config
	Storage   StorageConfig
	SMTP      SMTPConfig
	Tracking  TrackingConfig
	Jobs      JobsConfig
	Scheduler SchedulerConfig
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration value %q: %v", s, err)
	}
	return d
}

func Load() AppConfig {
	return AppConfig{
		Env:  getenv("APP_ENV", "production"),
		Port: getenv("APP_PORT", "8020"),
		Postgres: PostgresConfig{
			Host:         getenv("PG_HOST", "127.0.0.1"),
			Port:         mustAtoi(getenv("PG_PORT", "5432")),
			User:         getenv("PG_USER", "root"),
			Password:     getenv("PG_PASSWORD", "hello-world"),
			DBName:       getenv("PG_DB", "rentals"),
			SSLMode:      getenv("PG_SSLMODE", "disable"),
			MaxOpenConns: mustAtoi(getenv("PG_MAX_OPEN_CONNS", "20")),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "rent_tracking:"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "rent-reports"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", "reports/"),
			URLTTL:          mustDuration(getenv("S3_URL_TTL", "1h")),
		},
		Storage: StorageConfig{
			Driver:       getenv("STORAGE_DRIVER", "local"),
			ExportDir:    getenv("EXPORT_DIR", "./exports"),
			PublicPrefix: getenv("FILES_PUBLIC_PREFIX", "/files"),
			ExternalURL:  getenv("EXTERNAL_URL", ""),
			ExportTTL:    mustDuration(getenv("EXPORT_TTL", "30m")),
		},
		SMTP: SMTPConfig{
			Host:     getenv("SMTP_HOST", ""),
			Port:     mustAtoi(getenv("SMTP_PORT", "587")),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "no-reply@rentals.local"),
		},
		Tracking: TrackingConfig{
			Timezone:     getenv("APP_TIMEZONE", "Europe/Paris"),
			SweepWorkers: mustAtoi(getenv("SWEEP_WORKERS", "4")),
			AppURL:       getenv("APP_URL", "http://localhost:3000"),
		},
		Jobs: JobsConfig{
			Token:   getenv("JOB_TOKEN", ""),
			LockTTL: mustDuration(getenv("JOB_LOCK_TTL", "30m")),
			RunsTTL: mustDuration(getenv("JOB_RUNS_TTL", "720h")),
		},
		Scheduler: SchedulerConfig{
			Enabled:  mustBool(getenv("SCHEDULER_ENABLED", "false")),
			Interval: mustDuration(getenv("SCHEDULER_INTERVAL", "15m")),
		},
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (c TrackingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		zap.L().Warn("unknown APP_TIMEZONE, using UTC", zap.String("timezone", c.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}
