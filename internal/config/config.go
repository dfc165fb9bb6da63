package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Realtime struct {
		Driver  string
		Prefix  string
		NATSURL string
	}

	GRPC struct {
		Host string
		Port string
	}

	Campus struct {
		EmailDomains []string
	}

	Discovery struct {
		LikersPageSize int
		NotifyClaimTTL time.Duration
	}
}

// DefaultEmailDomains are the institute mail domains accepted at provisioning.
var DefaultEmailDomains = []string{
	"@smail.iitm.ac.in",
	"@ds.study.iitm.ac.in",
	"@research.iitm.ac.in",
	"@iitm.ac.in",
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "production")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "campus_connect")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
	cfg.DB.User = getEnvDefault("DB_USER", "root")
	cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
	cfg.DB.Name = getEnvDefault("DB_NAME", "campus_connect")

	switch cfg.DB.Driver {
	case "postgres":
		cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
		cfg.DB.DSN = os.Getenv("POSTGRES_DSN")
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		}
	case "sqlite":
		cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "campus_connect.db")
	default:
		cfg.DB.Driver = "mysql"
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.DSN = os.Getenv("MYSQL_DSN")
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// Realtime change feed
	cfg.Realtime.Driver = strings.ToLower(getEnvDefault("REALTIME_DRIVER", "redis"))
	cfg.Realtime.Prefix = getEnvDefault("REALTIME_PREFIX", "realtime")
	cfg.Realtime.NATSURL = getEnvDefault("NATS_URL", "nats://127.0.0.1:4222")

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	cfg.Campus.EmailDomains = splitList(os.Getenv("CAMPUS_EMAIL_DOMAINS"))
	if len(cfg.Campus.EmailDomains) == 0 {
		cfg.Campus.EmailDomains = append([]string(nil), DefaultEmailDomains...)
	}

	cfg.Discovery.LikersPageSize = getEnvInt("LIKERS_PAGE_SIZE", 5)
	cfg.Discovery.NotifyClaimTTL = getEnvDuration("NOTIFY_CLAIM_TTL", 24*time.Hour)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if n, err := strconv.Atoi(getEnvDefault(k, "")); err == nil && n > 0 {
		return n
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && d > 0 {
		return d
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
