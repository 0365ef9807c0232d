package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config wardshift（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	RateLimit struct {
		// UseRedis shares windows across instances; default is the
		// per-process map.
		UseRedis bool
	}
	Extract ExtractConfig
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 生成连接串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// ExtractConfig 外部患者记录提取服务配置
type ExtractConfig struct {
	Enabled        bool   // 是否启用提取端点（默认 false）
	BaseURL        string // 提取服务地址
	APIKey         string // Bearer token（可选）
	TimeoutSeconds int    // 请求超时（秒）
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev: if DB is unavailable, wardshift will
	// fall back to the in-memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "wardshift")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.RateLimit.UseRedis = getEnv("RATELIMIT_USE_REDIS", "false") == "true"

	cfg.Extract.Enabled = getEnv("EXTRACT_ENABLED", "false") == "true"
	cfg.Extract.BaseURL = getEnv("EXTRACT_BASE_URL", "http://localhost:9090")
	cfg.Extract.APIKey = getEnv("EXTRACT_API_KEY", "")
	cfg.Extract.TimeoutSeconds = parseInt(getEnv("EXTRACT_TIMEOUT_SECONDS", "30"), 30)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
