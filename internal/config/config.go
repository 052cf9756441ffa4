package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ストレージドライバ名
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverCSV      = "csv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageDriver string
	DatabaseURL   string
	SQLitePath    string
	DataDir       string

	// Model
	GeminiAPIKey string
	GeminiModel  string
	ModelTimeout time.Duration
	HistoryLimit int

	// Calendar
	Location *time.Location

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitChat    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}

	cfg.StorageDriver = strings.ToLower(getEnvString("STORAGE_DRIVER", DriverSQLite))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StorageDriver == DriverPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	switch cfg.StorageDriver {
	case DriverPostgres, DriverSQLite, DriverCSV:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q (want postgres, sqlite or csv)", cfg.StorageDriver)
	}

	loc, err := loadLocation(os.Getenv("TIMEZONE"))
	if err != nil {
		return nil, err
	}
	cfg.Location = loc

	// Optional fields with defaults
	cfg.SQLitePath = getEnvString("SQLITE_PATH", "data/planmate.db")
	cfg.DataDir = getEnvString("DATA_DIR", "users")
	cfg.GeminiModel = getEnvString("GEMINI_MODEL", "gemini-3-flash-preview")
	cfg.ModelTimeout = getEnvDuration("MODEL_TIMEOUT", 60*time.Second)
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 0)
	if cfg.HistoryLimit < 0 {
		cfg.HistoryLimit = 0
	}
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitChat = getEnvInt("RATE_LIMIT_CHAT", 20)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))

	return cfg, nil
}

// loadLocation は"今日"の判定に使うタイムゾーンを返す。未指定の場合はサーバーのローカル時刻。
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
