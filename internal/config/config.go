// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile は起動時に読み込む.envファイルのパス。
const DefaultEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// App
	AppEnv   string
	AppDebug bool

	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// Auth
	TokenTTL   time.Duration // 0の場合は無期限
	BcryptCost int

	// CORS
	CORSAllowedOrigin string

	// Cleanup
	CleanupRetentionDays int
	CleanupRunOnStart    bool
	CleanupLogPath       string

	// Redis（クリーンアップの分散ロック用。REDIS_ADDRが空なら使わない）
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Debug はエラーレスポンスに生のメッセージと発生箇所を含めるかを返す。
func (c *Config) Debug() bool {
	return c.AppDebug || c.AppEnv == "local" || c.AppEnv == "testing"
}

// Load は.envファイルと環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	return LoadWithEnvFile(DefaultEnvFile)
}

// LoadWithEnvFile は指定した.envファイルを読み込んだ上でConfigを構築する。
// ファイルが存在しない場合は無視する。既に設定済みの環境変数は上書きしない。
func LoadWithEnvFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
	}

	// Optional fields with defaults
	cfg.AppEnv = getEnvString("APP_ENV", "production")
	cfg.AppDebug = getEnvBool("APP_DEBUG", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 0)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.CleanupRetentionDays = getEnvInt("CLEANUP_RETENTION_DAYS", 30)
	cfg.CleanupRunOnStart = getEnvBool("CLEANUP_RUN_ON_START", false)
	cfg.CleanupLogPath = getEnvString("CLEANUP_LOG_PATH", "")
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	if cfg.CleanupRetentionDays <= 0 {
		return nil, fmt.Errorf("CLEANUP_RETENTION_DAYS must be positive, got %d", cfg.CleanupRetentionDays)
	}

	return cfg, nil
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

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvDuration はtime.ParseDuration形式に加え、秒数の整数も受け付ける。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
