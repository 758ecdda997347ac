// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Jibble API
	JibbleClientID     string
	JibbleClientSecret string
	JibbleTokenURL     string
	JibbleAPIBaseURL   string
	JibbleTimeout      time.Duration

	// Token
	TokenTTLMargin time.Duration

	// Store
	StorePath string

	// Bot層認証
	APIToken string

	// Rate Limit
	RateLimitGeneral      int
	RateLimitRegistration int

	// Cache
	CacheRefreshInterval time.Duration

	// Server
	ServerPort string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（ローカル開発用）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envは存在しなくてもエラーにしない
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.JibbleClientID = os.Getenv("JIBBLE_CLIENT_ID")
	if cfg.JibbleClientID == "" {
		missing = append(missing, "JIBBLE_CLIENT_ID")
	}

	cfg.JibbleClientSecret = os.Getenv("JIBBLE_CLIENT_SECRET")
	if cfg.JibbleClientSecret == "" {
		missing = append(missing, "JIBBLE_CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JibbleTokenURL = getEnvString("JIBBLE_TOKEN_URL", "https://identity.prod.jibble.io/connect/token")
	cfg.JibbleAPIBaseURL = getEnvString("JIBBLE_API_BASE_URL", "https://workspace.prod.jibble.io/v1")
	cfg.JibbleTimeout = getEnvDuration("JIBBLE_TIMEOUT", 10*time.Second)
	// Jibbleのトークン寿命は60分。境界での競合を避けるため意図的に短く保持する。
	cfg.TokenTTLMargin = getEnvDuration("TOKEN_TTL_MARGIN", 50*time.Minute)
	cfg.StorePath = getEnvString("STORE_PATH", "dakoku-store.json")
	cfg.APIToken = getEnvString("API_TOKEN", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRegistration = getEnvInt("RATE_LIMIT_REGISTRATION", 10)
	cfg.CacheRefreshInterval = getEnvDuration("CACHE_REFRESH_INTERVAL", 1*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

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
