package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Env      string
	LogLevel string

	BotToken string
	OwnerID  int64
	DataDir  string

	Port          string
	AppSecret     string
	JWTExpiry     time.Duration
	WebhookURL    string
	WebhookSecret string

	TMDBAPIKey string

	MaxActiveSearches    int
	BroadcastConcurrency int
	SnapshotInterval     time.Duration
	SnapshotKeep         int

	ownerIDErr error
}

const defaultSecret = "your-secret-key-change-in-production"

// Load 从环境变量加载配置
// 可选项缺失时使用默认值，必填项由 Validate 检查
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "24"))
	snapshotHours, _ := strconv.Atoi(getEnv("SNAPSHOT_INTERVAL_HOURS", "24"))

	ownerID, ownerErr := strconv.ParseInt(getEnv("OWNER_ID", ""), 10, 64)

	appSecret := getEnv("APP_SECRET", defaultSecret)
	if getEnv("APP_ENV", "development") == "production" && appSecret == defaultSecret {
		fmt.Println("WARNING: running in production with the default APP_SECRET, set APP_SECRET.")
	}

	return &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BotToken: getEnv("BOT_TOKEN", ""),
		OwnerID:  ownerID,
		DataDir:  getEnv("DATA_DIR", "data"),

		Port:          getEnv("PORT", "5005"),
		AppSecret:     appSecret,
		JWTExpiry:     time.Duration(expiryHours) * time.Hour,
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		TMDBAPIKey: getEnv("TMDB_API_KEY", ""),

		MaxActiveSearches:    getEnvInt("MAX_ACTIVE_SEARCHES", 30),
		BroadcastConcurrency: getEnvInt("BROADCAST_CONCURRENCY", 20),
		SnapshotInterval:     time.Duration(snapshotHours) * time.Hour,
		SnapshotKeep:         getEnvInt("SNAPSHOT_KEEP", 7),

		ownerIDErr: ownerErr,
	}
}

// Validate 检查必填配置是否缺失或格式错误
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.ownerIDErr != nil || c.OwnerID == 0 {
		errs = append(errs, errors.New("OWNER_ID must be a non-zero integer"))
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required when WEBHOOK_URL is set"))
	}
	if c.MaxActiveSearches < 1 {
		errs = append(errs, errors.New("MAX_ACTIVE_SEARCHES must be at least 1"))
	}
	if c.BroadcastConcurrency < 1 {
		errs = append(errs, errors.New("BROADCAST_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}
