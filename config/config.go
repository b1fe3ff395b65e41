package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"pushorshame"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"pushorshame"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"pos"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 加密配置，用于加密存储的 GitHub / X 访问令牌，32 字节 AES-256
	EncryptionKey string `env:"ENCRYPTION_KEY"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`
	LoggerMaxSizeMB  int    `env:"LOGGER_MAX_SIZE_MB" envDefault:"100"`
	LoggerMaxBackups int    `env:"LOGGER_MAX_BACKUPS" envDefault:"7"`
	LoggerMaxAgeDays int    `env:"LOGGER_MAX_AGE_DAYS" envDefault:"30"`
	LoggerCompress   bool   `env:"LOGGER_COMPRESS" envDefault:"true"`

	// 链路追踪 / 指标
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTLPInsecure   bool    `env:"OTLP_INSECURE" envDefault:"true"`
	TracingSampler float64 `env:"TRACING_SAMPLER" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	AdHocCheckLimit  int  `env:"ADHOC_CHECK_LIMIT" envDefault:"10"` // 每个参与者每分钟的手动检查次数

	// 日界线：参与者可见时区相对 UTC 的固定偏移（小时）
	DayBoundaryOffsetHours int `env:"DAY_BOUNDARY_OFFSET_HOURS" envDefault:"9"`

	// 批处理配置
	BatchRunAt           string `env:"BATCH_RUN_AT" envDefault:"00:05"` // 参与者时区下的 HH:MM，对前一天做最终检查
	BatchConcurrency     int    `env:"BATCH_CONCURRENCY" envDefault:"8"`
	BatchPageSize        int    `env:"BATCH_PAGE_SIZE" envDefault:"200"`
	BatchTimeoutMinutes  int    `env:"BATCH_TIMEOUT_MINUTES" envDefault:"50"`
	SummaryPostThreshold int    `env:"SUMMARY_POST_THRESHOLD" envDefault:"10"`

	// 单次检查配置
	CheckLockTTLSeconds  int `env:"CHECK_LOCK_TTL_SECONDS" envDefault:"120"`
	VerifyTimeoutSeconds int `env:"VERIFY_TIMEOUT_SECONDS" envDefault:"15"`
	PostTimeoutSeconds   int `env:"POST_TIMEOUT_SECONDS" envDefault:"10"`

	// GitHub
	GitHubAPIBaseURL       string  `env:"GITHUB_API_BASE_URL" envDefault:"https://api.github.com"`
	GitHubWebhookSecret    string  `env:"GITHUB_WEBHOOK_SECRET"`
	GitHubRatePerSecond    float64 `env:"GITHUB_RATE_PER_SECOND" envDefault:"10"`
	GitHubEventPagesToScan int     `env:"GITHUB_EVENT_PAGES" envDefault:"3"`

	// X (Twitter)
	XAPIBaseURL         string  `env:"X_API_BASE_URL" envDefault:"https://api.twitter.com"`
	XServiceAccessToken string  `env:"X_SERVICE_ACCESS_TOKEN"` // 用于发布每日汇总
	XRatePerSecond      float64 `env:"X_RATE_PER_SECOND" envDefault:"1"`

	// Firebase Cloud Messaging
	FCMCredentialsJSON string `env:"FCM_CREDENTIALS_JSON"` // base64 编码的 service account
	FCMCredentialsFile string `env:"FCM_CREDENTIALS_FILE"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

// Validate 校验进程启动必需的配置，由各个 cmd 在启动时调用
func Validate() error {
	if Cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(Cfg.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if Cfg.DayBoundaryOffsetHours < -12 || Cfg.DayBoundaryOffsetHours > 14 {
		return fmt.Errorf("DAY_BOUNDARY_OFFSET_HOURS out of range: %d", Cfg.DayBoundaryOffsetHours)
	}

	if _, _, err := Cfg.BatchClock(); err != nil {
		return err
	}

	if Cfg.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}

	if Cfg.GitHubWebhookSecret == "" {
		log.Printf("WARN: GITHUB_WEBHOOK_SECRET is not set, webhook deliveries will be rejected")
	}

	if Cfg.XServiceAccessToken == "" {
		log.Printf("WARN: X_SERVICE_ACCESS_TOKEN is not set, daily summary posts are disabled")
	}

	if Cfg.FCMCredentialsJSON == "" && Cfg.FCMCredentialsFile == "" {
		log.Printf("WARN: FCM credentials are not set, push notifications will be logged only")
	}

	return nil
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// BatchClock 解析 BATCH_RUN_AT
func (c *Config) BatchClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.BatchRunAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid BATCH_RUN_AT %q: %w", c.BatchRunAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) CheckLockTTL() time.Duration {
	return time.Duration(c.CheckLockTTLSeconds) * time.Second
}

func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.VerifyTimeoutSeconds) * time.Second
}

func (c *Config) PostTimeout() time.Duration {
	return time.Duration(c.PostTimeoutSeconds) * time.Second
}
