package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the gateway
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Logging   LoggingConfig
	Service   ServiceConfig
	Security  SecurityConfig
	Backend   BackendConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the counter store and cache connection
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Enabled             bool
	Brokers             []string
	TopicMessageSent    string
	TopicMessageFailed  string
	TopicSessionChanged string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// SecurityConfig holds secrets used for key hashing and webhook auth
type SecurityConfig struct {
	SecretKey      string
	WebhookKey     string
	TrustedProxies []string // addresses or CIDR ranges whose X-Forwarded-For is honored
}

// BackendConfig holds WhatsApp backend client configuration
type BackendConfig struct {
	URL                 string
	APIKey              string
	InitTimeout         time.Duration
	StatusTimeout       time.Duration
	DisconnectTimeout   time.Duration
	SendTextTimeout     time.Duration
	SendMediaTimeout    time.Duration
	HealthTimeout       time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxRetries          int
	RetryBackoff        time.Duration
	RequestsPerSecond   float64
	Burst               int
}

// RateLimitConfig holds per-user quota defaults
type RateLimitConfig struct {
	MessagesPerMinute int
	DefaultDailyLimit int
}

// SessionConfig holds session pool and sweep settings
type SessionConfig struct {
	CacheTTL           time.Duration
	MaxPerUser         int
	QRTTL              time.Duration
	QRExpiryInterval   time.Duration
	StatusSyncInterval time.Duration
	RetentionInterval  time.Duration
	RetentionPeriod    time.Duration
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config          *Config
	DatabaseConfig  *DatabaseConfig
	RedisConfig     *RedisConfig
	KafkaConfig     *KafkaConfig
	LoggingConfig   *LoggingConfig
	ServiceConfig   *ServiceConfig
	SecurityConfig  *SecurityConfig
	BackendConfig   *BackendConfig
	RateLimitConfig *RateLimitConfig
	SessionConfig   *SessionConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:          cfg,
		DatabaseConfig:  &cfg.Database,
		RedisConfig:     &cfg.Redis,
		KafkaConfig:     &cfg.Kafka,
		LoggingConfig:   &cfg.Logging,
		ServiceConfig:   &cfg.Service,
		SecurityConfig:  &cfg.Security,
		BackendConfig:   &cfg.Backend,
		RateLimitConfig: &cfg.RateLimit,
		SessionConfig:   &cfg.Session,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "sanasend"),
			Password: getEnv("DATABASE_PASSWORD", "sanasend"),
			DBName:   getEnv("DATABASE_NAME", "sanasend"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:             getEnvBool("KAFKA_ENABLED", false),
			Brokers:             strings.Split(getEnv("KAFKA_BROKERS", "localhost:9093"), ","),
			TopicMessageSent:    getEnv("KAFKA_TOPIC_MESSAGE_SENT", "message.sent"),
			TopicMessageFailed:  getEnv("KAFKA_TOPIC_MESSAGE_FAILED", "message.failed"),
			TopicSessionChanged: getEnv("KAFKA_TOPIC_SESSION_STATUS", "session.status"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "sanasend"),
			Port: getEnv("SERVICE_PORT", "8000"),
		},
		Security: SecurityConfig{
			SecretKey:      getEnv("SECRET_KEY", ""),
			WebhookKey:     getEnv("WEBHOOK_API_KEY", ""),
			TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		},
		Backend: BackendConfig{
			URL:                 strings.TrimRight(getEnv("WHATSAPP_SERVICE_URL", "http://localhost:3000"), "/"),
			APIKey:              getEnv("WHATSAPP_SERVICE_API_KEY", ""),
			InitTimeout:         getEnvDuration("WHATSAPP_INIT_TIMEOUT", 60*time.Second),
			StatusTimeout:       getEnvDuration("WHATSAPP_STATUS_TIMEOUT", 10*time.Second),
			DisconnectTimeout:   getEnvDuration("WHATSAPP_DISCONNECT_TIMEOUT", 10*time.Second),
			SendTextTimeout:     getEnvDuration("WHATSAPP_SEND_TEXT_TIMEOUT", 30*time.Second),
			SendMediaTimeout:    getEnvDuration("WHATSAPP_SEND_MEDIA_TIMEOUT", 60*time.Second),
			HealthTimeout:       getEnvDuration("WHATSAPP_HEALTH_TIMEOUT", 5*time.Second),
			MaxIdleConns:        getEnvInt("WHATSAPP_POOL_MAXSIZE", 50),
			MaxIdleConnsPerHost: getEnvInt("WHATSAPP_POOL_CONNECTIONS", 20),
			MaxRetries:          getEnvInt("WHATSAPP_MAX_RETRIES", 3),
			RetryBackoff:        getEnvDuration("WHATSAPP_RETRY_BACKOFF", 300*time.Millisecond),
			RequestsPerSecond:   getEnvFloat("WHATSAPP_REQUESTS_PER_SECOND", 20),
			Burst:               getEnvInt("WHATSAPP_BURST", 40),
		},
		RateLimit: RateLimitConfig{
			MessagesPerMinute: getEnvInt("MAX_MESSAGES_PER_MINUTE", 10),
			DefaultDailyLimit: getEnvInt("MAX_MESSAGES_PER_DAY", 1000),
		},
		Session: SessionConfig{
			CacheTTL:           getEnvDuration("SESSION_CACHE_TTL", 60*time.Second),
			MaxPerUser:         getEnvInt("MAX_SESSIONS_PER_USER", 10),
			QRTTL:              getEnvDuration("SESSION_QR_TTL", 60*time.Second),
			QRExpiryInterval:   getEnvDuration("SESSION_QR_EXPIRY_INTERVAL", time.Minute),
			StatusSyncInterval: getEnvDuration("SESSION_STATUS_SYNC_INTERVAL", 5*time.Minute),
			RetentionInterval:  getEnvDuration("SESSION_RETENTION_INTERVAL", 24*time.Hour),
			RetentionPeriod:    getEnvDuration("SESSION_RETENTION_PERIOD", 7*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DATABASE_USER is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if len(c.Security.SecretKey) < 32 {
		return fmt.Errorf("SECRET_KEY is required and must be at least 32 characters")
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("WHATSAPP_SERVICE_URL is required")
	}

	for _, proxy := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(proxy); err != nil && net.ParseIP(proxy) == nil {
			return fmt.Errorf("TRUSTED_PROXIES has invalid entry %q", proxy)
		}
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "") {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}

	if c.RateLimit.MessagesPerMinute <= 0 {
		return fmt.Errorf("MAX_MESSAGES_PER_MINUTE must be positive")
	}

	if c.Session.MaxPerUser <= 0 {
		return fmt.Errorf("MAX_SESSIONS_PER_USER must be positive")
	}

	return nil
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvList splits a comma separated variable, dropping blank entries
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
