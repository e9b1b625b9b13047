package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN prefers an explicit URL and falls back to key/value parameters.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
	PublishAttempts    int      `yaml:"publish_attempts"`
}

type BookingConfig struct {
	AvailabilityCacheTTL int `yaml:"availability_cache_ttl_seconds"`
	ReserveTimeoutMS     int `yaml:"reserve_timeout_ms"`
	LockTimeoutMS        int `yaml:"lock_timeout_ms"`
	MaxAttempts          int `yaml:"max_attempts"`
	RetryBackoffMS       int `yaml:"retry_backoff_ms"`
}

func (b BookingConfig) CacheTTL() time.Duration {
	return time.Duration(b.AvailabilityCacheTTL) * time.Second
}

func (b BookingConfig) ReserveTimeout() time.Duration {
	return time.Duration(b.ReserveTimeoutMS) * time.Millisecond
}

func (b BookingConfig) LockTimeout() time.Duration {
	return time.Duration(b.LockTimeoutMS) * time.Millisecond
}

func (b BookingConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMS) * time.Millisecond
}

type WorkerConfig struct {
	AuditIntervalMinutes int `yaml:"audit_interval_minutes"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	AdminAPIKey   string `yaml:"admin_api_key"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; values there only feed the overrides below.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		c.Auth.AdminAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Booking.AvailabilityCacheTTL == 0 {
		c.Booking.AvailabilityCacheTTL = 30
	}
	if c.Booking.ReserveTimeoutMS == 0 {
		c.Booking.ReserveTimeoutMS = 5000
	}
	if c.Booking.LockTimeoutMS == 0 {
		c.Booking.LockTimeoutMS = 2000
	}
	if c.Booking.MaxAttempts == 0 {
		c.Booking.MaxAttempts = 3
	}
	if c.Booking.RetryBackoffMS == 0 {
		c.Booking.RetryBackoffMS = 50
	}
	if c.Kafka.PublishAttempts == 0 {
		c.Kafka.PublishAttempts = 3
	}
	if c.Worker.AuditIntervalMinutes == 0 {
		c.Worker.AuditIntervalMinutes = 10
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 24
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) is required")
	}
	if c.Auth.AdminAPIKey == "" {
		return fmt.Errorf("auth.admin_api_key (or ADMIN_API_KEY) is required")
	}
	if c.Booking.MaxAttempts < 1 {
		return fmt.Errorf("booking.max_attempts must be at least 1, got %d", c.Booking.MaxAttempts)
	}
	if c.Booking.ReserveTimeoutMS <= 0 {
		return fmt.Errorf("booking.reserve_timeout_ms must be positive, got %d", c.Booking.ReserveTimeoutMS)
	}
	if c.Booking.LockTimeoutMS <= 0 {
		return fmt.Errorf("booking.lock_timeout_ms must be positive, got %d", c.Booking.LockTimeoutMS)
	}
	if c.Booking.RetryBackoffMS < 0 {
		return fmt.Errorf("booking.retry_backoff_ms must not be negative, got %d", c.Booking.RetryBackoffMS)
	}
	if c.Kafka.PublishAttempts < 1 {
		return fmt.Errorf("kafka.publish_attempts must be at least 1, got %d", c.Kafka.PublishAttempts)
	}
	if c.Worker.AuditIntervalMinutes <= 0 {
		return fmt.Errorf("worker.audit_interval_minutes must be positive, got %d", c.Worker.AuditIntervalMinutes)
	}
	return nil
}
