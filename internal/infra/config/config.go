package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application settings. Values come from an optional YAML
// file named by CONFIG_FILE; environment variables override the file.
type Config struct {
	Env         string          `yaml:"env"`
	HTTPAddr    string          `yaml:"http_addr"`
	LogLevel    string          `yaml:"log_level"`
	Storage     string          `yaml:"storage"`
	CORSOrigins []string        `yaml:"cors_origins"`
	Mongo       MongoConfig     `yaml:"mongo"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Outbox      OutboxConfig    `yaml:"outbox"`
	JWT         JWTConfig       `yaml:"jwt"`
	S3          S3Config        `yaml:"s3"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Mail        MailConfig      `yaml:"mail"`
	Schedule    ScheduleConfig  `yaml:"schedule"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
	GroupID     string   `yaml:"group_id"`
}

type OutboxConfig struct {
	PollInterval time.Duration   `yaml:"poll_interval"`
	RetryBackoff []time.Duration `yaml:"retry_backoff"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type S3Config struct {
	Endpoint       string `yaml:"endpoint"`
	PublicEndpoint string `yaml:"public_endpoint"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Bucket         string `yaml:"bucket"`
	UseSSL         bool   `yaml:"use_ssl"`
}

type RateLimitConfig struct {
	RedisURL string        `yaml:"redis_url"`
	Max      int           `yaml:"max"`
	Window   time.Duration `yaml:"window"`
}

type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	From           string `yaml:"from"`
	FromName       string `yaml:"from_name"`
}

type ScheduleConfig struct {
	CompleteStays string `yaml:"complete_stays"`
}

func Defaults() Config {
	return Config{
		Env:         "dev",
		HTTPAddr:    ":8080",
		LogLevel:    "info",
		Storage:     StorageMemory,
		CORSOrigins: []string{"*"},
		Mongo:       MongoConfig{Database: "stayfinder"},
		Kafka:       KafkaConfig{GroupID: "stayfinder-notifier"},
		Outbox: OutboxConfig{
			PollInterval: 500 * time.Millisecond,
			RetryBackoff: []time.Duration{time.Second, 5 * time.Second, 30 * time.Second},
		},
		JWT:       JWTConfig{TTL: 24 * time.Hour},
		S3:        S3Config{Bucket: "stayfinder-photos"},
		RateLimit: RateLimitConfig{Max: 120, Window: time.Minute},
		Mail:      MailConfig{From: "no-reply@stayfinder.local", FromName: "StayFinder"},
		Schedule:  ScheduleConfig{CompleteStays: "0 */15 * * * *"},
	}
}

// Load reads .env when present, then the YAML file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Storage = strings.ToLower(getEnv("STORAGE", c.Storage))
	c.CORSOrigins = getListEnv("CORS_ORIGINS", c.CORSOrigins)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)

	c.Kafka.Brokers = getListEnv("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicPrefix = getEnv("KAFKA_TOPIC_PREFIX", c.Kafka.TopicPrefix)
	c.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", c.Kafka.GroupID)

	var err error
	if c.Outbox.PollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", c.Outbox.PollInterval); err != nil {
		return err
	}
	if raw := os.Getenv("RETRY_BACKOFF"); raw != "" {
		backoff, err := parseDurationList("RETRY_BACKOFF", raw)
		if err != nil {
			return err
		}
		c.Outbox.RetryBackoff = backoff
	}

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	if c.JWT.TTL, err = parseDurationEnv("JWT_TTL", c.JWT.TTL); err != nil {
		return err
	}

	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.PublicEndpoint = getEnv("S3_PUBLIC_ENDPOINT", c.S3.PublicEndpoint)
	c.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	if c.S3.UseSSL, err = parseBoolEnv("S3_USE_SSL", c.S3.UseSSL); err != nil {
		return err
	}

	c.RateLimit.RedisURL = getEnv("REDIS_URL", c.RateLimit.RedisURL)
	if c.RateLimit.Max, err = parseIntEnv("RATE_LIMIT_MAX", c.RateLimit.Max); err != nil {
		return err
	}
	if c.RateLimit.Window, err = parseDurationEnv("RATE_LIMIT_WINDOW", c.RateLimit.Window); err != nil {
		return err
	}

	c.Mail.SendGridAPIKey = getEnv("SENDGRID_API_KEY", c.Mail.SendGridAPIKey)
	c.Mail.From = getEnv("MAIL_FROM", c.Mail.From)
	c.Mail.FromName = getEnv("MAIL_FROM_NAME", c.Mail.FromName)

	c.Schedule.CompleteStays = getEnv("COMPLETE_STAYS_CRON", c.Schedule.CompleteStays)
	return nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if c.Mongo.URI == "" {
			return errors.New("config: MONGO_URI is required for mongo storage")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE %q", c.Storage)
	}
	if c.JWT.Secret == "" && !c.IsDev() {
		return errors.New("config: JWT_SECRET is required outside dev")
	}
	if c.RateLimit.Max < 0 {
		return errors.New("config: RATE_LIMIT_MAX must not be negative")
	}
	return nil
}

func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local" || c.Env == "test"
}

// JWTSecret returns the signing key, with a fixed key for dev runs.
func (c Config) JWTSecret() []byte {
	if c.JWT.Secret == "" {
		return []byte("stayfinder-dev-secret")
	}
	return []byte(c.JWT.Secret)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getListEnv(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseDurationList(key, raw string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(raw, ",") {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("config: invalid %s component %q: %w", key, part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("config: invalid %s boolean: %q", key, raw)
	}
}
