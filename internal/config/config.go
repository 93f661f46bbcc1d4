package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv        string
	AppPort       string
	PublicBaseURL string

	PostgresHost    string
	PostgresPort    string
	PostgresDB      string
	PostgresUser    string
	PostgresPass    string
	PostgresSSLMode string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	ApprovalTokenTTLHours int
	ApproverWhatsApp      string

	LogLevel    string
	LogEncoding string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	RateLimitRPS   float64
	RateLimitBurst int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getint(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

// Load reads .env (if present) and then the process environment; real env wins.
func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppEnv:        getenv("APP_ENV", "development"),
		AppPort:       getenv("APP_PORT", "8080"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),

		PostgresHost:    getenv("POSTGRES_HOST", "postgres"),
		PostgresPort:    getenv("POSTGRES_PORT", "5432"),
		PostgresDB:      getenv("POSTGRES_DB", "purchase_orders"),
		PostgresUser:    getenv("POSTGRES_USER", "purchase_orders"),
		PostgresPass:    getenv("POSTGRES_PASS", "purchase_orders"),
		PostgresSSLMode: getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr: getenv("REDIS_ADDR", "redis:6379"),
		RedisDB:   getint("REDIS_DB", 0),

		IdempTTLSecs: getint("IDEMPOTENCY_TTL_SECONDS", 300),

		ApprovalTokenTTLHours: getint("APPROVAL_TOKEN_TTL_HOURS", 48),
		ApproverWhatsApp:      getenv("APPROVER_WHATSAPP", ""),

		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogEncoding: getenv("LOG_ENCODING", "json"),

		KafkaTopic: getenv("KAFKA_TOPIC", "purchase-orders.status"),

		RateLimitRPS:   5,
		RateLimitBurst: getint("RATE_LIMIT_BURST", 10),
	}
	if v, err := strconv.ParseBool(os.Getenv("KAFKA_ENABLED")); err == nil {
		c.KafkaEnabled = v
	}
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			c.KafkaBrokers = append(c.KafkaBrokers, b)
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.PostgresHost == "" || c.PostgresPort == "" || c.PostgresDB == "" || c.PostgresUser == "" {
		return errors.New("missing Postgres config (POSTGRES_HOST/PORT/DB/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.PostgresPort); err != nil {
		return fmt.Errorf("invalid POSTGRES_PORT %q: %w", c.PostgresPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.PublicBaseURL == "" {
		return errors.New("missing PUBLIC_BASE_URL")
	}
	if c.ApprovalTokenTTLHours < 1 || c.ApprovalTokenTTLHours > 168 {
		return fmt.Errorf("APPROVAL_TOKEN_TTL_HOURS must be between 1 and 168, got %d", c.ApprovalTokenTTLHours)
	}
	if c.KafkaEnabled && (len(c.KafkaBrokers) == 0 || c.KafkaTopic == "") {
		return errors.New("KAFKA_ENABLED requires KAFKA_BROKERS and KAFKA_TOPIC")
	}
	if c.IdempTTLSecs <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL_SECONDS must be positive, got %d", c.IdempTTLSecs)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) ApprovalWindow() time.Duration {
	return time.Duration(c.ApprovalTokenTTLHours) * time.Hour
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

// PostgresDSN renders a libpq keyword/value DSN. Timestamps are kept in UTC.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		dsnValue(c.PostgresHost), dsnValue(c.PostgresPort), dsnValue(c.PostgresUser),
		dsnValue(c.PostgresPass), dsnValue(c.PostgresDB), dsnValue(c.PostgresSSLMode))
}

// dsnValue single-quotes v when libpq would otherwise split or misread it.
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
