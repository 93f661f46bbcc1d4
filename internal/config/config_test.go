package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	c := Load()

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 48*time.Hour, c.ApprovalWindow())
	assert.Equal(t, 300*time.Second, c.IdempotencyTTL())
	assert.False(t, c.KafkaEnabled)
	assert.Empty(t, c.KafkaBrokers)
	assert.Equal(t, 5.0, c.RateLimitRPS)
	require.NoError(t, c.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PASS", "s3cret")
	t.Setenv("APPROVAL_TOKEN_TTL_HOURS", "12")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("REDIS_DB", "not-a-number")

	c := Load()
	assert.Equal(t, 12*time.Hour, c.ApprovalWindow())
	assert.True(t, c.KafkaEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.KafkaBrokers)
	assert.Equal(t, 0.5, c.RateLimitRPS)
	assert.Equal(t, 0, c.RedisDB)
	assert.Contains(t, c.PostgresDSN(), "host=db.internal")
	assert.Contains(t, c.PostgresDSN(), "password=s3cret")
	assert.Contains(t, c.PostgresDSN(), "TimeZone=UTC")
	require.NoError(t, c.Validate())
}

func TestLoad_DotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("APP_PORT=9090\nAPPROVER_WHATSAPP=+56911112222\n"), 0o600))
	chdir(t, dir)
	t.Setenv("APP_PORT", "7070")
	t.Cleanup(func() { os.Unsetenv("APPROVER_WHATSAPP") })

	c := Load()
	assert.Equal(t, "7070", c.AppPort)
	assert.Equal(t, "+56911112222", c.ApproverWhatsApp)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		chdir(t, t.TempDir())
		return Load()
	}
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"missing host", func(c *Config) { c.PostgresHost = "" }},
		{"bad port", func(c *Config) { c.PostgresPort = "not-a-port" }},
		{"missing app port", func(c *Config) { c.AppPort = "" }},
		{"missing base url", func(c *Config) { c.PublicBaseURL = "" }},
		{"window too short", func(c *Config) { c.ApprovalTokenTTLHours = 0 }},
		{"window too long", func(c *Config) { c.ApprovalTokenTTLHours = 169 }},
		{"kafka without brokers", func(c *Config) { c.KafkaEnabled = true; c.KafkaBrokers = nil }},
		{"zero rate", func(c *Config) { c.RateLimitRPS = 0 }},
		{"zero idempotency ttl", func(c *Config) { c.IdempTTLSecs = 0 }},
		{"negative idempotency ttl", func(c *Config) { c.IdempTTLSecs = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base(t)
			tt.mut(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestPostgresDSN_QuotesValues(t *testing.T) {
	c := &Config{
		PostgresHost:    "db.internal",
		PostgresPort:    "5432",
		PostgresUser:    "po",
		PostgresPass:    `p a'ss\wd`,
		PostgresDB:      "purchase_orders",
		PostgresSSLMode: "",
	}
	dsn := c.PostgresDSN()
	assert.Contains(t, dsn, "host=db.internal ")
	assert.Contains(t, dsn, `password='p a\'ss\\wd' `)
	assert.Contains(t, dsn, "sslmode='' ")
	assert.True(t, strings.HasSuffix(dsn, "TimeZone=UTC"))
}

// chdir mirrors testing.T.Chdir (Go 1.24+): change directory for the test and
// restore the previous working directory on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
