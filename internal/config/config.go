// Package config loads process-wide configuration once at startup into
// an immutable struct, matching arkeep's cmd/server/main.go pattern:
// environment variables read through envOrDefault. No command-line flag
// overrides these values; cmd/towerd's only flag, --log-level, configures
// logging and is not part of Config. Every component that needs configuration
// receives it explicitly; nothing reaches back into the environment on
// its own (§9 "Global signing key from environment ... load once into
// an immutable configuration struct; pass explicitly to components that
// need it").
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nlogistics/control-tower/internal/notification"
)

// ErrSigningKeyRequired is returned when ENVIRONMENT=production and no
// SNAPSHOT_SIGNING_KEY was provided — fatal at startup (§4.7/§9).
var ErrSigningKeyRequired = errors.New("config: SNAPSHOT_SIGNING_KEY is required when ENVIRONMENT=production")

// Config is the fully-resolved, immutable process configuration.
// Callers should treat it as read-only after Load returns.
type Config struct {
	Environment string // "production" forbids every dev-mode fallback
	HTTPAddr    string
	GRPCAddr    string
	DBDriver    string
	DBDSN       string

	SnapshotSigningKey string
	RegulatorSecret    string

	ORSAPIKey         string
	OpenWeatherAPIKey string
	BrevoAPIKey       string

	RollupTimezone  string        // TOWER_ROLLUP_TZ, default Asia/Kolkata
	SnapshotCadence time.Duration // TOWER_SNAPSHOT_CADENCE, default 15m (§4.7 "configuration-driven")

	DataDir                string   // TOWER_DATA_DIR, root for event log / snapshot store / notification store
	JWTPrivateKeyPath       string   // TOWER_JWT_PRIVATE_KEY_PATH, empty -> generate an ephemeral dev key
	JWTPublicKeyPath        string   // TOWER_JWT_PUBLIC_KEY_PATH
	RegulatorAllowedFamilies []string // TOWER_REGULATOR_ALLOWED_SNAPSHOTS, comma-separated family names
	RedisAddr               string   // TOWER_REDIS_ADDR, backs the weather/route external-API caches

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTo       string
	SMTPTLS      bool

	WebhookURL     string
	WebhookSecret  string
	WebhookEnabled bool
}

// IsProduction reports whether dev-mode fallbacks (signing key, etc.)
// are forbidden.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// SMTPConfig builds the notification package's static SMTP
// configuration from the loaded values.
func (c Config) SMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		To:       c.SMTPTo,
		TLS:      c.SMTPTLS,
	}
}

// WebhookConfig builds the notification package's static webhook
// configuration from the loaded values.
func (c Config) WebhookConfig() notification.WebhookConfig {
	return notification.WebhookConfig{
		URL:     c.WebhookURL,
		Secret:  c.WebhookSecret,
		Enabled: c.WebhookEnabled,
	}
}

// Load reads Config from the process environment, validating the
// production signing-key requirement.
func Load() (Config, error) {
	return loadFrom(os.Getenv)
}

func loadFrom(getenv func(string) string) (Config, error) {
	cfg := Config{
		Environment: envOrDefault(getenv, "ENVIRONMENT", "development"),
		HTTPAddr:    envOrDefault(getenv, "TOWER_HTTP_ADDR", ":8080"),
		GRPCAddr:    envOrDefault(getenv, "TOWER_GRPC_ADDR", ":9091"),
		DBDriver:    envOrDefault(getenv, "TOWER_DB_DRIVER", "sqlite"),
		DBDSN:       envOrDefault(getenv, "TOWER_DB_DSN", "./control-tower.db"),

		SnapshotSigningKey: getenv("SNAPSHOT_SIGNING_KEY"),
		RegulatorSecret:    getenv("TOWER_REGULATOR_SECRET"),

		ORSAPIKey:         getenv("ORS_API_KEY"),
		OpenWeatherAPIKey: getenv("OPENWEATHER_API_KEY"),
		BrevoAPIKey:       getenv("BREVO_API_KEY"),

		RollupTimezone:  envOrDefault(getenv, "TOWER_ROLLUP_TZ", "Asia/Kolkata"),
		SnapshotCadence: envOrDefaultDuration(getenv, "TOWER_SNAPSHOT_CADENCE", 15*time.Minute),

		DataDir:                  envOrDefault(getenv, "TOWER_DATA_DIR", "./data"),
		JWTPrivateKeyPath:        getenv("TOWER_JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:         getenv("TOWER_JWT_PUBLIC_KEY_PATH"),
		RegulatorAllowedFamilies: splitCSV(getenv("TOWER_REGULATOR_ALLOWED_SNAPSHOTS")),
		RedisAddr:                envOrDefault(getenv, "TOWER_REDIS_ADDR", "localhost:6379"),

		SMTPHost:     getenv("TOWER_SMTP_HOST"),
		SMTPPort:     envOrDefaultInt(getenv, "TOWER_SMTP_PORT", 0),
		SMTPUsername: getenv("TOWER_SMTP_USERNAME"),
		SMTPPassword: getenv("TOWER_SMTP_PASSWORD"),
		SMTPFrom:     getenv("TOWER_SMTP_FROM"),
		SMTPTo:       getenv("TOWER_SMTP_TO"),
		SMTPTLS:      envOrDefault(getenv, "TOWER_SMTP_TLS", "true") == "true",

		WebhookURL:     getenv("TOWER_WEBHOOK_URL"),
		WebhookSecret:  getenv("TOWER_WEBHOOK_SECRET"),
		WebhookEnabled: envOrDefault(getenv, "TOWER_WEBHOOK_ENABLED", "false") == "true",
	}

	if cfg.IsProduction() && cfg.SnapshotSigningKey == "" {
		return Config{}, ErrSigningKeyRequired
	}

	return cfg, nil
}

func envOrDefault(getenv func(string) string, key, defaultVal string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(getenv func(string) string, key string, defaultVal int) int {
	v := getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func envOrDefaultDuration(getenv func(string) string, key string, defaultVal time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// splitCSV splits a comma-separated env value into a trimmed slice,
// returning nil for an empty input rather than a one-element slice.
func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DevModeAllowed reports whether a missing signing key may fall back to
// a fixed development value — never true in production.
func (c Config) DevModeAllowed() bool {
	return !c.IsProduction()
}

// String renders a startup-log-friendly summary with no secrets.
func (c Config) String() string {
	return fmt.Sprintf("environment=%s http_addr=%s grpc_addr=%s db_driver=%s rollup_tz=%s snapshot_cadence=%s data_dir=%s",
		c.Environment, c.HTTPAddr, c.GRPCAddr, c.DBDriver, c.RollupTimezone, c.SnapshotCadence, c.DataDir)
}
