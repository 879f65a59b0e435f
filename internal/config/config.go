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

type AppConfig struct {
	Name           string   `yaml:"name"`
	Port           string   `yaml:"port"`
	Env            string   `yaml:"env"`
	LogLevel       string   `yaml:"log_level"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MediaDir       string   `yaml:"media_dir"`
	MediaBaseURL   string   `yaml:"media_base_url"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MigrationsPath  string        `yaml:"migrations_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	Store         string        `yaml:"store"`
	UserTTL       time.Duration `yaml:"user_ttl"`
	AdminTTL      time.Duration `yaml:"admin_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	CookieSecure  bool          `yaml:"cookie_secure"`
}

type OrderConfig struct {
	VerifyTotal  bool          `yaml:"verify_total"`
	TxMaxRetries int           `yaml:"tx_max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

type Config struct {
	App       AppConfig       `yaml:"app"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Order     OrderConfig     `yaml:"order"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

var ErrMissingRequired = errors.New("required configuration value is missing")

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		App: AppConfig{
			Name:           "gallery-service",
			Port:           "8080",
			Env:            "development",
			LogLevel:       "debug",
			AllowedOrigins: []string{"http://localhost:3000"},
			MediaDir:       "./media",
			MediaBaseURL:   "/media",
			MaxUploadBytes: 10 << 20,
		},
		Postgres: PostgresConfig{
			Port:            "5432",
			SSLMode:         "disable",
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MigrationsPath:  "./migrations",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Session: SessionConfig{
			Store:         SessionStorePostgres,
			UserTTL:       7 * 24 * time.Hour,
			AdminTTL:      24 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Order: OrderConfig{
			VerifyTotal:  true,
			TxMaxRetries: 3,
			RetryBackoff: 50 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 1,
			Burst:     5,
		},
	}
}

// NewConfig loads configuration from CONFIG_FILE (yaml), then .env, then the environment.
func NewConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"), ".env")
}

func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if yamlPath != "" {
		file, err := os.Open(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", yamlPath, err)
		}
	}

	if envPath != "" {
		err := godotenv.Load(envPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.App.Port, "APP_PORT")
	setString(&cfg.App.Env, "APP_ENV")
	setString(&cfg.App.LogLevel, "LOG_LEVEL")
	setString(&cfg.App.MediaDir, "MEDIA_DIR")
	setString(&cfg.App.MediaBaseURL, "MEDIA_BASE_URL")
	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		cfg.App.AllowedOrigins = splitList(v)
	}

	setString(&cfg.Postgres.Host, "DB_HOST")
	setString(&cfg.Postgres.Port, "DB_PORT")
	setString(&cfg.Postgres.User, "DB_USER")
	setString(&cfg.Postgres.Password, "DB_PASSWORD")
	setString(&cfg.Postgres.DBName, "DB_NAME")
	setString(&cfg.Postgres.SSLMode, "DB_SSLMODE")
	setString(&cfg.Postgres.MigrationsPath, "DB_MIGRATIONS_PATH")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Session.Store, "SESSION_STORE")

	var errs []error
	errs = append(errs,
		setInt64(&cfg.App.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		setInt32(&cfg.Postgres.MaxConns, "DB_MAX_CONNS"),
		setInt32(&cfg.Postgres.MinConns, "DB_MIN_CONNS"),
		setDuration(&cfg.Postgres.MaxConnLifetime, "DB_MAX_CONN_LIFETIME"),
		setInt(&cfg.Redis.DB, "REDIS_DB"),
		setDuration(&cfg.Session.UserTTL, "SESSION_USER_TTL"),
		setDuration(&cfg.Session.AdminTTL, "SESSION_ADMIN_TTL"),
		setDuration(&cfg.Session.SweepInterval, "SESSION_SWEEP_INTERVAL"),
		setBool(&cfg.Session.CookieSecure, "COOKIE_SECURE"),
		setBool(&cfg.Order.VerifyTotal, "ORDER_VERIFY_TOTAL"),
		setInt(&cfg.Order.TxMaxRetries, "ORDER_TX_MAX_RETRIES"),
		setDuration(&cfg.Order.RetryBackoff, "ORDER_RETRY_BACKOFF"),
		setFloat(&cfg.RateLimit.PerSecond, "RATE_LIMIT_PER_SECOND"),
		setInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST"),
	)

	return errors.Join(errs...)
}

func (c *Config) validate() error {
	var missing []string
	if c.Postgres.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if c.Postgres.User == "" {
		missing = append(missing, "DB_USER")
	}
	if c.Postgres.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}

	switch c.Session.Store {
	case SessionStorePostgres, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.Session.Store)
	}

	if c.Order.TxMaxRetries < 1 {
		c.Order.TxMaxRetries = 1
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt32(dst *int32, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = int32(n)
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
