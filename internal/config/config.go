package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Store       StoreConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Buffer      BufferConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
	Reminders   RemindersConfig
	Classifier  ClassifierConfig
	Notifier    NotifierConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Driver string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// BufferConfig configures the bbolt outbox for undelivered reminders.
type BufferConfig struct {
	Path         string
	SyncInterval time.Duration
	MaxRetry     int
	BatchSize    int
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

type RemindersConfig struct {
	Timezone          string
	SnoozeAfter       time.Duration
	RecoveryDebounce  time.Duration
	DraftTTL          time.Duration
	DeliveryTTL       time.Duration
	FireTimeout       time.Duration
	RecoverAllOffsets bool
}

type ClassifierConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

type NotifierConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskbot"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 45*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Store: StoreConfig{
			Driver: getString("STORE_DRIVER", StoreDriverPostgres),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "taskbot"),
			User:            getString("DB_USER", "taskbot"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "taskbot"),
		},
		Buffer: BufferConfig{
			Path:         getString("BOLTDB_PATH", "./data/outbox.db"),
			SyncInterval: getDuration("SYNC_INTERVAL_SECONDS", 30*time.Second),
			MaxRetry:     getInt("MAX_RETRY_ATTEMPTS", 5),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 50),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 40*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
		Reminders: RemindersConfig{
			Timezone:          getString("TIMEZONE", "Europe/Kyiv"),
			SnoozeAfter:       getDuration("SNOOZE_AFTER", 30*time.Minute),
			RecoveryDebounce:  getDuration("RECOVERY_DEBOUNCE", 10*time.Second),
			DraftTTL:          getDuration("DRAFT_TTL", 30*time.Minute),
			DeliveryTTL:       getDuration("DELIVERY_TTL", 72*time.Hour),
			FireTimeout:       getDuration("FIRE_TIMEOUT", 15*time.Second),
			RecoverAllOffsets: getBool("RECOVER_ALL_OFFSETS", false),
		},
		Classifier: ClassifierConfig{
			APIKey:    os.Getenv("ANTHROPIC_API_KEY"),
			Model:     getString("CLASSIFIER_MODEL", "claude-sonnet-4-20250514"),
			BaseURL:   getString("CLASSIFIER_BASE_URL", "https://api.anthropic.com"),
			Timeout:   getDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
			MaxTokens: getInt("CLASSIFIER_MAX_TOKENS", 500),
		},
		Notifier: NotifierConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Timeout:    getDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
	}

	switch cfg.Store.Driver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.Store.Driver)
	}

	if _, err := time.LoadLocation(cfg.Reminders.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Reminders.Timezone, err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Location returns the default zone for owners without their own setting.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UsesPostgres reports whether tasks live in Postgres.
func (c *Config) UsesPostgres() bool {
	return c.Store.Driver == StoreDriverPostgres
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
