// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// AuthConfig contains bearer token verification settings. Tokens are issued by
// the identity service that performs the chat-platform handshake.
type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	Issuer           string `mapstructure:"issuer"`
	Audience         string `mapstructure:"audience"`
	ClockSkewSeconds int    `mapstructure:"clock_skew_seconds"`
}

// ClockSkew returns the accepted clock skew for token timestamps.
func (c *AuthConfig) ClockSkew() time.Duration {
	return time.Duration(c.ClockSkewSeconds) * time.Second
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Migrate         bool   `mapstructure:"migrate"`
}

// DSN returns the key/value connection string understood by the postgres driver.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as required by golang-migrate.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SchedulerConfig contains the box sweep and reconciliation schedules. Timezone is also the
// reference timezone for calendar-day check-ins and daily box caps.
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Timezone        string `mapstructure:"timezone"`
	BoxGeneration   string `mapstructure:"box_generation"`   // Cron expression for box generation
	BoxExpiry       string `mapstructure:"box_expiry"`       // Cron expression for the expiry sweep
	LedgerReconcile string `mapstructure:"ledger_reconcile"` // Cron expression for reconciliation, empty disables it
	LockTTLSeconds  int    `mapstructure:"lock_ttl_seconds"`
}

// LockTTL returns how long a sweep lock is held at most.
func (c *SchedulerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// SettingsConfig controls how tunables are read from the configuration store.
type SettingsConfig struct {
	CacheTTLSeconds       int `mapstructure:"cache_ttl_seconds"`       // 0 reads the store on every call
	LeaderboardTTLSeconds int `mapstructure:"leaderboard_ttl_seconds"` // 0 disables leaderboard caching
}

// CacheTTL returns how long tunables are cached.
func (c *SettingsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LeaderboardTTL returns how long computed leaderboards are cached.
func (c *SettingsConfig) LeaderboardTTL() time.Duration {
	return time.Duration(c.LeaderboardTTLSeconds) * time.Second
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`       // stdout, stderr or a file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // File rotation size
	MaxBackups int    `mapstructure:"max_backups"`  // Rotated files kept
	MaxAgeDays int    `mapstructure:"max_age_days"` // Days rotated files are kept
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/reward-economy/")
	}

	setDefaults(v)

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// Auth configuration
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = v.BindEnv("auth.issuer", "AUTH_ISSUER")
	_ = v.BindEnv("auth.audience", "AUTH_AUDIENCE")
	_ = v.BindEnv("auth.clock_skew_seconds", "AUTH_CLOCK_SKEW_SECONDS")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.postgres.migrate", "POSTGRES_MIGRATE")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")
	_ = v.BindEnv("logging.max_size_mb", "LOG_MAX_SIZE_MB")
	_ = v.BindEnv("logging.max_backups", "LOG_MAX_BACKUPS")
	_ = v.BindEnv("logging.max_age_days", "LOG_MAX_AGE_DAYS")
	_ = v.BindEnv("logging.compress", "LOG_COMPRESS")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.box_generation", "SCHEDULER_BOX_GENERATION")
	_ = v.BindEnv("scheduler.box_expiry", "SCHEDULER_BOX_EXPIRY")
	_ = v.BindEnv("scheduler.ledger_reconcile", "SCHEDULER_LEDGER_RECONCILE")
	_ = v.BindEnv("scheduler.lock_ttl_seconds", "SCHEDULER_LOCK_TTL_SECONDS")

	_ = v.BindEnv("settings.cache_ttl_seconds", "SETTINGS_CACHE_TTL_SECONDS")
	_ = v.BindEnv("settings.leaderboard_ttl_seconds", "SETTINGS_LEADERBOARD_TTL_SECONDS")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("auth.clock_skew_seconds", 120)
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.box_generation", "0 * * * *")
	v.SetDefault("scheduler.box_expiry", "*/5 * * * *")
	v.SetDefault("scheduler.ledger_reconcile", "30 3 * * *")
	v.SetDefault("scheduler.lock_ttl_seconds", 300)
	v.SetDefault("settings.cache_ttl_seconds", 30)
	v.SetDefault("settings.leaderboard_ttl_seconds", 60)
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.path", "/metrics")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if _, err := c.Scheduler.GetLocation(); err != nil {
		return fmt.Errorf("scheduler.timezone %q is invalid: %w", c.Scheduler.Timezone, err)
	}
	if c.Settings.CacheTTLSeconds < 0 {
		return fmt.Errorf("settings.cache_ttl_seconds cannot be negative")
	}
	if c.Settings.LeaderboardTTLSeconds < 0 {
		return fmt.Errorf("settings.leaderboard_ttl_seconds cannot be negative")
	}

	return nil
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}
