package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all pipeline configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Staging   StagingConfig
	Pipeline  PipelineConfig
	FX        FXConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Bookmarks BookmarksConfig
	S3        S3Config
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// StagingConfig holds staged payload directory settings
type StagingConfig struct {
	Dir string
}

// PipelineConfig holds transform-stage settings
type PipelineConfig struct {
	TargetCurrency     string  // currency all order amounts normalize into
	HighValueThreshold float64 // fraud rule threshold
}

// FXConfig holds the live FX-rate collaborator settings
type FXConfig struct {
	Enabled  bool
	Endpoint string
	Timeout  time.Duration
}

// DatabaseConfig holds warehouse connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the redis bookmark store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BookmarksConfig selects the source checkpoint backend
type BookmarksConfig struct {
	Backend string // file or redis
	Path    string // bookmark file path for the file backend
}

// S3Config holds optional staged-payload upload settings. Compatible with
// any S3-compatible storage (AWS S3, MinIO, etc.)
type S3Config struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ETL_ prefix (e.g. ETL_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Staging: StagingConfig{
			Dir: v.GetString("staging.dir"),
		},
		Pipeline: PipelineConfig{
			TargetCurrency:     v.GetString("pipeline.target_currency"),
			HighValueThreshold: v.GetFloat64("pipeline.high_value_threshold"),
		},
		FX: FXConfig{
			Enabled:  v.GetBool("fx.enabled"),
			Endpoint: v.GetString("fx.endpoint"),
			Timeout:  v.GetDuration("fx.timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Bookmarks: BookmarksConfig{
			Backend: v.GetString("bookmarks.backend"),
			Path:    v.GetString("bookmarks.path"),
		},
		S3: S3Config{
			Enabled:      v.GetBool("s3.enabled"),
			Endpoint:     v.GetString("s3.endpoint"),
			Region:       v.GetString("s3.region"),
			Bucket:       v.GetString("s3.bucket"),
			Prefix:       v.GetString("s3.prefix"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			UsePathStyle: v.GetBool("s3.use_path_style"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "etl-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Staging.Dir == "" {
		cfg.Staging.Dir = "./staging"
	}
	if cfg.Pipeline.TargetCurrency == "" {
		cfg.Pipeline.TargetCurrency = "USD"
	}
	if cfg.Pipeline.HighValueThreshold == 0 {
		cfg.Pipeline.HighValueThreshold = 1000
	}
	if cfg.FX.Endpoint == "" {
		cfg.FX.Endpoint = "https://api.exchangerate.host/latest"
	}
	if cfg.FX.Timeout == 0 {
		cfg.FX.Timeout = 10 * time.Second
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "warehouse"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Bookmarks.Backend == "" {
		cfg.Bookmarks.Backend = "file"
	}
	if cfg.Bookmarks.Path == "" {
		cfg.Bookmarks.Path = cfg.Staging.Dir + "/bookmarks.json"
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if len(c.Pipeline.TargetCurrency) != 3 {
		return fmt.Errorf("pipeline.target_currency must be a 3-letter code, got %q", c.Pipeline.TargetCurrency)
	}
	switch c.Bookmarks.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("bookmarks.backend must be 'file' or 'redis', got %q", c.Bookmarks.Backend)
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when s3 upload is enabled")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("s3.access_key and s3.secret_key are required when s3 upload is enabled")
		}
	}
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}
	return nil
}

// DSN returns the warehouse connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
