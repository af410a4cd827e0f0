package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Routing   RoutingConfig
	Scheduler SchedulerConfig
	Cache     CacheConfig
	Task      TaskConfig
	Processor ProcessorConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `mapstructure:"SERVER_HOST"`
	Port              int           `mapstructure:"PORT"`
	ReadTimeout       time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
	DebugMode         bool          `mapstructure:"DEBUG_MODE"`
	EnableOriginCheck bool          `mapstructure:"ENABLE_ORIGIN_CHECK"`
	AcceptableOrigins []string      `mapstructure:"-"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// RoutingConfig holds the external directions provider's connection
// settings.
type RoutingConfig struct {
	BaseURL string        `mapstructure:"ROUTING_BASE_URL"`
	APIKey  string        `mapstructure:"GOOGLE_API_TOKEN"`
	Timeout time.Duration `mapstructure:"ROUTING_TIMEOUT"`
}

// SchedulerConfig holds the default pickup/dropoff margins used when a
// request does not override them. DEFAULT_*_TIME env vars are
// milliseconds on input and converted once here to time.Duration; every
// scheduler computation after this point works in Durations, never raw
// milliseconds.
type SchedulerConfig struct {
	DefaultBeforePickup     time.Duration
	DefaultAfterPickup      time.Duration
	DefaultDropoffUnloading time.Duration
}

// CacheConfig holds the directions cache's backend selection.
type CacheConfig struct {
	Enabled     bool   `mapstructure:"ENABLE_CACHE"`
	Type        string `mapstructure:"CACHE_TYPE"`
	MemCapacity int    `mapstructure:"CACHE_MEM_CAPACITY"`
	TTL         time.Duration
}

// TaskConfig holds the task store's TTL eviction settings.
type TaskConfig struct {
	TTL time.Duration
}

// ProcessorConfig holds the dispatcher/worker-pool tuning.
type ProcessorConfig struct {
	ThreadNumber     int `mapstructure:"PROCESSOR_THREAD_NUMBER"`
	BatchSize        int `mapstructure:"PROCESSOR_BATCH_SIZE"`
	Interval         time.Duration
	ReclaimThreshold time.Duration `mapstructure:"PROCESSOR_RECLAIM_THRESHOLD"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults: Server ─────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	viper.SetDefault("DEBUG_MODE", false)
	viper.SetDefault("ENABLE_ORIGIN_CHECK", false)
	viper.SetDefault("ACCEPTABLE_ORIGINS", "")

	// ── Defaults: Postgres ───────────────────────────────
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "scheduler")
	viper.SetDefault("POSTGRES_PASSWORD", "scheduler_secret")
	viper.SetDefault("POSTGRES_DB", "scheduler_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 50)
	viper.SetDefault("POSTGRES_MIN_CONNS", 10)

	// ── Defaults: Redis ──────────────────────────────────
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)

	// ── Defaults: Routing ────────────────────────────────
	viper.SetDefault("ROUTING_BASE_URL", "https://maps.googleapis.com/maps/api/directions/json")
	viper.SetDefault("GOOGLE_API_TOKEN", "")
	viper.SetDefault("ROUTING_TIMEOUT", "10s")

	// ── Defaults: Scheduler margins (ms on input) ───────
	viper.SetDefault("DEFAULT_BEFORE_PICKUP_TIME", 15*60*1000)
	viper.SetDefault("DEFAULT_AFTER_PICKUP_TIME", 15*60*1000)
	viper.SetDefault("DEFAULT_DROPOFF_UNLOADING_TIME", 2*60*1000)

	// ── Defaults: Cache ──────────────────────────────────
	viper.SetDefault("ENABLE_CACHE", true)
	viper.SetDefault("CACHE_TYPE", "memory")
	viper.SetDefault("CACHE_MEM_CAPACITY", 1000)
	viper.SetDefault("CACHE_TTL", 60*60*1000)

	// ── Defaults: Task store ─────────────────────────────
	viper.SetDefault("TASK_TTL", 24*60*60*1000)

	// ── Defaults: Processor ──────────────────────────────
	viper.SetDefault("PROCESSOR_THREAD_NUMBER", 4)
	viper.SetDefault("PROCESSOR_BATCH_SIZE", 10)
	viper.SetDefault("PROCESSOR_INTERVAL", 5000)
	viper.SetDefault("PROCESSOR_RECLAIM_THRESHOLD", "0s")

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	origins := viper.GetString("ACCEPTABLE_ORIGINS")
	var originList []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			originList = append(originList, o)
		}
	}
	cfg.Server = ServerConfig{
		Host:              viper.GetString("SERVER_HOST"),
		Port:              viper.GetInt("PORT"),
		ReadTimeout:       viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout:      viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:       viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		DebugMode:         viper.GetBool("DEBUG_MODE"),
		EnableOriginCheck: viper.GetBool("ENABLE_ORIGIN_CHECK"),
		AcceptableOrigins: originList,
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:     viper.GetString("POSTGRES_HOST"),
		Port:     viper.GetInt("POSTGRES_PORT"),
		User:     viper.GetString("POSTGRES_USER"),
		Password: viper.GetString("POSTGRES_PASSWORD"),
		DBName:   viper.GetString("POSTGRES_DB"),
		SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
	}

	// ── Routing ─────────────────────────────────────────
	cfg.Routing = RoutingConfig{
		BaseURL: viper.GetString("ROUTING_BASE_URL"),
		APIKey:  viper.GetString("GOOGLE_API_TOKEN"),
		Timeout: viper.GetDuration("ROUTING_TIMEOUT"),
	}

	// ── Scheduler margins ────────────────────────────────
	cfg.Scheduler = SchedulerConfig{
		DefaultBeforePickup:     time.Duration(viper.GetInt64("DEFAULT_BEFORE_PICKUP_TIME")) * time.Millisecond,
		DefaultAfterPickup:      time.Duration(viper.GetInt64("DEFAULT_AFTER_PICKUP_TIME")) * time.Millisecond,
		DefaultDropoffUnloading: time.Duration(viper.GetInt64("DEFAULT_DROPOFF_UNLOADING_TIME")) * time.Millisecond,
	}

	// ── Cache ───────────────────────────────────────────
	cfg.Cache = CacheConfig{
		Enabled:     viper.GetBool("ENABLE_CACHE"),
		Type:        viper.GetString("CACHE_TYPE"),
		MemCapacity: viper.GetInt("CACHE_MEM_CAPACITY"),
		TTL:         time.Duration(viper.GetInt64("CACHE_TTL")) * time.Millisecond,
	}

	// ── Task store ───────────────────────────────────────
	cfg.Task = TaskConfig{
		TTL: time.Duration(viper.GetInt64("TASK_TTL")) * time.Millisecond,
	}

	// ── Processor ────────────────────────────────────────
	cfg.Processor = ProcessorConfig{
		ThreadNumber:     viper.GetInt("PROCESSOR_THREAD_NUMBER"),
		BatchSize:        viper.GetInt("PROCESSOR_BATCH_SIZE"),
		Interval:         time.Duration(viper.GetInt64("PROCESSOR_INTERVAL")) * time.Millisecond,
		ReclaimThreshold: viper.GetDuration("PROCESSOR_RECLAIM_THRESHOLD"),
	}

	return cfg, nil
}
