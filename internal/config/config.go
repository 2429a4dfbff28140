package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Callback   CallbackConfig   `mapstructure:"callback"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig holds the shared API key expected from platform callers.
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TLS       bool   `mapstructure:"tls"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	StreamName string `mapstructure:"stream_name"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// EngagementConfig controls the session lifecycle policy.
type EngagementConfig struct {
	MinMessages        int `mapstructure:"min_messages"`
	MaxMessages        int `mapstructure:"max_messages"`
	HighConfidence     int `mapstructure:"high_confidence"`
	ReportingThreshold int `mapstructure:"reporting_threshold"`
}

// LLMConfig configures the reply generation boundary.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // "anthropic" or "openai"
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CallbackConfig configures final report delivery.
type CallbackConfig struct {
	URL           string        `mapstructure:"url"`
	Secret        string        `mapstructure:"secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	MaxRetryDelay time.Duration `mapstructure:"max_retry_delay"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/scamtrap-lab")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("SCAMTRAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("auth.api_key", "SCAMTRAP_AUTH_API_KEY")
	v.BindEnv("redis.enabled", "SCAMTRAP_REDIS_ENABLED")
	v.BindEnv("redis.host", "SCAMTRAP_REDIS_HOST")
	v.BindEnv("redis.port", "SCAMTRAP_REDIS_PORT")
	v.BindEnv("redis.password", "SCAMTRAP_REDIS_PASSWORD")
	v.BindEnv("redis.tls", "SCAMTRAP_REDIS_TLS")
	v.BindEnv("database.enabled", "SCAMTRAP_DATABASE_ENABLED")
	v.BindEnv("database.host", "SCAMTRAP_DATABASE_HOST")
	v.BindEnv("database.port", "SCAMTRAP_DATABASE_PORT")
	v.BindEnv("database.user", "SCAMTRAP_DATABASE_USER")
	v.BindEnv("database.password", "SCAMTRAP_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "SCAMTRAP_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "SCAMTRAP_DATABASE_SSLMODE")
	v.BindEnv("nats.enabled", "SCAMTRAP_NATS_ENABLED")
	v.BindEnv("nats.url", "SCAMTRAP_NATS_URL")
	v.BindEnv("llm.provider", "SCAMTRAP_LLM_PROVIDER")
	v.BindEnv("llm.api_key", "SCAMTRAP_LLM_API_KEY")
	v.BindEnv("llm.model", "SCAMTRAP_LLM_MODEL")
	v.BindEnv("callback.url", "SCAMTRAP_CALLBACK_URL")
	v.BindEnv("callback.secret", "SCAMTRAP_CALLBACK_SECRET")
	v.BindEnv("app.environment", "SCAMTRAP_APP_ENVIRONMENT")

	// Read config file; the service runs on defaults and env when none exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "scamtrap-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.requests_per_hour", 2000)

	v.SetDefault("engagement.min_messages", 8)
	v.SetDefault("engagement.max_messages", 15)
	v.SetDefault("engagement.high_confidence", 80)
	v.SetDefault("engagement.reporting_threshold", 50)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-3-5-haiku-20241022")
	v.SetDefault("llm.max_tokens", 256)
	v.SetDefault("llm.temperature", 0.9)
	v.SetDefault("llm.timeout", 10*time.Second)

	v.SetDefault("callback.timeout", 10*time.Second)
	v.SetDefault("callback.max_retries", 3)
	v.SetDefault("callback.retry_interval", 2*time.Second)
	v.SetDefault("callback.backoff_factor", 2.0)
	v.SetDefault("callback.max_retry_delay", 30*time.Second)
	v.SetDefault("callback.workers", 2)
	v.SetDefault("callback.queue_size", 64)
}
