package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Storage StorageConfig
	Log     LogConfig
	CORS    CORSConfig
	Kafka   KafkaConfig
	Sweeper SweeperConfig
	Email   EmailConfig
	Client  ClientConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig holds object storage settings. Provider is "s3" or "minio".
type StorageConfig struct {
	Provider      string        `mapstructure:"provider"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	MaxFileSizeMB int64         `mapstructure:"max_file_size_mb"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// MaxFileSize returns the size limit in bytes.
func (s *StorageConfig) MaxFileSize() int64 {
	return s.MaxFileSizeMB << 20
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// KafkaConfig holds commit event publishing settings. No brokers disables
// publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Enabled reports whether any broker is configured.
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// SweeperConfig holds orphan sweeper settings.
type SweeperConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	Grace         time.Duration `mapstructure:"grace"`
	Batch         int           `mapstructure:"batch"`
	DeleteOrphans bool          `mapstructure:"delete_orphans"`
}

// EmailConfig holds operator notification settings.
type EmailConfig struct {
	Provider        string `mapstructure:"provider"`
	Region          string `mapstructure:"region"`
	FromAddress     string `mapstructure:"from_address"`
	FromName        string `mapstructure:"from_name"`
	OperatorAddress string `mapstructure:"operator_address"`
}

// ClientConfig holds settings for hydroctl and other API clients.
type ClientConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RangeLow  float64       `mapstructure:"range_low"`
	RangeHigh float64       `mapstructure:"range_high"`
	RetryMax  int           `mapstructure:"retry_max"`
}

var envBindings = map[string]string{
	"server.port":              "HYDROMET_SERVER_PORT",
	"server.read_timeout":      "HYDROMET_SERVER_READ_TIMEOUT",
	"server.write_timeout":     "HYDROMET_SERVER_WRITE_TIMEOUT",
	"server.environment":       "HYDROMET_SERVER_ENVIRONMENT",
	"db.host":                  "HYDROMET_DB_HOST",
	"db.port":                  "HYDROMET_DB_PORT",
	"db.user":                  "HYDROMET_DB_USER",
	"db.password":              "HYDROMET_DB_PASSWORD",
	"db.name":                  "HYDROMET_DB_NAME",
	"db.sslmode":               "HYDROMET_DB_SSLMODE",
	"db.max_open":              "HYDROMET_DB_MAX_OPEN",
	"db.max_idle":              "HYDROMET_DB_MAX_IDLE",
	"storage.provider":         "HYDROMET_STORAGE_PROVIDER",
	"storage.region":           "HYDROMET_STORAGE_REGION",
	"storage.bucket":           "HYDROMET_STORAGE_BUCKET",
	"storage.endpoint":         "HYDROMET_STORAGE_ENDPOINT",
	"storage.access_key":       "HYDROMET_STORAGE_ACCESS_KEY",
	"storage.secret_key":       "HYDROMET_STORAGE_SECRET_KEY",
	"storage.use_ssl":          "HYDROMET_STORAGE_USE_SSL",
	"storage.max_file_size_mb": "HYDROMET_STORAGE_MAX_FILE_SIZE_MB",
	"storage.presign_expiry":   "HYDROMET_STORAGE_PRESIGN_EXPIRY",
	"log.level":                "HYDROMET_LOG_LEVEL",
	"log.format":               "HYDROMET_LOG_FORMAT",
	"cors.allowed_origins":     "HYDROMET_CORS_ALLOWED_ORIGINS",
	"kafka.brokers":            "HYDROMET_KAFKA_BROKERS",
	"kafka.topic":              "HYDROMET_KAFKA_TOPIC",
	"sweeper.enabled":          "HYDROMET_SWEEPER_ENABLED",
	"sweeper.interval":         "HYDROMET_SWEEPER_INTERVAL",
	"sweeper.grace":            "HYDROMET_SWEEPER_GRACE",
	"sweeper.batch":            "HYDROMET_SWEEPER_BATCH",
	"sweeper.delete_orphans":   "HYDROMET_SWEEPER_DELETE_ORPHANS",
	"email.provider":           "HYDROMET_EMAIL_PROVIDER",
	"email.region":             "HYDROMET_EMAIL_REGION",
	"email.from_address":       "HYDROMET_EMAIL_FROM_ADDRESS",
	"email.from_name":          "HYDROMET_EMAIL_FROM_NAME",
	"email.operator_address":   "HYDROMET_EMAIL_OPERATOR_ADDRESS",
	"client.api_url":           "HYDROMET_CLIENT_API_URL",
	"client.timeout":           "HYDROMET_CLIENT_TIMEOUT",
	"client.range_low":         "HYDROMET_CLIENT_RANGE_LOW",
	"client.range_high":        "HYDROMET_CLIENT_RANGE_HIGH",
	"client.retry_max":         "HYDROMET_CLIENT_RETRY_MAX",
}

// Load reads configuration from environment variables with the HYDROMET_
// prefix. A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("HYDROMET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "hydromet")
	v.SetDefault("db.password", "hydromet_secret")
	v.SetDefault("db.name", "hydromet_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Storage defaults
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "hydromet-data")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.max_file_size_mb", 512)
	v.SetDefault("storage.presign_expiry", "15m")

	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "hydromet.uploads.committed")

	// Sweeper defaults
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "1m")
	v.SetDefault("sweeper.grace", "5m")
	v.SetDefault("sweeper.batch", 50)
	v.SetDefault("sweeper.delete_orphans", false)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "ap-south-1")
	v.SetDefault("email.from_address", "noreply@hydromet.local")
	v.SetDefault("email.from_name", "Hydromet")
	v.SetDefault("email.operator_address", "")

	// Client defaults
	v.SetDefault("client.api_url", "http://localhost:8080/api/v1")
	v.SetDefault("client.timeout", "30s")
	v.SetDefault("client.range_low", 5)
	v.SetDefault("client.range_high", 95)
	v.SetDefault("client.retry_max", 3)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Platform-provided PORT applies unless HYDROMET_SERVER_PORT is explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HYDROMET_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Storage = StorageConfig{
		Provider:      strings.ToLower(v.GetString("storage.provider")),
		Region:        v.GetString("storage.region"),
		Bucket:        v.GetString("storage.bucket"),
		Endpoint:      v.GetString("storage.endpoint"),
		AccessKey:     v.GetString("storage.access_key"),
		SecretKey:     v.GetString("storage.secret_key"),
		UseSSL:        v.GetBool("storage.use_ssl"),
		MaxFileSizeMB: v.GetInt64("storage.max_file_size_mb"),
		PresignExpiry: v.GetDuration("storage.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Kafka = KafkaConfig{
		Brokers: splitList(v.GetString("kafka.brokers")),
		Topic:   v.GetString("kafka.topic"),
	}
	cfg.Sweeper = SweeperConfig{
		Enabled:       v.GetBool("sweeper.enabled"),
		Interval:      v.GetDuration("sweeper.interval"),
		Grace:         v.GetDuration("sweeper.grace"),
		Batch:         v.GetInt("sweeper.batch"),
		DeleteOrphans: v.GetBool("sweeper.delete_orphans"),
	}
	cfg.Email = EmailConfig{
		Provider:        v.GetString("email.provider"),
		Region:          v.GetString("email.region"),
		FromAddress:     v.GetString("email.from_address"),
		FromName:        v.GetString("email.from_name"),
		OperatorAddress: v.GetString("email.operator_address"),
	}
	cfg.Client = ClientConfig{
		APIURL:    strings.TrimRight(v.GetString("client.api_url"), "/"),
		Timeout:   v.GetDuration("client.timeout"),
		RangeLow:  v.GetFloat64("client.range_low"),
		RangeHigh: v.GetFloat64("client.range_high"),
		RetryMax:  v.GetInt("client.retry_max"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Provider {
	case "s3", "minio":
	default:
		return fmt.Errorf("config: unknown storage provider %q", c.Storage.Provider)
	}
	if c.Storage.PresignExpiry <= 0 {
		return fmt.Errorf("config: storage.presign_expiry must be positive")
	}
	if c.Sweeper.Enabled && (c.Sweeper.Interval <= 0 || c.Sweeper.Batch <= 0) {
		return fmt.Errorf("config: sweeper interval and batch must be positive")
	}
	return nil
}

// splitList parses a comma-separated value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
