package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Export    ExportConfig    `mapstructure:"export"`
	Webhooks  WebhooksConfig  `mapstructure:"webhooks"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// AllowedOrigins are host patterns accepted on the change feed websocket.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver         string      `mapstructure:"driver"` // sqlite, redis, memory
	Path           string      `mapstructure:"path"`
	MaxConnections int         `mapstructure:"max_connections"`
	Redis          RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type UpstreamConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	SyncPath        string        `mapstructure:"sync_path"`
	WebhookEndpoint string        `mapstructure:"webhook_endpoint"`
	StoreID         string        `mapstructure:"store_id"`
}

type SyncConfig struct {
	DefaultMethod     string        `mapstructure:"default_method"`
	DataTypes         []string      `mapstructure:"data_types"`
	LowStockThreshold int           `mapstructure:"low_stock_threshold"`
	ScheduleInterval  time.Duration `mapstructure:"schedule_interval"`
}

type ExportConfig struct {
	Format      string   `mapstructure:"format"` // xlsx, json
	Prefix      string   `mapstructure:"prefix"`
	Destination string   `mapstructure:"destination"` // local, s3
	Dir         string   `mapstructure:"dir"`
	S3          S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

type WebhooksConfig struct {
	CallbackURL     string   `mapstructure:"callback_url"`
	Secret          string   `mapstructure:"secret"`
	VerifyToken     string   `mapstructure:"verify_token"`
	Description     string   `mapstructure:"description"`
	Events          []string `mapstructure:"events"`
	SignatureHeader string   `mapstructure:"signature_header"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

type RateLimitConfig struct {
	IngestPerMinute int `mapstructure:"ingest_per_minute"`
	APIPerMinute    int `mapstructure:"api_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/retailsync.db")
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.key_prefix", "retailsync:")

	// Empty defaults register the keys so AutomaticEnv can fill them on Unmarshal.
	for _, key := range []string{
		"upstream.base_url", "upstream.store_id",
		"webhooks.callback_url", "webhooks.secret", "webhooks.verify_token",
		"jwt.secret", "admin.password_hash",
		"export.s3.bucket", "export.s3.endpoint", "export.s3.access_key", "export.s3.secret_key",
	} {
		v.SetDefault(key, "")
	}

	v.SetDefault("upstream.timeout", 30*time.Second)
	v.SetDefault("upstream.sync_path", "/sync")
	v.SetDefault("upstream.webhook_endpoint", "/webhooks")

	v.SetDefault("sync.default_method", "localStore")
	v.SetDefault("sync.low_stock_threshold", 10)

	v.SetDefault("export.format", "xlsx")
	v.SetDefault("export.prefix", "retail-sync")
	v.SetDefault("export.destination", "local")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.s3.region", "us-east-1")

	v.SetDefault("webhooks.description", "Retail back-office sync")
	v.SetDefault("webhooks.signature_header", "X-Webhook-Signature")

	v.SetDefault("jwt.access_token_ttl", 12*time.Hour)
	v.SetDefault("admin.username", "admin")

	v.SetDefault("rate_limit.ingest_per_minute", 600)
	v.SetDefault("rate_limit.api_per_minute", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Load reads path (when it exists) on top of built-in defaults.
// Environment variables override both, e.g. UPSTREAM_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
