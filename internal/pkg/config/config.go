package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET, required"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	// ClientOrigin is the browser origin allowed by CORS and the WebSocket
	// upgrader. "*" allows any origin.
	ClientOrigin string `env:"CLIENT_ORIGIN, default=http://localhost:5173"`

	SessionTTL time.Duration `env:"SESSION_TTL, default=168h"`

	Mongo     MongoConfig
	Redis     RedisConfig
	S3        S3Config
	Mail      MailConfig
	NATS      NATSConfig
	RateLimit RateLimitConfig
	OTP       OTPConfig
	Realtime  RealtimeConfig
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,            default=chatty"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=100"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=10"`
}

type S3Config struct {
	Region        string `env:"S3_REGION,          default=us-east-1"`
	Bucket        string `env:"S3_BUCKET,          default=chatty-media"`
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	Endpoint      string `env:"S3_ENDPOINT"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	KeyPrefix     string `env:"S3_KEY_PREFIX,      default=chatty"`
}

type MailConfig struct {
	// An empty ResendAPIKey logs codes instead of mailing them.
	ResendAPIKey string `env:"RESEND_API_KEY"`
	From         string `env:"MAIL_FROM, default=Chatty <no-reply@chatty.local>"`
}

type NATSConfig struct {
	// An empty URL disables the event relay.
	URL           string `env:"NATS_URL"`
	User          string `env:"NATS_USER"`
	Password      string `env:"NATS_PASSWORD"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX"`
	Workers       int    `env:"RELAY_WORKERS, default=4"`
}

type RateLimitConfig struct {
	AuthRequests int           `env:"AUTH_RATE_LIMIT,  default=5"`
	AuthWindow   time.Duration `env:"AUTH_RATE_WINDOW, default=15m"`
	APIRequests  int           `env:"API_RATE_LIMIT,   default=100"`
	APIWindow    time.Duration `env:"API_RATE_WINDOW,  default=15m"`
}

type OTPConfig struct {
	TTL            time.Duration `env:"OTP_TTL,             default=10m"`
	ResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN, default=60s"`
}

type RealtimeConfig struct {
	QueueSize int `env:"WS_QUEUE_SIZE, default=64"`
}

// IsProduction reports whether secure cookies and JSON logs should be used.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads a .env file when present, then configuration from environment
// variables using go-envconfig.
func Load() *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
