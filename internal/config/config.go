package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MetricsPort string `mapstructure:"METRICS_PORT"`

	// GRPCHealthPort serves the gRPC health protocol. Empty disables it.
	GRPCHealthPort string `mapstructure:"GRPC_HEALTH_PORT"`

	MongoURI        string `mapstructure:"MONGO_URI"`
	MongoDB         string `mapstructure:"MONGO_DB"`
	MongoCollection string `mapstructure:"MONGO_COLLECTION"`

	RedisAddress  string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	DraftTTL      time.Duration `mapstructure:"DRAFT_TTL"`
	ListingTTL    time.Duration `mapstructure:"LISTING_CACHE_TTL"`

	NATSURL string `mapstructure:"NATS_URL"`

	// StorageBackend selects the blob store: "minio" or "s3".
	StorageBackend  string        `mapstructure:"STORAGE_BACKEND"`
	MinIOEndpoint   string        `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey  string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey  string        `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket     string        `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL     bool          `mapstructure:"MINIO_USE_SSL"`
	MinIOPublicRead bool          `mapstructure:"MINIO_PUBLIC_READ"`
	S3Region        string        `mapstructure:"S3_REGION"`
	S3Bucket        string        `mapstructure:"S3_BUCKET"`
	S3Endpoint      string        `mapstructure:"S3_ENDPOINT"`
	S3AccessKey     string        `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string        `mapstructure:"S3_SECRET_KEY"`
	PublicBaseURL   string        `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	PreviewTTL      time.Duration `mapstructure:"PREVIEW_URL_TTL"`
	MaxUploadBytes  int64         `mapstructure:"MAX_UPLOAD_BYTES"`

	// AuthProvider selects the token verifier: "jwt" or "firebase".
	AuthProvider            string `mapstructure:"AUTH_PROVIDER"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	FirebaseCredentialsPath string `mapstructure:"FIREBASE_CREDENTIALS_PATH"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPEmail    string `mapstructure:"SMTP_EMAIL"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var defaults = map[string]interface{}{
	"HTTP_PORT":                   "8080",
	"METRICS_PORT":                "9093",
	"GRPC_HEALTH_PORT":            "50051",
	"MONGO_URI":                   "mongodb://localhost:27017",
	"MONGO_DB":                    "webcarros",
	"MONGO_COLLECTION":            "cars",
	"REDIS_ADDRESS":               "localhost:6379",
	"REDIS_PASSWORD":              "",
	"DRAFT_TTL":                   24 * time.Hour,
	"LISTING_CACHE_TTL":           time.Hour,
	"NATS_URL":                    "nats://localhost:4222",
	"STORAGE_BACKEND":             "minio",
	"MINIO_ENDPOINT":              "localhost:9000",
	"MINIO_ACCESS_KEY":            "minioadmin",
	"MINIO_SECRET_KEY":            "minioadmin",
	"MINIO_BUCKET":                "webcarros-images",
	"MINIO_USE_SSL":               false,
	"MINIO_PUBLIC_READ":           true,
	"S3_REGION":                   "us-east-1",
	"S3_BUCKET":                   "",
	"S3_ENDPOINT":                 "",
	"S3_ACCESS_KEY":               "",
	"S3_SECRET_KEY":               "",
	"STORAGE_PUBLIC_BASE_URL":     "",
	"PREVIEW_URL_TTL":             15 * time.Minute,
	"MAX_UPLOAD_BYTES":            int64(10 << 20),
	"AUTH_PROVIDER":               "jwt",
	"JWT_SECRET":                  "",
	"FIREBASE_CREDENTIALS_PATH":   "",
	"SMTP_HOST":                   "smtp.gmail.com",
	"SMTP_PORT":                   587,
	"SMTP_EMAIL":                  "",
	"SMTP_PASSWORD":               "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
}

// Load reads .env (when present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	cfg.AuthProvider = strings.ToLower(cfg.AuthProvider)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.AuthProvider {
	case "jwt":
		if c.JWTSecret == "" {
			return errors.New("config: JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	case "firebase":
		if c.FirebaseCredentialsPath == "" {
			return errors.New("config: FIREBASE_CREDENTIALS_PATH is required when AUTH_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.StorageBackend {
	case "minio":
		if c.MinIOBucket == "" {
			return errors.New("config: MINIO_BUCKET is required")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("config: S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.HTTPPort == "" {
		return errors.New("config: HTTP_PORT is required")
	}
	return nil
}

// MailEnabled reports whether SMTP credentials were provided.
func (c *Config) MailEnabled() bool {
	return c.SMTPEmail != "" && c.SMTPPassword != ""
}
