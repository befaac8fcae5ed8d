package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env         string `env:"ENV"          envDefault:"local" validate:"required,oneof=local staging production"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"snapdocs"`
	Version     string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	Port        string `env:"PORT"         envDefault:"8000" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info" validate:"oneof=debug info warn error"`

	// The document service listens on its own ports so both binaries can run on one host.
	DocsPort        string `env:"DOCS_PORT"         envDefault:"8001" validate:"required"`
	DocsMetricsPort string `env:"DOCS_METRICS_PORT" envDefault:"9091"`

	DatabaseURL   string `env:"DATABASE_URL,required" validate:"required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS"        envDefault:"true"`

	JWTSecret    string        `env:"JWT_SECRET,required" validate:"required,min=32"`
	JWTAlgorithm string        `env:"JWT_ALGORITHM"       envDefault:"HS256" validate:"oneof=HS256 HS384 HS512"`
	TokenTTL     time.Duration `env:"TOKEN_TTL"           envDefault:"60m"   validate:"min=1m,max=168h"`
	JWKSURL      string        `env:"JWKS_URL"            validate:"omitempty,url"`
	BcryptCost   int           `env:"BCRYPT_COST"         envDefault:"12"    validate:"min=4,max=31"`

	UploadDir         string   `env:"UPLOAD_DIR"         envDefault:"./uploads" validate:"required"`
	MaxFileSize       int64    `env:"MAX_FILE_SIZE"      envDefault:"50000000"  validate:"min=1"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envDefault:"pdf,doc,docx,jpg,jpeg,png,gif,txt,xls,xlsx,ppt,pptx,zip,rar" envSeparator:","`
	PublicBaseURL     string   `env:"PUBLIC_BASE_URL"    validate:"omitempty,url"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"local" validate:"oneof=local s3"`
	S3Bucket       string `env:"S3_BUCKET"        validate:"required_if=StorageBackend s3"`
	S3Region       string `env:"S3_REGION"        envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"      validate:"omitempty,url"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`

	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://127.0.0.1:3000" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0" validate:"min=0,max=15"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production"`

	RevocationPurgeCron string `env:"REVOCATION_PURGE_CRON" envDefault:"@hourly" validate:"required"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.AllowedExtensions = normalizeExtensions(cfg.AllowedExtensions)

	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto slog levels. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func normalizeExtensions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, ext := range in {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
