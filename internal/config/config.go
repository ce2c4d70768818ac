package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup. It is built once in
// main and handed to constructors; nothing reads the environment after that.
type Config struct {
	Port     string
	GRPCPort string
	GinMode  string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	SQLitePath string

	JWTSecret string

	UploadDir   string
	MaxUploadMB int64

	ClassifierCommand       string
	ClassifierArgs          []string
	ClassifierTimeout       time.Duration
	ClassifierMaxConcurrent int64

	GeminiAPIKey   string
	GeminiEndpoint string
	GeminiTimeout  time.Duration

	RedisURL       string
	RemedyCacheTTL time.Duration

	RabbitMQURL      string
	RabbitMQExchange string
	EventWorkers     int

	S3Bucket string
	S3Region string

	Timezone    string
	CORSOrigins []string
}

const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GRPC_PORT", "9090")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "leafscan.db")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_MB", 10)
	v.SetDefault("CLASSIFIER_CMD", "python3")
	v.SetDefault("CLASSIFIER_ARGS", "predict.py")
	v.SetDefault("CLASSIFIER_TIMEOUT", "60s")
	v.SetDefault("CLASSIFIER_MAX_CONCURRENT", 4)
	v.SetDefault("GEMINI_ENDPOINT", DefaultGeminiEndpoint)
	v.SetDefault("GEMINI_TIMEOUT", "20s")
	v.SetDefault("REMEDY_CACHE_TTL", "24h")
	v.SetDefault("RABBITMQ_EXCHANGE", "leafscan.events")
	v.SetDefault("EVENT_WORKERS", 2)
	v.SetDefault("APP_TIMEZONE", "UTC")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
}

// Load reads envFile (if it exists) into the process environment and then
// resolves every setting through viper.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			log.Printf("Loaded environment from %s", envFile)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:     v.GetString("PORT"),
		GRPCPort: v.GetString("GRPC_PORT"),
		GinMode:  v.GetString("GIN_MODE"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:     v.GetString("DB_HOST"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBPort:     v.GetString("DB_PORT"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),
		SQLitePath: v.GetString("SQLITE_PATH"),

		JWTSecret: v.GetString("JWT_SECRET_KEY"),

		UploadDir:   v.GetString("UPLOAD_DIR"),
		MaxUploadMB: v.GetInt64("MAX_UPLOAD_MB"),

		ClassifierCommand:       v.GetString("CLASSIFIER_CMD"),
		ClassifierArgs:          strings.Fields(v.GetString("CLASSIFIER_ARGS")),
		ClassifierTimeout:       v.GetDuration("CLASSIFIER_TIMEOUT"),
		ClassifierMaxConcurrent: v.GetInt64("CLASSIFIER_MAX_CONCURRENT"),

		GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
		GeminiEndpoint: v.GetString("GEMINI_ENDPOINT"),
		GeminiTimeout:  v.GetDuration("GEMINI_TIMEOUT"),

		RedisURL:       v.GetString("REDIS_URL"),
		RemedyCacheTTL: v.GetDuration("REMEDY_CACHE_TTL"),

		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
		EventWorkers:     v.GetInt("EVENT_WORKERS"),

		S3Bucket: v.GetString("S3_BUCKET"),
		S3Region: v.GetString("S3_REGION"),

		Timezone:    v.GetString("APP_TIMEZONE"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}

	return cfg, nil
}

// Validate reports settings the service cannot start without. A missing
// GEMINI_API_KEY is not one of them; remedies fall back to fixed text.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.ClassifierCommand == "" {
		errs = append(errs, errors.New("CLASSIFIER_CMD is required"))
	}
	if c.ClassifierTimeout <= 0 {
		errs = append(errs, errors.New("CLASSIFIER_TIMEOUT must be positive"))
	}
	if c.ClassifierMaxConcurrent <= 0 {
		errs = append(errs, errors.New("CLASSIFIER_MAX_CONCURRENT must be positive"))
	}
	if c.GeminiTimeout <= 0 {
		errs = append(errs, errors.New("GEMINI_TIMEOUT must be positive"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.Timezone, err))
	}

	return errors.Join(errs...)
}

// Location returns the time zone used for day buckets. Validate must have
// passed; an unknown zone falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PredictionTimeout bounds a whole prediction request: waiting for a
// classifier slot, the classifier run and the remedy call. The HTTP write
// timeout must be longer.
func (c *Config) PredictionTimeout() time.Duration {
	return c.ClassifierTimeout + c.GeminiTimeout + 5*time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
