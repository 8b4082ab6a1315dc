package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Caller        CallerAuthConfig
	Classroom     ClassroomConfig
	Batch         BatchConfig
	Registrations RegistrationsConfig
	MappingCache  MappingCacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CallerAuthConfig protects skill endpoints with a shared-secret JWT. An empty
// secret disables caller authentication.
type CallerAuthConfig struct {
	Secret        string
	Issuer        string
	AllowedSkills []string
}

// ClassroomConfig tunes the remote Classroom API client.
type ClassroomConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// BatchConfig bounds the number of in-flight sub-queries per batch.
type BatchConfig struct {
	Concurrency int
}

// RegistrationsConfig gates the push-notification registration lifecycle.
type RegistrationsConfig struct {
	Enabled bool
	Topic   string
	Workers int
	Retries int
}

// MappingCacheConfig governs the Redis read-through cache for user mappings.
type MappingCacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	KeyPrefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Caller = CallerAuthConfig{
		Secret:        v.GetString("CALLER_JWT_SECRET"),
		Issuer:        v.GetString("CALLER_JWT_ISSUER"),
		AllowedSkills: splitAndTrim(v.GetString("CALLER_ALLOWED_SKILLS")),
	}

	cfg.Classroom = ClassroomConfig{
		BaseURL:      strings.TrimRight(v.GetString("CLASSROOM_BASE_URL"), "/"),
		Timeout:      parseDuration(v.GetString("CLASSROOM_TIMEOUT"), 10*time.Second),
		MaxRetries:   v.GetInt("CLASSROOM_MAX_RETRIES"),
		RetryBackoff: parseDuration(v.GetString("CLASSROOM_RETRY_BACKOFF"), 200*time.Millisecond),
	}

	cfg.Batch = BatchConfig{
		Concurrency: v.GetInt("BATCH_CONCURRENCY"),
	}

	cfg.Registrations = RegistrationsConfig{
		Enabled: v.GetBool("ENABLE_REGISTRATIONS"),
		Topic:   v.GetString("REGISTRATION_TOPIC"),
		Workers: v.GetInt("REGISTRATION_WORKERS"),
		Retries: v.GetInt("REGISTRATION_RETRIES"),
	}

	cfg.MappingCache = MappingCacheConfig{
		Enabled:   v.GetBool("ENABLE_MAPPING_CACHE"),
		TTL:       parseDuration(v.GetString("MAPPING_CACHE_TTL"), 15*time.Minute),
		KeyPrefix: v.GetString("MAPPING_CACHE_PREFIX"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classroom_skill")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALLER_JWT_SECRET", "")
	v.SetDefault("CALLER_JWT_ISSUER", "")
	v.SetDefault("CALLER_ALLOWED_SKILLS", "")

	v.SetDefault("CLASSROOM_BASE_URL", "https://classroom.googleapis.com")
	v.SetDefault("CLASSROOM_TIMEOUT", "10s")
	v.SetDefault("CLASSROOM_MAX_RETRIES", 2)
	v.SetDefault("CLASSROOM_RETRY_BACKOFF", "200ms")

	v.SetDefault("BATCH_CONCURRENCY", 8)

	v.SetDefault("ENABLE_REGISTRATIONS", false)
	v.SetDefault("REGISTRATION_TOPIC", "")
	v.SetDefault("REGISTRATION_WORKERS", 2)
	v.SetDefault("REGISTRATION_RETRIES", 3)

	v.SetDefault("ENABLE_MAPPING_CACHE", false)
	v.SetDefault("MAPPING_CACHE_TTL", "15m")
	v.SetDefault("MAPPING_CACHE_PREFIX", "classroom-skill")
}

// viper reports a missing explicit config file as a *fs.PathError rather than
// ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
