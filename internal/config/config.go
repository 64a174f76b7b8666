package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port         string
	CORSOrigins  string
	MaxUploadMB  int
	DevMode      bool
	PublicPrefix string

	// Database configuration
	DBType                string // mysql, mariadb, postgres, sqlite, sqlite3, sqlserver
	DBHost                string
	DBPort                string
	DBDatabase            string
	DBUser                string
	DBPassword            string
	DBConnectionLimit     int
	DBReadUser            string
	DBReadPassword        string
	DBReadConnectionLimit int
	DBAutoMigrate         bool

	// Token configuration
	JWTSecret string
	JWTTTL    time.Duration

	// Blob storage configuration
	StorageDriver         string // file, s3, mem
	StorageBaseDir        string
	StorageBucket         string
	StorageRegion         string
	StorageEndpoint       string
	StorageForcePathStyle bool

	// Download event stream configuration
	MQType               string // noop, kafka, redis
	KafkaBrokers         []string
	KafkaTopicDownloads  string
	RedisURL             string
	RedisStreamDownloads string
	RedisStreamMaxLen    int64

	// Throttles, requests per minute
	RateLimitRegister int
	RateLimitLogin    int

	// Logging configuration
	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load loads configuration from environment variables, after folding in
// ENV_FILE (or ./.env when present). Variables already set win.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:         getEnv("PORT", "3000"),
		CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
		MaxUploadMB:  getEnvAsInt("MAX_UPLOAD_MB", 512),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		PublicPrefix: getEnv("MEDIA_URL_PREFIX", "/media/"),

		DBType:                strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "3306"),
		DBDatabase:            getEnv("DB_DATABASE", "gamestore.db"),
		DBUser:                getEnv("DB_USER", ""),
		DBPassword:            getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:     getEnvAsInt("DB_CONNECTION_LIMIT", 10),
		DBReadUser:            getEnv("DB_READ_USER", ""),
		DBReadPassword:        getEnv("DB_READ_PASSWORD", ""),
		DBReadConnectionLimit: getEnvAsInt("DB_READ_CONNECTION_LIMIT", 5),
		DBAutoMigrate:         getEnvAsBool("DB_AUTO_MIGRATE", true),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),

		StorageDriver:         strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
		StorageBaseDir:        getEnv("STORAGE_BASE_DIR", "./media"),
		StorageBucket:         getEnv("STORAGE_BUCKET", ""),
		StorageRegion:         getEnv("STORAGE_REGION", ""),
		StorageEndpoint:       getEnv("STORAGE_ENDPOINT", ""),
		StorageForcePathStyle: getEnvAsBool("STORAGE_FORCE_PATH_STYLE", false),

		MQType:               strings.ToLower(getEnv("MQ_TYPE", "noop")),
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopicDownloads:  getEnv("KAFKA_TOPIC_DOWNLOADS", "gamestore.downloads"),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisStreamDownloads: getEnv("REDIS_STREAM_DOWNLOADS", "gamestore:downloads"),
		RedisStreamMaxLen:    int64(getEnvAsInt("REDIS_STREAM_MAXLEN", 100000)),

		RateLimitRegister: getEnvAsInt("RATE_LIMIT_REGISTER", 5),
		RateLimitLogin:    getEnvAsInt("RATE_LIMIT_LOGIN", 10),

		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),
	}

	if cfg.DBReadUser == "" {
		cfg.DBReadUser = cfg.DBUser
		cfg.DBReadPassword = cfg.DBPassword
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required and enumerated fields
func (cfg *Config) Validate() error {
	switch cfg.DBType {
	case "sqlite", "sqlite3":
	case "mysql", "mariadb", "postgres", "postgresql", "sqlserver", "mssql":
		if cfg.DBUser == "" {
			return fmt.Errorf("DB_USER is required for %s", cfg.DBType)
		}
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", cfg.DBType)
	}
	if cfg.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}

	if cfg.JWTSecret == "" {
		if !cfg.DevMode {
			return fmt.Errorf("JWT_SECRET is required")
		}
		cfg.JWTSecret = "gamestore-dev-secret"
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}

	switch cfg.StorageDriver {
	case "file":
		if cfg.StorageBaseDir == "" {
			return fmt.Errorf("STORAGE_BASE_DIR is required for the file driver")
		}
	case "s3":
		if cfg.StorageBucket == "" {
			return fmt.Errorf("STORAGE_BUCKET is required for the s3 driver")
		}
	case "mem":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s", cfg.StorageDriver)
	}

	switch cfg.MQType {
	case "noop", "":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka queue")
		}
	case "redis":
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis queue")
		}
	default:
		return fmt.Errorf("unsupported MQ_TYPE: %s", cfg.MQType)
	}

	if cfg.RateLimitRegister <= 0 || cfg.RateLimitLogin <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}

	return nil
}

// loadEnvFile reads ENV_FILE, or .env in the working directory if it exists.
func loadEnvFile() error {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load ENV_FILE %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
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
