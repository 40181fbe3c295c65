package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Auth         AuthConfig
	Gemini       GeminiConfig
	Storage      StorageConfig
	Materializer MaterializerConfig
	Worker       WorkerConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	SocketLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type AuthConfig struct {
	JwtSecret string
}

type GeminiConfig struct {
	ApiKey           string
	Model            string
	BaseURL          string
	UploadAttempts   int
	IngestionTimeout time.Duration
	PollInterval     time.Duration
	RetryBackoff     time.Duration
	ChatTimeout      time.Duration
}

type StorageConfig struct {
	Backend     string // "local", "s3" or "gcs"
	LocalRoot   string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	S3Region    string
	GCSBucket   string
	URLTTL      time.Duration
}

type MaterializerConfig struct {
	DownloadTimeout time.Duration
	ChunkBytes      int
}

type WorkerConfig struct {
	PoolSize   int // database work
	AiPoolSize int // document downloads and Gemini calls
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			SocketLogFilePath:  getEnv("SOCKET_LOG_FILE_PATH", "logs/chat_socket.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Gemini: GeminiConfig{
			ApiKey:           getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Model:            getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL:          getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			UploadAttempts:   getEnvAsInt("GEMINI_UPLOAD_ATTEMPTS", 3),
			IngestionTimeout: getEnvAsDuration("GEMINI_INGESTION_TIMEOUT", 30*time.Second),
			PollInterval:     getEnvAsDuration("GEMINI_POLL_INTERVAL", time.Second),
			RetryBackoff:     getEnvAsDuration("GEMINI_RETRY_BACKOFF", 2*time.Second),
			ChatTimeout:      getEnvAsDuration("GEMINI_CHAT_TIMEOUT", 120*time.Second),
		},
		Storage: StorageConfig{
			Backend:     getEnv("STORAGE_BACKEND", "local"),
			LocalRoot:   getEnv("STORAGE_LOCAL_ROOT", "uploads"),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3UseSSL:    getEnvAsBool("S3_USE_SSL", true),
			S3Region:    getEnv("S3_REGION", "us-east-1"),
			GCSBucket:   getEnv("GCS_BUCKET", ""),
			URLTTL:      getEnvAsDuration("STORAGE_URL_TTL", 15*time.Minute),
		},
		Materializer: MaterializerConfig{
			DownloadTimeout: getEnvAsDuration("DOWNLOAD_TIMEOUT", 30*time.Second),
			ChunkBytes:      getEnvAsInt("DOWNLOAD_CHUNK_BYTES", 1024*1024),
		},
		Worker: WorkerConfig{
			PoolSize:   getEnvAsInt("WORKER_POOL_SIZE", 16),
			AiPoolSize: getEnvAsInt("AI_WORKER_POOL_SIZE", 8),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("30s", "2m") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
