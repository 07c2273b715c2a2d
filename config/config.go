package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Recording   RecordingConfig
	Browser     BrowserConfig
	AI          AIConfig
	Email       EmailConfig
	Persistence PersistenceConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	Version            string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/walkthroughs?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds S3 settings for the CDN copy of finished recordings. An empty Bucket disables uploads.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Bucket               string
	Endpoint             string
	PublicRead           bool
	PresignExpireMinutes int
}

// RecordingConfig controls where recordings are written and how sessions are driven.
type RecordingConfig struct {
	OutputDir         string // recordings land in <OutputDir>/recordings
	PublicPath        string
	FallbackVideoURL  string
	NavigationTimeout time.Duration
	TypingDelay       time.Duration
	ProcessingDelay   time.Duration
	Retention         time.Duration
	ReapInterval      time.Duration
	NotifyTimeout     time.Duration
}

// BrowserConfig configures Chrome and the ffmpeg encoder.
type BrowserConfig struct {
	ControlURL string
	Bin        string
	Headless   bool
	NoSandbox  bool
	Flags      []string
	FFmpegPath string
	FrameRate  int
	Quality    int
}

// AIConfig holds generation provider keys. A provider without a key is skipped.
type AIConfig struct {
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	GeminiKey     string
	GeminiModel   string
}

// EmailConfig holds SMTP settings. Notifications are disabled without a username and password.
type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
}

// PersistenceConfig names the account that owns API-created walkthroughs.
type PersistenceConfig struct {
	SystemUserID int64
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "5000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 0),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			Version:            getEnv("SERVICE_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "walkthroughs"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Bucket:               getEnv("AWS_S3_RECORDINGS_BUCKET", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			PublicRead:           getEnvBool("AWS_S3_PUBLIC_READ", false),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Recording: RecordingConfig{
			OutputDir:         getEnv("RECORDING_OUTPUT_DIR", "."),
			PublicPath:        getEnv("RECORDING_PUBLIC_PATH", "/api/recordings"),
			// empty uses the recorder's built-in demonstration video
			FallbackVideoURL:  getEnv("RECORDING_FALLBACK_VIDEO_URL", ""),
			NavigationTimeout: getEnvDuration("RECORDING_NAVIGATION_TIMEOUT", 30*time.Second),
			TypingDelay:       getEnvDuration("RECORDING_TYPING_DELAY", 100*time.Millisecond),
			ProcessingDelay:   getEnvDuration("RECORDING_PROCESSING_DELAY", 3*time.Second),
			Retention:         getEnvDuration("SESSION_RETENTION", 24*time.Hour),
			ReapInterval:      getEnvDuration("SESSION_REAP_INTERVAL", time.Hour),
			NotifyTimeout:     getEnvDuration("EMAIL_NOTIFY_TIMEOUT", 2*time.Minute),
		},
		Browser: BrowserConfig{
			ControlURL: getEnv("BROWSER_CONTROL_URL", ""),
			Bin:        getEnv("BROWSER_BIN", ""),
			Headless:   getEnvBool("BROWSER_HEADLESS", true),
			NoSandbox:  getEnvBool("BROWSER_NO_SANDBOX", true),
			Flags:      splitTrim(getEnv("BROWSER_FLAGS", "--disable-dev-shm-usage;--window-size=1280,720"), ";"),
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
			FrameRate:  getEnvInt("RECORDING_FRAME_RATE", 25),
			Quality:    getEnvInt("RECORDING_JPEG_QUALITY", 80),
		},
		AI: AIConfig{
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("OPENAI_MODEL", ""),
			GeminiKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", ""),
		},
		Email: EmailConfig{
			SMTPHost: getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort: getEnvInt("SMTP_PORT", 587),
			SMTPUser: getEnv("SMTP_USERNAME", ""),
			SMTPPass: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Persistence: PersistenceConfig{
			SystemUserID: int64(getEnvInt("SYSTEM_USER_ID", 1)),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "1h") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
