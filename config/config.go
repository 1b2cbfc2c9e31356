package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	ProviderYtDlp  = "ytdlp"
	ProviderOEmbed = "oembed"
)

type Config struct {
	// Server settings
	ServerPort      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Version         string
	StaticDir       string

	// Application paths
	LogDir  string
	TempDir string

	Log       LogConfig
	Extractor ExtractorConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	History   HistoryConfig
	Archive   ArchiveConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type ExtractorConfig struct {
	YtDlpPath        string
	MetadataProvider string
	AudioQuality     string
	InfoTimeout      time.Duration
	ConvertTimeout   time.Duration
	MaxAudioBytes    int64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
}

type HistoryConfig struct {
	Enabled bool
	DBPath  string
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// writeHeadroom is how much longer the server write deadline runs than a
// conversion, so a timed-out conversion still gets its error response.
const writeHeadroom = 30 * time.Second

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	convertTimeout := getEnvAsDuration("CONVERT_TIMEOUT", 10*time.Minute)

	return &Config{
		ServerPort:      GetEnv("SERVER_PORT", "8080"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", convertTimeout+writeHeadroom),
		IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		Version:         GetEnv("VERSION", "1.0.0"),
		StaticDir:       GetEnv("STATIC_DIR", "./static"),

		LogDir:  GetEnv("LOG_DIR", "./logs"),
		TempDir: GetEnv("TEMP_DIR", filepath.Join(os.TempDir(), "yt-mp3")),

		Log: LogConfig{
			Level:  GetEnv("LOG_LEVEL", "info"),
			Format: GetEnv("LOG_FORMAT", "text"),
		},

		Extractor: ExtractorConfig{
			YtDlpPath:        GetEnv("YTDLP_PATH", "yt-dlp"),
			MetadataProvider: GetEnv("METADATA_PROVIDER", ProviderYtDlp),
			AudioQuality:     GetEnv("AUDIO_QUALITY", "0"),
			InfoTimeout:      getEnvAsDuration("INFO_TIMEOUT", 30*time.Second),
			ConvertTimeout:   convertTimeout,
			MaxAudioBytes:    getEnvAsInt64("MAX_AUDIO_BYTES", 200*1024*1024),
		},

		CORS: CORSConfig{
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice("CORS_ALLOWED_METHODS", []string{"POST", "GET", "OPTIONS"}),
			AllowedHeaders: getEnvAsStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
		},

		History: HistoryConfig{
			Enabled: getEnvAsBool("HISTORY_ENABLED", true),
			DBPath:  GetEnv("DB_PATH", "./data/conversions.db"),
		},

		Archive: ArchiveConfig{
			Enabled:   getEnvAsBool("ARCHIVE_ENABLED", false),
			Endpoint:  GetEnv("SPACES_ENDPOINT", ""),
			Region:    GetEnv("SPACES_REGION", "us-east-1"),
			Bucket:    GetEnv("SPACES_BUCKET", ""),
			AccessKey: GetEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: GetEnv("SPACES_SECRET_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return defaultValue
}

func ValidateConfig(cfg *Config) error {
	if cfg.ServerPort == "" {
		return errors.New("server port is required")
	}
	if cfg.ReadTimeout <= 0 {
		return errors.New("read timeout must be greater than 0")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("write timeout must be greater than 0")
	}
	if cfg.IdleTimeout <= 0 {
		return errors.New("idle timeout must be greater than 0")
	}
	if cfg.Extractor.InfoTimeout <= 0 {
		return errors.New("info timeout must be greater than 0")
	}
	if cfg.Extractor.ConvertTimeout <= 0 {
		return errors.New("convert timeout must be greater than 0")
	}
	if cfg.WriteTimeout <= cfg.Extractor.ConvertTimeout {
		return errors.Errorf("write timeout (%s) must exceed convert timeout (%s)", cfg.WriteTimeout, cfg.Extractor.ConvertTimeout)
	}
	if cfg.WriteTimeout <= cfg.Extractor.InfoTimeout {
		return errors.Errorf("write timeout (%s) must exceed info timeout (%s)", cfg.WriteTimeout, cfg.Extractor.InfoTimeout)
	}
	switch cfg.Extractor.MetadataProvider {
	case ProviderYtDlp, ProviderOEmbed:
	default:
		return errors.Errorf("unknown metadata provider %q", cfg.Extractor.MetadataProvider)
	}
	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		return errors.New("archive bucket is required when archiving is enabled")
	}

	dirs := []struct {
		path string
		name string
	}{
		{cfg.TempDir, "temp directory"},
		{cfg.LogDir, "log directory"},
	}
	if cfg.History.Enabled {
		dirs = append(dirs, struct {
			path string
			name string
		}{filepath.Dir(cfg.History.DBPath), "database directory"})
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d.path, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", d.name)
		}
	}

	return nil
}
