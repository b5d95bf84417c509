package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string
	DBPath      string
	StoragePath string
	LogLevel    string
	LogFormat   string
	LogFile     string

	JWTSecret    string
	SignedURLTTL time.Duration

	ClassifierBackend string
	ClaudeAPIKey      string
	ClaudeModel       string
	OllamaHost        string
	OllamaModel       string

	CacheBackend       string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	CachePurgeSchedule string

	EPCBaseURL          string
	EPCEmail            string
	EPCKey              string
	LandRegistryBaseURL string
	FloodBaseURL        string
	PoliceBaseURL       string
	UpstreamTimeout     time.Duration
	GovDataRateLimit    float64
	GovDataRateBurst    int
}

// LoadDotenv reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the environment. Empty upstream base URLs
// leave the lookup clients on their public defaults.
func Load() *Config {
	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		DBPath:      getEnv("DB_PATH", "/data/passport.db"),
		StoragePath: getEnv("STORAGE_PATH", "/data/objects"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		LogFile:     getEnv("LOG_FILE", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		SignedURLTTL: getEnvDuration("SIGNED_URL_TTL", time.Hour),

		ClassifierBackend: getEnv("CLASSIFIER_BACKEND", "none"),
		ClaudeAPIKey:      getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:       getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:        getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llava"),

		CacheBackend:       getEnv("CACHE_BACKEND", "sql"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		CachePurgeSchedule: getEnv("CACHE_PURGE_SCHEDULE", "@every 1h"),

		EPCBaseURL:          getEnv("EPC_API_BASE", ""),
		EPCEmail:            getEnv("EPC_API_EMAIL", ""),
		EPCKey:              getEnv("EPC_API_KEY", ""),
		LandRegistryBaseURL: getEnv("LAND_REGISTRY_API_BASE", ""),
		FloodBaseURL:        getEnv("FLOOD_API_BASE", ""),
		PoliceBaseURL:       getEnv("POLICE_API_BASE", ""),
		UpstreamTimeout:     getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		GovDataRateLimit:    getEnvFloat("GOVDATA_RATE_LIMIT", 1),
		GovDataRateBurst:    getEnvInt("GOVDATA_RATE_BURST", 10),
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch c.ClassifierBackend {
	case "none", "ollama":
	case "claude":
		if c.ClaudeAPIKey == "" {
			errs = append(errs, errors.New("CLAUDE_API_KEY is required when CLASSIFIER_BACKEND=claude"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CLASSIFIER_BACKEND %q", c.ClassifierBackend))
	}
	switch c.CacheBackend {
	case "sql", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if c.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("ignoring invalid number setting", "key", key, "value", val)
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", val)
		return defaultVal
	}
	return d
}
