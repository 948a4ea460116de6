package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Hunyuan3D provider settings.
	HunyuanSpaceURL string
	HFToken         string

	// When true the backend forwards caller-supplied generation options to
	// the provider instead of the fixed low-cost demo parameters.
	ForwardClientOptions bool

	AllowedOrigins []string
	DownloadDir    string

	HTTPReadTimeout time.Duration
	// The provider call can run for minutes, so the response write timeout
	// is disabled unless explicitly configured.
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the history
// sink is disabled and completed conversions are simply not recorded.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "3001"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		HunyuanSpaceURL:      getEnv("HUNYUAN_SPACE_URL", "https://bton-hunyuan3d-2-1.hf.space"),
		HFToken:              os.Getenv("HF_TOKEN"),
		ForwardClientOptions: getEnvBool("FORWARD_CLIENT_OPTIONS", false),
		AllowedOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		DownloadDir:          getEnv("DOWNLOAD_DIR", "downloads"),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 60)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	return cfg, nil
}

// HistoryEnabled reports whether conversion records should be persisted.
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
