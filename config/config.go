package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName    string `json:"app_name" env:"ITSITE_APP_NAME"`
	ListenIP   string `json:"listen_ip" env:"ITSITE_LISTEN_IP"`
	ListenPort int    `json:"listen_port" env:"ITSITE_LISTEN_PORT"`
	SessionKey string `json:"session_key" env:"ITSITE_SESSION_KEY"`

	// SecureCookies marks session and CSRF cookies Secure. Enable behind HTTPS.
	SecureCookies bool `json:"secure_cookies" env:"ITSITE_SECURE_COOKIES"`

	// APIBaseURL selects the backend host every fetch targets. There is no fallback host.
	APIBaseURL   string `json:"api_base_url" env:"ITSITE_API_BASE_URL"`
	ImageBaseURL string `json:"image_base_url" env:"ITSITE_IMAGE_BASE_URL"`

	DBPath              string `json:"db_path" env:"ITSITE_DB_PATH"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds" env:"ITSITE_FETCH_TIMEOUT_SECONDS"`
	CacheTTLSeconds     int    `json:"cache_ttl_seconds" env:"ITSITE_CACHE_TTL_SECONDS"`
	BlogLimit           int    `json:"blog_limit" env:"ITSITE_BLOG_LIMIT"`

	AdminEmail    string `json:"admin_email" env:"ITSITE_ADMIN_EMAIL"`
	AdminPassword string `json:"admin_password" env:"ITSITE_ADMIN_PASSWORD"`

	LogLevel  string `json:"log_level" env:"ITSITE_LOG_LEVEL"`
	LogFormat string `json:"log_format" env:"ITSITE_LOG_FORMAT"`
}

var AppConfig Config

const placeholderKey = "CHANGE_ME_IN_PRODUCTION"

// LoadConfig reads the JSON file at path (skipped when path is empty), then a
// .env file if one exists, then ITSITE_* environment variables.
func LoadConfig(path string) error {
	var cfg Config

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return err
	}

	if cfg.SessionKey == "" || cfg.SessionKey == placeholderKey {
		slog.Warn("No session key configured. Generating a random key. Sessions will be invalidated on restart.")
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err != nil {
			return err
		}
		cfg.SessionKey = hex.EncodeToString(randomKey)
	}

	AppConfig = cfg
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.AppName == "" {
		cfg.AppName = "IT Services"
	}
	if cfg.ListenIP == "" {
		cfg.ListenIP = "127.0.0.1"
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8080
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./itsite.db"
	}
	if cfg.FetchTimeoutSeconds == 0 {
		cfg.FetchTimeoutSeconds = 15
	}
	if cfg.BlogLimit == 0 {
		cfg.BlogLimit = 3
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "admin@gmail.com"
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = cfg.APIBaseURL
	}
}

func (c Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required (or set ITSITE_API_BASE_URL)")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api_base_url %q must be an absolute http(s) URL", c.APIBaseURL)
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("fetch_timeout_seconds must not be negative")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must not be negative")
	}
	return nil
}

func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenIP, c.ListenPort)
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// CacheTTL is how long a ready collection is served before a trigger refetches it.
// Zero keeps it until an explicit refresh.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
