package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Preview   PreviewConfig   `yaml:"preview"`
	Minio     MinioConfig     `yaml:"minio"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Unidoc    UnidocConfig    `yaml:"unidoc"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// APIConfig points at the placeholder backend. DefaultVariant is used when a
// tab has not picked a processing variant yet.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	DefaultVariant string `yaml:"default_variant"`
}

type SessionConfig struct {
	Secret      string `yaml:"secret"`
	CookieName  string `yaml:"cookie_name"`
	TTLHours    int    `yaml:"ttl_hours"`    // also the idle expiry of a tab's controllers
	MaxSessions int    `yaml:"max_sessions"` // 0 = unlimited
	Secure      bool   `yaml:"secure"`
}

type PreviewConfig struct {
	Backend string `yaml:"backend"` // memory, minio
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"` // 0 = disabled
	WindowSeconds int `yaml:"window_seconds"`
}

type UnidocConfig struct {
	LicenseKey string `yaml:"license_key"`
}

var GlobalConfig *Config

// Load reads the YAML file at path, applies LEXSY_* environment overrides
// and fills defaults. An empty path skips the file and uses env only.
func Load(path string) (*Config, error) {
	// Zero is meaningful for these, so they are preset and only replaced
	// when the file sets them.
	cfg := Config{
		Session:   SessionConfig{MaxSessions: 1000},
		RateLimit: RateLimitConfig{Requests: 120},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000/api"
	}
	if cfg.API.DefaultVariant == "" {
		cfg.API.DefaultVariant = "v1"
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "lexsy_tab"
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 12
	}
	if cfg.Preview.Backend == "" {
		cfg.Preview.Backend = "memory"
	}
	if cfg.Minio.Prefix == "" {
		cfg.Minio.Prefix = "previews"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}

	if cfg.Preview.Backend != "memory" && cfg.Preview.Backend != "minio" {
		return nil, fmt.Errorf("unknown preview backend %q", cfg.Preview.Backend)
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LEXSY_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("LEXSY_DEFAULT_VARIANT"); v != "" {
		c.API.DefaultVariant = v
	}
	if v := os.Getenv("LEXSY_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv("LEXSY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LEXSY_PREVIEW_BACKEND"); v != "" {
		c.Preview.Backend = v
	}
	if v := os.Getenv("UNIDOC_LICENSE_API_KEY"); v != "" {
		c.Unidoc.LicenseKey = v
	}
	if v := os.Getenv("LEXSY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LEXSY_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}
