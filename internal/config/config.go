package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultTokenSecret = "dev-secret-key"

// Config represents the application configuration
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	LLM         LLMConfig       `yaml:"llm"`
	Weather     WeatherConfig   `yaml:"weather"`
	Geocode     GeocodeConfig   `yaml:"geocode"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Logging     LoggingConfig   `yaml:"logging"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 or postgres
	URL    string `yaml:"url"`
	Seed   bool   `yaml:"seed"`
}

type AuthConfig struct {
	TokenSecret     string        `yaml:"token_secret"`
	TokenExpiration time.Duration `yaml:"token_expiration"`
	// LoadingTimeout bounds how long a client session waits for the first auth event.
	LoadingTimeout time.Duration `yaml:"loading_timeout"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai or azure
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Deployment  string  `yaml:"deployment"`
	Temperature float64 `yaml:"temperature"`
}

type WeatherConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeocodeConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Debounce time.Duration `yaml:"debounce"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			URL:    "farmlink.db",
			Seed:   true,
		},
		Auth: AuthConfig{
			TokenSecret:     defaultTokenSecret,
			TokenExpiration: 24 * time.Hour,
			LoadingTimeout:  5 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
		},
		Weather: WeatherConfig{
			BaseURL: "https://power.larc.nasa.gov/api/temporal/daily/point",
			Timeout: 15 * time.Second,
		},
		Geocode: GeocodeConfig{
			BaseURL:  "https://geocoding-api.open-meteo.com/v1/search",
			Timeout:  10 * time.Second,
			Debounce: 300 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Load reads the yaml file at path (a missing file is not an error), then the .env
// file, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("FARMLINK_ENV", c.Environment)
	c.Server.Host = getEnv("FARMLINK_HOST", c.Server.Host)
	c.Server.Port = parseInt(os.Getenv("FARMLINK_PORT"), c.Server.Port)
	if origins := os.Getenv("FARMLINK_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
	c.Database.Driver = getEnv("FARMLINK_DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("FARMLINK_DB_URL", c.Database.URL)
	c.Auth.TokenSecret = getEnv("FARMLINK_TOKEN_SECRET", c.Auth.TokenSecret)
	c.Auth.TokenExpiration = parseDuration(os.Getenv("FARMLINK_TOKEN_EXPIRATION"), c.Auth.TokenExpiration)
	c.LLM.Provider = getEnv("FARMLINK_LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("FARMLINK_LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("FARMLINK_LLM_BASE_URL", c.LLM.BaseURL)
	switch c.LLM.Provider {
	case "azure":
		c.LLM.APIKey = getEnv("AZURE_OPENAI_API_KEY", c.LLM.APIKey)
		c.LLM.BaseURL = getEnv("AZURE_OPENAI_ENDPOINT", c.LLM.BaseURL)
		c.LLM.Deployment = getEnv("AZURE_OPENAI_DEPLOYMENT_NAME", c.LLM.Deployment)
	default:
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	}
	c.Logging.Level = getEnv("FARMLINK_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("FARMLINK_LOG_FORMAT", c.Logging.Format)
	c.Metrics.Port = parseInt(os.Getenv("FARMLINK_METRICS_PORT"), c.Metrics.Port)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.TokenSecret == defaultTokenSecret {
		return errors.New("FARMLINK_TOKEN_SECRET must be set in production")
	}
	if c.Auth.TokenSecret == "" {
		return errors.New("auth.token_secret must not be empty")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "openai", "azure", "":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate_limit requires positive requests and window")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// A bare number is taken as seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
