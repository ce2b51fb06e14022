// Package config loads service configuration from environment variables
// layered over an optional YAML file. Environment values take precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces all environment variables (LICENSOR_SERVER_PORT, ...).
const envPrefix = "LICENSOR"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Licensing LicensingConfig `yaml:"licensing" envconfig:"LICENSING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// SecurityConfig contains the admin credential and request limits
type SecurityConfig struct {
	// AdminSecret is the shared secret expected in the X-Admin-Secret
	// header on administrative routes.
	AdminSecret string `yaml:"admin_secret" envconfig:"ADMIN_SECRET"`
	// AdminAPIEnabled disables the entire administrative surface when
	// false; the public validation endpoint stays up.
	AdminAPIEnabled bool            `yaml:"admin_api_enabled" envconfig:"ADMIN_API_ENABLED" default:"true"`
	AllowedOrigins  []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration for the public
// validation endpoint
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/licensor.log"`
}

// PathsConfig contains file system paths for the record store and logs
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// LicensingConfig contains license issuance defaults
type LicensingConfig struct {
	// KeyPrefix is the leading segment of generated license keys.
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX" default:"LIC"`
	// DefaultMaxIPs / DefaultMaxHWIDs apply when issuance omits caps.
	// Wire semantics: -1 unlimited, -2 untracked, >=0 bounded.
	DefaultMaxIPs   int `yaml:"default_max_ips" envconfig:"DEFAULT_MAX_IPS" default:"1"`
	DefaultMaxHWIDs int `yaml:"default_max_hwids" envconfig:"DEFAULT_MAX_HWIDS" default:"1"`
}

// Load loads configuration from environment variables and an optional
// config file (LICENSOR_CONFIG_FILE or ./config.yaml). envconfig fills
// defaults and environment values first; file values are then overlaid
// onto every field whose environment variable is unset, so the precedence
// is env > file > default.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := configFilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			fileCfg, err := loadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg.applyFile(fileCfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.ensureDirs(); err != nil {
		return nil, fmt.Errorf("path validation failed: %w", err)
	}
	return &cfg, nil
}

// fileValues mirrors Config with pointer fields so the merge can tell a
// value the file actually set apart from a zero value.
type fileValues struct {
	Server struct {
		Port            *int           `yaml:"port"`
		ReadTimeout     *time.Duration `yaml:"read_timeout"`
		WriteTimeout    *time.Duration `yaml:"write_timeout"`
		IdleTimeout     *time.Duration `yaml:"idle_timeout"`
		MaxHeaderBytes  *int           `yaml:"max_header_bytes"`
		ShutdownTimeout *time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Security struct {
		AdminSecret     *string   `yaml:"admin_secret"`
		AdminAPIEnabled *bool     `yaml:"admin_api_enabled"`
		AllowedOrigins  *[]string `yaml:"allowed_origins"`
		RateLimit       struct {
			Enabled *bool    `yaml:"enabled"`
			RPS     *float64 `yaml:"rps"`
			Burst   *int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Logging struct {
		Level    *string `yaml:"level"`
		Output   *string `yaml:"output"`
		FilePath *string `yaml:"file_path"`
	} `yaml:"logging"`
	Paths struct {
		DataDir *string `yaml:"data_dir"`
		LogsDir *string `yaml:"logs_dir"`
	} `yaml:"paths"`
	Licensing struct {
		KeyPrefix       *string `yaml:"key_prefix"`
		DefaultMaxIPs   *int    `yaml:"default_max_ips"`
		DefaultMaxHWIDs *int    `yaml:"default_max_hwids"`
	} `yaml:"licensing"`
}

// loadFromFile loads configuration values from a YAML file
func loadFromFile(filePath string) (*fileValues, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var vals fileValues
	if err := yaml.Unmarshal(data, &vals); err != nil {
		return nil, err
	}
	return &vals, nil
}

// overlay assigns the file value unless the corresponding environment
// variable was set; envconfig already wrote env values into the target.
func overlay[T any](dst *T, src *T, envVar string) {
	if src == nil {
		return
	}
	if _, ok := os.LookupEnv(envPrefix + "_" + envVar); ok {
		return
	}
	*dst = *src
}

// applyFile overlays file-set values onto the env+default configuration.
func (c *Config) applyFile(f *fileValues) {
	overlay(&c.Server.Port, f.Server.Port, "SERVER_PORT")
	overlay(&c.Server.ReadTimeout, f.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	overlay(&c.Server.WriteTimeout, f.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	overlay(&c.Server.IdleTimeout, f.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT")
	overlay(&c.Server.MaxHeaderBytes, f.Server.MaxHeaderBytes, "SERVER_MAX_HEADER_BYTES")
	overlay(&c.Server.ShutdownTimeout, f.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	overlay(&c.Security.AdminSecret, f.Security.AdminSecret, "SECURITY_ADMIN_SECRET")
	overlay(&c.Security.AdminAPIEnabled, f.Security.AdminAPIEnabled, "SECURITY_ADMIN_API_ENABLED")
	overlay(&c.Security.AllowedOrigins, f.Security.AllowedOrigins, "SECURITY_ALLOWED_ORIGINS")
	overlay(&c.Security.RateLimit.Enabled, f.Security.RateLimit.Enabled, "SECURITY_RATE_LIMIT_ENABLED")
	overlay(&c.Security.RateLimit.RPS, f.Security.RateLimit.RPS, "SECURITY_RATE_LIMIT_RPS")
	overlay(&c.Security.RateLimit.Burst, f.Security.RateLimit.Burst, "SECURITY_RATE_LIMIT_BURST")

	overlay(&c.Logging.Level, f.Logging.Level, "LOGGING_LEVEL")
	overlay(&c.Logging.Output, f.Logging.Output, "LOGGING_OUTPUT")
	overlay(&c.Logging.FilePath, f.Logging.FilePath, "LOGGING_FILE_PATH")

	overlay(&c.Paths.DataDir, f.Paths.DataDir, "PATHS_DATA_DIR")
	overlay(&c.Paths.LogsDir, f.Paths.LogsDir, "PATHS_LOGS_DIR")

	overlay(&c.Licensing.KeyPrefix, f.Licensing.KeyPrefix, "LICENSING_KEY_PREFIX")
	overlay(&c.Licensing.DefaultMaxIPs, f.Licensing.DefaultMaxIPs, "LICENSING_DEFAULT_MAX_IPS")
	overlay(&c.Licensing.DefaultMaxHWIDs, f.Licensing.DefaultMaxHWIDs, "LICENSING_DEFAULT_MAX_HWIDS")
}

func configFilePath() string {
	if path := os.Getenv(envPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Security.AdminAPIEnabled && c.Security.AdminSecret == "" {
		return fmt.Errorf("admin API enabled but no admin secret configured")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("invalid rate limit rps: %f", c.Security.RateLimit.RPS)
	}
	if c.Licensing.KeyPrefix == "" {
		return fmt.Errorf("license key prefix must not be empty")
	}
	return nil
}

// ensureDirs creates the data and logs directories if missing.
func (c *Config) ensureDirs() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath resolves the configured log file path under the logs dir when
// the configured value is relative.
func (c *Config) LogFilePath() string {
	if filepath.IsAbs(c.Logging.FilePath) {
		return c.Logging.FilePath
	}
	return filepath.Join(c.Paths.LogsDir, filepath.Base(c.Logging.FilePath))
}
