package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for osintgram
type Config struct {
	// Instagram login and transport settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Reverse geocoding provider
	Geocode GeocodeConfig `yaml:"geocode" json:"geocode"`

	// Retry configuration for transport faults
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InstagramConfig holds Instagram-specific configuration
type InstagramConfig struct {
	Username  string        `yaml:"username" json:"username"`
	Password  string        `yaml:"password" json:"-"`
	SessionID string        `yaml:"session_id" json:"session_id"`
	CSRFToken string        `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	AppID     string        `yaml:"app_id" json:"app_id"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	APIURL    string        `yaml:"api_url" json:"api_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	// FeedLimit caps how many posts feed based operations fetch
	FeedLimit int `yaml:"feed_limit" json:"feed_limit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig holds output directory and export configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	WriteFile     bool   `yaml:"write_file" json:"write_file"`
	JSONDump      bool   `yaml:"json_dump" json:"json_dump"`
	SessionFile   string `yaml:"session_file" json:"session_file"`
}

// GeocodeConfig holds reverse geocoding configuration
type GeocodeConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	RequestsPerSecond int           `yaml:"requests_per_second" json:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// RetryConfig holds retry configuration for network and server faults
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	OnThrottled bool `yaml:"on_throttled" json:"on_throttled"`
	OnComplete  bool `yaml:"on_complete" json:"on_complete"`
	OnError     bool `yaml:"on_error" json:"on_error"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent: "Instagram 269.0.0.18.75 Android (26/8.0.0; 480dpi; 1080x1920; OnePlus; 6T Dev; devitron; qcom; en_US; 314665256)",
			AppID:     "936619743392459",
			BaseURL:   "https://www.instagram.com",
			APIURL:    "https://i.instagram.com/api/v1",
			Timeout:   30 * time.Second,
			FeedLimit: 100,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Output: OutputConfig{
			BaseDirectory: "output",
			WriteFile:     false,
			JSONDump:      false,
			SessionFile:   filepath.Join("config", "settings.json"),
		},
		Geocode: GeocodeConfig{
			BaseURL:           "https://nominatim.openstreetmap.org",
			UserAgent:         "osintgram",
			RequestsPerSecond: 1,
			Timeout:           15 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Notifications: NotificationConfig{
			Enabled:     false,
			OnThrottled: true,
			OnComplete:  false,
			OnError:     true,
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("OSINTGRAM_USERNAME"); v != "" {
		c.Instagram.Username = v
	}
	if v := os.Getenv("OSINTGRAM_PASSWORD"); v != "" {
		c.Instagram.Password = v
	}
	if v := os.Getenv("OSINTGRAM_SESSION_ID"); v != "" {
		c.Instagram.SessionID = v
	}
	if v := os.Getenv("OSINTGRAM_CSRF_TOKEN"); v != "" {
		c.Instagram.CSRFToken = v
	}
	if v := os.Getenv("OSINTGRAM_USER_AGENT"); v != "" {
		c.Instagram.UserAgent = v
	}

	if v := os.Getenv("OSINTGRAM_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OSINTGRAM_REQUESTS_PER_MINUTE: %w", err)
		}
		if n > 0 {
			c.RateLimit.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("OSINTGRAM_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("OSINTGRAM_WRITE_FILE"); v != "" {
		c.Output.WriteFile = parseBool(v)
	}
	if v := os.Getenv("OSINTGRAM_JSON"); v != "" {
		c.Output.JSONDump = parseBool(v)
	}
	if v := os.Getenv("OSINTGRAM_SESSION_FILE"); v != "" {
		c.Output.SessionFile = v
	}

	if v := os.Getenv("OSINTGRAM_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = parseBool(v)
	}

	if v := os.Getenv("OSINTGRAM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "y", "yes", "on":
		return true
	default:
		return false
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".osintgram.yaml",
		".osintgram.yml",
		filepath.Join("config", "config.yaml"),
		filepath.Join(home, ".config", "osintgram", "config.yaml"),
		filepath.Join(home, ".config", "osintgram", "config.yml"),
		filepath.Join(home, ".osintgram.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are checked at
// login time because they may also come from the credential store.
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.BaseURL == "" || c.Instagram.APIURL == "" {
		errs = append(errs, errors.New("instagram base and api URLs are required"))
	}
	if c.Instagram.Timeout <= 0 {
		errs = append(errs, errors.New("instagram timeout must be positive"))
	}
	if c.Instagram.FeedLimit < 0 {
		errs = append(errs, errors.New("feed limit cannot be negative"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.SessionFile == "" {
		errs = append(errs, errors.New("session file path is required"))
	}

	if c.Geocode.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("geocode requests per second must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if writeFile, ok := flags["file"].(bool); ok {
		c.Output.WriteFile = writeFile
	}
	if jsonDump, ok := flags["json"].(bool); ok {
		c.Output.JSONDump = jsonDump
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if feedLimit, ok := flags["feed-limit"].(int); ok && feedLimit > 0 {
		c.Instagram.FeedLimit = feedLimit
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".osintgram.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
