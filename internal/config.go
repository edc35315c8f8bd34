package internal

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultChunkSize is the transfer buffer size in bytes.
const DefaultChunkSize = 32 * 1024

// Config holds application configuration
type Config struct {
	DefaultTimeout int // seconds, applied to the HTTP client
	AccessToken    string
	Password       string
	ProxyURL       string
	RateLimit      string

	// Logging configuration
	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: 30,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if timeout := os.Getenv("BOXFETCH_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			c.DefaultTimeout = t
		}
	}

	if token := os.Getenv("BOXFETCH_TOKEN"); token != "" {
		c.AccessToken = token
	}

	if password := os.Getenv("BOXFETCH_PASSWORD"); password != "" {
		c.Password = password
	}

	if proxy := os.Getenv("BOXFETCH_PROXY"); proxy != "" {
		c.ProxyURL = proxy
	}

	if rate := os.Getenv("BOXFETCH_RATE_LIMIT"); rate != "" {
		c.RateLimit = rate
	}

	if logLevel := os.Getenv("BOXFETCH_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("BOXFETCH_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("BOXFETCH_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("BOXFETCH_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if c.DefaultTimeout < 1 {
		return fmt.Errorf("invalid default timeout: %d (must be > 0)", c.DefaultTimeout)
	}

	return nil
}
