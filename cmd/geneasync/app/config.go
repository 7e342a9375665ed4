package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files. Command flags override it per run.
type Config struct {
	// Global flags
	Verbosity int
	LogLevel  string

	// Config file
	ConfigFile string

	// Local store
	Database string

	// External source
	BaseURL       string
	SessionCookie string
	UserAgent     string
	MinDelay      time.Duration
	MaxDelay      time.Duration

	// Replay fixture used instead of the external site
	Replay string

	// Provenance
	ProvenanceOut string

	// Logging configuration
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (GENEASYNC_DATABASE, GENEASYNC_MIN_DELAY, ...)
// 3. .env files
// 4. Config file (path, or ~/.geneasync.yaml, or ./.geneasync.yaml)
// 5. Defaults
func LoadConfig(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix("geneasync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_url", constants.DefaultBaseURL)
	v.SetDefault("user_agent", constants.UserAgent)
	v.SetDefault("min_delay", constants.DefaultMinDelay)
	v.SetDefault("max_delay", constants.DefaultMaxDelay)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+path, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.DefaultConfigName)

		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		Database: v.GetString("database"),

		BaseURL:       v.GetString("base_url"),
		SessionCookie: v.GetString("session_cookie"),
		UserAgent:     v.GetString("user_agent"),
		MinDelay:      v.GetDuration("min_delay"),
		MaxDelay:      v.GetDuration("max_delay"),

		Replay:        v.GetString("replay"),
		ProvenanceOut: v.GetString("provenance_out"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if config.MaxDelay < config.MinDelay {
		return nil, errors.NewConfigError("config", "max_delay is lower than min_delay", nil)
	}

	return config, nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
