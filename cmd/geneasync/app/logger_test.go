package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{
			name:     "default level when no flags set",
			config:   &Config{},
			expected: "info",
		},
		{
			name:     "one -v sets debug",
			config:   &Config{Verbosity: 1},
			expected: "debug",
		},
		{
			name:     "two -v set trace",
			config:   &Config{Verbosity: 2},
			expected: "trace",
		},
		{
			name:     "more -v stay at trace",
			config:   &Config{Verbosity: 5},
			expected: "trace",
		},
		{
			name:     "explicit log-level overrides verbosity",
			config:   &Config{LogLevel: "warn", Verbosity: 2},
			expected: "warn",
		},
		{
			name:     "invalid log-level falls back to info",
			config:   &Config{LogLevel: "loud"},
			expected: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineLogLevel(tt.config))
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.Equal(t, level, validateLogLevel(level))
	}
	assert.Equal(t, "info", validateLogLevel("DEBUG"))
	assert.Equal(t, "info", validateLogLevel(""))
}
