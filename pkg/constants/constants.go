// Package constants provides shared constants used throughout the geneasync codebase.
// This includes timeouts, politeness delays, traversal limits and file permissions
// that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for a single page request
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 2 * time.Hour

	// RetryBackoff is the base backoff duration for fetch retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration between fetch retries
	MaxRetryBackoff = 30 * time.Second

	// MaxRetryElapsed bounds the total time spent retrying one reference
	MaxRetryElapsed = 2 * time.Minute
)

// Politeness constants define the throttle applied before every external fetch
const (
	// DefaultMinDelay is the lower bound of the randomized inter-fetch delay
	DefaultMinDelay = 2 * time.Second

	// DefaultMaxDelay is the upper bound of the randomized inter-fetch delay
	DefaultMaxDelay = 5 * time.Second

	// ForceWarningDelay is the pause given to the operator after force mode is announced
	ForceWarningDelay = 5 * time.Second
)

// Traversal constants
const (
	// DefaultMaxLevel is the default number of generations explored
	DefaultMaxLevel = 1
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// External source constants
const (
	// DefaultBaseURL is the root every external reference is resolved against
	DefaultBaseURL = "https://gw.geneanet.org/"

	// UserAgent is sent with every page request
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36"

	// ImportDescription is written on every event created from the external source
	ImportDescription = "Imported from Geneanet"
)

// Path constants
const (
	// DefaultConfigName is the config file looked up in $HOME and the working directory
	DefaultConfigName = ".geneasync"
)
