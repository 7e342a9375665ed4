package walker

import (
	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
)

// Config is the run configuration, built once and passed to New.
type Config struct {
	Verbosity int  `json:"verbosity" yaml:"verbosity"`
	Force     bool `json:"force" yaml:"force"`

	Ascendants  bool `json:"ascendants" yaml:"ascendants"`
	Descendants bool `json:"descendants" yaml:"descendants"`
	Spouses     bool `json:"spouses" yaml:"spouses"`

	// MaxLevel bounds the number of generations away from the start person.
	MaxLevel int `json:"max_level" yaml:"max_level"`

	StartRef     string `json:"start_ref" yaml:"start_ref"`
	StartLocalID string `json:"start_local_id,omitempty" yaml:"start_local_id,omitempty"`
}

// DefaultConfig returns a configuration that only reconciles the start person.
func DefaultConfig() Config {
	return Config{MaxLevel: constants.DefaultMaxLevel}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.StartRef == "" {
		return errors.NewValidationError("start_ref", c.StartRef, "a starting reference is required")
	}
	if c.MaxLevel < 0 {
		return errors.NewValidationError("max_level", c.MaxLevel, "must not be negative")
	}
	return nil
}
