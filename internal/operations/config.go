package operations

import "time"

// Config holds execution limits for a Manager
type Config struct {
	// DefaultTimeout bounds every step without its own entry in StageTimeouts
	DefaultTimeout time.Duration            `json:"default_timeout"`
	StageTimeouts  map[string]time.Duration `json:"stage_timeouts"`
}

// NewConfig returns limits of DefaultStageTimeout per step
func NewConfig() *Config {
	return &Config{DefaultTimeout: DefaultStageTimeout, StageTimeouts: map[string]time.Duration{}}
}

// GetStageTimeout resolves the limit for stageID: its own entry, then the default
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	for _, d := range []time.Duration{c.StageTimeouts[stageID], c.DefaultTimeout} {
		if d > 0 {
			return d
		}
	}
	return DefaultStageTimeout
}

// SetStageTimeout overrides the limit for one step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = map[string]time.Duration{}
	}
	c.StageTimeouts[stageID] = timeout
}
