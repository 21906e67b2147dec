package pipeline

import "time"

// Config tunes the reconciliation pipeline.
type Config struct {
	// BatchSize is how many variant groups are processed concurrently.
	BatchSize int `mapstructure:"batch_size" default:"6"`
	// InterBatchDelay is the pause between batches, giving the remote
	// API room to recover its rate budget.
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay" default:"500ms"`
	// RetryCount is the total attempts per remote mutation.
	RetryCount int `mapstructure:"retry_count" default:"3"`
	// RetryBaseDelay is the backoff before the first retry; it doubles
	// per attempt.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" default:"1s"`
	// CacheEnabled memoizes match lookups for the run.
	CacheEnabled bool `mapstructure:"cache_enabled" default:"true"`
}

// normalized returns a copy with unusable values clamped.
func (c Config) normalized() Config {
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.RetryCount < 1 {
		c.RetryCount = 1
	}
	if c.InterBatchDelay < 0 {
		c.InterBatchDelay = 0
	}
	return c
}
