package reconcile

import "time"

// Config controls the usage reconciliation worker loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	RunTimeout   time.Duration
	Lookback     time.Duration
	SyncBilling  bool
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    50,
		PollInterval: 5 * time.Minute,
		RunTimeout:   60 * time.Second,
		Lookback:     48 * time.Hour,
		SyncBilling:  true,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}

	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}

	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}

	if c.Lookback <= 0 {
		c.Lookback = defaults.Lookback
	}
	return c
}
