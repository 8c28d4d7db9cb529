package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Failure policies for metric and limit retrieval. PolicyOpen substitutes
// safe defaults (zero usage, unlimited limits) when a lookup fails;
// PolicyClosed propagates the error to the caller.
const (
	PolicyOpen   = "open"
	PolicyClosed = "closed"
)

// EnforcementConfig controls how plan limits are evaluated and enforced.
type EnforcementConfig struct {
	FailurePolicy        string  `mapstructure:"failurePolicy"`
	WarnThresholdPercent float64 `mapstructure:"warnThresholdPercent"`
}

func DefaultEnforcementConfig() EnforcementConfig {
	return EnforcementConfig{
		FailurePolicy:        PolicyOpen,
		WarnThresholdPercent: 80,
	}
}

// EnforcementHolder serves the current enforcement config and hot-reloads
// it when the backing file changes.
type EnforcementHolder struct {
	current atomic.Value // holds EnforcementConfig
}

func NewEnforcementHolder() (*EnforcementHolder, error) {
	v := viper.New()

	v.SetConfigName("enforcement")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fixkit/config")
	v.AddConfigPath("/etc/fixkit")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FIXKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultEnforcementConfig()
		v.SetDefault("enforcement.failurePolicy", defaults.FailurePolicy)
		v.SetDefault("enforcement.warnThresholdPercent", defaults.WarnThresholdPercent)
	}

	var cfg EnforcementConfig
	if err := v.UnmarshalKey("enforcement", &cfg); err != nil {
		return nil, err
	}
	cfg = normalizeEnforcementConfig(cfg)
	if err := validateEnforcementConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EnforcementHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EnforcementConfig
		if err := v.UnmarshalKey("enforcement", &updated); err != nil {
			log.Printf("[enforcement-config] reload failed: %v", err)
			return
		}
		updated = normalizeEnforcementConfig(updated)
		if err := validateEnforcementConfig(updated); err != nil {
			log.Printf("[enforcement-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[enforcement-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticEnforcementHolder returns a holder pinned to cfg, with no file
// watching. Used by tests and embedded callers.
func NewStaticEnforcementHolder(cfg EnforcementConfig) *EnforcementHolder {
	holder := &EnforcementHolder{}
	holder.current.Store(normalizeEnforcementConfig(cfg))
	return holder
}

func (h *EnforcementHolder) Get() EnforcementConfig {
	return h.current.Load().(EnforcementConfig)
}

func normalizeEnforcementConfig(cfg EnforcementConfig) EnforcementConfig {
	cfg.FailurePolicy = strings.ToLower(strings.TrimSpace(cfg.FailurePolicy))
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = PolicyOpen
	}
	if cfg.WarnThresholdPercent == 0 {
		cfg.WarnThresholdPercent = 80
	}
	return cfg
}

func validateEnforcementConfig(cfg EnforcementConfig) error {
	if cfg.FailurePolicy != PolicyOpen && cfg.FailurePolicy != PolicyClosed {
		return errors.New("enforcement.failurePolicy must be open or closed")
	}
	if cfg.WarnThresholdPercent <= 0 || cfg.WarnThresholdPercent > 100 {
		return errors.New("enforcement.warnThresholdPercent must be in (0, 100]")
	}
	return nil
}
