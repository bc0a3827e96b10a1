package service

import (
	"time"

	"smart_switch/internal/rules"
)

type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string // contact mailto: or URL
	TTL             int    // seconds
}

// Config carries the runtime settings of the service layer.
type Config struct {
	PollInterval  time.Duration
	UsageInterval time.Duration
	OverrideTTL   time.Duration
	WriteTimeout  time.Duration
	Location      *time.Location

	Thresholds rules.Thresholds
	Tariff     rules.Tariff

	NotifyWorkers int
	NotifyQueue   int

	SimulatorLoadW float64

	Auth AuthConfig
	Push PushConfig
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.UsageInterval <= 0 {
		c.UsageInterval = 5 * time.Second
	}
	if c.OverrideTTL <= 0 {
		c.OverrideTTL = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Thresholds == (rules.Thresholds{}) {
		c.Thresholds = rules.DefaultThresholds()
	}
	if len(c.Tariff.Tiers) == 0 {
		c.Tariff = rules.DefaultTariff()
	}
	if c.NotifyWorkers <= 0 {
		c.NotifyWorkers = 2
	}
	if c.NotifyQueue <= 0 {
		c.NotifyQueue = 64
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = time.Hour
	}
	return c
}
