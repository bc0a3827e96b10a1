// Package config loads the daemon settings from a YAML file, SMARTSWITCH_*
// environment variables and built-in defaults, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"smart_switch/internal/rules"
	"smart_switch/internal/service"
)

const (
	EnvPrefix = "SMARTSWITCH"

	// DefaultSigningKey is only fit for local runs; serve warns when it is
	// still in use.
	DefaultSigningKey = "change-me"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Safety    SafetyConfig    `mapstructure:"safety"`
	Billing   BillingConfig   `mapstructure:"billing"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Meter     MeterConfig     `mapstructure:"meter"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Push      PushConfig      `mapstructure:"push"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type HTTPConfig struct {
	Port      string        `mapstructure:"port"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second per IP on /auth
	RateBurst int           `mapstructure:"rate_burst"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type SchedulerConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	OverrideTTL   time.Duration `mapstructure:"override_ttl"`
	UsageInterval time.Duration `mapstructure:"usage_interval"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Timezone      string        `mapstructure:"timezone"`
}

type SafetyConfig struct {
	MinVoltage     float64       `mapstructure:"min_voltage"`
	MaxVoltage     float64       `mapstructure:"max_voltage"`
	MaxCurrent     float64       `mapstructure:"max_current"`
	MaxPower       float64       `mapstructure:"max_power"`
	MaxTemperature float64       `mapstructure:"max_temperature"`
	OfflineTimeout time.Duration `mapstructure:"offline_timeout"`
}

type BillingConfig struct {
	Currency   string `mapstructure:"currency"`
	TariffFile string `mapstructure:"tariff_file"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type MeterConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	URL      string        `mapstructure:"url"`
	Speed    uint          `mapstructure:"speed"`
	UnitID   uint8         `mapstructure:"unit_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// SimulatorConfig drives the synthetic load used when no telemetry source
// is attached.
type SimulatorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	LoadW    float64       `mapstructure:"load_w"`
}

type PushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
	TTL             int    `mapstructure:"ttl"`
}

type NotifyConfig struct {
	Workers int `mapstructure:"workers"`
	Queue   int `mapstructure:"queue"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.rate_limit", 1.0)
	v.SetDefault("http.rate_burst", 5)
	v.SetDefault("http.cache_ttl", "30s")
	v.SetDefault("db.path", "smartswitch.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.signing_key", DefaultSigningKey)
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("scheduler.poll_interval", "10s")
	v.SetDefault("scheduler.override_ttl", "30s")
	v.SetDefault("scheduler.usage_interval", "5s")
	v.SetDefault("scheduler.write_timeout", "5s")
	v.SetDefault("scheduler.timezone", "Local")

	th := rules.DefaultThresholds()
	v.SetDefault("safety.min_voltage", th.MinVoltage)
	v.SetDefault("safety.max_voltage", th.MaxVoltage)
	v.SetDefault("safety.max_current", th.MaxCurrent)
	v.SetDefault("safety.max_power", th.MaxPower)
	v.SetDefault("safety.max_temperature", th.MaxTemperature)
	v.SetDefault("safety.offline_timeout", th.OfflineTimeout.String())

	v.SetDefault("billing.currency", "")
	v.SetDefault("billing.tariff_file", "")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "smartswitch")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic_prefix", "smartswitch")
	v.SetDefault("meter.enabled", false)
	v.SetDefault("meter.url", "rtu:///dev/ttyUSB0")
	v.SetDefault("meter.speed", 9600)
	v.SetDefault("meter.unit_id", 1)
	v.SetDefault("meter.timeout", "1s")
	v.SetDefault("meter.interval", "5s")
	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.interval", "5s")
	v.SetDefault("simulator.load_w", 1100)
	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subscriber", "")
	v.SetDefault("push.ttl", 60)
	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.queue", 64)
}

// Load reads configPath, or configs/config.yml / ./config.yml when it is
// empty. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Location resolves scheduler.timezone; empty and "Local" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Scheduler.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

// Tariff returns the configured tariff: the YAML file when one is set,
// otherwise the built-in LESCO bands.
func (c *Config) Tariff() (rules.Tariff, error) {
	t := rules.DefaultTariff()
	if c.Billing.TariffFile != "" {
		f, err := os.Open(c.Billing.TariffFile)
		if err != nil {
			return rules.Tariff{}, fmt.Errorf("open tariff: %w", err)
		}
		defer f.Close()
		if t, err = rules.LoadTariff(f); err != nil {
			return rules.Tariff{}, fmt.Errorf("%s: %w", c.Billing.TariffFile, err)
		}
	}
	if c.Billing.Currency != "" {
		t.Currency = c.Billing.Currency
	}
	return t, nil
}

// ToService translates the file settings into the service layer's Config.
func (c *Config) ToService() (service.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return service.Config{}, err
	}
	tariff, err := c.Tariff()
	if err != nil {
		return service.Config{}, err
	}
	return service.Config{
		PollInterval:   c.Scheduler.PollInterval,
		UsageInterval:  c.Scheduler.UsageInterval,
		OverrideTTL:    c.Scheduler.OverrideTTL,
		WriteTimeout:   c.Scheduler.WriteTimeout,
		Location:       loc,
		Thresholds:     c.Thresholds(),
		Tariff:         tariff,
		NotifyWorkers:  c.Notify.Workers,
		NotifyQueue:    c.Notify.Queue,
		SimulatorLoadW: c.Simulator.LoadW,
		Auth: service.AuthConfig{
			SigningKey: c.Auth.SigningKey,
			TokenTTL:   c.Auth.TokenTTL,
		},
		Push: service.PushConfig{
			VAPIDPublicKey:  c.Push.VAPIDPublicKey,
			VAPIDPrivateKey: c.Push.VAPIDPrivateKey,
			Subscriber:      c.Push.Subscriber,
			TTL:             c.Push.TTL,
		},
	}, nil
}

func (c *Config) Thresholds() rules.Thresholds {
	return rules.Thresholds{
		MinVoltage:     c.Safety.MinVoltage,
		MaxVoltage:     c.Safety.MaxVoltage,
		MaxCurrent:     c.Safety.MaxCurrent,
		MaxPower:       c.Safety.MaxPower,
		MaxTemperature: c.Safety.MaxTemperature,
		OfflineTimeout: c.Safety.OfflineTimeout,
	}
}
