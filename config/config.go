package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "BROKER"

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Ingress IngressConfig `mapstructure:"ingress"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Otel    OtelConfig    `mapstructure:"otel"`

	v *viper.Viper
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
	Otel   bool   `mapstructure:"otel"`
}

type BrokerConfig struct {
	FrameBudget     time.Duration `mapstructure:"frame_budget"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	StrictContracts bool          `mapstructure:"strict_contracts"`
	SilenceWindow   time.Duration `mapstructure:"silence_window"`
	SilenceCache    int           `mapstructure:"silence_cache"`
	Breaker         BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

type IngressConfig struct {
	Buffer            int64         `mapstructure:"buffer"`
	ThrottlePerSecond int64         `mapstructure:"throttle_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
	HandlerTimeout    time.Duration `mapstructure:"handler_timeout"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type OtelConfig struct {
	Endpoint   string  `mapstructure:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// key is one configurable setting: its default and the override flag it gets.
type key struct {
	name  string
	def   any
	usage string
}

var keys = []key{
	{"log.level", "info", "debug|info|warn|error"},
	{"log.format", "text", "text|json"},
	{"log.file", "", "append logs to this file instead of stderr"},
	{"log.otel", false, "fan logs out to the OpenTelemetry log bridge"},
	{"broker.frame_budget", 16 * time.Millisecond, "drain budget per frame"},
	{"broker.tick_interval", 16 * time.Millisecond, "frame loop period"},
	{"broker.strict_contracts", false, "panic on contract violations"},
	{"broker.silence_window", 5 * time.Second, "repeat window for the no-listeners warning"},
	{"broker.silence_cache", 256, "event types remembered by the silence filter"},
	{"broker.breaker.enabled", true, "quarantine listeners that keep panicking"},
	{"broker.breaker.max_failures", 5, "consecutive panics before quarantine"},
	{"broker.breaker.cooldown", 10 * time.Second, "quarantine duration"},
	{"ingress.buffer", 1024, "in-process topic buffer"},
	{"ingress.throttle_per_second", 1000, "input commands accepted per second, 0 disables"},
	{"ingress.max_retries", 3, "handler retries before poison"},
	{"ingress.handler_timeout", time.Second, "per-message handler timeout"},
	{"http.addr", ":8089", "diagnostics listen address, empty disables"},
	{"otel.endpoint", "", "OTLP/HTTP collector endpoint, empty disables export"},
	{"otel.sample_rate", 1.0, "trace sampling ratio"},
}

// LoadConfig merges, lowest precedence first: defaults, the config file,
// BROKER_* environment variables and --key=value overrides.
func LoadConfig(file string, overrides []string) (*Config, error) {
	v := viper.New()
	for _, k := range keys {
		v.SetDefault(k.name, k.def)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs, err := overrideFlags(overrides)
	if err != nil {
		return nil, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind overrides: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("broker")
		v.AddConfigPath("/etc/event-broker")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %q: %w", file, err)
		}
	}

	return decode(v)
}

// overrideFlags parses arguments such as --broker.frame_budget=8ms.
func overrideFlags(args []string) (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	for _, k := range keys {
		switch d := k.def.(type) {
		case string:
			fs.String(k.name, d, k.usage)
		case bool:
			fs.Bool(k.name, d, k.usage)
		case int:
			fs.Int(k.name, d, k.usage)
		case float64:
			fs.Float64(k.name, d, k.usage)
		case time.Duration:
			fs.Duration(k.name, d, k.usage)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse overrides: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("config: unexpected argument %q", fs.Arg(0))
	}
	return fs, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the broker or its collaborators cannot run with.
func (c *Config) Validate() error {
	var errs []error

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: want text or json, got %q", c.Log.Format))
	}
	if c.Broker.FrameBudget < 0 {
		errs = append(errs, fmt.Errorf("broker.frame_budget: must not be negative"))
	}
	if c.Broker.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("broker.tick_interval: must be positive"))
	}
	if c.Broker.SilenceCache < 0 {
		errs = append(errs, fmt.Errorf("broker.silence_cache: must not be negative"))
	}
	if c.Broker.Breaker.Enabled && c.Broker.Breaker.MaxFailures == 0 {
		errs = append(errs, fmt.Errorf("broker.breaker.max_failures: must be positive when the breaker is enabled"))
	}
	if c.Ingress.Buffer < 0 {
		errs = append(errs, fmt.Errorf("ingress.buffer: must not be negative"))
	}
	if c.Ingress.ThrottlePerSecond < 0 {
		errs = append(errs, fmt.Errorf("ingress.throttle_per_second: must not be negative"))
	}
	if c.Otel.SampleRate < 0 || c.Otel.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("otel.sample_rate: want [0, 1], got %v", c.Otel.SampleRate))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// GetLogLevel returns the parsed log level, info when unset.
func (c *Config) GetLogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// GetConfigFile reports the file the config was read from, empty if none.
func (c *Config) GetConfigFile() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// OnChange watches the config file and hands every re-decoded config to fn.
// A reload that fails to decode or validate reaches fn as an error; the
// previous *Config is left untouched. Returns false when no file is in use.
func (c *Config) OnChange(fn func(*Config, error)) bool {
	if c.GetConfigFile() == "" {
		return false
	}

	c.v.OnConfigChange(func(fsnotify.Event) {
		fn(decode(c.v))
	})
	c.v.WatchConfig()
	return true
}
