package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sostawatch/sostawatch/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultStatePath    = "state.json"
	DefaultFetchTimeout = 30 * time.Second
	DefaultUserAgent    = "Mozilla/5.0"
	DefaultMaxBodyBytes = 10 << 20
	DefaultTimezone     = "Europe/Rome"
	DefaultHour         = 7
	DefaultMinute       = 30
	DefaultMaxEntries   = 6
	DefaultTelegramAPI  = "https://api.telegram.org"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
)

// DefaultSources is the compiled-in list of monitored pages.
var DefaultSources = []types.Source{
	{
		Name: "Roma Mobilità",
		URLs: []string{
			"https://romamobilita.it/it/servizi/sosta",
			"https://romamobilita.it/it",
		},
	},
	{
		Name: "Roma Capitale",
		URLs: []string{
			"https://www.comune.roma.it/web/it/home.page",
		},
	},
}

// Default keyword lists. A page is relevant when it contains at least one
// topic keyword and at least one domain keyword.
var (
	DefaultTopicKeywords  = []string{"ibrid", "hybrid", "mild", "mhev"}
	DefaultDomainKeywords = []string{"strisce blu", "sosta", "parchegg", "tariff", "gratuit", "esenz", "agevol"}
)

// Config is the top-level configuration file.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all monitor settings.
type AgentConfig struct {
	// StatePath is the location of the fingerprint document.
	StatePath string `yaml:"state_path"`

	// Sources is the ordered list of institutions and pages to monitor.
	Sources []types.Source `yaml:"sources"`

	Keywords KeywordsConfig `yaml:"keywords"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Notify   NotifyConfig   `yaml:"notify"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// KeywordsConfig holds the two keyword categories of the relevance filter.
type KeywordsConfig struct {
	Topic  []string `yaml:"topic"`
	Domain []string `yaml:"domain"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	// Timeout bounds each individual page fetch.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with every request. Some municipal sites reject
	// non-browser clients.
	UserAgent string `yaml:"user_agent"`

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// ScheduleConfig defines the local time at which a run is allowed.
type ScheduleConfig struct {
	// Timezone is an IANA zone name used for the gate, the daemon trigger and
	// the timestamp in notifications.
	Timezone string `yaml:"timezone"`

	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`

	// Gate enables the exact hour:minute check on every run.
	Gate bool `yaml:"gate"`
}

// Location resolves Timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// NotifyConfig holds message limits and delivery channels.
type NotifyConfig struct {
	// MaxEntries caps the number of changed pages listed in one message.
	MaxEntries int `yaml:"max_entries"`

	Channels []ChannelConfig `yaml:"channels"`
}

// ChannelConfig defines one delivery target. Credentials are never stored in
// the file; each *_env field names the environment variable holding the value.
type ChannelConfig struct {
	// Type is one of: telegram | slack | http.
	Type string `yaml:"type"`

	// Telegram fields.
	TokenEnv  string `yaml:"token_env"`
	ChatIDEnv string `yaml:"chat_id_env"`
	APIBase   string `yaml:"api_base"`

	// Slack / http fields.
	URLEnv string `yaml:"url_env"`
}

// Token returns the bot token resolved from the environment.
func (c ChannelConfig) Token() string {
	if c.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.TokenEnv)
}

// ChatID returns the destination chat identifier resolved from the environment.
func (c ChannelConfig) ChatID() string {
	if c.ChatIDEnv == "" {
		return ""
	}
	return os.Getenv(c.ChatIDEnv)
}

// URL returns the webhook URL resolved from the environment.
func (c ChannelConfig) URL() string {
	if c.URLEnv == "" {
		return ""
	}
	return os.Getenv(c.URLEnv)
}

// MetricsConfig configures the Prometheus textfile written after each run.
type MetricsConfig struct {
	// TextfilePath is where run metrics are written. Empty disables export.
	TextfilePath string `yaml:"textfile_path"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path over the compiled-in
// defaults. An empty path returns the defaults alone.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		if err := validate(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values, including the
// in-source list of monitored pages and keyword lists.
func Defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			StatePath: DefaultStatePath,
			Sources:   cloneSources(DefaultSources),
			Keywords: KeywordsConfig{
				Topic:  append([]string(nil), DefaultTopicKeywords...),
				Domain: append([]string(nil), DefaultDomainKeywords...),
			},
			Fetch: FetchConfig{
				Timeout:      DefaultFetchTimeout,
				UserAgent:    DefaultUserAgent,
				MaxBodyBytes: DefaultMaxBodyBytes,
			},
			Schedule: ScheduleConfig{
				Timezone: DefaultTimezone,
				Hour:     DefaultHour,
				Minute:   DefaultMinute,
				Gate:     true,
			},
			Notify: NotifyConfig{
				MaxEntries: DefaultMaxEntries,
				Channels: []ChannelConfig{
					{
						Type:      "telegram",
						TokenEnv:  "TELEGRAM_BOT_TOKEN",
						ChatIDEnv: "TELEGRAM_CHAT_ID",
						APIBase:   DefaultTelegramAPI,
					},
				},
			},
			Logging: LoggingConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
		},
	}
}

func cloneSources(in []types.Source) []types.Source {
	out := make([]types.Source, len(in))
	for i, s := range in {
		out[i] = types.Source{Name: s.Name, URLs: append([]string(nil), s.URLs...)}
	}
	return out
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := &cfg.Agent
	if a.StatePath == "" {
		return fmt.Errorf("agent.state_path is required")
	}
	if len(a.Sources) == 0 {
		return fmt.Errorf("agent.sources: at least one source is required")
	}
	for i, src := range a.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if len(src.URLs) == 0 {
			return fmt.Errorf("sources[%d] %q: at least one url is required", i, src.Name)
		}
		for j, u := range src.URLs {
			if u == "" {
				return fmt.Errorf("sources[%d] %q: urls[%d] is empty", i, src.Name, j)
			}
		}
	}
	if len(a.Keywords.Topic) == 0 || len(a.Keywords.Domain) == 0 {
		return fmt.Errorf("agent.keywords: topic and domain lists must both be non-empty")
	}
	if a.Fetch.Timeout <= 0 {
		return fmt.Errorf("agent.fetch.timeout must be positive")
	}
	if a.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("agent.fetch.max_body_bytes must be positive")
	}
	if _, err := a.Schedule.Location(); err != nil {
		return fmt.Errorf("agent.schedule.timezone %q: %w", a.Schedule.Timezone, err)
	}
	if a.Schedule.Hour < 0 || a.Schedule.Hour > 23 {
		return fmt.Errorf("agent.schedule.hour must be 0-23, got %d", a.Schedule.Hour)
	}
	if a.Schedule.Minute < 0 || a.Schedule.Minute > 59 {
		return fmt.Errorf("agent.schedule.minute must be 0-59, got %d", a.Schedule.Minute)
	}
	if a.Notify.MaxEntries <= 0 {
		return fmt.Errorf("agent.notify.max_entries must be positive")
	}
	for i, ch := range a.Notify.Channels {
		switch ch.Type {
		case "telegram":
			if ch.TokenEnv == "" || ch.ChatIDEnv == "" {
				return fmt.Errorf("notify.channels[%d]: telegram requires token_env and chat_id_env", i)
			}
		case "slack", "http":
			if ch.URLEnv == "" {
				return fmt.Errorf("notify.channels[%d]: %s requires url_env", i, ch.Type)
			}
		default:
			return fmt.Errorf("notify.channels[%d]: unknown type %q", i, ch.Type)
		}
	}
	switch a.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("agent.logging.level: unknown level %q", a.Logging.Level)
	}
	switch a.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("agent.logging.format: unknown format %q", a.Logging.Format)
	}
	return nil
}
