package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the outreach backend connection.
type APIConfig struct {
	// BaseURL is the root URL of the backend (e.g., http://localhost:8000).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Timeout bounds every request; a request exceeding it fails as a
	// connectivity error.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RateLimit is the sustained requests-per-second budget. Zero or
	// negative disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// InboxConfig holds inbox view tuning.
type InboxConfig struct {
	StaleTime      time.Duration `mapstructure:"stale_time" yaml:"stale_time"`
	SearchDebounce time.Duration `mapstructure:"search_debounce" yaml:"search_debounce"`
}

// ContactsConfig holds contacts view tuning.
type ContactsConfig struct {
	StaleTime time.Duration `mapstructure:"stale_time" yaml:"stale_time"`
	PageSize  int           `mapstructure:"page_size" yaml:"page_size"`
}

// CampaignsConfig holds campaign list caching settings.
type CampaignsConfig struct {
	StaleTime time.Duration `mapstructure:"stale_time" yaml:"stale_time"`
}

// PollConfig holds background polling intervals.
type PollConfig struct {
	UnreadInterval time.Duration `mapstructure:"unread_interval" yaml:"unread_interval"`
}

// ExportConfig controls where exported messages are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// LogConfig controls the diagnostic log file.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Inbox     InboxConfig     `mapstructure:"inbox" yaml:"inbox"`
	Contacts  ContactsConfig  `mapstructure:"contacts" yaml:"contacts"`
	Campaigns CampaignsConfig `mapstructure:"campaigns" yaml:"campaigns"`
	Poll      PollConfig      `mapstructure:"poll" yaml:"poll"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// envPrefix namespaces environment overrides, e.g. OUTREACH_API_BASE_URL.
const envPrefix = "OUTREACH"

// configDir returns ~/.config/outreach-inbox, or the working directory
// when the home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "outreach-inbox")
}

// DefaultConfigPath returns the configuration file location. The
// OUTREACH_CONFIG environment variable takes precedence over
// ~/.config/outreach-inbox/config.yaml.
func DefaultConfigPath() string {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.yaml")
}

// setDefaults registers a default for every key so that missing keys and
// environment-only keys resolve through Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.rate_burst", 5)
	v.SetDefault("inbox.stale_time", 30*time.Second)
	v.SetDefault("inbox.search_debounce", 300*time.Millisecond)
	v.SetDefault("contacts.stale_time", time.Minute)
	v.SetDefault("contacts.page_size", 10)
	v.SetDefault("campaigns.stale_time", 5*time.Minute)
	v.SetDefault("poll.unread_interval", time.Minute)
	v.SetDefault("export.dir", filepath.Join(configDir(), "exports"))
	v.SetDefault("log.file", filepath.Join(configDir(), "outreach-inbox.log"))
	v.SetDefault("log.level", "info")
}

// LoadConfig reads configuration from the YAML file at path using Viper,
// with OUTREACH_* environment variables taking precedence over the file.
// A missing file is not an error; defaults apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if !IsPageSize(cfg.Contacts.PageSize) {
		cfg.Contacts.PageSize = PageSizes[0]
	}

	return cfg, nil
}

// PageSizes are the selectable contacts page sizes.
var PageSizes = []int{10, 20, 50, 100}

// IsPageSize reports whether n is one of PageSizes.
func IsPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}
