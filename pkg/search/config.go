package search

import (
	"net/url"
	"strings"
	"time"

	"github.com/beeper/livelink-bridge/pkg/credstore"
	"github.com/beeper/livelink-bridge/pkg/livelink"
)

const (
	DefaultListenAddr       = ":8080"
	DefaultTimeoutSecs      = 30
	DefaultMaxSummaryLength = 185
	DefaultMaxResponseMiB   = 16
	DefaultIdentityHeader   = "X-Remote-User"
	DefaultShortName        = "Livelink"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

var DefaultSSOHeaders = []string{"Authorization"}

// Config is the bridge configuration.
type Config struct {
	Listen string `yaml:"listen"`
	// PublicURL is the externally visible base URL, used in descriptor links.
	// Derived from the inbound request when empty.
	PublicURL string `yaml:"public_url"`

	Log         LogConfig                  `yaml:"log"`
	Backend     BackendConfig              `yaml:"backend"`
	Defaults    RequestDefaults            `yaml:"defaults"`
	Descriptor  DescriptorConfig           `yaml:"descriptor"`
	Credentials map[string]credstore.Entry `yaml:"credentials"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BackendConfig struct {
	UserAgent      string `yaml:"user_agent"`
	TimeoutSecs    int    `yaml:"timeout_seconds"`
	MaxResponseMiB int    `yaml:"max_response_mib"`
	// IdentityHeader carries the caller's login when useSSO is false.
	IdentityHeader string `yaml:"identity_header"`
	// SSOHeaders are forwarded to the backend when useSSO is true.
	SSOHeaders []string `yaml:"sso_headers"`
	// AllowIgnoreTLS gates the ignoreSSLWarnings request parameter.
	AllowIgnoreTLS *bool `yaml:"allow_ignore_tls"`
}

type RequestDefaults struct {
	MaxSummaryLength int    `yaml:"max_summary_length"`
	IconURL          string `yaml:"icon_url"`
}

type DescriptorConfig struct {
	ShortName   string `yaml:"short_name"`
	Description string `yaml:"description"`
	Contact     string `yaml:"contact"`
	ImageURL    string `yaml:"image_url"`
	// Params are fixed inbound parameters baked into the descriptor templates.
	Params map[string]string `yaml:"params"`
}

// WithDefaults returns a copy of c with every unset field filled in. The
// receiver is never modified.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	copied := *c
	c = &copied
	if strings.TrimSpace(c.Listen) == "" {
		c.Listen = DefaultListenAddr
	}
	c.PublicURL = strings.TrimRight(strings.TrimSpace(c.PublicURL), "/")
	c.Log = c.Log.withDefaults()
	c.Backend = c.Backend.withDefaults()
	c.Defaults = c.Defaults.withDefaults()
	c.Descriptor = c.Descriptor.withDefaults()
	return c
}

func (c LogConfig) withDefaults() LogConfig {
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
	if c.Format == "" {
		c.Format = DefaultLogFormat
	}
	return c
}

func (c BackendConfig) withDefaults() BackendConfig {
	if c.UserAgent == "" {
		c.UserAgent = livelink.DefaultUserAgent
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = DefaultTimeoutSecs
	}
	if c.MaxResponseMiB <= 0 {
		c.MaxResponseMiB = DefaultMaxResponseMiB
	}
	if c.IdentityHeader == "" {
		c.IdentityHeader = DefaultIdentityHeader
	}
	if len(c.SSOHeaders) == 0 {
		c.SSOHeaders = append([]string{}, DefaultSSOHeaders...)
	}
	return c
}

func (c RequestDefaults) withDefaults() RequestDefaults {
	if c.MaxSummaryLength == 0 {
		c.MaxSummaryLength = DefaultMaxSummaryLength
	}
	return c
}

func (c DescriptorConfig) withDefaults() DescriptorConfig {
	if c.ShortName == "" {
		c.ShortName = DefaultShortName
	}
	if c.Description == "" {
		c.Description = "Search " + c.ShortName + " content"
	}
	return c
}

// Timeout is the per-request backend timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MaxResponseBytes caps the backend response size.
func (c BackendConfig) MaxResponseBytes() int64 {
	return int64(c.MaxResponseMiB) << 20
}

// IgnoreTLSAllowed reports whether requests may disable certificate checks.
func (c BackendConfig) IgnoreTLSAllowed() bool {
	return isEnabled(c.AllowIgnoreTLS, true)
}

func isEnabled(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}

// CredentialEntries returns the configured credentials. Entries without
// allowed_hosts are bound to the host of the descriptor's livelinkUrl.
func (c *Config) CredentialEntries() map[string]credstore.Entry {
	defaultHost := c.descriptorBackendHost()
	entries := make(map[string]credstore.Entry, len(c.Credentials))
	for appID, entry := range c.Credentials {
		if len(entry.AllowedHosts) == 0 && defaultHost != "" {
			entry.AllowedHosts = []string{defaultHost}
		}
		entries[appID] = entry
	}
	return entries
}

func (c *Config) descriptorBackendHost() string {
	for key, value := range c.Descriptor.Params {
		if !strings.EqualFold(key, "livelinkUrl") {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(value))
		if err != nil {
			return ""
		}
		return u.Host
	}
	return ""
}
