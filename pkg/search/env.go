package search

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/beeper/livelink-bridge/pkg/shared/stringutil"
)

const envPrefix = "LLBRIDGE_"

// ConfigFromEnv builds a bridge config using environment variables.
func ConfigFromEnv() *Config {
	cfg := &Config{}

	cfg.Listen = envOr(cfg.Listen, os.Getenv(envPrefix+"LISTEN"))
	cfg.PublicURL = envOr(cfg.PublicURL, os.Getenv(envPrefix+"PUBLIC_URL"))

	cfg.Log.Level = envOr(cfg.Log.Level, os.Getenv(envPrefix+"LOG_LEVEL"))
	cfg.Log.Format = envOr(cfg.Log.Format, os.Getenv(envPrefix+"LOG_FORMAT"))

	cfg.Backend.UserAgent = envOr(cfg.Backend.UserAgent, os.Getenv(envPrefix+"USER_AGENT"))
	cfg.Backend.IdentityHeader = envOr(cfg.Backend.IdentityHeader, os.Getenv(envPrefix+"IDENTITY_HEADER"))
	if timeout, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envPrefix + "TIMEOUT_SECONDS"))); err == nil {
		cfg.Backend.TimeoutSecs = timeout
	}
	if headers := strings.TrimSpace(os.Getenv(envPrefix + "SSO_HEADERS")); headers != "" {
		cfg.Backend.SSOHeaders = stringutil.SplitCSV(headers)
	}
	if allow, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(envPrefix + "ALLOW_IGNORE_TLS"))); err == nil {
		cfg.Backend.AllowIgnoreTLS = &allow
	}
	if length, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envPrefix + "MAX_SUMMARY_LENGTH"))); err == nil {
		cfg.Defaults.MaxSummaryLength = length
	}
	cfg.Descriptor.ShortName = envOr(cfg.Descriptor.ShortName, os.Getenv(envPrefix+"SHORT_NAME"))

	return cfg.WithDefaults()
}

// ApplyEnvDefaults overrides config fields with environment variables that
// are set. Values from the file stay in place otherwise.
func ApplyEnvDefaults(cfg *Config) *Config {
	if cfg == nil {
		return ConfigFromEnv()
	}
	envCfg := ConfigFromEnv()
	isSet := func(name string) bool {
		return strings.TrimSpace(os.Getenv(envPrefix+name)) != ""
	}

	if isSet("LISTEN") {
		cfg.Listen = envCfg.Listen
	}
	if isSet("PUBLIC_URL") {
		cfg.PublicURL = envCfg.PublicURL
	}
	if isSet("LOG_LEVEL") {
		cfg.Log.Level = envCfg.Log.Level
	}
	if isSet("LOG_FORMAT") {
		cfg.Log.Format = envCfg.Log.Format
	}
	if isSet("USER_AGENT") {
		cfg.Backend.UserAgent = envCfg.Backend.UserAgent
	}
	if isSet("IDENTITY_HEADER") {
		cfg.Backend.IdentityHeader = envCfg.Backend.IdentityHeader
	}
	if isSet("TIMEOUT_SECONDS") {
		cfg.Backend.TimeoutSecs = envCfg.Backend.TimeoutSecs
	}
	if isSet("SSO_HEADERS") {
		cfg.Backend.SSOHeaders = envCfg.Backend.SSOHeaders
	}
	if isSet("ALLOW_IGNORE_TLS") {
		cfg.Backend.AllowIgnoreTLS = envCfg.Backend.AllowIgnoreTLS
	}
	if isSet("MAX_SUMMARY_LENGTH") {
		cfg.Defaults.MaxSummaryLength = envCfg.Defaults.MaxSummaryLength
	}
	if isSet("SHORT_NAME") {
		cfg.Descriptor.ShortName = envCfg.Descriptor.ShortName
	}

	return cfg.WithDefaults()
}

// LoadConfig reads an optional .env file and an optional YAML file, then
// applies environment overrides. Missing files are not an error.
func LoadConfig(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	return ApplyEnvDefaults(cfg), nil
}

func envOr(existing, value string) string {
	return stringutil.EnvOr(existing, value)
}
