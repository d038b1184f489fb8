// Package config loads pflow settings from an optional config file, PFLOW_*
// environment variables and command-line flags, in rising precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Keys understood by Load. Environment variables are PFLOW_ plus the
// upper-cased key, e.g. PFLOW_BACKEND.
const (
	KeyBackend      = "backend"
	KeyEndpoint     = "endpoint"
	KeyToken        = "token"
	KeyDB           = "db"
	KeyTimeout      = "timeout"
	KeyLogFile      = "log_file"
	KeyLogLevel     = "log_level"
	KeyScreen       = "screen"
	KeyPageSize     = "page_size"
	KeyStagnantDays = "stagnant_days"
)

// Screens that may be opened at startup.
var Screens = []string{"dashboard", "pipeline", "contacts", "companies", "quotes", "orders"}

// ErrInvalid indicates a setting outside its allowed values.
var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration (file + env + flags via Viper).
type Config struct {
	Backend      string        // graphql or sqlite
	Endpoint     string        // GraphQL endpoint of the record API
	Token        string        // Optional inline token; auth providers are tried when empty
	DB           string        // SQLite database path
	Timeout      time.Duration // Per-request timeout against the record API
	LogFile      string        // Empty means the default state-dir location
	LogLevel     string
	Screen       string // Screen shown at startup
	PageSize     int
	StagnantDays int
}

// StagnantAfter converts StagnantDays to a duration.
func (c Config) StagnantAfter() time.Duration {
	return time.Duration(c.StagnantDays) * 24 * time.Hour
}

// New returns a Viper instance with pflow defaults and env binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBackend, "graphql")
	v.SetDefault(KeyEndpoint, "")
	v.SetDefault(KeyToken, "")
	v.SetDefault(KeyDB, "pflow.db")
	v.SetDefault(KeyTimeout, 15*time.Second)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyScreen, "dashboard")
	v.SetDefault(KeyPageSize, 50)
	v.SetDefault(KeyStagnantDays, 30)

	v.SetEnvPrefix("PFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (or .env in the working directory when empty) into
// v and returns the validated result. A missing .env is not an error; a
// missing explicit config file is.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
		_ = v.ReadInConfig()
	}

	cfg := &Config{
		Backend:      strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		Endpoint:     strings.TrimSpace(v.GetString(KeyEndpoint)),
		Token:        strings.TrimSpace(v.GetString(KeyToken)),
		DB:           v.GetString(KeyDB),
		Timeout:      v.GetDuration(KeyTimeout),
		LogFile:      v.GetString(KeyLogFile),
		LogLevel:     strings.ToLower(v.GetString(KeyLogLevel)),
		Screen:       strings.ToLower(v.GetString(KeyScreen)),
		PageSize:     v.GetInt(KeyPageSize),
		StagnantDays: v.GetInt(KeyStagnantDays),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every enumerated or bounded setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case "graphql", "sqlite":
	default:
		return fmt.Errorf("%w: backend %q (want graphql or sqlite)", ErrInvalid, c.Backend)
	}
	if !validScreen(c.Screen) {
		return fmt.Errorf("%w: screen %q (want one of %s)", ErrInvalid, c.Screen, strings.Join(Screens, ", "))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout %s", ErrInvalid, c.Timeout)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size %d", ErrInvalid, c.PageSize)
	}
	if c.StagnantDays <= 0 {
		return fmt.Errorf("%w: stagnant_days %d", ErrInvalid, c.StagnantDays)
	}
	return nil
}

func validScreen(s string) bool {
	for _, name := range Screens {
		if s == name {
			return true
		}
	}
	return false
}
