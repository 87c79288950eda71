// Package config loads server settings from an optional YAML file, then
// applies environment overrides. Command-line flags are applied last by the
// caller through [Config.ApplyFlags].
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Environment    Environment   `yaml:"environment"`
	Listen         string        `yaml:"listen"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Storage        StorageConfig `yaml:"storage"`
	Auth           AuthConfig    `yaml:"auth"`
	Rooms          RoomsConfig   `yaml:"rooms"`
	Log            LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver      string `yaml:"driver"`
	PostgresURL string `yaml:"postgres_url"`
	SQLitePath  string `yaml:"sqlite_path"`
}

type AuthConfig struct {
	JWTKey          string `yaml:"jwt_key"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
	// Argon2id cost for room passcodes. Memory is in KB.
	HashIterations uint32 `yaml:"hash_iterations"`
	HashMemoryKB   uint32 `yaml:"hash_memory_kb"`
}

type RoomsConfig struct {
	InboxSize         int     `yaml:"inbox_size"`
	OutboxSize        int     `yaml:"outbox_size"`
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Format is console or json.
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Environment:    Development,
		Listen:         ":5000",
		AllowedOrigins: []string{"http://localhost:3000"},
		Storage: StorageConfig{
			Driver:     DriverMemory,
			SQLitePath: "huddle.db",
		},
		Auth: AuthConfig{
			SessionTTLHours: 24 * 7,
			HashIterations:  3,
			HashMemoryKB:    64 * 1024,
		},
		Rooms: RoomsConfig{
			InboxSize:         256,
			OutboxSize:        256,
			MessagesPerSecond: 10,
			Burst:             20,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (when not empty) on top of the defaults and then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("HUDDLE_ENV"); ok {
		c.Environment = Environment(v)
	}
	if v, ok := lookup("HUDDLE_LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup("HUDDLE_STORAGE"); ok {
		c.Storage.Driver = v
	}
	if v, ok := lookup("POSTGRES_URL"); ok {
		c.Storage.PostgresURL = v
		if _, set := lookup("HUDDLE_STORAGE"); !set {
			c.Storage.Driver = DriverPostgres
		}
	}
	if v, ok := lookup("HUDDLE_SQLITE_PATH"); ok {
		c.Storage.SQLitePath = v
	}
	if v, ok := lookup("JWT_KEY"); ok {
		c.Auth.JWTKey = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// ApplyFlags copies the flags that were explicitly set on the command line.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) {
	if f := fs.Lookup("listen"); f != nil && f.Changed {
		c.Listen = f.Value.String()
	}
	if f := fs.Lookup("storage"); f != nil && f.Changed {
		c.Storage.Driver = f.Value.String()
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTKey == "" {
		errs = append(errs, errors.New("auth.jwt_key (JWT_KEY) is required"))
	}
	if c.Auth.SessionTTLHours <= 0 {
		errs = append(errs, errors.New("auth.session_ttl_hours must be positive"))
	}
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url (POSTGRES_URL) is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Environment == Production && c.Storage.Driver == DriverMemory {
		errs = append(errs, errors.New("memory storage is not allowed in production"))
	}
	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("allowed_origins must not be empty"))
	}
	if c.Rooms.InboxSize <= 0 || c.Rooms.OutboxSize <= 0 {
		errs = append(errs, errors.New("rooms.inbox_size and rooms.outbox_size must be positive"))
	}
	if c.Rooms.MessagesPerSecond <= 0 || c.Rooms.Burst <= 0 {
		errs = append(errs, errors.New("rooms.messages_per_second and rooms.burst must be positive"))
	}
	return errors.Join(errs...)
}
