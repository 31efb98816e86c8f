package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvURL      = "ODOO_URL"
	EnvDatabase = "ODOO_DB"
	EnvUsername = "ODOO_USERNAME"
	EnvPassword = "ODOO_PASSWORD"
	EnvTimeout  = "ODOO_TIMEOUT_SECONDS"
	EnvLogLevel = "LOG_LEVEL"
)

// DefaultEnvFile is read when present and no other file is named.
const DefaultEnvFile = ".env"

// Load builds the configuration: defaults, then the CUE file at path (when
// not empty), then the environment. envFile is loaded into the environment
// first without replacing variables already set; a missing DefaultEnvFile is
// not an error.
func Load(path, envFile string) (Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}
	c := Default()
	if path != "" {
		parsed, err := Parse(path)
		if err != nil {
			return Config{}, err
		}
		c = parsed
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return c, nil
}

func loadEnvFile(name string) error {
	explicit := name != ""
	if !explicit {
		name = DefaultEnvFile
	}
	err := godotenv.Load(name)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", name, err)
}

// ApplyEnv overrides connection settings with non-empty environment values.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	}
	if v, ok := get(EnvURL); ok {
		c.Connection.URL = v
	}
	if v, ok := get(EnvDatabase); ok {
		c.Connection.Database = v
	}
	if v, ok := get(EnvUsername); ok {
		c.Connection.Username = v
	}
	if v, ok := lookup(EnvPassword); ok {
		c.Connection.Password = v
	}
	if v, ok := get(EnvTimeout); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvTimeout, v)
		}
		c.Connection.TimeoutSeconds = n
	}
	return nil
}
