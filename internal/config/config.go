// Package config loads the mirror settings from an optional CUE file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
)

// Unstaged task policies accepted in output.unstaged.
const (
	UnstagedFolder = "folder"
	UnstagedOmit   = "omit"
)

// Config is the resolved run configuration.
type Config struct {
	ConfigVersion string
	Connection    Connection
	FolioFields   []FolioField
	Output        Output
	Lua           LuaSandbox
}

// Connection locates the remote service. Password never comes from the file.
type Connection struct {
	URL            string
	Database       string
	Username       string
	Password       string
	TimeoutSeconds int
}

// FolioField is one identifying field probed when resolving the folio, with
// an optional Lua rule computing the candidate value.
type FolioField struct {
	Name string
	Lua  string
}

// Output holds optional output settings and presence flags.
type Output struct {
	Dir         string
	Manifest    bool
	Unstaged    string
	HasDir      bool
	HasManifest bool
	HasUnstaged bool
}

// LuaSandbox holds optional limits for folio rules.
type LuaSandbox struct {
	TimeoutMs           int
	InstructionLimit    int
	MemoryLimitBytes    int
	HasSection          bool
	HasTimeoutMs        bool
	HasInstructionLimit bool
	HasMemoryLimitBytes bool
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Output: Output{
			Dir:      ".",
			Manifest: true,
			Unstaged: UnstagedFolder,
		},
	}
}

// Parse validates and extracts values from the CUE config at path. Values
// the file leaves out keep their defaults.
func Parse(path string) (Config, error) {
	v, err := compileCUE(path)
	if err != nil {
		return Config{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Config{}, err
	}
	c := Default()
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&c.ConfigVersion); err != nil {
		return Config{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if !IsSupportedConfigVersion(c.ConfigVersion) {
		return Config{}, fmt.Errorf("unsupported configVersion: %q (supported: %s)", c.ConfigVersion, SupportedConfigVersionsCSV())
	}
	if c.Connection, err = parseConnectionSection(v); err != nil {
		return Config{}, err
	}
	if c.FolioFields, err = parseFolioFieldsSection(v); err != nil {
		return Config{}, err
	}
	out := parseOutputSection(v)
	if out.HasDir {
		c.Output.Dir = out.Dir
	}
	if out.HasManifest {
		c.Output.Manifest = out.Manifest
	}
	if out.HasUnstaged {
		c.Output.Unstaged = out.Unstaged
	}
	c.Output.HasDir, c.Output.HasManifest, c.Output.HasUnstaged = out.HasDir, out.HasManifest, out.HasUnstaged
	c.Lua = parseLuaSandboxSection(v)
	return c, nil
}

// Validate reports the first missing or invalid value.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Connection.URL) == "":
		return errors.New("missing connection url (set connection.url or ODOO_URL)")
	case strings.TrimSpace(c.Connection.Database) == "":
		return errors.New("missing connection database (set connection.database or ODOO_DB)")
	case strings.TrimSpace(c.Connection.Username) == "":
		return errors.New("missing connection username (set connection.username or ODOO_USERNAME)")
	case c.Connection.Password == "":
		return errors.New("missing password (set ODOO_PASSWORD)")
	case c.Connection.TimeoutSeconds < 0:
		return errors.New("invalid connection.timeoutSeconds: must be >= 0")
	}
	switch c.Output.Unstaged {
	case UnstagedFolder, UnstagedOmit:
	default:
		return fmt.Errorf("invalid output.unstaged: %q (expected %q or %q)", c.Output.Unstaged, UnstagedFolder, UnstagedOmit)
	}
	for i, f := range c.FolioFields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("invalid folioFields[%d]: missing name", i)
		}
	}
	if c.Lua.TimeoutMs < 0 || c.Lua.InstructionLimit < 0 || c.Lua.MemoryLimitBytes < 0 {
		return errors.New("invalid lua limits: must be >= 0")
	}
	return nil
}
