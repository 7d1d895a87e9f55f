// Package config loads foundation-sql configuration from files,
// environment variables, and flags, and resolves named targets to
// connection URLs.
package config

import (
	"fmt"
	"sort"

	"github.com/rishipradeep-think41/foundation-sql/pkg/core"
)

// TargetConfig describes one named database target.
type TargetConfig struct {
	// URL is the connection URL (postgres://, mysql://, sqlite:///).
	// ${VAR} references are expanded from the environment at load time.
	URL string `koanf:"url"`

	// Mode selects the execution path: "sync", "async", or "" for the
	// call-site default.
	Mode string `koanf:"mode"`

	// SchemaFile optionally points at a DDL file applied by the
	// schema command before first use.
	SchemaFile string `koanf:"schema_file"`
}

// Config holds the full CLI configuration.
type Config struct {
	DefaultTarget string                  `koanf:"default_target"`
	Targets       map[string]TargetConfig `koanf:"targets"`
	Verbose       bool                    `koanf:"verbose"`
}

// Resolve maps a target name to its connection URL and execution mode.
// An empty name falls back to DefaultTarget. A name that looks like a
// connection URL itself (contains "://") is passed through unchanged,
// so ad-hoc URLs work without a config file.
func (c *Config) Resolve(name string) (core.Target, core.ExecutionMode, error) {
	if isURL(name) {
		return core.Target(name), core.ModeDefault, nil
	}

	if name == "" {
		name = c.DefaultTarget
	}
	if name == "" {
		return "", core.ModeDefault, fmt.Errorf("no target given and no default_target configured")
	}

	tc, ok := c.Targets[name]
	if !ok {
		return "", core.ModeDefault, &UnknownTargetError{Name: name, Available: c.TargetNames()}
	}

	mode, err := ParseMode(tc.Mode)
	if err != nil {
		return "", core.ModeDefault, fmt.Errorf("target %q: %w", name, err)
	}
	return core.Target(tc.URL), mode, nil
}

// TargetNames returns the configured target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.DefaultTarget != "" {
		if _, ok := c.Targets[c.DefaultTarget]; !ok {
			return fmt.Errorf("default_target %q is not defined under targets", c.DefaultTarget)
		}
	}
	for name, tc := range c.Targets {
		if tc.URL == "" {
			return fmt.Errorf("target %q has no url", name)
		}
		if _, err := ParseMode(tc.Mode); err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}
	}
	return nil
}

// ParseMode parses a mode string from config or flags.
func ParseMode(s string) (core.ExecutionMode, error) {
	switch s {
	case "":
		return core.ModeDefault, nil
	case "sync":
		return core.ModeSync, nil
	case "async":
		return core.ModeAsync, nil
	default:
		return core.ModeDefault, fmt.Errorf("unknown mode %q (want sync or async)", s)
	}
}

// UnknownTargetError is returned when a target name is not configured.
type UnknownTargetError struct {
	Name      string
	Available []string
}

func (e *UnknownTargetError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown target %q (no targets configured)", e.Name)
	}
	return fmt.Sprintf("unknown target %q (configured: %v)", e.Name, e.Available)
}
