// Package config loads the optional .cmakels.yaml file from a workspace root
// and overlays it on the defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the workspace root.
const FileName = ".cmakels.yaml"

// CasePolicy selects the expected spelling of command names.
type CasePolicy string

const (
	Lowercase  CasePolicy = "lowercase"
	Upcase     CasePolicy = "upcase"
	IgnoreCase CasePolicy = "ignore"
)

// ComponentMode selects how find_package components are resolved.
type ComponentMode string

const (
	// ExpandComponents resolves only the Name::comp records.
	ExpandComponents ComponentMode = "expand"
	// BothComponents resolves the base package and the components.
	BothComponents ComponentMode = "both"
	// IgnoreComponents resolves the base package only.
	IgnoreComponents ComponentMode = "ignore"
)

type Lint struct {
	Enable        bool       `yaml:"enable"`
	External      bool       `yaml:"external"`
	Command       string     `yaml:"command"`
	MaxLineLength int        `yaml:"max_line_length"`
	Case          CasePolicy `yaml:"case"`
	// Rules is a directory of .risor lint scripts run after the built-in
	// rules. Relative paths are taken from the workspace root.
	Rules string `yaml:"rules"`
}

type Scan struct {
	Packages   bool          `yaml:"packages"`
	Components ComponentMode `yaml:"components"`
	Workers    int           `yaml:"workers"`
}

type Packages struct {
	Prefixes  []string `yaml:"prefixes"`
	Modules   []string `yaml:"modules"`
	PkgConfig []string `yaml:"pkgconfig"`
}

type Index struct {
	DB string `yaml:"db"`
}

// Config is the full configuration.
type Config struct {
	Lint     Lint     `yaml:"lint"`
	Scan     Scan     `yaml:"scan"`
	Packages Packages `yaml:"packages"`
	Index    Index    `yaml:"index"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Lint: Lint{
			Enable:        true,
			Command:       "cmake-lint",
			MaxLineLength: 80,
			Case:          Lowercase,
		},
		Scan: Scan{
			Packages:   true,
			Components: ExpandComponents,
		},
		Packages: Packages{
			Prefixes: []string{"/usr", "/usr/local"},
			Modules: []string{
				"/usr/share/cmake*/Modules",
				"/usr/local/share/cmake*/Modules",
			},
			PkgConfig: []string{
				"/usr/lib/pkgconfig/*.pc",
				"/usr/lib/*/pkgconfig/*.pc",
				"/usr/share/pkgconfig/*.pc",
			},
		},
		Index: Index{DB: filepath.Join(".cmakels", "index.db")},
	}
}

// Load reads root/.cmakels.yaml over the defaults. A missing file is not an
// error.
func Load(root string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and negative limits.
func (c Config) Validate() error {
	switch c.Lint.Case {
	case Lowercase, Upcase, IgnoreCase:
	default:
		return fmt.Errorf("config: unknown lint.case %q", c.Lint.Case)
	}
	switch c.Scan.Components {
	case ExpandComponents, BothComponents, IgnoreComponents:
	default:
		return fmt.Errorf("config: unknown scan.components %q", c.Scan.Components)
	}
	if c.Lint.MaxLineLength < 0 {
		return fmt.Errorf("config: lint.max_line_length must not be negative")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("config: scan.workers must not be negative")
	}
	return nil
}

// RulesDir returns the lint rules directory resolved against root, or "".
func (c Config) RulesDir(root string) string {
	if c.Lint.Rules == "" || filepath.IsAbs(c.Lint.Rules) {
		return c.Lint.Rules
	}
	return filepath.Join(root, c.Lint.Rules)
}

// DBPath returns the index database path resolved against root.
func (c Config) DBPath(root string) string {
	if filepath.IsAbs(c.Index.DB) {
		return c.Index.DB
	}
	return filepath.Join(root, c.Index.DB)
}
