// Package config loads looplang run configuration files.
//
// A run configuration is a YAML document:
//
//	sugar: true
//	enhanced: false
//	preamble: "n = 5"
//	print: [r]
//	registers:
//	  n: 5
//	maxCallDepth: 1000
//	output: json
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/looplang/pkg/parser"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config is a run configuration.
type Config struct {
	Sugar        bool              `yaml:"sugar"`
	Enhanced     bool              `yaml:"enhanced"`
	Preamble     string            `yaml:"preamble"`
	Print        []string          `yaml:"print"`
	Registers    map[string]uint64 `yaml:"registers"`
	MaxCallDepth int               `yaml:"maxCallDepth"`
	Output       string            `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Output: OutputText}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("invalid output format %q (want text, json or yaml)", c.Output)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("maxCallDepth must not be negative, got %d", c.MaxCallDepth)
	}
	return nil
}

// Dialect returns the language extensions selected by the configuration.
func (c *Config) Dialect() parser.Dialect {
	return parser.Dialect{Sugar: c.Sugar, Enhanced: c.Enhanced}
}
