// Package config loads tool configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/ms2pred/pkg/annotate"
	"github.com/ChrisMcGann/ms2pred/pkg/core"
	"github.com/ChrisMcGann/ms2pred/pkg/reader/proxi"
)

// Config holds all tool settings. Zero values fall back to defaults.
type Config struct {
	// Archives lists PROXI base URLs tried in order when fetching by USI.
	Archives []string `yaml:"archives"`

	// PredictURL is the base URL of the spectrum prediction service.
	// Empty means predictions fall back to the theoretical ladder.
	PredictURL string `yaml:"predict_url"`

	// Model names the prediction model requested from the service.
	Model string `yaml:"model"`

	// Tolerance is the fragment matching tolerance, e.g. "0.02Da" or "20ppm".
	Tolerance string `yaml:"tolerance"`

	// CachePath is the SQLite spectrum cache location. Empty disables caching.
	CachePath string `yaml:"cache_path"`

	// Modifications holds extra modification definitions, one per line in
	// the format "name,mass_delta,opt|fixed,residue".
	Modifications []string `yaml:"modifications"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Archives:  proxi.DefaultArchives,
		Tolerance: annotate.DefaultTolerance.String(),
	}
}

// Load reads the YAML file at path and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if len(c.Archives) == 0 {
		c.Archives = def.Archives
	}
	if c.Tolerance == "" {
		c.Tolerance = def.Tolerance
	}
}

// Validate checks the parseable fields.
func (c *Config) Validate() error {
	if _, err := annotate.ParseTolerance(c.Tolerance); err != nil {
		return err
	}
	for _, def := range c.Modifications {
		if _, err := core.ParseDefinition(def); err != nil {
			return err
		}
	}
	return nil
}

// MatchTolerance returns the parsed fragment matching tolerance.
func (c *Config) MatchTolerance() (annotate.Tolerance, error) {
	return annotate.ParseTolerance(c.Tolerance)
}

// ModDatabase builds the modification database: the built-in table
// extended with the configured definitions.
func (c *Config) ModDatabase() (*core.ModDatabase, error) {
	db := core.DefaultModDatabase()
	if err := db.LoadDefinitions(c.Modifications); err != nil {
		return nil, fmt.Errorf("failed to load modification definitions: %w", err)
	}
	return db, nil
}
