package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings. A .env file in the
// project directory supplies them when the process environment does not.
const (
	EnvLogLevel  = "SCHEMAGRAPH_LOG_LEVEL"
	EnvStore     = "SCHEMAGRAPH_STORE"
	EnvStorePath = "SCHEMAGRAPH_STORE_PATH"
	EnvParser    = "SCHEMAGRAPH_PARSER"
)

var validate = validator.New()

// ProjectConfig holds project-level settings loaded from schemagraph.yml.
type ProjectConfig struct {
	// Schemas are doublestar globs, relative to the project directory.
	Schemas []string `yaml:"schemas,omitempty"`
	// RootModel overrides the root model per schema name.
	RootModel map[string]string `yaml:"rootModel,omitempty"`
	Parser    string            `yaml:"parser,omitempty" validate:"omitempty,oneof=line treesitter"`
	Store     string            `yaml:"store,omitempty" validate:"omitempty,oneof=memory kuzu"`
	StorePath string            `yaml:"storePath,omitempty"`
	LogLevel  string            `yaml:"logLevel,omitempty" validate:"omitempty,oneof=trace debug info warn error off"`
	CacheSize int               `yaml:"cacheSize,omitempty" validate:"gte=0"`
}

// Load attempts to read schemagraph.yml or schemagraph.yaml from the given
// directory, then applies environment overrides and validates the result.
// Returns a zero-value config (not an error) if no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	for _, name := range []string{"schemagraph.yml", "schemagraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", name, err)
		}
		break
	}

	dotenv, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config .env: %w", err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	for key, dst := range map[string]*string{
		EnvLogLevel:  &cfg.LogLevel,
		EnvStore:     &cfg.Store,
		EnvStorePath: &cfg.StorePath,
		EnvParser:    &cfg.Parser,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Root returns the configured root model for a schema, or "".
func (c *ProjectConfig) Root(schemaName string) string {
	return c.RootModel[schemaName]
}
