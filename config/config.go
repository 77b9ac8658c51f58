/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MaxiMittel/dynormo/errors"
)

// Environment variables read by Load.
const (
	EnvAccessKey = "AWS_ACCESS_KEY"
	EnvSecretKey = "AWS_SECRET_KEY"
	EnvRegion    = "AWS_REGION"
	EnvEndpoint  = "DYNORMO_ENDPOINT"
)

// DefaultFiles are the config file names looked up when no path is given.
var DefaultFiles = []string{"dynormo.yaml", "dynormo.yml", "dynormo.config.json"}

// Config is the project configuration shared by the CLI and NewFromConfig.
type Config struct {
	// Entities lists the entity definition files, relative to the config file.
	Entities []string `yaml:"entities" json:"entities" validate:"required,min=1,dive,required"`

	// Tables overrides the table of an entity, keyed by entity name.
	Tables map[string]string `yaml:"tables,omitempty" json:"tables,omitempty" validate:"dive,required"`

	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" validate:"omitempty,url"`

	// Logger lists the enabled log modes: log, warn, error and debug.
	Logger []string `yaml:"logger,omitempty" json:"logger,omitempty" validate:"dive,oneof=log warn error debug"`

	// Output and Package control code generation.
	Output  string `yaml:"output,omitempty" json:"output,omitempty"`
	Package string `yaml:"package,omitempty" json:"package,omitempty" validate:"omitempty,alphanum"`

	// Transformations is the directory holding transformation plans.
	Transformations string `yaml:"transformations,omitempty" json:"transformations,omitempty"`

	// Credentials come from the environment only.
	AccessKey string `yaml:"-" json:"-"`
	SecretKey string `yaml:"-" json:"-"`

	dir string
}

var validate = validator.New()

// Load reads the config at path, or the first of DefaultFiles found in the
// working directory when path is empty. A .env file next to the working
// directory is loaded first when present; environment variables override
// the region and endpoint of the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		for _, name := range DefaultFiles {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			return nil, fmt.Errorf("no config file found (looked for %s)", strings.Join(DefaultFiles, ", "))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	cfg.ApplyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config document. ext selects the format (".json" or YAML
// for anything else).
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	// YAML is a superset of JSON, so one decoder reads both.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		format := "yaml"
		if ext == ".json" {
			format = "json"
		}
		return nil, fmt.Errorf("failed to parse %s config: %w", format, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides credentials, region and endpoint from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAccessKey); v != "" {
		c.AccessKey = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv(EnvRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
}

func (c *Config) applyDefaults() {
	if len(c.Logger) == 0 {
		c.Logger = []string{"log", "warn", "error"}
	}
	if c.Output == "" {
		c.Output = "dynormo"
	}
	if c.Package == "" {
		c.Package = filepath.Base(c.Output)
	}
	if c.Transformations == "" {
		c.Transformations = "transformations"
	}
}

// Validate checks the struct rules of the config.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Errorf("config validation: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed on rule '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.NewValidationError("config", strings.Join(msgs, "; "))
}

// EntityPaths returns the entity definition paths resolved against the
// directory of the config file.
func (c *Config) EntityPaths() []string {
	paths := make([]string, len(c.Entities))
	for i, p := range c.Entities {
		paths[i] = c.resolve(p)
	}
	return paths
}

// OutputDir is the code generation directory, relative to the config file.
func (c *Config) OutputDir() string {
	return c.resolve(c.Output)
}

// TransformationsDir is the plan directory, relative to the config file.
func (c *Config) TransformationsDir() string {
	return c.resolve(c.Transformations)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}
