package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/mcncl/jsoncanon/internal/errors"
	"github.com/mcncl/jsoncanon/internal/pathalizer"
	"github.com/mcncl/jsoncanon/internal/presenter"
	"gopkg.in/yaml.v3"
)

// Show modes for the side-by-side report
const (
	ShowDiff   = "diff"
	ShowAlways = "always"
	ShowNever  = "never"
)

// Config represents the complete configuration for jsoncanon
type Config struct {
	Compare CompareConfig `yaml:"compare"`
	Output  OutputConfig  `yaml:"output"`
	Dev     DevConfig     `yaml:"dev"`
}

// CompareConfig controls how documents are flattened before comparison
type CompareConfig struct {
	Ignore           []string `yaml:"ignore"`
	IgnorePatterns   []string `yaml:"ignore_patterns"`
	OrderProperties  bool     `yaml:"order_properties"`
	IgnoreArrayOrder bool     `yaml:"ignore_array_order"`
	MaxDepth         int      `yaml:"max_depth"`
	NormalizeNames   bool     `yaml:"normalize_names"`

	// compiled regexes (not serialized)
	patterns []*regexp.Regexp
}

// OutputConfig controls the comparison report
type OutputConfig struct {
	Show   string       `yaml:"show"`
	Color  bool         `yaml:"color"`
	Labels LabelsConfig `yaml:"labels"`
}

// LabelsConfig names the two report columns
type LabelsConfig struct {
	Expected string `yaml:"expected"`
	Actual   string `yaml:"actual"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Compare: CompareConfig{
			Ignore:          []string{},
			IgnorePatterns:  []string{},
			OrderProperties: true,
		},
		Output: OutputConfig{
			Show: ShowDiff,
			Labels: LabelsConfig{
				Expected: presenter.ExpectedLabel,
				Actual:   presenter.ActualLabel,
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("failed to read config file", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("failed to parse config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigFrom(currentDir)
}

func findConfigFrom(dir string) string {
	configNames := []string{".jsoncanon.yml", ".jsoncanon.yaml", "jsoncanon.yml", "jsoncanon.yaml"}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			// Reached root directory
			break
		}
		dir = parentDir
	}

	return ""
}

// Validate checks option values and compiles the ignore patterns.
func (c *Config) Validate() error {
	switch c.Output.Show {
	case ShowDiff, ShowAlways, ShowNever:
	case "":
		c.Output.Show = ShowDiff
	default:
		return errors.NewConfigError(fmt.Sprintf("invalid output.show '%s', want diff, always or never", c.Output.Show), nil)
	}
	if c.Compare.MaxDepth < 0 {
		return errors.NewConfigError(fmt.Sprintf("invalid compare.max_depth %d", c.Compare.MaxDepth), nil)
	}
	return c.compilePatterns()
}

// compilePatterns compiles all regex patterns in the config
func (c *Config) compilePatterns() error {
	c.Compare.patterns = c.Compare.patterns[:0]
	for _, pattern := range c.Compare.IgnorePatterns {
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return errors.NewConfigError(fmt.Sprintf("invalid ignore pattern '%s'", pattern), err)
		}
		c.Compare.patterns = append(c.Compare.patterns, regex)
	}
	return nil
}

// FlattenOptions converts the compare section into flattening options.
// Ignore patterns are only applied once Validate has compiled them.
func (c *Config) FlattenOptions(logger *slog.Logger) pathalizer.Options {
	opts := pathalizer.DefaultOptions()
	opts.IgnoredNames = append([]string(nil), c.Compare.Ignore...)
	opts.NormalizeNames = c.Compare.NormalizeNames
	opts.OrderProperties = c.Compare.OrderProperties
	opts.CanonicalizeArrays = c.Compare.IgnoreArrayOrder
	opts.MaxDepth = c.Compare.MaxDepth
	opts.Logger = logger

	opts.IgnoredPatterns = append([]*regexp.Regexp(nil), c.Compare.patterns...)
	return opts
}

// Presenter builds the report renderer for the output section.
func (c *Config) Presenter() *presenter.Presenter {
	return presenter.NewPresenter().
		WithLabels(c.Output.Labels.Expected, c.Output.Labels.Actual).
		WithColor(c.Output.Color)
}

// Overrides holds values given on the command line. Nil pointers and empty
// slices leave the base config untouched.
type Overrides struct {
	Ignore           []string
	IgnorePatterns   []string
	OrderProperties  *bool
	IgnoreArrayOrder *bool
	MaxDepth         *int
	NormalizeNames   *bool
	Show             string
	Color            *bool
	Debug            *bool
}

// MergeConfigs merges CLI overrides into a base config.
// Ignore lists are appended; every other set value replaces the base value.
func MergeConfigs(base *Config, override Overrides) (*Config, error) {
	merged := *base // Start with a copy of base
	merged.Compare.Ignore = append(append([]string(nil), base.Compare.Ignore...), override.Ignore...)
	merged.Compare.IgnorePatterns = append(append([]string(nil), base.Compare.IgnorePatterns...), override.IgnorePatterns...)
	merged.Compare.patterns = nil

	if override.OrderProperties != nil {
		merged.Compare.OrderProperties = *override.OrderProperties
	}
	if override.IgnoreArrayOrder != nil {
		merged.Compare.IgnoreArrayOrder = *override.IgnoreArrayOrder
	}
	if override.MaxDepth != nil {
		merged.Compare.MaxDepth = *override.MaxDepth
	}
	if override.NormalizeNames != nil {
		merged.Compare.NormalizeNames = *override.NormalizeNames
	}
	if override.Show != "" {
		merged.Output.Show = override.Show
	}
	if override.Color != nil {
		merged.Output.Color = *override.Color
	}
	if override.Debug != nil {
		merged.Dev.Debug = *override.Debug
	}

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfigWithCLI loads the config file at configPath, or the nearest
// discovered one when configPath is empty, and applies CLI overrides.
func LoadConfigWithCLI(configPath string, override Overrides) (*Config, error) {
	cfg := NewConfig()

	if configPath == "" {
		configPath = FindConfigFile()
	}
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	return MergeConfigs(cfg, override)
}
