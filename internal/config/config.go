// Package config implements replan's ambient YAML configuration layer,
// adapted from the teacher's internal/config package: a Config struct
// loaded from a project-relative dotfile, merged with defaults, and
// validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the replan configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the replan configuration directory.
const ConfigDirName = ".replan"

// Config holds all replan configuration.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Env     EnvConfig     `yaml:"env"`
	Output  OutputConfig  `yaml:"output"`
}

// ProjectConfig holds a project-name default and a list of exclude
// globs. Both are loaded and merged with defaults only: nothing in the
// planner, the CLI or the MCP server reads them, and no file is
// filtered out by Exclude.
type ProjectConfig struct {
	Name    string   `yaml:"name"`
	Exclude []string `yaml:"exclude"`
}

// EnvConfig controls how the CLI/MCP boundary supplies environment
// variables to envdiff.Diff.
type EnvConfig struct {
	// Static, when non-empty, is used instead of the live process
	// environment (env.Static rather than env.Process) — useful for
	// reproducible planning runs in CI.
	Static map[string]string `yaml:"static"`
}

// OutputConfig controls how the CLI renders a ParsePlan result.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// ErrConfigNotFound is returned when no config file can be found.
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .replan/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and
// walking up the directory tree. If no config is found, returns
// defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific path, merging it with
// defaults and validating the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .replan directory by walking up from startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .replan directory if it doesn't exist.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)
	if info, err := os.Stat(configDir); err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return configDir, nil
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if !IsValidFormat(cfg.Output.Format) {
		return fmt.Errorf("%w: output.format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Output.Format)
	}
	return nil
}

// SaveDefault writes the default configuration to .replan/config.yaml
// in workDir. Creates the .replan directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# replan configuration\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}
