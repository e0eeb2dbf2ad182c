package config

// DefaultConfig returns configuration with sensible defaults, used when
// no config file exists or the file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Name: "default",
			Exclude: []string{
				"target/**",
				"dbt_packages/**",
				"logs/**",
			},
		},
		Env: EnvConfig{},
		Output: OutputConfig{
			Format: "yaml",
		},
	}
}

// Merge merges loaded config with defaults. Values from loaded config
// take precedence over defaults. Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Project: mergeProjectConfig(loaded.Project, defaults.Project),
		Env:     mergeEnvConfig(loaded.Env, defaults.Env),
		Output:  mergeOutputConfig(loaded.Output, defaults.Output),
	}
}

func mergeProjectConfig(loaded, defaults ProjectConfig) ProjectConfig {
	result := ProjectConfig{}

	if loaded.Name != "" {
		result.Name = loaded.Name
	} else {
		result.Name = defaults.Name
	}

	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	return result
}

func mergeEnvConfig(loaded, defaults EnvConfig) EnvConfig {
	if len(loaded.Static) > 0 {
		return loaded
	}
	return defaults
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := OutputConfig{}

	if loaded.Format != "" {
		result.Format = loaded.Format
	} else {
		result.Format = defaults.Format
	}

	return result
}

// ValidFormats lists the valid values for output.format.
var ValidFormats = []string{"yaml", "json"}

// IsValidFormat checks if the given format value is valid.
func IsValidFormat(format string) bool {
	for _, valid := range ValidFormats {
		if format == valid {
			return true
		}
	}
	return false
}
