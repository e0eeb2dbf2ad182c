package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Project.Name != "default" {
		t.Errorf("expected default project name, got %q", cfg.Project.Name)
	}

	if len(cfg.Project.Exclude) != 3 {
		t.Errorf("expected 3 exclude patterns, got %d", len(cfg.Project.Exclude))
	}

	if cfg.Output.Format != "yaml" {
		t.Errorf("expected default format yaml, got %s", cfg.Output.Format)
	}
}

func TestIsValidFormat(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"yaml", true},
		{"json", true},
		{"cgf", false},
		{"", false},
		{"YAML", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			result := IsValidFormat(tt.format)
			if result != tt.valid {
				t.Errorf("IsValidFormat(%q) = %v, want %v", tt.format, result, tt.valid)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid output format",
			modify: func(c *Config) {
				c.Output.Format = "invalid"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	defaults := DefaultConfig()

	t.Run("empty loaded uses all defaults", func(t *testing.T) {
		loaded := &Config{}
		merged := Merge(loaded, defaults)

		if merged.Output.Format != defaults.Output.Format {
			t.Errorf("expected format %s, got %s", defaults.Output.Format, merged.Output.Format)
		}
		if merged.Project.Name != defaults.Project.Name {
			t.Errorf("expected project name %s, got %s", defaults.Project.Name, merged.Project.Name)
		}
	})

	t.Run("loaded values take precedence", func(t *testing.T) {
		loaded := &Config{
			Project: ProjectConfig{Name: "jaffle_shop"},
			Output:  OutputConfig{Format: "json"},
		}
		merged := Merge(loaded, defaults)

		if merged.Project.Name != "jaffle_shop" {
			t.Errorf("expected project name jaffle_shop, got %s", merged.Project.Name)
		}
		if merged.Output.Format != "json" {
			t.Errorf("expected format json, got %s", merged.Output.Format)
		}

		// Unset values should use defaults
		if len(merged.Project.Exclude) != len(defaults.Project.Exclude) {
			t.Errorf("expected default exclude patterns, got %v", merged.Project.Exclude)
		}
	})
}

func TestFindConfigDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "replan-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	projectDir := filepath.Join(tmpDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("no config dir returns error", func(t *testing.T) {
		_, err := FindConfigDir(subDir)
		if err == nil {
			t.Error("expected error when no .replan directory exists")
		}
	})

	configDir := filepath.Join(projectDir, ConfigDirName)
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("finds config dir in current directory", func(t *testing.T) {
		found, err := FindConfigDir(projectDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})

	t.Run("finds config dir in parent directory", func(t *testing.T) {
		found, err := FindConfigDir(subDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "replan-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	t.Run("creates config directory", func(t *testing.T) {
		dir, err := EnsureConfigDir(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		expectedDir := filepath.Join(tmpDir, ConfigDirName)
		if dir != expectedDir {
			t.Errorf("expected %s, got %s", expectedDir, dir)
		}

		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("config directory not created: %v", err)
		}
		if !info.IsDir() {
			t.Error("expected directory, got file")
		}
	})

	t.Run("returns existing directory", func(t *testing.T) {
		dir, err := EnsureConfigDir(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		expectedDir := filepath.Join(tmpDir, ConfigDirName)
		if dir != expectedDir {
			t.Errorf("expected %s, got %s", expectedDir, dir)
		}
	})
}

func TestLoadFromPath(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "replan-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	t.Run("loads valid config file", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		content := `
project:
  name: jaffle_shop
  exclude:
    - target/**
output:
  format: json
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		if cfg.Project.Name != "jaffle_shop" {
			t.Errorf("expected project name jaffle_shop, got %s", cfg.Project.Name)
		}
		if cfg.Output.Format != "json" {
			t.Errorf("expected format json, got %s", cfg.Output.Format)
		}
	})

	t.Run("returns defaults for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromPath(filepath.Join(tmpDir, "nonexistent.yaml"))
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		defaults := DefaultConfig()
		if cfg.Output.Format != defaults.Output.Format {
			t.Errorf("expected default format, got %s", cfg.Output.Format)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("invalid: yaml: content"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadFromPath(configPath)
		if err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("returns error for invalid config values", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "bad-values.yaml")
		content := `
output:
  format: cgf
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadFromPath(configPath)
		if err == nil {
			t.Error("expected error for invalid format")
		}
	})
}

func TestLoad(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "replan-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	t.Run("returns defaults when no config dir exists", func(t *testing.T) {
		cfg, err := Load(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		defaults := DefaultConfig()
		if cfg.Output.Format != defaults.Output.Format {
			t.Errorf("expected default config")
		}
	})

	t.Run("loads config from .replan directory", func(t *testing.T) {
		configDir := filepath.Join(tmpDir, ConfigDirName)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			t.Fatal(err)
		}

		content := `
output:
  format: json
`
		configPath := filepath.Join(configDir, ConfigFileName)
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		if cfg.Output.Format != "json" {
			t.Errorf("expected format json, got %s", cfg.Output.Format)
		}
	})
}

func TestSaveDefault(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "replan-config-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	t.Run("creates default config file", func(t *testing.T) {
		configPath, err := SaveDefault(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		expectedPath := filepath.Join(tmpDir, ConfigDirName, ConfigFileName)
		if configPath != expectedPath {
			t.Errorf("expected path %s, got %s", expectedPath, configPath)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Errorf("failed to load saved config: %v", err)
		}

		defaults := DefaultConfig()
		if cfg.Output.Format != defaults.Output.Format {
			t.Errorf("saved config doesn't match defaults")
		}
	})

	t.Run("fails if config already exists", func(t *testing.T) {
		_, err := SaveDefault(tmpDir)
		if err == nil {
			t.Error("expected error when config already exists")
		}
	})
}
