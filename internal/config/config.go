// Package config handles the .gt2garage workspace directory and its
// config.yaml: where the pez2k converters live, where CarNames.json is, and
// which source/output roots the last session used.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// GarageDir is the name of the directory created in each project.
const GarageDir = ".gt2garage"

const defaultConfigYAML = `# gt2garage configuration
version: 1

# Directory holding the pez2k converter executables
# (GT2ModelTool.exe, GT2TextureEditor.exe).
tools_dir: external/pez2k

# Car ID to display name mapping.
car_names: data/CarNames.json

# Last used roots, remembered across sessions. Leave empty to pass on the
# command line.
source_root: ""
output_root: ""

# Per-operation timeout overrides, in seconds. Example:
# timeouts:
#   DumpTexture: 600
`

// Settings models .gt2garage/config.yaml.
type Settings struct {
	Version    int            `yaml:"version"`
	ToolsDir   string         `yaml:"tools_dir"`
	CarNames   string         `yaml:"car_names"`
	SourceRoot string         `yaml:"source_root"`
	OutputRoot string         `yaml:"output_root"`
	Timeouts   map[string]int `yaml:"timeouts,omitempty"`
}

// Config holds the runtime configuration for gt2garage.
type Config struct {
	// ProjectDir is the directory the tool was started from.
	ProjectDir string

	// GarageProjectDir is ProjectDir/.gt2garage.
	GarageProjectDir string

	Settings Settings
}

// InitGarageDir creates the .gt2garage directory structure and a default
// config.yaml when none exists yet.
func InitGarageDir(projectDir string) error {
	garageDir := filepath.Join(projectDir, GarageDir)
	for _, dir := range []string{
		filepath.Join(garageDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureConfigFile(filepath.Join(garageDir, "config.yaml"))
}

// NewConfig loads the project configuration, applying defaults when the file
// is absent.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		GarageProjectDir: filepath.Join(projectDir, GarageDir),
		Settings:         defaultSettings(),
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the on-disk location of config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.GarageProjectDir, "config.yaml")
}

// LogsDir returns the directory holding the logbook and debug log.
func (c *Config) LogsDir() string {
	return filepath.Join(c.GarageProjectDir, "logs")
}

// LogbookPath returns the progress logbook location.
func (c *Config) LogbookPath() string {
	return filepath.Join(c.LogsDir(), "garage.log")
}

// ToolsDir returns the resolved converter directory.
func (c *Config) ToolsDir() string { return c.Settings.ToolsDir }

// CarNamesPath returns the resolved CarNames.json location.
func (c *Config) CarNamesPath() string { return c.Settings.CarNames }

// SetRoots persists the source and output roots picked in the UI.
func (c *Config) SetRoots(sourceRoot, outputRoot string) error {
	c.Settings.SourceRoot = strings.TrimSpace(sourceRoot)
	c.Settings.OutputRoot = strings.TrimSpace(outputRoot)
	return c.save()
}

func (c *Config) load() error {
	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed Settings
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Settings = parsed
	return nil
}

func (c *Config) save() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Settings.applyDefaults()
	if err := c.Settings.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.GarageProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure garage dir: %w", err)
	}
	data, err := yaml.Marshal(c.Settings)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write config: %w", err)
	}
	return nil
}

func defaultSettings() Settings {
	return Settings{
		Version:  1,
		ToolsDir: filepath.Join("external", "pez2k"),
		CarNames: filepath.Join("data", "CarNames.json"),
	}
}

func (s *Settings) applyDefaults() {
	if s.Version == 0 {
		s.Version = 1
	}
	if strings.TrimSpace(s.ToolsDir) == "" {
		s.ToolsDir = filepath.Join("external", "pez2k")
	}
	if strings.TrimSpace(s.CarNames) == "" {
		s.CarNames = filepath.Join("data", "CarNames.json")
	}
}

func (s *Settings) normalize(base string) {
	s.ToolsDir = resolvePath(base, s.ToolsDir)
	s.CarNames = resolvePath(base, s.CarNames)
	s.SourceRoot = resolvePath(base, s.SourceRoot)
	s.OutputRoot = resolvePath(base, s.OutputRoot)
}

func (s Settings) validate() error {
	if s.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if strings.TrimSpace(s.ToolsDir) == "" {
		return fmt.Errorf("tools_dir is required")
	}
	for op, seconds := range s.Timeouts {
		if seconds <= 0 {
			return fmt.Errorf("timeouts[%s] must be positive", op)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
