package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/existflow/dashcraft/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultServerURL is used when neither the config file nor the
// environment names a server
const DefaultServerURL = "http://localhost:8080"

// Config holds user preferences
type Config struct {
	Server             string            `yaml:"server" json:"server"`                             // API server base URL
	AutoSaveDelay      time.Duration     `yaml:"autosave_delay" json:"autosave_delay"`             // Quiet period before a canvas save
	DefaultElementType model.ElementType `yaml:"default_element_type" json:"default_element_type"` // Element added when no type is given
	ConfirmDelete      bool              `yaml:"confirm_delete" json:"confirm_delete"`             // Require confirmation for delete

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging

	path string
}

// Dir returns ~/.dashcraft, or "" when the home directory is unknown
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".dashcraft")
}

// DefaultPath returns ~/.dashcraft/config.yaml
func DefaultPath() (string, error) {
	dir := Dir()
	if dir == "" {
		return "", fmt.Errorf("failed to get home directory")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	logPath := ""
	if dir := Dir(); dir != "" {
		logPath = filepath.Join(dir, "logs", "dashcraft.log")
	}

	delay := 2 * time.Second
	if v := os.Getenv("DASHCRAFT_AUTOSAVE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			delay = d
		}
	}

	return &Config{
		Server:             getEnv("DASHCRAFT_SERVER", DefaultServerURL),
		AutoSaveDelay:      delay,
		DefaultElementType: model.ElementKPI,
		ConfirmDelete:      true,
		LogLevel:           getEnv("DASHCRAFT_LOG_LEVEL", "INFO"),
		LogFile:            getEnv("DASHCRAFT_LOG_FILE", logPath),
		LogConsole:         getEnv("DASHCRAFT_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load loads config from ~/.dashcraft/config.yaml
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads config from path. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.AutoSaveDelay <= 0 {
		cfg.AutoSaveDelay = DefaultConfig().AutoSaveDelay
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServerURL
	}
	if !model.IsKnownElementType(cfg.DefaultElementType) {
		cfg.DefaultElementType = model.ElementKPI
	}

	return cfg, nil
}

// Save writes the config back to the file it was loaded from, or to
// ~/.dashcraft/config.yaml
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
