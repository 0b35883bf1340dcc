package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/espinput-cli/internal/client"
	"github.com/yourusername/espinput-cli/internal/emulator"
	"github.com/yourusername/espinput-cli/internal/reconcile"
)

const (
	DefaultConfigDir  = ".config/espinput"
	DefaultConfigFile = "config.yaml"

	// Access point the device firmware brings up
	DefaultSSID       = "Eknath_SoftAPExperiment"
	DefaultPassphrase = "12345678"
)

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			BaseURL:    client.DefaultBaseURL,
			SSID:       DefaultSSID,
			Passphrase: DefaultPassphrase,
		},
		Client: ClientConfig{
			Timeout: Duration(client.DefaultTimeout),
		},
		Sync: SyncConfig{
			MessageTTL: Duration(reconcile.DefaultMessageTTL),
		},
		Emulator: EmulatorConfig{
			Addr: emulator.DefaultAddr,
		},
	}
}

// LoadConfig loads configuration from the specified path or default location
// If path is empty, uses ~/.config/espinput/config.yaml (or config.json) and
// falls back to defaults when neither exists.
// Supports both .yaml and .json extensions
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		// Try YAML first, then JSON
		yamlPath := filepath.Join(home, DefaultConfigDir, "config.yaml")
		jsonPath := filepath.Join(home, DefaultConfigDir, "config.json")

		if _, err := os.Stat(yamlPath); err == nil {
			path = yamlPath
		} else if _, err := os.Stat(jsonPath); err == nil {
			path = jsonPath
		} else {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return LoadConfigFromBytes(data, ext)
}

// LoadConfigFromBytes loads configuration from raw bytes
// format should be "yaml" or "json". Missing fields take their defaults.
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg := Default()

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Validate accepted it, so this cannot fail
	cfg.Device.BaseURL, _ = NormalizeBaseURL(cfg.Device.BaseURL)

	return cfg, nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile)
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes the default configuration to path.
// An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if path == "" {
		path = GetConfigPath()
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("cannot stat config file: %w", err)
		}
	}

	data, err := Default().Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
