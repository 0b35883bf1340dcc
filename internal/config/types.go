package config

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure
type Config struct {
	Device   DeviceConfig   `yaml:"device" json:"device"`
	Client   ClientConfig   `yaml:"client" json:"client"`
	Sync     SyncConfig     `yaml:"sync" json:"sync"`
	Emulator EmulatorConfig `yaml:"emulator" json:"emulator"`
}

// DeviceConfig describes how to reach the device's access point
type DeviceConfig struct {
	BaseURL    string `yaml:"baseURL" json:"baseURL"`
	SSID       string `yaml:"ssid" json:"ssid"`
	Passphrase string `yaml:"passphrase" json:"passphrase"` // Shared deployment constant, not a secret
}

// ClientConfig tunes the HTTP transport
type ClientConfig struct {
	Timeout     Duration `yaml:"timeout" json:"timeout"`
	StrictCount bool     `yaml:"strictCount" json:"strictCount"` // Reject lists whose count disagrees with their length
}

// SyncConfig tunes the synchronizer
type SyncConfig struct {
	MessageTTL Duration `yaml:"messageTTL" json:"messageTTL"` // How long status messages stay visible
	StaleGuard bool     `yaml:"staleGuard" json:"staleGuard"` // Discard overtaken update/delete completions
}

// EmulatorConfig configures the local device emulator
type EmulatorConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Duration is a time.Duration that reads "3s", "3000ms" or a bare number of seconds
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalJSON accepts either a string or a number of seconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
		return nil
	default:
		s = string(data)
	}

	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
