package config

import (
	"fmt"
	"net"
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := validateDevice(&c.Device); err != nil {
		return fmt.Errorf("device: %w", err)
	}

	if c.Client.Timeout < 0 {
		return fmt.Errorf("client: timeout cannot be negative")
	}

	if c.Sync.MessageTTL < 0 {
		return fmt.Errorf("sync: messageTTL cannot be negative")
	}

	if err := validateEmulator(&c.Emulator); err != nil {
		return fmt.Errorf("emulator: %w", err)
	}

	return nil
}

func validateDevice(d *DeviceConfig) error {
	if d.BaseURL == "" {
		return fmt.Errorf("missing baseURL")
	}
	if _, err := NormalizeBaseURL(d.BaseURL); err != nil {
		return err
	}
	// WPA2 passphrases are 8-63 characters; an open network has none
	if d.Passphrase != "" && (len(d.Passphrase) < 8 || len(d.Passphrase) > 63) {
		return fmt.Errorf("passphrase must be 8-63 characters, got %d", len(d.Passphrase))
	}
	return nil
}

func validateEmulator(e *EmulatorConfig) error {
	if e.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(e.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", e.Addr, err)
	}
	return nil
}
