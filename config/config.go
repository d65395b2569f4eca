package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"venom-connect-tui/helpers"
	"venom-connect-tui/theme"
)

// Config represents the application configuration
type Config struct {
	Network       Network         `json:"network" yaml:"network"`
	Providers     []ProviderEntry `json:"providers" yaml:"providers"`
	Preferred     string          `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	WatchAddress  string          `json:"watch_address,omitempty" yaml:"watch_address,omitempty"`
	Theme         string          `json:"theme" yaml:"theme"`
	PollInterval  string          `json:"poll_interval" yaml:"poll_interval"`
	ExtensionWait string          `json:"extension_wait" yaml:"extension_wait"`
	Logger        bool            `json:"logger" yaml:"logger"`
}

// Network describes the chain the session expects
type Network struct {
	ID       uint32 `json:"id" yaml:"id"`
	Group    string `json:"group" yaml:"group"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// ProviderEntry represents a wallet integration in the config
type ProviderEntry struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Extension string   `json:"extension,omitempty" yaml:"extension,omitempty"`
	Channels  []string `json:"channels,omitempty" yaml:"channels,omitempty"`
}

const (
	EnvRPCURL       = "VENOM_RPC_URL"
	EnvWatchAddress = "VENOM_WATCH_ADDRESS"
)

// DefaultPath returns ~/.venom-connect-tui.json
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".venom-connect-tui.json"
	}
	return filepath.Join(home, ".venom-connect-tui.json")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func encode(path string, cfg Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Load reads the config from the specified path
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return Config{}
	}

	return cfg
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Network: Network{
			ID:       1000,
			Group:    "venom_testnet",
			Endpoint: "https://jrpc.venom.foundation/rpc",
		},
		Providers: []ProviderEntry{
			{ID: "venomwallet", Name: "Venom Wallet", Channels: []string{"extension", "mobile", "ios", "android"}},
			{ID: "oneartwallet", Name: "OneArt Wallet", Channels: []string{"extension", "mobile", "ios", "android"}},
			{ID: "oxychatwallet", Name: "OxyChat Wallet", Channels: []string{"extension", "mobile", "ios", "android"}},
		},
		Theme:         string(theme.Default),
		PollInterval:  "7s",
		ExtensionWait: "5s",
		Logger:        false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}

	cfg := DefaultConfig()
	if err := decode(path, data, &cfg); err != nil {
		// Invalid config, return default
		return DefaultConfig()
	}

	return cfg
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvRPCURL); v != "" {
		c.Network.Endpoint = v
	}
	if v := os.Getenv(EnvWatchAddress); v != "" {
		c.WatchAddress = v
	}
}

// Validate reports the first malformed field.
func (c Config) Validate() error {
	if c.Network.Endpoint == "" {
		return fmt.Errorf("network.endpoint must be set")
	}
	if _, err := theme.Parse(c.Theme); err != nil {
		return err
	}
	if _, err := parseDuration("poll_interval", c.PollInterval); err != nil {
		return err
	}
	if _, err := parseDuration("extension_wait", c.ExtensionWait); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider %q has no id", p.Name)
		}
		if seen[p.ID] {
			return fmt.Errorf("provider %q listed twice", p.ID)
		}
		seen[p.ID] = true
	}
	if c.Preferred != "" && !seen[c.Preferred] {
		return fmt.Errorf("preferred provider %q is not configured", c.Preferred)
	}
	if c.WatchAddress != "" && !helpers.IsValidAddress(c.WatchAddress) {
		return fmt.Errorf("watch_address %q is not a workchain:hex address", c.WatchAddress)
	}
	return nil
}

// PollEvery returns the polling interval, defaulting to seven seconds.
func (c Config) PollEvery() time.Duration {
	d, err := parseDuration("poll_interval", c.PollInterval)
	if err != nil || d == 0 {
		return 7 * time.Second
	}
	return d
}

// ExtensionWaitDuration returns how long to wait for an extension bridge.
func (c Config) ExtensionWaitDuration() time.Duration {
	d, err := parseDuration("extension_wait", c.ExtensionWait)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// ThemeOrDefault returns the configured theme, or the default when unset or unknown.
func (c Config) ThemeOrDefault() theme.Theme {
	t, err := theme.Parse(c.Theme)
	if err != nil {
		return theme.Default
	}
	return t
}

// Extensions maps provider ids to configured bridge URLs.
func (c Config) Extensions() map[string]string {
	out := make(map[string]string, len(c.Providers))
	for _, p := range c.Providers {
		if p.Extension != "" {
			out[p.ID] = p.Extension
		}
	}
	return out
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
