package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"vexchain/crypto"
	"vexchain/native/policy"
)

// Config is the node configuration loaded from TOML. The Policy table seeds
// the genesis risk parameters; once the chain is running, policy changes go
// through the policy.set instruction instead.
type Config struct {
	DataDir        string `toml:"DataDir"`
	MetricsAddress string `toml:"MetricsAddress"`
	NetworkName    string `toml:"NetworkName"`
	Environment    string `toml:"Environment"`
	// AdminAddress is the bech32 account allowed to execute admin
	// instructions.
	AdminAddress string `toml:"AdminAddress"`

	Policy policy.State `toml:"Policy"`
}

// Load reads the configuration at path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration before the node starts.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if strings.TrimSpace(c.AdminAddress) != "" {
		if _, err := crypto.DecodeAddress(c.AdminAddress); err != nil {
			return fmt.Errorf("config: invalid AdminAddress: %w", err)
		}
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("config: invalid Policy: %w", err)
	}
	return nil
}

// Admin returns the decoded admin address and whether one is configured.
func (c *Config) Admin() (crypto.Address, bool) {
	trimmed := strings.TrimSpace(c.AdminAddress)
	if trimmed == "" {
		return crypto.Address{}, false
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, false
	}
	return addr, true
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "vex-local"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9464"
	}
	zero := policy.State{}
	if cfg.Policy == zero {
		cfg.Policy = *policy.Default()
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:        "./vexchain-data",
		MetricsAddress: ":9464",
		NetworkName:    "vex-local",
		Policy:         *policy.Default(),
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
