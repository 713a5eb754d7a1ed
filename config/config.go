package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"emberchain/crypto"
)

// RateLimit configures the per-client request throttle on the gateway.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Config captures the emberd daemon configuration.
type Config struct {
	ListenAddress       string    `toml:"ListenAddress"`
	DataDir             string    `toml:"DataDir"`
	Environment         string    `toml:"Environment"`
	NativeSymbol        string    `toml:"NativeSymbol"`
	BaseFeed            string    `toml:"BaseFeed"`
	OwnerAddress        string    `toml:"OwnerAddress"`
	TreasuryAddress     string    `toml:"TreasuryAddress"`
	CustodyAddress      string    `toml:"CustodyAddress"`
	VestingSeconds      uint64    `toml:"VestingSeconds"`
	EpochSeconds        uint64    `toml:"EpochSeconds"`
	SwapDeadlineSeconds uint64    `toml:"SwapDeadlineSeconds"`
	MaxQuoteAgeSeconds  uint64    `toml:"MaxQuoteAgeSeconds"`
	MaxBondPerEpochWei  string    `toml:"MaxBondPerEpochWei"`
	MinBondValueWei     string    `toml:"MinBondValueWei"`
	PausedModules       []string  `toml:"PausedModules"`
	RateLimit           RateLimit `toml:"RateLimit"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if dir := filepath.Dir(path); dir != "" && dir != "." {
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

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8547"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./emberd-data"
	}
	if strings.TrimSpace(c.NativeSymbol) == "" {
		c.NativeSymbol = "EMBER"
	}
	if c.VestingSeconds == 0 {
		c.VestingSeconds = 7 * 24 * 60 * 60
	}
	if c.EpochSeconds == 0 {
		c.EpochSeconds = 24 * 60 * 60
	}
	if c.SwapDeadlineSeconds == 0 {
		c.SwapDeadlineSeconds = 60
	}
	if c.MaxQuoteAgeSeconds == 0 {
		c.MaxQuoteAgeSeconds = 5 * 60
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 600
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}

// Validate rejects configurations that cannot produce a working daemon.
func (c *Config) Validate() error {
	if _, err := c.weiField(c.MaxBondPerEpochWei, "MaxBondPerEpochWei"); err != nil {
		return err
	}
	if _, err := c.weiField(c.MinBondValueWei, "MinBondValueWei"); err != nil {
		return err
	}
	for _, field := range []struct {
		name, value string
	}{
		{"OwnerAddress", c.OwnerAddress},
		{"TreasuryAddress", c.TreasuryAddress},
		{"CustodyAddress", c.CustodyAddress},
	} {
		if strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(field.value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", field.name, err)
		}
	}
	return nil
}

func (c *Config) weiField(raw, name string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("config: %s must be a non-negative decimal integer", name)
	}
	return value, nil
}

// MaxBondPerEpoch parses the per-epoch cap, returning nil when unset.
func (c *Config) MaxBondPerEpoch() (*big.Int, error) {
	return c.weiField(c.MaxBondPerEpochWei, "MaxBondPerEpochWei")
}

// MinBondValue parses the dust threshold, returning nil when unset.
func (c *Config) MinBondValue() (*big.Int, error) {
	return c.weiField(c.MinBondValueWei, "MinBondValueWei")
}

// Address decodes a bech32 address field into its raw 20-byte form. Empty
// fields yield the zero address.
func Address(field string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return out, nil
	}
	decoded, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}
