// Package config defines payrollctl configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Default values of the optional settings.
const (
	DefaultDialTimeout    = 15 * time.Second
	DefaultRequestTimeout = 15 * time.Second
	DefaultArtifactsDir   = "contracts"
	DefaultDumpDir        = "testdata"
	DefaultLogLevel       = "info"
)

// Config is a complete payrollctl configuration.
type Config struct {
	RPC      RPCConfig      `yaml:"rpc"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Contract ContractConfig `yaml:"contract"`
	Logger   LoggerConfig   `yaml:"logger"`
	Dump     DumpConfig     `yaml:"dump"`
}

// RPCConfig configures connection to the Neo RPC server.
type RPCConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// WalletConfig points to the account signing transactions.
type WalletConfig struct {
	Path string `yaml:"path"`
	// Account address, the default wallet account is used if empty.
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// ContractConfig configures Payroll Attestation contract.
type ContractConfig struct {
	// Address of the deployed contract (Neo address or LE hex).
	Address string `yaml:"address"`
	// Directory with compiled contract artifacts.
	Artifacts string `yaml:"artifacts"`
	// Account allowed to record on deployment, empty for unrestricted.
	AllowedCaller string `yaml:"allowed_caller"`
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level string `yaml:"level"`
}

// DumpConfig configures storage snapshots.
type DumpConfig struct {
	Dir   string `yaml:"dir"`
	Label string `yaml:"label"`
}

// Load reads configuration from the YAML file, fills missing values with
// defaults and validates the result.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config file: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", absPath, err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	cfg.SetDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", absPath, err)
	}

	return &cfg, nil
}

// SetDefaults fills unset optional values.
func (c *Config) SetDefaults() {
	c.RPC.SetDefaults()
	c.Contract.SetDefaults()
	c.Logger.SetDefaults()
	c.Dump.SetDefaults()
}

// Validate checks values set. Required values are checked by the commands
// needing them, since not every command uses every section.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return fmt.Errorf("rpc: %w", err)
	}
	if err := c.Contract.Validate(); err != nil {
		return fmt.Errorf("contract: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Wallet.Validate(); err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	return nil
}

// SetDefaults fills unset timeouts.
func (c *RPCConfig) SetDefaults() {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
}

// Validate checks endpoint scheme and timeouts.
func (c *RPCConfig) Validate() error {
	if c.Endpoint != "" && !hasScheme(c.Endpoint, "http://", "https://", "ws://", "wss://") {
		return fmt.Errorf("unsupported endpoint '%s'", c.Endpoint)
	}
	if c.DialTimeout < 0 || c.RequestTimeout < 0 {
		return errors.New("negative timeout")
	}
	return nil
}

// Validate checks account address format.
func (c *WalletConfig) Validate() error {
	if c.Address != "" {
		if _, err := ParseAccount(c.Address); err != nil {
			return fmt.Errorf("address: %w", err)
		}
	}
	return nil
}

// SetDefaults sets default artifacts directory.
func (c *ContractConfig) SetDefaults() {
	if c.Artifacts == "" {
		c.Artifacts = DefaultArtifactsDir
	}
}

// Validate checks account formats.
func (c *ContractConfig) Validate() error {
	if c.Address != "" {
		if _, err := ParseAccount(c.Address); err != nil {
			return fmt.Errorf("address: %w", err)
		}
	}
	if c.AllowedCaller != "" {
		if _, err := ParseAccount(c.AllowedCaller); err != nil {
			return fmt.Errorf("allowed caller: %w", err)
		}
	}
	return nil
}

// SetDefaults sets default log level.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
}

// Validate checks log level.
func (c *LoggerConfig) Validate() error {
	_, err := zapcore.ParseLevel(c.Level)
	return err
}

// SetDefaults sets default dump directory.
func (c *DumpConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = DefaultDumpDir
	}
}

// ParseAccount parses account given either as Neo address or as LE hex
// script hash.
func ParseAccount(s string) (util.Uint160, error) {
	if u, err := address.StringToUint160(s); err == nil {
		return u, nil
	}
	u, err := util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("'%s' is neither Neo address nor script hash", s)
	}
	return u, nil
}

func hasScheme(s string, schemes ...string) bool {
	for i := range schemes {
		if strings.HasPrefix(s, schemes[i]) {
			return true
		}
	}
	return false
}
