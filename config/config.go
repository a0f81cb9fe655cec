package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"lendledger/native/lending"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	Service     string          `toml:"Service"`
	Environment string          `toml:"Environment"`
	RPC         RPCConfig       `toml:"RPC"`
	Storage     StorageConfig   `toml:"Storage"`
	Lending     LendingConfig   `toml:"Lending"`
	Telemetry   TelemetryConfig `toml:"Telemetry"`
	Audit       AuditConfig     `toml:"Audit"`
	Log         LogConfig       `toml:"Log"`
}

// RPCConfig configures the JSON-RPC surface.
type RPCConfig struct {
	ListenAddress      string `toml:"ListenAddress"`
	JWTSecret          string `toml:"JWTSecret"`
	RateLimitPerMinute int    `toml:"RateLimitPerMinute"`
}

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	Backend string `toml:"Backend"` // memory, leveldb, bolt
	Path    string `toml:"Path"`
}

// LendingConfig overrides the lending engine's risk parameters.
type LendingConfig struct {
	ProtocolFeeBps      uint64 `toml:"ProtocolFeeBps"`
	MinCollateralRatio  uint64 `toml:"MinCollateralRatio"`
	MaxInterestRateBps  uint64 `toml:"MaxInterestRateBps"`
	ProportionalRelease bool   `toml:"ProportionalRelease"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled  bool   `toml:"Enabled"`
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
}

// AuditConfig configures the SQLite event indexer.
type AuditConfig struct {
	Enabled bool   `toml:"Enabled"`
	Path    string `toml:"Path"`
}

// LogConfig configures file logging; an empty File logs to stdout only.
type LogConfig struct {
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Default returns the configuration the daemon starts with when no file
// overrides it.
func Default() Config {
	params := lending.DefaultParams()
	return Config{
		Service:     "lendd",
		Environment: "dev",
		RPC: RPCConfig{
			ListenAddress:      ":8645",
			RateLimitPerMinute: 600,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Lending: LendingConfig{
			ProtocolFeeBps:     params.Risk.ProtocolFeeBps,
			MinCollateralRatio: params.Risk.MinCollateralRatio,
			MaxInterestRateBps: params.Risk.MaxInterestRateBps,
		},
		Log: LogConfig{
			MaxSizeMB:  128,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the configuration at path on top of the defaults. A missing
// file yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "memory":
	case "leveldb", "bolt":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage backend %q requires a path", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.RPC.ListenAddress) == "" {
		return fmt.Errorf("rpc listen address must not be empty")
	}
	if c.RPC.RateLimitPerMinute < 0 {
		return fmt.Errorf("rpc rate limit must not be negative")
	}
	if c.Lending.MinCollateralRatio < 100 {
		return fmt.Errorf("minimum collateral ratio must be at least 100%%")
	}
	if c.Lending.MaxInterestRateBps == 0 {
		return fmt.Errorf("maximum interest rate must be positive")
	}
	if c.Audit.Enabled && strings.TrimSpace(c.Audit.Path) == "" {
		return fmt.Errorf("audit indexer requires a path")
	}
	return nil
}

// Params maps the configuration onto lending engine parameters, keeping the
// per-loan defaults.
func (c Config) Params() lending.Params {
	params := lending.DefaultParams()
	params.Risk.ProtocolFeeBps = c.Lending.ProtocolFeeBps
	params.Risk.MinCollateralRatio = c.Lending.MinCollateralRatio
	params.Risk.MaxInterestRateBps = c.Lending.MaxInterestRateBps
	params.Risk.ProportionalRelease = c.Lending.ProportionalRelease
	return params
}
