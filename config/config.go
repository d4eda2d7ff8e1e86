package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the venued configuration file.
type Config struct {
	Service   Service   `toml:"service"`
	Venue     Venue     `toml:"venue"`
	Genesis   Genesis   `toml:"genesis"`
	Log       Log       `toml:"log"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Service configures the HTTP listener and persistence.
type Service struct {
	ListenAddress string `toml:"ListenAddress"`
	// DataDir holds the LevelDB state. Empty keeps state in memory.
	DataDir         string `toml:"DataDir"`
	Environment     string `toml:"Environment"`
	ReadTimeout     int    `toml:"ReadTimeout"`
	WriteTimeout    int    `toml:"WriteTimeout"`
	ShutdownTimeout int    `toml:"ShutdownTimeout"`
}

// Venue carries the risk and loop settings.
type Venue struct {
	CollateralRatio     uint64   `toml:"CollateralRatio"`
	LiquidatorRewardPct uint64   `toml:"LiquidatorRewardPct"`
	MaxLoops            int      `toml:"MaxLoops"`
	PausedModules       []string `toml:"PausedModules"`
}

// Genesis funds accounts and seeds the pool on first start. Amounts are
// decimal strings in base units.
type Genesis struct {
	PoolProvider     string    `toml:"PoolProvider"`
	PoolBase         string    `toml:"PoolBase"`
	PoolQuoted       string    `toml:"PoolQuoted"`
	LendingLiquidity string    `toml:"LendingLiquidity"`
	Balances         []Balance `toml:"balance"`
}

type Balance struct {
	Address string `toml:"Address"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}

type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		Service: Service{
			ListenAddress:   ":8080",
			DataDir:         "./corndex-data",
			Environment:     "local",
			ReadTimeout:     10,
			WriteTimeout:    10,
			ShutdownTimeout: 15,
		},
		Venue: Venue{
			CollateralRatio:     120,
			LiquidatorRewardPct: 10,
			MaxLoops:            512,
			PausedModules:       []string{},
		},
		Genesis: Genesis{Balances: []Balance{}},
		Log:     Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

// Load reads the TOML file at path. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Service.ListenAddress) == "" {
		c.Service.ListenAddress = ":8080"
	}
	if c.Service.ShutdownTimeout <= 0 {
		c.Service.ShutdownTimeout = 15
	}
	if c.Venue.PausedModules == nil {
		c.Venue.PausedModules = []string{}
	}
	if c.Genesis.Balances == nil {
		c.Genesis.Balances = []Balance{}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
