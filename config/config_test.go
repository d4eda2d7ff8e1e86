package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"corndex/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "venued.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(120), cfg.Venue.CollateralRatio)
	require.Equal(t, 512, cfg.Venue.MaxLoops)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "[venue]")

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Service.ListenAddress, again.Service.ListenAddress)
}

func TestLoadParsesGenesis(t *testing.T) {
	provider := crypto.ModuleAddress("provider").String()
	contents := `
[service]
ListenAddress = "127.0.0.1:9000"
DataDir = ""

[venue]
CollateralRatio = 150
LiquidatorRewardPct = 5
MaxLoops = 100
PausedModules = ["leverage"]

[genesis]
PoolProvider = "` + provider + `"
PoolBase = "10000000000000000000"
PoolQuoted = "1000000000000000000000"
LendingLiquidity = "5000"

[[genesis.balance]]
Address = "` + provider + `"
Asset = "native"
Amount = "10000000000000000000"
`
	path := filepath.Join(t.TempDir(), "venued.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Service.ListenAddress)
	require.Equal(t, uint64(150), cfg.Venue.CollateralRatio)
	require.Equal(t, []string{"leverage"}, cfg.Venue.PausedModules)

	spec, err := cfg.Genesis.Spec()
	require.NoError(t, err)
	require.Equal(t, "10000000000000000000", spec.PoolBase.String())
	require.Equal(t, "5000", spec.LendingLiquidity.String())
	require.Len(t, spec.Alloc, 1)
	require.Equal(t, "NATIVE", spec.Alloc[0].Asset)
	require.Equal(t, provider, spec.PoolProvider.String())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"ratio":   "[venue]\nCollateralRatio = 100\nLiquidatorRewardPct = 10\nMaxLoops = 1\n",
		"reward":  "[venue]\nCollateralRatio = 120\nLiquidatorRewardPct = 100\nMaxLoops = 1\n",
		"loops":   "[venue]\nCollateralRatio = 120\nLiquidatorRewardPct = 10\nMaxLoops = 0\n",
		"unknown": "[venue]\nCollateralRatio = 120\nBogus = 1\n",
		"asset":   "[[genesis.balance]]\nAddress = \"" + crypto.ModuleAddress("x").String() + "\"\nAsset = \"usd\"\nAmount = \"1\"\n",
		"pool":    "[genesis]\nPoolBase = \"10\"\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "venued.toml")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount(" 42 ")
	require.NoError(t, err)
	require.Equal(t, "42", v.String())

	_, err = ParseAmount("-1")
	require.Error(t, err)
	_, err = ParseAmount("1" + strings.Repeat("0", 80))
	require.Error(t, err)
}
