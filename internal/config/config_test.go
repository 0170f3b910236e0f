// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
rpc_url: "https://mainnet.base.org"
telegram_token: "123:abc"
allowed_chat_ids: [111]
wallets_file: "configs/wallets.yaml"
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, DefaultRouterV2, cfg.RouterV2Address)
	assert.Equal(t, DefaultRouterV3, cfg.RouterV3Address)
	assert.Equal(t, DefaultWETH, cfg.WETHAddress)
	assert.Equal(t, uint64(DefaultGasLimit), cfg.GasLimit)
	assert.Equal(t, DefaultFeedURL, cfg.FeedURL)
	assert.Equal(t, DefaultScanInterval, cfg.ScanInterval)
	assert.Equal(t, DefaultTokensFile, cfg.TokensFile)
	assert.False(t, cfg.Autobuy)
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
gas_limit: 750000
autobuy: true
buy_amount_eth: 0.05
scan_interval_ms: 500
`))
	require.NoError(t, err)

	assert.Equal(t, uint64(750_000), cfg.GasLimit)
	assert.True(t, cfg.Autobuy)
	assert.Equal(t, 0.05, cfg.BuyAmountETH)
	assert.Equal(t, 500, cfg.ScanInterval)
}

func TestValidate_RejectsBrokenConfigs(t *testing.T) {
	base := func() *Config {
		return &Config{
			RPCURL:          "https://mainnet.base.org",
			TelegramToken:   "123:abc",
			AllowedChatIDs:  []int64{111},
			WalletsFile:     "configs/wallets.yaml",
			RouterV2Address: DefaultRouterV2,
			RouterV3Address: DefaultRouterV3,
			WETHAddress:     DefaultWETH,
			GasLimit:        DefaultGasLimit,
			ScanInterval:    DefaultScanInterval,
			BuyAmountETH:    DefaultBuyAmount,
		}
	}

	require.NoError(t, Validate(base()))

	cases := map[string]func(*Config){
		"missing rpc url":      func(c *Config) { c.RPCURL = "" },
		"bad rpc scheme":       func(c *Config) { c.RPCURL = "ftp://mainnet.base.org" },
		"missing token":        func(c *Config) { c.TelegramToken = "" },
		"no allowed chats":     func(c *Config) { c.AllowedChatIDs = nil },
		"missing wallets file": func(c *Config) { c.WalletsFile = "" },
		"bad router address":   func(c *Config) { c.RouterV2Address = "0x123" },
		"bad weth address":     func(c *Config) { c.WETHAddress = "not-hex" },
		"bad proxy url":        func(c *Config) { c.ProxyURL = "::" },
		"zero scan interval":   func(c *Config) { c.ScanInterval = 0 },
		"zero gas limit":       func(c *Config) { c.GasLimit = 0 },
		"zero buy amount":      func(c *Config) { c.BuyAmountETH = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("SNIPER_BOT_TELEGRAM_TOKEN", "999:env")

	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "999:env", cfg.TelegramToken)
}
