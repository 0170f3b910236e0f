// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL         string  `mapstructure:"rpc_url"`
	TelegramToken  string  `mapstructure:"telegram_token"`
	AllowedChatIDs []int64 `mapstructure:"allowed_chat_ids"`
	WalletsFile    string  `mapstructure:"wallets_file"`

	// Swap routing. Defaults target Base mainnet.
	RouterV2Address string `mapstructure:"router_v2_address"`
	RouterV3Address string `mapstructure:"router_v3_address"`
	WETHAddress     string `mapstructure:"weth_address"`
	GasLimit        uint64 `mapstructure:"gas_limit"`

	// Listing feed.
	FeedURL      string `mapstructure:"feed_url"`
	ProxyURL     string `mapstructure:"proxy_url"`
	ScanInterval int    `mapstructure:"scan_interval_ms"`
	TokensFile   string `mapstructure:"tokens_file"`

	// Autobuy is fixed for the process lifetime; there is no runtime toggle.
	Autobuy      bool    `mapstructure:"autobuy"`
	BuyAmountETH float64 `mapstructure:"buy_amount_eth"`

	License      string `mapstructure:"license"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
}

const (
	DefaultRouterV2     = "0x4752ba5DBc23f44D87826276BF6Fd6b1C372aD24"
	DefaultRouterV3     = "0x2626664c2603336E57B271c5C0b26F421741e481"
	DefaultWETH         = "0x4200000000000000000000000000000000000006"
	DefaultGasLimit     = 500_000
	DefaultFeedURL      = "https://www.clanker.world/api/tokens"
	DefaultScanInterval = 1000
	DefaultTokensFile   = "data/tokens.json"
	DefaultBuyAmount    = 0.001
	DefaultLogFile      = "bot.log"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"router_v2_address": DefaultRouterV2,
		"router_v3_address": DefaultRouterV3,
		"weth_address":      DefaultWETH,
		"gas_limit":         DefaultGasLimit,
		"feed_url":          DefaultFeedURL,
		"scan_interval_ms":  DefaultScanInterval,
		"tokens_file":       DefaultTokensFile,
		"buy_amount_eth":    DefaultBuyAmount,
		"log_file":          DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, Validate(&cfg)
}

func Validate(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.TelegramToken == "" {
		return errors.New("missing telegram_token in configuration")
	}
	if len(cfg.AllowedChatIDs) == 0 {
		return errors.New("allowed_chat_ids is empty")
	}
	if cfg.WalletsFile == "" {
		return errors.New("missing wallets_file in configuration")
	}
	for name, addr := range map[string]string{
		"router_v2_address": cfg.RouterV2Address,
		"router_v3_address": cfg.RouterV3Address,
		"weth_address":      cfg.WETHAddress,
	} {
		if !addressRe.MatchString(addr) {
			return fmt.Errorf("invalid %s", name)
		}
	}
	if cfg.ProxyURL != "" {
		if err := validateURL(cfg.ProxyURL, "http"); err != nil {
			return fmt.Errorf("invalid proxy_url: %w", err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.ScanInterval <= 0 {
		return errors.New("invalid scan_interval_ms")
	}
	if cfg.GasLimit == 0 {
		return errors.New("invalid gas_limit")
	}
	if cfg.BuyAmountETH <= 0 {
		return errors.New("invalid buy_amount_eth")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("SNIPER_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}
	if rpc := v.GetString("RPC_URL"); rpc != "" {
		cfg.RPCURL = rpc
	}
	if license := v.GetString("LICENSE"); license != "" {
		cfg.License = license
	}
}
