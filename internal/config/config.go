// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL          string   `mapstructure:"rpc_url"`
	WebSocketURL    string   `mapstructure:"websocket_url"`
	FeedURL         string   `mapstructure:"feed_url"`
	PortalFeedURL   string   `mapstructure:"portal_feed_url"`
	BlockEngineURL  string   `mapstructure:"block_engine_url"`
	RelayRegions    []string `mapstructure:"relay_regions"`
	TipStreamURL    string   `mapstructure:"tip_stream_url"`
	KeypairPath     string   `mapstructure:"keypair_path"`
	WalletDir       string   `mapstructure:"wallet_dir"`
	SnipeLamports   uint64   `mapstructure:"snipe_lamports"`
	NumTries        int      `mapstructure:"num_tries"`
	Fanout          bool     `mapstructure:"fanout"`
	JitterStepMs    int      `mapstructure:"jitter_step_ms"`
	Slippage        float64  `mapstructure:"slippage"`
	ComputeLimit    uint32   `mapstructure:"compute_limit"`
	ComputePrice    uint64   `mapstructure:"compute_price"`
	StaticTip       uint64   `mapstructure:"static_tip"`
	TipWeightP75    float64  `mapstructure:"tip_weight_p75"`
	TipWeightP95    float64  `mapstructure:"tip_weight_p95"`
	MaxCoinAgeMs    int64    `mapstructure:"max_coin_age_ms"`
	RequireSocials  bool     `mapstructure:"require_socials"`
	DeadlineSlots   uint64   `mapstructure:"deadline_slots"`
	DeadlineProgram string   `mapstructure:"deadline_program"`
	Workers         int      `mapstructure:"workers"`
	DebugLogging    bool     `mapstructure:"debug_logging"`
	LogFile         string   `mapstructure:"log_file"`
}

const (
	DefaultNumTries     = 4
	DefaultJitterStepMs = 15
	DefaultSlippage     = 1.05
	DefaultComputeLimit = 100_000
	DefaultStaticTip    = 100_000
	DefaultTipWeightP75 = 0.95
	DefaultTipWeightP95 = 0.05
	DefaultMaxCoinAgeMs = 250
	DefaultWorkers      = 5
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"feed_url":         "wss://frontend-api.pump.fun/socket.io/?EIO=4&transport=websocket",
		"portal_feed_url":  "wss://pumpportal.fun/api/data",
		"block_engine_url": "https://mainnet.block-engine.jito.wtf/api/v1/bundles",
		"tip_stream_url":   "wss://bundles.jito.wtf/api/v1/bundles/tip_stream",
		"relay_regions":    []string{"amsterdam", "ny", "frankfurt", "tokyo", "slc"},
		"num_tries":        DefaultNumTries,
		"jitter_step_ms":   DefaultJitterStepMs,
		"slippage":         DefaultSlippage,
		"compute_limit":    DefaultComputeLimit,
		"static_tip":       DefaultStaticTip,
		"tip_weight_p75":   DefaultTipWeightP75,
		"tip_weight_p95":   DefaultTipWeightP95,
		"max_coin_age_ms":  DefaultMaxCoinAgeMs,
		"require_socials":  true,
		"workers":          DefaultWorkers,
		"log_file":         "sniper.log",
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

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if cfg.WebSocketURL != "" {
		if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	if cfg.FeedURL != "" {
		if err := validateURLWithCache(cfg.FeedURL, "ws"); err != nil {
			return errors.New("invalid feed URL protocol")
		}
	}
	if cfg.BlockEngineURL != "" {
		if err := validateURLWithCache(cfg.BlockEngineURL, "http"); err != nil {
			return errors.New("invalid block engine URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.NumTries <= 0 {
		return errors.New("invalid num_tries")
	}
	if cfg.JitterStepMs < 0 {
		return errors.New("invalid jitter_step_ms")
	}
	if cfg.Slippage < 1.0 {
		return errors.New("slippage multiplier must be at least 1.0")
	}
	if cfg.TipWeightP75 < 0 || cfg.TipWeightP95 < 0 {
		return errors.New("tip weights must be non-negative")
	}
	if cfg.Workers < 0 {
		return errors.New("invalid workers count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("PUMPSNIPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPC := v.GetString("RPC_URL")
	if envRPC != "" {
		cfg.RPCURL = envRPC
	}

	envKeypair := v.GetString("KEYPAIR_PATH")
	if envKeypair != "" {
		cfg.KeypairPath = envKeypair
	}
	return nil
}
