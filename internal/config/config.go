package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/Eccentric-Reach/reachswap-dex-sub000/pkg/types"
)

// Config holds all configuration for the swap engine.
type Config struct {
	RPC     RPCConfig
	Chain   ChainConfig
	Engine  EngineConfig
	API     APIConfig
	Monitor MonitorConfig
	Logging LoggingConfig
}

// RPCConfig holds ledger RPC configuration.
type RPCConfig struct {
	URL            string
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// ChainConfig pins the network: the two venues, the wrapped native token and
// the signing key. Venue identities are static; they are configuration, not
// runtime state.
type ChainConfig struct {
	WrappedNative    common.Address
	PrimaryName      string
	PrimaryFactory   common.Address
	PrimaryRouter    common.Address
	SecondaryName    string
	SecondaryFactory common.Address
	SecondaryRouter  common.Address
	PrivateKey       string
}

// EngineConfig tunes cache lifetimes and quoting behavior.
type EngineConfig struct {
	ReserveTTL       time.Duration
	RouteTTL         time.Duration
	RouteNegativeTTL time.Duration
	FeeProfileTTL    time.Duration
	DeadlineHorizon  time.Duration
	DefaultSlippage  float64
}

// APIConfig holds the HTTP listener settings.
type APIConfig struct {
	Addr string
}

// MonitorConfig drives the optional venue-divergence monitor. Pairs are
// "tokenA:tokenB" address pairs, comma separated.
type MonitorConfig struct {
	Enabled  bool
	Pairs    []string
	Interval time.Duration
	AlertPct float64
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads configuration from environment and config file.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("rpc.url", "https://api.mainnet.loop.top")
	v.SetDefault("rpc.retry_attempts", 3)
	v.SetDefault("rpc.retry_delay", "500ms")
	v.SetDefault("rpc.request_timeout", "30s")

	v.SetDefault("chain.wrapped_native", "0x8B6087AF806ee12e3eEf3EC6efBF2bC6E17bCC2F")
	v.SetDefault("chain.primary_name", "ReachSwap")
	v.SetDefault("chain.primary_factory", "0x580a411E2C7a0Da23cFcEcbd0cD66264d2Cb7a50")
	v.SetDefault("chain.primary_router", "0x7C04e026098201e5e1A3a1c7fB982C4B27E3fcDE")
	v.SetDefault("chain.secondary_name", "LoopSwap")
	v.SetDefault("chain.secondary_factory", "0x3FB0815A60f6eCD4b5E9f71D2d3aEC1C7ffdCa82")
	v.SetDefault("chain.secondary_router", "0x62eC3cD87100f9Aa32c17EC0622aC638cf12f8E1")
	v.SetDefault("chain.private_key", "")

	v.SetDefault("engine.reserve_ttl", "20s")
	v.SetDefault("engine.route_ttl", "30s")
	v.SetDefault("engine.route_negative_ttl", "5s")
	v.SetDefault("engine.fee_profile_ttl", "6h")
	v.SetDefault("engine.deadline_horizon", "20m")
	v.SetDefault("engine.default_slippage", 1.0)

	v.SetDefault("api.addr", ":8080")

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.pairs", "")
	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("monitor.alert_pct", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Environment variable support
	v.SetEnvPrefix("REACHSWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.reachswap")

	// Read config file (optional)
	_ = v.ReadInConfig()

	retryDelay, _ := time.ParseDuration(v.GetString("rpc.retry_delay"))
	requestTimeout, _ := time.ParseDuration(v.GetString("rpc.request_timeout"))
	reserveTTL, _ := time.ParseDuration(v.GetString("engine.reserve_ttl"))
	routeTTL, _ := time.ParseDuration(v.GetString("engine.route_ttl"))
	routeNegTTL, _ := time.ParseDuration(v.GetString("engine.route_negative_ttl"))
	feeTTL, _ := time.ParseDuration(v.GetString("engine.fee_profile_ttl"))
	deadline, _ := time.ParseDuration(v.GetString("engine.deadline_horizon"))
	monitorInterval, _ := time.ParseDuration(v.GetString("monitor.interval"))

	var monitorPairs []string
	if raw := strings.TrimSpace(v.GetString("monitor.pairs")); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			monitorPairs = append(monitorPairs, strings.TrimSpace(p))
		}
	}

	cfg := &Config{
		RPC: RPCConfig{
			URL:            v.GetString("rpc.url"),
			RetryAttempts:  v.GetInt("rpc.retry_attempts"),
			RetryDelay:     retryDelay,
			RequestTimeout: requestTimeout,
		},
		Chain: ChainConfig{
			WrappedNative:    common.HexToAddress(v.GetString("chain.wrapped_native")),
			PrimaryName:      v.GetString("chain.primary_name"),
			PrimaryFactory:   common.HexToAddress(v.GetString("chain.primary_factory")),
			PrimaryRouter:    common.HexToAddress(v.GetString("chain.primary_router")),
			SecondaryName:    v.GetString("chain.secondary_name"),
			SecondaryFactory: common.HexToAddress(v.GetString("chain.secondary_factory")),
			SecondaryRouter:  common.HexToAddress(v.GetString("chain.secondary_router")),
			PrivateKey:       v.GetString("chain.private_key"),
		},
		Engine: EngineConfig{
			ReserveTTL:       reserveTTL,
			RouteTTL:         routeTTL,
			RouteNegativeTTL: routeNegTTL,
			FeeProfileTTL:    feeTTL,
			DeadlineHorizon:  deadline,
			DefaultSlippage:  v.GetFloat64("engine.default_slippage"),
		},
		API: APIConfig{
			Addr: v.GetString("api.addr"),
		},
		Monitor: MonitorConfig{
			Enabled:  v.GetBool("monitor.enabled"),
			Pairs:    monitorPairs,
			Interval: monitorInterval,
			AlertPct: v.GetFloat64("monitor.alert_pct"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}
	if c.Chain.WrappedNative == (common.Address{}) {
		return fmt.Errorf("chain.wrapped_native is required")
	}
	for name, addr := range map[string]common.Address{
		"chain.primary_factory":   c.Chain.PrimaryFactory,
		"chain.primary_router":    c.Chain.PrimaryRouter,
		"chain.secondary_factory": c.Chain.SecondaryFactory,
		"chain.secondary_router":  c.Chain.SecondaryRouter,
	} {
		if addr == (common.Address{}) {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

// Venues materializes the two configured venues in priority order.
func (c *Config) Venues() (primary, secondary types.Venue) {
	primary = types.Venue{
		ID:      types.VenuePrimary,
		Name:    c.Chain.PrimaryName,
		Factory: c.Chain.PrimaryFactory,
		Router:  c.Chain.PrimaryRouter,
	}
	secondary = types.Venue{
		ID:      types.VenueSecondary,
		Name:    c.Chain.SecondaryName,
		Factory: c.Chain.SecondaryFactory,
		Router:  c.Chain.SecondaryRouter,
	}
	return primary, secondary
}
