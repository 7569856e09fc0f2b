package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	RouterAddress   string
	QuoterAddress   string
	ProxyAddress    string
	HybridAddress   string
	LauncherAddress string
	Pairs           []string
	SlippageBps     uint32
	QuoteDebounce   time.Duration
	HopCorrection   float64
	ProbeDecimals   int
	FeedURL         string
	FeedTimeframe   string
	FeedAggregate   int
	FeedLimit       int
	SteadyPoll      time.Duration
	BoostPoll       time.Duration
	BoostWindow     time.Duration
	SubmitTimeout   time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("slippage-bps", uint32(50))
	v.SetDefault("quote-debounce", 300*time.Millisecond)
	// Empirical damping for the inverted second-hop rate; calibrated against
	// observed full-route simulations. Re-calibrate if fee tiers or pool
	// depth change materially.
	v.SetDefault("hop-correction", 0.77)
	v.SetDefault("probe-decimals", 18)
	v.SetDefault("feed-timeframe", "minute")
	v.SetDefault("feed-aggregate", 1)
	v.SetDefault("feed-limit", 100)
	v.SetDefault("steady-poll", 5*time.Second)
	v.SetDefault("boost-poll", 2*time.Second)
	v.SetDefault("boost-window", 30*time.Second)
	v.SetDefault("submit-timeout", 60*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		RouterAddress:   v.GetString("router"),
		QuoterAddress:   v.GetString("quoter"),
		ProxyAddress:    v.GetString("proxy"),
		HybridAddress:   v.GetString("hybrid"),
		LauncherAddress: v.GetString("launcher"),
		Pairs:           getStringSlice(v, "pair"),
		SlippageBps:     v.GetUint32("slippage-bps"),
		QuoteDebounce:   v.GetDuration("quote-debounce"),
		HopCorrection:   v.GetFloat64("hop-correction"),
		ProbeDecimals:   v.GetInt("probe-decimals"),
		FeedURL:         v.GetString("feed-url"),
		FeedTimeframe:   v.GetString("feed-timeframe"),
		FeedAggregate:   v.GetInt("feed-aggregate"),
		FeedLimit:       v.GetInt("feed-limit"),
		SteadyPoll:      v.GetDuration("steady-poll"),
		BoostPoll:       v.GetDuration("boost-poll"),
		BoostWindow:     v.GetDuration("boost-window"),
		SubmitTimeout:   v.GetDuration("submit-timeout"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ";")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
