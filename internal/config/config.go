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
	RPCList             []string `mapstructure:"rpc_list"`
	ProgramAddress      string   `mapstructure:"program_address"`
	PollIntervalMs      int      `mapstructure:"poll_interval_ms"`
	SignatureLimit      int      `mapstructure:"signature_limit"`
	MinValueToTrack     float64  `mapstructure:"min_value_to_track"`
	ConfirmationDelayMs int      `mapstructure:"confirmation_delay_ms"`
	DebugLogging        bool     `mapstructure:"debug_logging"`
	LogFile             string   `mapstructure:"log_file"`
	RedisAddr           string   `mapstructure:"redis_addr"`
	ExportDir           string   `mapstructure:"export_dir"`
}

const (
	// pump.fun program, the default detection source
	DefaultProgramAddress = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

	DefaultPollIntervalMs      = 1000
	DefaultSignatureLimit      = 25
	DefaultMinValueToTrack     = 5.0
	DefaultConfirmationDelayMs = 2000
	DefaultLogFile             = "monitor.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"program_address":       DefaultProgramAddress,
		"poll_interval_ms":      DefaultPollIntervalMs,
		"signature_limit":       DefaultSignatureLimit,
		"min_value_to_track":    DefaultMinValueToTrack,
		"confirmation_delay_ms": DefaultConfirmationDelayMs,
		"log_file":              DefaultLogFile,
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
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.ProgramAddress == "" {
		return errors.New("missing program_address in configuration")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.SignatureLimit <= 0 {
		return errors.New("invalid signature_limit")
	}
	if cfg.MinValueToTrack <= 0 {
		return errors.New("invalid min_value_to_track")
	}
	if cfg.ConfirmationDelayMs <= 0 {
		return errors.New("invalid confirmation_delay_ms")
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
	v.SetEnvPrefix("TOKEN_MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envProgram := v.GetString("PROGRAM_ADDRESS")
	if envProgram != "" {
		cfg.ProgramAddress = envProgram
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}

	envRedis := v.GetString("REDIS_ADDR")
	if envRedis != "" {
		cfg.RedisAddr = envRedis
	}
	return nil
}
