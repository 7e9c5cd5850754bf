// Package config loads the daemon configuration from a toml file or, when no
// file is given, from SWAPD_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadSwapdConfig loads the daemon config from the given path, or from the
// environment when configPath is nil.
func LoadSwapdConfig(configPath *string) (*SwapdConfig, error) {
	v := viper.New()

	if configPath == nil {
		// if no file expect envs
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func loadEnv(v *viper.Viper) (*SwapdConfig, error) {
	// godotenv might fail if the .env file is missing but env can be applied
	// through docker, systemd or other means, so skip the error
	_ = godotenv.Load()
	v.SetEnvPrefix("SWAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config SwapdConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	applyDefaults(&config)
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env
// values when no config file is loaded (env-only mode).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"node_urls", "quoter_address", "router_address", "catalog_path",
		"include_legacy_pools", "quote_max_gas",
		"operation_fee", "operation_max_gas",
		"poll_interval_ms", "confirm_timeout_sec", "finality_policy",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*SwapdConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config SwapdConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&config)
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *SwapdConfig) {
	if config.QuoteMaxGas == 0 {
		config.QuoteMaxGas = 100_000_000
	}
	if config.OperationFee == 0 {
		config.OperationFee = 10_000_000
	}
	if config.OperationMaxGas == 0 {
		config.OperationMaxGas = 500_000_000
	}
	if config.PollIntervalMs == 0 {
		config.PollIntervalMs = 1000
	}
	if config.ConfirmTimeoutSec == 0 {
		config.ConfirmTimeoutSec = 45
	}
	if config.FinalityPolicy == "" {
		config.FinalityPolicy = "optimistic"
	}
}

func verifyConfig(config *SwapdConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if len(config.NodeURLs) == 0 {
		return fmt.Errorf("node_urls is required")
	}
	for _, url := range config.NodeURLs {
		if url == "" {
			return fmt.Errorf("node_urls must not be empty")
		}
	}

	if config.QuoterAddress == "" {
		return fmt.Errorf("quoter_address is required")
	}
	if config.RouterAddress == "" {
		return fmt.Errorf("router_address is required")
	}

	if config.FinalityPolicy != "optimistic" && config.FinalityPolicy != "strict" {
		return fmt.Errorf("finality_policy must be optimistic or strict")
	}

	return nil
}
