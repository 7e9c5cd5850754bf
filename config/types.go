package config

// SwapdConfig is the full daemon configuration.
type SwapdConfig struct {
	// rpc configs
	Port int    `toml:"port"`
	Host string `toml:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `toml:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests"`

	// Massa node endpoints, first is primary and the rest are backups
	NodeURLs []string `toml:"node_urls"`

	// DEX contract bindings
	QuoterAddress string `toml:"quoter_address"`
	RouterAddress string `toml:"router_address"`

	// Token catalog file; empty uses the built-in catalog
	CatalogPath string `toml:"catalog_path"`

	// quote settings
	IncludeLegacyPools bool   `toml:"include_legacy_pools"`
	QuoteMaxGas        uint64 `toml:"quote_max_gas"`

	// execution settings
	OperationFee      uint64 `toml:"operation_fee"`
	OperationMaxGas   uint64 `toml:"operation_max_gas"`
	PollIntervalMs    int    `toml:"poll_interval_ms"`
	ConfirmTimeoutSec int    `toml:"confirm_timeout_sec"`
	// FinalityPolicy is "optimistic" or "strict"
	FinalityPolicy string `toml:"finality_policy"`
}
