package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/rs/zerolog"

	"github.com/osprey-wallet/massa-swap/config"
	"github.com/osprey-wallet/massa-swap/executor"
	"github.com/osprey-wallet/massa-swap/massa"
	"github.com/osprey-wallet/massa-swap/router"
	"github.com/osprey-wallet/massa-swap/rpc"
	"github.com/osprey-wallet/massa-swap/tokens"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the RPC package
	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "", "toml config file, env vars are used when empty")
	flag.Parse()

	log.Info().Str("config", *configPath).Msg("Starting swapd")

	var cfgPath *string
	if *configPath != "" {
		cfgPath = configPath
	}
	cfg, err := config.LoadSwapdConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Token catalog
	registry, err := loadRegistry(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load token catalog")
	}
	log.Info().Int("tokens", len(registry.All())).Msg("Token catalog loaded")

	// Node client, first URL is primary and the rest are backups
	node, err := massa.NewClient(cfg.NodeURLs[0], cfg.NodeURLs[1:], massa.DefaultClientConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create node client")
	}
	defer node.Close()

	// Signing credentials come from the wallet's key management, passed
	// through the environment.
	signer, err := signerFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load signer credentials")
	}
	log.Info().Str("address", signer.Address()).Msg("Signer loaded")

	resolver := router.NewResolver(node, registry, router.ResolverConfig{
		QuoterAddress:      cfg.QuoterAddress,
		MaxGas:             cfg.QuoteMaxGas,
		IncludeLegacyPools: cfg.IncludeLegacyPools,
	})

	execConfig := executor.DefaultConfig(cfg.RouterAddress)
	execConfig.Fee = cfg.OperationFee
	execConfig.MaxGas = cfg.OperationMaxGas
	execConfig.PollInterval = time.Duration(cfg.PollIntervalMs) * time.Millisecond
	execConfig.ConfirmTimeout = time.Duration(cfg.ConfirmTimeoutSec) * time.Second
	execConfig.Finality = executor.FinalityPolicy(cfg.FinalityPolicy)
	exec := executor.New(node, registry, execConfig)

	handler := rpc.NewSwapHandler(resolver, exec, node, registry, signer)
	server := rpc.NewServer(buildServerConfig(cfg), handler)

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}

func loadRegistry(catalogPath string) (*tokens.Registry, error) {
	if catalogPath == "" {
		return tokens.DefaultRegistry(), nil
	}
	return tokens.LoadCatalog(catalogPath)
}

// buildServerConfig converts the loaded SwapdConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.SwapdConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  true,
	}

	// Set rate limiting if configured
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	return serverConfig
}

// envSigner signs operations with an ed25519 key held in the environment.
// Production deployments plug in the wallet's key-management service instead.
type envSigner struct {
	address   string
	publicKey string
	key       ed25519.PrivateKey
}

func (s *envSigner) Address() string   { return s.address }
func (s *envSigner) PublicKey() string { return s.publicKey }

func (s *envSigner) Sign(content []byte) ([]byte, error) {
	return ed25519.Sign(s.key, content), nil
}

func signerFromEnv() (massa.Signer, error) {
	address := os.Getenv("SWAPD_SENDER_ADDRESS")
	publicKey := os.Getenv("SWAPD_PUBLIC_KEY")
	secret := os.Getenv("SWAPD_SECRET_KEY")
	if address == "" || publicKey == "" || secret == "" {
		return nil, fmt.Errorf("SWAPD_SENDER_ADDRESS, SWAPD_PUBLIC_KEY and SWAPD_SECRET_KEY are required")
	}
	if err := tokens.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}

	seed := base58.Decode(secret)
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("secret key must be a base58 encoded %d byte seed", ed25519.SeedSize)
	}
	return &envSigner{
		address:   address,
		publicKey: publicKey,
		key:       ed25519.NewKeyFromSeed(seed),
	}, nil
}
