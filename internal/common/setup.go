package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"prime-conversion-go/internal/api"
	"prime-conversion-go/internal/cache"
	"prime-conversion-go/internal/config"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/database"
	"prime-conversion-go/internal/formance"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/prime"
	"prime-conversion-go/internal/store"
	"prime-conversion-go/internal/strategy"
	"prime-conversion-go/internal/workflow"

	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Config      *models.Config
	Ledger      store.ConsumerLedger
	Prime       *prime.Service
	Cache       *cache.RistrettoCache
	Assets      *currency.Registry
	Conversions *api.ConversionService
	Runner      *workflow.Runner

	eth *ethclient.Client
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeLedger opens the consumer ledger selected by LEDGER_BACKEND.
// Useful on its own for read-only operations like querying balances.
func InitializeLedger(ctx context.Context, cfg *models.Config) (store.ConsumerLedger, error) {
	switch cfg.LedgerBackend {
	case config.LedgerBackendFormance:
		zap.L().Info("Using Formance ledger backend")
		svc, err := formance.NewService(ctx, cfg.Formance)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.LedgerBackendSqlite, "":
		zap.L().Info("Using SQLite ledger backend")
		svc, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

// LoadAssets reads the asset configuration into a registry.
func LoadAssets(cfg *models.Config) (*currency.Registry, error) {
	assetsCfg, err := currency.LoadAssetConfig(cfg.AssetsFile)
	if err != nil {
		return nil, err
	}
	registry, err := currency.NewRegistry(assetsCfg)
	if err != nil {
		return nil, fmt.Errorf("invalid asset configuration: %w", err)
	}
	zap.L().Info("Loaded asset configuration",
		zap.String("file", cfg.AssetsFile),
		zap.Int("assets", len(registry.Assets())))
	return registry, nil
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	services := &Services{Config: cfg}

	ok := false
	defer func() {
		if !ok {
			services.Close()
		}
	}()

	assets, err := LoadAssets(cfg)
	if err != nil {
		return nil, err
	}
	services.Assets = assets

	ledger, err := InitializeLedger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	services.Ledger = ledger

	if err := EnsurePlatformParticipant(ctx, ledger, cfg.Prime.PlatformParticipantId); err != nil {
		return nil, err
	}

	c, err := cache.NewRistrettoCache(cfg.Cache, zap.L())
	if err != nil {
		return nil, fmt.Errorf("unable to create cache: %w", err)
	}
	services.Cache = c

	zap.L().Info("Loading Prime API credentials")
	creds, err := loadPrimeCredentials()
	if err != nil {
		return nil, err
	}

	primeService, err := prime.NewService(creds, cfg.Prime, prime.Deps{
		Ledger: ledger,
		Assets: assets,
		Quotes: c,
	})
	if err != nil {
		return nil, err
	}
	services.Prime = primeService

	if err := primeService.ResolvePortfolio(ctx); err != nil {
		return nil, err
	}

	deps := StrategyDeps{
		Assets:       assets,
		Gateway:      primeService,
		Participants: strategy.NewParticipantResolver(primeService, c, cfg.Cache.ParticipantTTL),
		Fees:         cfg.Fees,
		Prime:        cfg.Prime,
	}

	if cfg.Routing.Enabled {
		zap.L().Info("Connecting to Ethereum RPC for routing", zap.String("rpc_url", cfg.Routing.RpcURL))
		eth, err := ethclient.DialContext(ctx, cfg.Routing.RpcURL)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to routing rpc: %w", err)
		}
		services.eth = eth

		routers, err := UniswapRouters(eth, cfg.Routing)
		if err != nil {
			return nil, err
		}
		deps.Routers = routers
	}

	strategies, err := BuildStrategies(deps)
	if err != nil {
		return nil, err
	}

	conversions, err := api.NewConversionService(assets, strategies, ledger)
	if err != nil {
		return nil, err
	}
	services.Conversions = conversions

	if err := conversions.HealthCheck(ctx); err != nil {
		return nil, err
	}

	runner, err := workflow.NewRunner(conversions, cfg.Workflow)
	if err != nil {
		return nil, err
	}
	services.Runner = runner

	ok = true
	return services, nil
}

func (s *Services) Close() {
	if s.eth != nil {
		s.eth.Close()
	}
	if s.Cache != nil {
		s.Cache.Close()
	}
	if s.Ledger != nil {
		s.Ledger.Close()
	}
}

func loadPrimeCredentials() (*credentials.Credentials, error) {
	accessKey := os.Getenv("PRIME_ACCESS_KEY")
	passphrase := os.Getenv("PRIME_PASSPHRASE")
	signingKey := os.Getenv("PRIME_SIGNING_KEY")

	if accessKey == "" || passphrase == "" || signingKey == "" {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}

	return &credentials.Credentials{
		AccessKey:  accessKey,
		Passphrase: passphrase,
		SigningKey: signingKey,
	}, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
