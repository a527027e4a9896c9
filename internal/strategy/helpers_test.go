package strategy

import (
	"testing"
	"time"

	"prime-conversion-go/internal/cache"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/pricing"
	"prime-conversion-go/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const strategyAssets = `
fiat: [USD]
assets:
  - symbol: ETH
    network: ethereum-mainnet
    precision: 8
    trading_wallet_id: eth-trading
    settlement_wallet_id: eth-settlement
  - symbol: USDC
    network: ethereum-mainnet
    precision: 6
    trading_wallet_id: usdc-trading
    settlement_wallet_id: usdc-settlement
    token_address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    token_decimals: 6
  - symbol: UNI
    network: ethereum-mainnet
    precision: 8
    route_via: USDC
    token_address: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"
    token_decimals: 18
`

const platformParticipant = "platform-participant"

type fixture struct {
	gateway  *testutil.FakeGateway
	registry *currency.Registry
	cache    *cache.RistrettoCache
	resolver *ParticipantResolver
	mapper   *StatusMapper
}

func newFixture(t *testing.T, price string) *fixture {
	t.Helper()

	cfg, err := currency.ParseAssetConfig([]byte(strategyAssets))
	require.NoError(t, err)
	registry, err := currency.NewRegistry(cfg)
	require.NoError(t, err)

	c, err := cache.NewRistrettoCache(models.CacheConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	gw := testutil.NewFakeGateway(decimal.RequireFromString(price))
	return &fixture{
		gateway:  gw,
		registry: registry,
		cache:    c,
		resolver: NewParticipantResolver(gw, c, time.Minute),
		mapper:   NewStatusMapper(),
	}
}

func (f *fixture) direct(t *testing.T, symbol string, fees models.FeeConfig) *Direct {
	t.Helper()
	asset, err := f.registry.Lookup(symbol)
	require.NoError(t, err)

	d, err := NewDirect(DirectConfig{
		Asset:                 asset,
		Gateway:               f.gateway,
		Calculator:            pricing.NewCalculator(fees, f.gateway, f.registry),
		Participants:          f.resolver,
		Mapper:                f.mapper,
		PlatformParticipantId: platformParticipant,
		AccountGroup:          "consumers",
	})
	require.NoError(t, err)
	return d
}

var testConsumer = models.ConsumerInfo{
	Id:        "consumer-1",
	Email:     "Alice@Example.com",
	FirstName: "Alice",
	LastName:  "Liddell",
}

func fiatQuoteRequest(crypto, amount string) models.QuoteRequest {
	return models.QuoteRequest{
		CryptoCurrency: crypto,
		FiatCurrency:   "USD",
		FixedSide:      models.FixedSideFiat,
		FiatAmount:     decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}

func cryptoQuoteRequest(crypto, quantity string) models.QuoteRequest {
	return models.QuoteRequest{
		CryptoCurrency: crypto,
		FiatCurrency:   "USD",
		FixedSide:      models.FixedSideCrypto,
		CryptoQuantity: decimal.NewNullDecimal(decimal.RequireFromString(quantity)),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
