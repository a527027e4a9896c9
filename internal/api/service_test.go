package api

import (
	"context"
	"testing"
	"time"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/pricing"
	"prime-conversion-go/internal/strategy"
	"prime-conversion-go/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiAssets = `
fiat: [USD, EUR]
assets:
  - symbol: ETH
    network: ethereum-mainnet
    precision: 8
    trading_wallet_id: eth-trading
    settlement_wallet_id: eth-settlement
  - symbol: BTC
    network: bitcoin-mainnet
    precision: 8
    trading_wallet_id: btc-trading
    settlement_wallet_id: btc-settlement
`

func newTestService(t *testing.T) (*ConversionService, *testutil.FakeGateway, *testutil.FakeLedger) {
	t.Helper()

	cfg, err := currency.ParseAssetConfig([]byte(apiAssets))
	require.NoError(t, err)
	registry, err := currency.NewRegistry(cfg)
	require.NoError(t, err)

	gw := testutil.NewFakeGateway(decimal.NewFromInt(2000))
	asset, err := registry.Lookup("ETH")
	require.NoError(t, err)

	eth, err := strategy.NewDirect(strategy.DirectConfig{
		Asset:                 asset,
		Gateway:               gw,
		Calculator:            pricing.NewCalculator(models.FeeConfig{}, gw, registry),
		Participants:          strategy.NewParticipantResolver(gw, nil, time.Minute),
		Mapper:                strategy.NewStatusMapper(),
		PlatformParticipantId: "platform",
	})
	require.NoError(t, err)

	ledger := testutil.NewFakeLedger()
	svc, err := NewConversionService(registry, map[string]strategy.AssetStrategy{"eth": eth}, ledger)
	require.NoError(t, err)
	return svc, gw, ledger
}

func fiatRequest(amount string) models.QuoteRequest {
	return models.QuoteRequest{
		CryptoCurrency: "ETH",
		FiatCurrency:   "USD",
		FixedSide:      models.FixedSideFiat,
		FiatAmount:     decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}

func TestGetQuoteDispatchesOnFixedSide(t *testing.T) {
	svc, gw, _ := newTestService(t)
	ctx := context.Background()

	quote, err := svc.GetQuote(ctx, fiatRequest("100"))
	require.NoError(t, err)
	assert.True(t, quote.Quote.TotalFiatAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, gw.FiatQuoteRequests, 1)

	quote, err = svc.GetQuote(ctx, models.QuoteRequest{
		CryptoCurrency: "eth",
		FiatCurrency:   "USD",
		FixedSide:      models.FixedSideCrypto,
		CryptoQuantity: decimal.NewNullDecimal(decimal.RequireFromString("0.5")),
	})
	require.NoError(t, err)
	assert.True(t, quote.Quote.TotalCryptoQuantity.Equal(decimal.RequireFromString("0.5")))
	require.Len(t, gw.CryptoQuoteRequests, 1)
}

func TestGetQuoteValidation(t *testing.T) {
	svc, gw, _ := newTestService(t)

	nullFiat := fiatRequest("1")
	nullFiat.FiatAmount = decimal.NullDecimal{}
	negative := fiatRequest("-5")
	badSide := fiatRequest("1")
	badSide.FixedSide = "BOTH"
	badFiat := fiatRequest("1")
	badFiat.FiatCurrency = "JPY"
	noStrategy := fiatRequest("1")
	noStrategy.CryptoCurrency = "BTC"
	badType := fiatRequest("1")
	badType.TransactionType = "GIFT"
	nullCrypto := models.QuoteRequest{CryptoCurrency: "ETH", FiatCurrency: "USD", FixedSide: models.FixedSideCrypto}

	tests := map[string]models.QuoteRequest{
		"null fiat amount":       nullFiat,
		"negative fiat amount":   negative,
		"unknown fixed side":     badSide,
		"unsupported fiat":       badFiat,
		"asset without strategy": noStrategy,
		"unknown transaction":    badType,
		"null crypto quantity":   nullCrypto,
		"empty crypto":           {FiatCurrency: "USD", FixedSide: models.FixedSideFiat},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.GetQuote(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), err.Error())
		})
	}
	assert.Zero(t, gw.Calls(testutil.OpRequestQuote))
}

func TestStrategyLookup(t *testing.T) {
	svc, _, _ := newTestService(t)

	st, err := svc.Strategy(" Eth ")
	require.NoError(t, err)
	assert.False(t, st.NeedsIntermediaryLeg())

	_, err = svc.Strategy("DOGE")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	assert.Equal(t, []string{"ETH"}, svc.Assets())
}

func TestNewConversionServiceRejectsUnconfiguredAsset(t *testing.T) {
	cfg, err := currency.ParseAssetConfig([]byte(apiAssets))
	require.NoError(t, err)
	registry, err := currency.NewRegistry(cfg)
	require.NoError(t, err)

	_, err = NewConversionService(registry, map[string]strategy.AssetStrategy{"DOGE": nil}, testutil.NewFakeLedger())
	assert.Error(t, err)

	_, err = NewConversionService(registry, nil, nil)
	assert.Error(t, err)
}

func TestBalances(t *testing.T) {
	svc, _, ledger := newTestService(t)
	ctx := context.Background()

	p, err := ledger.CreateParticipant(ctx, "p-1", "Alice", "alice@example.com")
	require.NoError(t, err)
	ledger.Credit(p.Id, "ETH", decimal.RequireFromString("1.25"))
	ledger.Credit(p.Id, "BTC", decimal.Zero)

	balance, err := svc.GetConsumerBalance(ctx, p.Id, "ETH")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("1.25")))

	balances, err := svc.GetConsumerBalances(ctx, p.Id)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "ETH", balances[0].Asset)

	report, err := svc.BalanceReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "alice@example.com", report[0].Participant.Email)

	_, err = svc.GetConsumerBalance(ctx, "", "ETH")
	assert.Error(t, err)
	_, err = svc.GetConsumerBalances(ctx, "")
	assert.Error(t, err)

	assert.NoError(t, svc.HealthCheck(ctx))
}
