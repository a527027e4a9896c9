package strategy

import (
	"context"
	"errors"
	"testing"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/routing"
	"prime-conversion-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSwapRouted(t *testing.T, f *fixture, router routing.Provider) *SwapRouted {
	t.Helper()
	s, err := NewSwapRouted("UNI", f.direct(t, "USDC", models.FeeConfig{}), router)
	require.NoError(t, err)
	return s
}

func TestSwapRoutedFixedFiatQuote(t *testing.T) {
	f := newFixture(t, "1")
	router := testutil.NewFakeRouter("USDC", dec("0.125"))
	s := newSwapRouted(t, f, router)

	quote, err := s.GetQuoteForFixedFiat(context.Background(), fiatQuoteRequest("UNI", "100"))
	require.NoError(t, err)

	assert.Equal(t, "UNI", quote.Quote.CryptoCurrency)
	assert.True(t, quote.Quote.TotalCryptoQuantity.Equal(dec("12.5")), quote.Quote.TotalCryptoQuantity.String())
	assert.True(t, quote.Quote.TotalFiatAmount.Equal(dec("100")))
	assert.True(t, quote.NonDiscountedQuote.TotalCryptoQuantity.Equal(dec("12.5")))

	require.Len(t, router.Requests, 1)
	assert.Equal(t, "UNI", router.Requests[0].TargetAsset)
	assert.True(t, router.Requests[0].SourceQuantity.Equal(dec("100")))
	assert.Empty(t, router.Requests[0].DestinationAddress)
}

func TestSwapRoutedFixedCryptoUnsupported(t *testing.T) {
	f := newFixture(t, "1")
	s := newSwapRouted(t, f, testutil.NewFakeRouter("USDC", dec("0.125")))

	_, err := s.GetQuoteForFixedCrypto(context.Background(), cryptoQuoteRequest("UNI", "10"))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.False(t, apperrors.IsRetryable(err))
	assert.Zero(t, f.gateway.Calls(testutil.OpRequestQuote))

	_, err = s.ExecuteQuoteForFundsAvailability(context.Background(), models.ExecuteQuoteRequest{
		TransactionId: "tx-1",
		Quote:         cryptoQuoteRequest("UNI", "10"),
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestSwapRoutedRouteFailureIsUpstream(t *testing.T) {
	f := newFixture(t, "1")
	router := testutil.NewFakeRouter("USDC", dec("0.125"))
	router.Err = errors.New("rpc down")
	s := newSwapRouted(t, f, router)

	_, err := s.GetQuoteForFixedFiat(context.Background(), fiatQuoteRequest("UNI", "100"))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSwapRoutedSettlementDelegates(t *testing.T) {
	f := newFixture(t, "1")
	s := newSwapRouted(t, f, testutil.NewFakeRouter("USDC", dec("0.125")))
	ctx := context.Background()

	executed, err := s.ExecuteQuoteForFundsAvailability(ctx, models.ExecuteQuoteRequest{
		TransactionId: "tx-1",
		Quote:         fiatQuoteRequest("UNI", "100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "USDC", executed.Quote.Quote.CryptoCurrency)
	assert.Equal(t, models.PollStatusPending, s.PollExecuteQuoteForFundsAvailabilityStatus(ctx, executed.TradeId).Status)

	funds, err := s.MakeFundsAvailable(ctx, models.FundsAvailabilityRequest{
		TransactionId:  "tx-1",
		CryptoCurrency: "UNI",
		CryptoAmount:   executed.CryptoReceived,
	})
	require.NoError(t, err)
	assert.Equal(t, "usdc-trading", f.gateway.TransferRequests[0].FromAccount)
	assert.Equal(t, models.PollStatusPending, s.PollFundsAvailableStatus(ctx, funds.TransferId).Status)

	tradeId, err := s.TransferAssetToConsumerAccount(ctx, models.ConsumerAccountTransferRequest{
		TransactionId:  "tx-1",
		Consumer:       testConsumer,
		CryptoCurrency: "UNI",
		FiatCurrency:   "USD",
		CryptoAmount:   executed.CryptoReceived,
		TradePrice:     executed.TradePrice,
	})
	require.NoError(t, err)
	assert.Equal(t, "USDC", f.gateway.TradeRequests[0].BaseCurrency)
	assert.Equal(t, models.PollStatusPending, s.PollAssetTransferToConsumerStatus(ctx, tradeId).Status)
}

func TestSwapRoutedTransferToConsumerWallet(t *testing.T) {
	f := newFixture(t, "1")
	router := testutil.NewFakeRouter("USDC", dec("0.125"))
	s := newSwapRouted(t, f, router)
	ctx := context.Background()

	resp, err := s.TransferToConsumerWallet(ctx, models.ConsumerWalletTransferRequest{
		TransactionId:  "tx-1",
		Consumer:       testConsumer,
		CryptoCurrency: "UNI",
		CryptoAmount:   dec("100"),
		WalletAddress:  "0xconsumer",
	})
	require.NoError(t, err)
	require.True(t, resp.CryptoAmount.Valid)
	assert.True(t, resp.CryptoAmount.Decimal.Equal(dec("12.5")))

	require.Len(t, router.Requests, 1)
	assert.Equal(t, "0xconsumer", router.Requests[0].DestinationAddress)

	require.Len(t, f.gateway.WithdrawalRequests, 1)
	w := f.gateway.WithdrawalRequests[0]
	assert.Equal(t, "USDC", w.Asset)
	assert.Equal(t, testutil.FakeRouterAddress, w.Address)
	assert.True(t, w.Amount.Equal(dec("100")))
	assert.Equal(t, []byte("swap:UNI:0xconsumer"), w.SmartContractData)

	f.gateway.SetWithdrawal(resp.LiquidityProviderTransactionId, gateway.Withdrawal{WithdrawalStatus: "rejected"})
	assert.Equal(t, models.PollStatusRetryableFailure, s.PollConsumerWalletTransferStatus(ctx, resp.LiquidityProviderTransactionId).Status)
}

func TestSwapRoutedTransferToConsumerWalletIsIdempotent(t *testing.T) {
	f := newFixture(t, "1")
	router := testutil.NewFakeRouter("USDC", dec("0.125"))
	s := newSwapRouted(t, f, router)
	ctx := context.Background()
	req := models.ConsumerWalletTransferRequest{
		TransactionId:  "tx-1",
		Consumer:       testConsumer,
		CryptoCurrency: "UNI",
		CryptoAmount:   dec("100"),
		WalletAddress:  "0xconsumer",
	}

	first, err := s.TransferToConsumerWallet(ctx, req)
	require.NoError(t, err)
	second, err := s.TransferToConsumerWallet(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.LiquidityProviderTransactionId, second.LiquidityProviderTransactionId)
	assert.True(t, second.CryptoAmount.Decimal.Equal(dec("12.5")))
	assert.Equal(t, 1, f.gateway.Created(testutil.OpRequestWithdrawal))
	assert.Len(t, f.gateway.WithdrawalRequests, 1)
}

func TestSwapRoutedTransferWithoutSwapCallIsUpstream(t *testing.T) {
	f := newFixture(t, "1")
	s := newSwapRouted(t, f, &calldataFreeRouter{testutil.NewFakeRouter("USDC", dec("0.125"))})

	_, err := s.TransferToConsumerWallet(context.Background(), models.ConsumerWalletTransferRequest{
		TransactionId:  "tx-1",
		Consumer:       testConsumer,
		CryptoCurrency: "UNI",
		CryptoAmount:   dec("100"),
		WalletAddress:  "0xconsumer",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Zero(t, f.gateway.Calls(testutil.OpRequestWithdrawal))
}

type calldataFreeRouter struct {
	*testutil.FakeRouter
}

func (r *calldataFreeRouter) Route(ctx context.Context, req routing.RouteRequest) (*routing.Route, error) {
	route, err := r.FakeRouter.Route(ctx, req)
	if err != nil {
		return nil, err
	}
	route.ContractAddress = ""
	route.SmartContractData = nil
	return route, nil
}

func TestNewSwapRoutedChecksIntermediary(t *testing.T) {
	f := newFixture(t, "1")
	_, err := NewSwapRouted("UNI", f.direct(t, "ETH", models.FeeConfig{}), testutil.NewFakeRouter("USDC", dec("1")))
	assert.Error(t, err)

	s := newSwapRouted(t, f, testutil.NewFakeRouter("usdc", dec("1")))
	assert.True(t, s.NeedsIntermediaryLeg())
	assert.Equal(t, "USDC", s.GetIntermediaryLeg())

	_, err = s.GetQuoteForFixedFiat(context.Background(), fiatQuoteRequest("ETH", "10"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}
