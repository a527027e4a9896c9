package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuoter struct {
	price      decimal.Decimal
	networkFee decimal.Decimal
	err        error

	fiatRequests   []decimal.Decimal
	cryptoRequests []decimal.Decimal
}

func (s *stubQuoter) EstimateNetworkFee(_ context.Context, _, _ string) (*gateway.NetworkFee, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.NetworkFee{FeeInFiat: s.networkFee}, nil
}

func (s *stubQuoter) RequestQuoteFixedFiat(_ context.Context, crypto, fiat string, amount decimal.Decimal) (*gateway.ProviderQuote, error) {
	s.fiatRequests = append(s.fiatRequests, amount)
	return s.quote(crypto, fiat), nil
}

func (s *stubQuoter) RequestQuoteFixedCrypto(_ context.Context, crypto, fiat string, quantity decimal.Decimal) (*gateway.ProviderQuote, error) {
	s.cryptoRequests = append(s.cryptoRequests, quantity)
	return s.quote(crypto, fiat), nil
}

func (s *stubQuoter) quote(crypto, fiat string) *gateway.ProviderQuote {
	return &gateway.ProviderQuote{
		QuoteId:        "quote-1",
		CryptoCurrency: crypto,
		FiatCurrency:   fiat,
		PerUnitPrice:   s.price,
		ExpiresAt:      time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
	}
}

type stubCurrencies struct {
	spreadOverride *decimal.Decimal
}

func (s stubCurrencies) PrecisionOf(symbol string) (int32, error) {
	if symbol == "DOGE" {
		return 0, errors.New("unsupported currency")
	}
	return 8, nil
}

func (s stubCurrencies) SpreadOverrideOf(string) (decimal.Decimal, bool) {
	if s.spreadOverride == nil {
		return decimal.Zero, false
	}
	return *s.spreadOverride, true
}

func (s stubCurrencies) IsSupportedFiat(symbol string) bool {
	return symbol == "USD"
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fiatRequest(amount string) models.QuoteRequest {
	return models.QuoteRequest{
		CryptoCurrency: "ETH",
		FiatCurrency:   "USD",
		FixedSide:      models.FixedSideFiat,
		FiatAmount:     decimal.NewNullDecimal(dec(amount)),
	}
}

func cryptoRequest(quantity string) models.QuoteRequest {
	return models.QuoteRequest{
		CryptoCurrency: "ETH",
		FiatCurrency:   "USD",
		FixedSide:      models.FixedSideCrypto,
		CryptoQuantity: decimal.NewNullDecimal(dec(quantity)),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestFixedFiat_NoFeesYieldsMarketQuantity(t *testing.T) {
	for _, amount := range []string{"1", "100", "2500.55", "99999.99"} {
		t.Run(amount, func(t *testing.T) {
			quoter := &stubQuoter{price: dec("2000")}
			calc := NewCalculator(models.FeeConfig{}, quoter, stubCurrencies{})

			cq, err := calc.FixedFiat(context.Background(), fiatRequest(amount))
			require.NoError(t, err)

			want := dec(amount).Div(dec("2000")).Round(8)
			assertDecimal(t, want.String(), cq.Quote.TotalCryptoQuantity)
			assertDecimal(t, "2000", cq.Quote.PerUnitPriceWithSpread)
			assertDecimal(t, amount, cq.Quote.TotalFiatAmount)
		})
	}
}

func TestFixedFiat_SpreadScenario(t *testing.T) {
	quoter := &stubQuoter{price: dec("2000")}
	calc := NewCalculator(models.FeeConfig{SpreadPercentage: dec("0.6")}, quoter, stubCurrencies{})

	cq, err := calc.FixedFiat(context.Background(), fiatRequest("100"))
	require.NoError(t, err)

	require.Len(t, quoter.fiatRequests, 1)
	assertDecimal(t, "62.5", quoter.fiatRequests[0])
	assertDecimal(t, "3200", cq.Quote.PerUnitPriceWithSpread)
	assertDecimal(t, "2000", cq.Quote.PerUnitPriceWithoutSpread)
	assertDecimal(t, "0.03125", cq.Quote.TotalCryptoQuantity)
	assertDecimal(t, "100", cq.Quote.TotalFiatAmount)
	assert.Equal(t, "quote-1", cq.Quote.QuoteId)
}

func TestFixedFiat_FlatFeeScenario(t *testing.T) {
	quoter := &stubQuoter{price: dec("2000")}
	calc := NewCalculator(models.FeeConfig{FlatFeeDollars: dec("9.5")}, quoter, stubCurrencies{})

	cq, err := calc.FixedFiat(context.Background(), fiatRequest("100"))
	require.NoError(t, err)

	assertDecimal(t, "0", cq.Quote.ProcessingFeeInFiat)
	assertDecimal(t, "9.5", cq.Quote.PlatformFeeInFiat)
	assertDecimal(t, "90.5", cq.Quote.AmountPreSpread)
}

func TestFixedFiat_SpreadOverrideWins(t *testing.T) {
	override := dec("0.25")
	quoter := &stubQuoter{price: dec("100")}
	calc := NewCalculator(models.FeeConfig{SpreadPercentage: dec("0.6")}, quoter, stubCurrencies{spreadOverride: &override})

	cq, err := calc.FixedFiat(context.Background(), fiatRequest("100"))
	require.NoError(t, err)

	assertDecimal(t, "80", quoter.fiatRequests[0])
	assertDecimal(t, "125", cq.Quote.PerUnitPriceWithSpread)
}

func TestFixedCrypto_ProcessingFeeSolvedOnFinalAmount(t *testing.T) {
	quoter := &stubQuoter{price: dec("10")}
	calc := NewCalculator(models.FeeConfig{DynamicCreditCardFeePercentage: dec("0.36")}, quoter, stubCurrencies{})

	cq, err := calc.FixedCrypto(context.Background(), cryptoRequest("10"))
	require.NoError(t, err)

	require.Len(t, quoter.cryptoRequests, 1)
	assertDecimal(t, "10", quoter.cryptoRequests[0])
	assertDecimal(t, "56.25", cq.Quote.ProcessingFeeInFiat)
	assertDecimal(t, "156.25", cq.Quote.TotalFiatAmount)
	assertDecimal(t, "10", cq.Quote.TotalCryptoQuantity)
	assertDecimal(t, "100", cq.Quote.AmountPreSpread)
}

func TestFixedCrypto_AmountPreSpreadIncludesSpread(t *testing.T) {
	quoter := &stubQuoter{price: dec("10")}
	calc := NewCalculator(models.FeeConfig{SpreadPercentage: dec("0.1")}, quoter, stubCurrencies{})

	cq, err := calc.FixedCrypto(context.Background(), cryptoRequest("10"))
	require.NoError(t, err)

	assertDecimal(t, "110", cq.Quote.AmountPreSpread)
	assertDecimal(t, "11", cq.Quote.PerUnitPriceWithSpread)
	assertDecimal(t, "110", cq.Quote.TotalFiatAmount)
}

func TestRoundTripFixedFiatThenFixedCrypto(t *testing.T) {
	fees := models.FeeConfig{
		SpreadPercentage:               dec("0.01"),
		FlatFeeDollars:                 dec("1"),
		DynamicCreditCardFeePercentage: dec("0.035"),
		FixedCreditCardFee:             dec("0.3"),
	}

	for _, amount := range []string{"25", "100", "1234.56"} {
		t.Run(amount, func(t *testing.T) {
			quoter := &stubQuoter{price: dec("2000"), networkFee: dec("2")}
			calc := NewCalculator(fees, quoter, stubCurrencies{})

			fiatQuote, err := calc.FixedFiat(context.Background(), fiatRequest(amount))
			require.NoError(t, err)

			cryptoQuote, err := calc.FixedCrypto(context.Background(), cryptoRequest(fiatQuote.Quote.TotalCryptoQuantity.String()))
			require.NoError(t, err)

			diff := fiatQuote.Quote.TotalFiatAmount.Sub(cryptoQuote.Quote.TotalFiatAmount).Abs()
			assert.True(t, diff.LessThanOrEqual(dec("0.02")), "round trip drifted by %s", diff)
		})
	}
}

func TestWalletTransferAlwaysWaivesNetworkFee(t *testing.T) {
	tests := []struct {
		name     string
		discount *models.Discount
	}{
		{"no discount supplied", nil},
		{"partial discount supplied", &models.Discount{NetworkFeePercent: dec("0.25")}},
		{"zero discount supplied", &models.Discount{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quoter := &stubQuoter{price: dec("2000"), networkFee: dec("2")}
			calc := NewCalculator(models.FeeConfig{}, quoter, stubCurrencies{})

			req := fiatRequest("100")
			req.TransactionType = models.TransactionTypeWalletTransfer
			req.Discount = tt.discount

			cq, err := calc.FixedFiat(context.Background(), req)
			require.NoError(t, err)

			assertDecimal(t, "2", cq.DiscountsGiven.NetworkFeeDiscount)
			assertDecimal(t, "0", cq.Quote.NetworkFeeInFiat)
			assertDecimal(t, "2", cq.NonDiscountedQuote.NetworkFeeInFiat)
		})
	}
}

func assertWithinCent(t *testing.T, want, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	diff := want.Sub(got).Abs()
	assert.True(t, diff.LessThanOrEqual(dec("0.01")), append([]interface{}{"want %s, got %s", want.String(), got.String()}, msgAndArgs...)...)
}

func TestDiscountGivenMatchesQuoteDifference(t *testing.T) {
	fees := models.FeeConfig{
		SpreadPercentage:               dec("0.02"),
		FlatFeeDollars:                 dec("1"),
		DynamicCreditCardFeePercentage: dec("0.03"),
		FixedCreditCardFee:             dec("0.3"),
	}

	tests := []struct {
		name     string
		discount models.Discount
	}{
		{"spread only", models.Discount{SpreadPercent: dec("0.5")}},
		{"platform only", models.Discount{PlatformFeePercent: dec("1")}},
		{"processing only", models.Discount{ProcessingFeePercent: dec("0.3")}},
		{"fixed credit card only", models.Discount{FixedCreditCardFeePercent: dec("0.5")}},
		{"network only", models.Discount{NetworkFeePercent: dec("0.75")}},
	}

	for _, tt := range tests {
		for _, side := range []models.FixedSide{models.FixedSideFiat, models.FixedSideCrypto} {
			t.Run(tt.name+"/"+string(side), func(t *testing.T) {
				quoter := &stubQuoter{price: dec("1000"), networkFee: dec("2")}
				calc := NewCalculator(fees, quoter, stubCurrencies{})

				d := tt.discount
				var cq *models.CombinedQuote
				var err error
				if side == models.FixedSideFiat {
					req := fiatRequest("100")
					req.Discount = &d
					cq, err = calc.FixedFiat(context.Background(), req)
				} else {
					req := cryptoRequest("0.1")
					req.Discount = &d
					cq, err = calc.FixedCrypto(context.Background(), req)
				}
				require.NoError(t, err)

				q, nd, given := cq.Quote, cq.NonDiscountedQuote, cq.DiscountsGiven

				assertDecimal(t, nd.NetworkFeeInFiat.Sub(q.NetworkFeeInFiat).String(), given.NetworkFeeDiscount)
				assertDecimal(t, nd.PlatformFeeInFiat.Sub(q.PlatformFeeInFiat).String(), given.PlatformFeeDiscount)
				assertDecimal(t, nd.ProcessingFeeInFiat.Sub(q.ProcessingFeeInFiat).String(),
					given.ProcessingFeeDiscount.Add(given.FixedCreditCardFeeDiscount))
				assertWithinCent(t, q.TotalCryptoQuantity.Mul(nd.PerUnitPriceWithSpread.Sub(q.PerUnitPriceWithSpread)),
					given.SpreadDiscount)

				checks := []struct {
					component string
					percent   decimal.Decimal
					given     decimal.Decimal
				}{
					{"spread", d.SpreadPercent, given.SpreadDiscount},
					{"platform", d.PlatformFeePercent, given.PlatformFeeDiscount},
					{"processing", d.ProcessingFeePercent, given.ProcessingFeeDiscount},
					{"fixed credit card", d.FixedCreditCardFeePercent, given.FixedCreditCardFeeDiscount},
					{"network", d.NetworkFeePercent, given.NetworkFeeDiscount},
				}
				for _, c := range checks {
					switch {
					case !c.percent.IsZero():
						assert.True(t, c.given.IsPositive(), "%s not discounted", c.component)
					case side == models.FixedSideCrypto && c.component == "processing":
						// the processing fee follows the final charge down
						assert.False(t, c.given.IsNegative(), "processing discount negative: %s", c.given)
					default:
						assert.True(t, c.given.IsZero(), "%s discounted without a percent: %s", c.component, c.given)
					}
				}

				if side == models.FixedSideCrypto {
					assertWithinCent(t, nd.TotalFiatAmount.Sub(q.TotalFiatAmount), given.Total())
				}
			})
		}
	}
}

func TestFixedCrypto_ProcessingDiscountIsFeeDifference(t *testing.T) {
	fees := models.FeeConfig{
		DynamicCreditCardFeePercentage: dec("0.03"),
		FixedCreditCardFee:             dec("0.3"),
	}
	quoter := &stubQuoter{price: dec("1000")}
	calc := NewCalculator(fees, quoter, stubCurrencies{})

	req := cryptoRequest("0.103")
	req.Discount = &models.Discount{ProcessingFeePercent: dec("0.5")}
	cq, err := calc.FixedCrypto(context.Background(), req)
	require.NoError(t, err)

	assertDecimal(t, "3.49", cq.NonDiscountedQuote.ProcessingFeeInFiat)
	assertDecimal(t, "1.87", cq.Quote.ProcessingFeeInFiat)
	assertDecimal(t, "1.62", cq.DiscountsGiven.ProcessingFeeDiscount)
	assertDecimal(t, "0", cq.DiscountsGiven.FixedCreditCardFeeDiscount)
	assertDecimal(t, "1.62", cq.DiscountsGiven.Total())
}

func TestNoDiscountProducesIdenticalQuotes(t *testing.T) {
	fees := models.FeeConfig{
		SpreadPercentage:               dec("0.02"),
		FlatFeeDollars:                 dec("1"),
		DynamicCreditCardFeePercentage: dec("0.03"),
		FixedCreditCardFee:             dec("0.3"),
	}
	quoter := &stubQuoter{price: dec("1000"), networkFee: dec("2")}
	calc := NewCalculator(fees, quoter, stubCurrencies{})

	cq, err := calc.FixedFiat(context.Background(), fiatRequest("100"))
	require.NoError(t, err)

	assertDecimal(t, cq.NonDiscountedQuote.TotalFiatAmount.String(), cq.Quote.TotalFiatAmount)
	assertDecimal(t, cq.NonDiscountedQuote.TotalCryptoQuantity.String(), cq.Quote.TotalCryptoQuantity)
	assertDecimal(t, cq.NonDiscountedQuote.ProcessingFeeInFiat.String(), cq.Quote.ProcessingFeeInFiat)
	assertDecimal(t, cq.NonDiscountedQuote.PerUnitPriceWithSpread.String(), cq.Quote.PerUnitPriceWithSpread)
	assert.True(t, cq.DiscountsGiven.Total().IsZero())
	assert.Len(t, quoter.fiatRequests, 1)
}

// Compound discounts are pinned to hand-computed fixtures rather than re-derived.
func TestCompoundDiscountGolden(t *testing.T) {
	fees := models.FeeConfig{
		SpreadPercentage:               dec("0.02"),
		FlatFeeDollars:                 dec("1"),
		DynamicCreditCardFeePercentage: dec("0.03"),
		FixedCreditCardFee:             dec("0.3"),
	}
	discount := &models.Discount{
		SpreadPercent:             dec("0.5"),
		PlatformFeePercent:        dec("0.5"),
		ProcessingFeePercent:      dec("0.5"),
		FixedCreditCardFeePercent: dec("1"),
		NetworkFeePercent:         dec("0.5"),
	}

	t.Run("fixed fiat", func(t *testing.T) {
		quoter := &stubQuoter{price: dec("1000"), networkFee: dec("2")}
		calc := NewCalculator(fees, quoter, stubCurrencies{})

		req := fiatRequest("100")
		req.Discount = discount
		cq, err := calc.FixedFiat(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, quoter.fiatRequests, 1)
		assertDecimal(t, "96.0396039603960396", quoter.fiatRequests[0])

		q := cq.Quote
		assertDecimal(t, "1", q.NetworkFeeInFiat)
		assertDecimal(t, "0.5", q.PlatformFeeInFiat)
		assertDecimal(t, "1.5", q.ProcessingFeeInFiat)
		assertDecimal(t, "97", q.AmountPreSpread)
		assertDecimal(t, "100", q.TotalFiatAmount)
		assertDecimal(t, "0.0960396", q.TotalCryptoQuantity)
		assertDecimal(t, "1010", q.PerUnitPriceWithSpread)

		nd := cq.NonDiscountedQuote
		assertDecimal(t, "2", nd.NetworkFeeInFiat)
		assertDecimal(t, "1", nd.PlatformFeeInFiat)
		assertDecimal(t, "3.3", nd.ProcessingFeeInFiat)
		assertDecimal(t, "93.7", nd.AmountPreSpread)
		assertDecimal(t, "0.09186275", nd.TotalCryptoQuantity)
		assertDecimal(t, "1020", nd.PerUnitPriceWithSpread)
		assertDecimal(t, "1000", nd.PerUnitPriceWithoutSpread)

		g := cq.DiscountsGiven
		assertDecimal(t, "1", g.NetworkFeeDiscount)
		assertDecimal(t, "0.5", g.PlatformFeeDiscount)
		assertDecimal(t, "1.5", g.ProcessingFeeDiscount)
		assertDecimal(t, "0.3", g.FixedCreditCardFeeDiscount)
		assertDecimal(t, "0.96", g.SpreadDiscount)
		assertDecimal(t, "4.26", g.Total())
	})

	t.Run("fixed crypto", func(t *testing.T) {
		quoter := &stubQuoter{price: dec("1000"), networkFee: dec("2")}
		calc := NewCalculator(fees, quoter, stubCurrencies{})

		req := cryptoRequest("0.1")
		req.Discount = discount
		cq, err := calc.FixedCrypto(context.Background(), req)
		require.NoError(t, err)

		require.Len(t, quoter.cryptoRequests, 1)

		q := cq.Quote
		assertDecimal(t, "101", q.AmountPreSpread)
		assertDecimal(t, "1.56", q.ProcessingFeeInFiat)
		assertDecimal(t, "104.06", q.TotalFiatAmount)
		assertDecimal(t, "0.1", q.TotalCryptoQuantity)

		nd := cq.NonDiscountedQuote
		assertDecimal(t, "102", nd.AmountPreSpread)
		assertDecimal(t, "3.56", nd.ProcessingFeeInFiat)
		assertDecimal(t, "108.56", nd.TotalFiatAmount)

		g := cq.DiscountsGiven
		assertDecimal(t, "1", g.NetworkFeeDiscount)
		assertDecimal(t, "0.5", g.PlatformFeeDiscount)
		assertDecimal(t, "1.7", g.ProcessingFeeDiscount)
		assertDecimal(t, "0.3", g.FixedCreditCardFeeDiscount)
		assertDecimal(t, "1", g.SpreadDiscount)
		assertDecimal(t, "4.5", g.Total())
		assertDecimal(t, nd.TotalFiatAmount.Sub(q.TotalFiatAmount).String(), g.Total())
	})
}

func TestValidationFailures(t *testing.T) {
	quoter := &stubQuoter{price: dec("1000")}
	calc := NewCalculator(models.FeeConfig{FlatFeeDollars: dec("5")}, quoter, stubCurrencies{})

	nullFiat := fiatRequest("1")
	nullFiat.FiatAmount = decimal.NullDecimal{}

	nullCrypto := cryptoRequest("1")
	nullCrypto.CryptoQuantity = decimal.NullDecimal{}

	badFiat := fiatRequest("100")
	badFiat.FiatCurrency = "JPY"

	badCrypto := fiatRequest("100")
	badCrypto.CryptoCurrency = "DOGE"

	badDiscount := fiatRequest("100")
	badDiscount.Discount = &models.Discount{SpreadPercent: dec("1.5")}

	tests := []struct {
		name string
		run  func() error
	}{
		{"null fiat amount", func() error { _, err := calc.FixedFiat(context.Background(), nullFiat); return err }},
		{"null crypto quantity", func() error { _, err := calc.FixedCrypto(context.Background(), nullCrypto); return err }},
		{"negative fiat", func() error { _, err := calc.FixedFiat(context.Background(), fiatRequest("-1")); return err }},
		{"unsupported fiat", func() error { _, err := calc.FixedFiat(context.Background(), badFiat); return err }},
		{"unsupported crypto", func() error { _, err := calc.FixedFiat(context.Background(), badCrypto); return err }},
		{"discount out of range", func() error { _, err := calc.FixedFiat(context.Background(), badDiscount); return err }},
		{"fees exceed amount", func() error { _, err := calc.FixedFiat(context.Background(), fiatRequest("4")); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "got %v", err)
		})
	}
	assert.Empty(t, quoter.fiatRequests)
	assert.Empty(t, quoter.cryptoRequests)
}

func TestUpstreamFailureIsRetryable(t *testing.T) {
	quoter := &stubQuoter{price: dec("1000"), err: errors.New("connection reset")}
	calc := NewCalculator(models.FeeConfig{}, quoter, stubCurrencies{})

	_, err := calc.FixedFiat(context.Background(), fiatRequest("100"))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstream))
	assert.True(t, apperrors.IsRetryable(err))
	assert.NotContains(t, apperrors.SafeMessage(err), "connection reset")
}
