package prime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prime-conversion-go/internal/gateway"

	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	sideBuy = "BUY"

	quoteKeyPrefix     = "quote:"
	executionKeyPrefix = "execution:"
	priceKeyPrefix     = "price:"

	referencePriceTTL = 30 * time.Second
)

// quoteEntry is what the quote book keeps between RFQ and acceptance.
type quoteEntry struct {
	ProductId string
	Crypto    string
	Fiat      string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
}

func (s *Service) RequestQuoteFixedFiat(ctx context.Context, crypto, fiat string, fiatAmount decimal.Decimal) (*gateway.ProviderQuote, error) {
	request := &orders.CreateQuoteRequest{
		QuoteValue: fiatAmount.String(),
	}
	return s.requestQuote(ctx, crypto, fiat, request)
}

func (s *Service) RequestQuoteFixedCrypto(ctx context.Context, crypto, fiat string, cryptoQuantity decimal.Decimal) (*gateway.ProviderQuote, error) {
	request := &orders.CreateQuoteRequest{
		BaseQuantity: cryptoQuantity.String(),
	}
	return s.requestQuote(ctx, crypto, fiat, request)
}

func (s *Service) requestQuote(ctx context.Context, crypto, fiat string, request *orders.CreateQuoteRequest) (*gateway.ProviderQuote, error) {
	productId := s.assets.ProductId(crypto, fiat)
	request.PortfolioId = s.portfolioId
	request.ProductId = productId
	request.Side = sideBuy
	request.ClientQuoteId = uuid.New().String()

	zap.L().Debug("Requesting quote from Prime",
		zap.String("product_id", productId),
		zap.String("quote_value", request.QuoteValue),
		zap.String("base_quantity", request.BaseQuantity))

	response, err := s.ordersSvc.CreateQuoteRequest(ctx, request)
	if err != nil {
		zap.L().Error("Failed to request quote",
			zap.String("product_id", productId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to request quote: %w", err)
	}

	price, err := decimal.NewFromString(response.BestPrice)
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("quote %s has invalid price %q", response.QuoteId, response.BestPrice)
	}

	var quantity decimal.Decimal
	if request.BaseQuantity != "" {
		quantity = decimal.RequireFromString(request.BaseQuantity)
	} else {
		quantity = decimal.RequireFromString(request.QuoteValue).DivRound(price, 8)
	}

	entry := quoteEntry{
		ProductId: productId,
		Crypto:    strings.ToUpper(crypto),
		Fiat:      strings.ToUpper(fiat),
		Price:     price,
		Quantity:  quantity,
	}
	if !s.quotes.Set(quoteKeyPrefix+response.QuoteId, entry, s.quoteTTL) {
		zap.L().Warn("Quote book dropped entry", zap.String("quote_id", response.QuoteId))
	}
	s.quotes.Wait()

	return &gateway.ProviderQuote{
		QuoteId:        response.QuoteId,
		CryptoCurrency: entry.Crypto,
		FiatCurrency:   entry.Fiat,
		PerUnitPrice:   price,
		ExpiresAt:      s.now().Add(s.quoteTTL),
	}, nil
}

// ExecuteQuote accepts a previously issued quote. The idempotency ID becomes the
// client order ID. A repeated call is answered from the execution cache, or from
// the order Prime already holds under that client order ID, before a new
// acceptance is attempted.
func (s *Service) ExecuteQuote(ctx context.Context, quoteId, idempotencyId string) (*gateway.TradeExecution, error) {
	if cached, ok := s.quotes.Get(executionKeyPrefix + idempotencyId); ok {
		execution := cached.(gateway.TradeExecution)
		return &execution, nil
	}

	existing, err := s.findOrder(ctx, idempotencyId)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		execution := gateway.TradeExecution{TradeId: existing.Id}
		applyFill(&execution, existing)
		s.quotes.Set(executionKeyPrefix+idempotencyId, execution, s.quoteTTL+s.lookbackWindow)

		zap.L().Info("Quote already accepted",
			zap.String("quote_id", quoteId),
			zap.String("order_id", existing.Id),
			zap.String("client_order_id", idempotencyId))
		return &execution, nil
	}

	cached, ok := s.quotes.Get(quoteKeyPrefix + quoteId)
	if !ok {
		return nil, gateway.ErrQuoteNotFound
	}
	entry := cached.(quoteEntry)

	response, err := s.ordersSvc.AcceptQuote(ctx, &orders.AcceptQuoteRequest{
		PortfolioId:   s.portfolioId,
		ProductId:     entry.ProductId,
		Side:          sideBuy,
		ClientOrderId: idempotencyId,
		QuoteId:       quoteId,
	})
	if err != nil {
		zap.L().Error("Failed to accept quote",
			zap.String("quote_id", quoteId),
			zap.String("product_id", entry.ProductId),
			zap.Error(err))
		return nil, fmt.Errorf("unable to accept quote: %w", err)
	}

	execution := gateway.TradeExecution{
		TradeId:        response.OrderId,
		CryptoCurrency: entry.Crypto,
		FiatCurrency:   entry.Fiat,
		TradePrice:     entry.Price,
		CryptoReceived: entry.Quantity,
	}

	order, err := s.ordersSvc.GetOrder(ctx, &orders.GetOrderRequest{
		PortfolioId: s.portfolioId,
		OrderId:     response.OrderId,
	})
	if err != nil {
		zap.L().Warn("Unable to read order fill, using quoted values",
			zap.String("order_id", response.OrderId),
			zap.Error(err))
	} else if order.Order != nil {
		applyFill(&execution, order.Order)
	}

	s.quotes.Set(executionKeyPrefix+idempotencyId, execution, s.quoteTTL+s.lookbackWindow)
	s.quotes.Delete(quoteKeyPrefix + quoteId)

	zap.L().Info("Quote executed",
		zap.String("quote_id", quoteId),
		zap.String("order_id", execution.TradeId),
		zap.String("crypto_received", execution.CryptoReceived.String()),
		zap.String("trade_price", execution.TradePrice.String()))

	return &execution, nil
}

func applyFill(execution *gateway.TradeExecution, order *model.Order) {
	if crypto, fiat, ok := strings.Cut(order.ProductId, "-"); ok {
		execution.CryptoCurrency = crypto
		execution.FiatCurrency = fiat
	}
	if filled, err := decimal.NewFromString(order.FilledQuantity); err == nil && filled.IsPositive() {
		execution.CryptoReceived = filled
	}
	if avg, err := decimal.NewFromString(order.AverageFilledPrice); err == nil && avg.IsPositive() {
		execution.TradePrice = avg
	}
}

// findOrder pages through the portfolio's recent orders for one placed under
// clientOrderId. Only orders placed within the quote and lookback windows are searched.
func (s *Service) findOrder(ctx context.Context, clientOrderId string) (*model.Order, error) {
	since := s.now().UTC().Add(-(s.quoteTTL + s.lookbackWindow))

	cursor := ""
	for page := 0; page < maxListPages; page++ {
		response, err := s.ordersSvc.ListOrders(ctx, &orders.ListOrdersRequest{
			PortfolioId: s.portfolioId,
			Start:       since,
			Pagination: &model.PaginationParams{
				Cursor: cursor,
				Limit:  listPageSize,
			},
		})
		if err != nil {
			zap.L().Error("Failed to list orders",
				zap.String("client_order_id", clientOrderId),
				zap.Error(err))
			return nil, fmt.Errorf("unable to list orders: %w", err)
		}

		for _, order := range response.Orders {
			if order.ClientOrderId == clientOrderId {
				return order, nil
			}
		}

		if response.Pagination == nil || !response.Pagination.HasNext || response.Pagination.NextCursor == "" {
			return nil, nil
		}
		cursor = response.Pagination.NextCursor
	}
	return nil, nil
}

// EstimateNetworkFee prices the asset's configured withdrawal fee at a reference price.
func (s *Service) EstimateNetworkFee(ctx context.Context, crypto, fiat string) (*gateway.NetworkFee, error) {
	asset, err := s.assets.Lookup(crypto)
	if err != nil {
		return nil, err
	}
	if asset.NetworkFee.IsZero() {
		return &gateway.NetworkFee{FeeInCrypto: decimal.Zero, FeeInFiat: decimal.Zero}, nil
	}

	price, err := s.referencePrice(ctx, crypto, fiat)
	if err != nil {
		return nil, err
	}

	return &gateway.NetworkFee{
		FeeInCrypto: asset.NetworkFee,
		FeeInFiat:   asset.NetworkFee.Mul(price),
	}, nil
}

func (s *Service) referencePrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	key := priceKeyPrefix + s.assets.ProductId(crypto, fiat)
	if cached, ok := s.quotes.Get(key); ok {
		return cached.(decimal.Decimal), nil
	}

	quote, err := s.RequestQuoteFixedCrypto(ctx, crypto, fiat, decimal.NewFromInt(1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to fetch reference price: %w", err)
	}
	s.quotes.Delete(quoteKeyPrefix + quote.QuoteId)
	s.quotes.Set(key, quote.PerUnitPrice, referencePriceTTL)

	return quote.PerUnitPrice, nil
}
