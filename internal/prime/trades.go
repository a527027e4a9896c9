package prime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/store"

	"github.com/coinbase-samples/prime-sdk-go/orders"
	"go.uber.org/zap"
)

// Internal trades between participants settle in the consumer ledger and are
// distinguished from Prime order IDs by this prefix.
const ledgerTradePrefix = "ledger:"

// Prime order states.
const (
	orderStatusOpen      = "OPEN"
	orderStatusPending   = "PENDING"
	orderStatusFilled    = "FILLED"
	orderStatusCancelled = "CANCELLED"
	orderStatusExpired   = "EXPIRED"
	orderStatusFailed    = "FAILED"
)

func (s *Service) ExecuteTrade(ctx context.Context, req gateway.TradeRequest) (string, error) {
	trade, err := s.ledger.RecordTrade(ctx, store.RecordTradeParams{
		IdempotencyKey: req.IdempotencyId,
		BuyerId:        req.BuyerId,
		SellerId:       req.SellerId,
		Asset:          req.BaseCurrency,
		Amount:         req.BaseAmount,
		QuoteCurrency:  req.QuoteCurrency,
		QuoteAmount:    req.QuoteAmount,
		Price:          req.Price,
	})
	if err != nil {
		zap.L().Error("Failed to record internal trade",
			zap.String("buyer_id", req.BuyerId),
			zap.String("asset", req.BaseCurrency),
			zap.String("amount", req.BaseAmount.String()),
			zap.Error(err))
		return "", fmt.Errorf("unable to record trade: %w", err)
	}

	zap.L().Info("Internal trade recorded",
		zap.String("trade_id", trade.Id),
		zap.String("buyer_id", req.BuyerId),
		zap.String("seller_id", req.SellerId),
		zap.String("asset", req.BaseCurrency),
		zap.String("amount", req.BaseAmount.String()))

	return ledgerTradePrefix + trade.Id, nil
}

func (s *Service) CheckTradeStatus(ctx context.Context, tradeId string) (*gateway.TradeStatus, error) {
	if id, ok := strings.CutPrefix(tradeId, ledgerTradePrefix); ok {
		trade, err := s.ledger.GetTrade(ctx, id)
		if errors.Is(err, store.ErrTradeNotFound) {
			return nil, fmt.Errorf("%w: %s", gateway.ErrTradeNotFound, tradeId)
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read trade: %w", err)
		}
		settledAt := trade.CreatedAt
		return &gateway.TradeStatus{
			State:     gateway.TradeStateTerminated,
			Settled:   true,
			SettledAt: &settledAt,
		}, nil
	}

	response, err := s.ordersSvc.GetOrder(ctx, &orders.GetOrderRequest{
		PortfolioId: s.portfolioId,
		OrderId:     tradeId,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get order: %w", err)
	}
	if response.Order == nil {
		return nil, fmt.Errorf("%w: %s", gateway.ErrTradeNotFound, tradeId)
	}

	return orderTradeStatus(response.Order.Status), nil
}

func orderTradeStatus(status string) *gateway.TradeStatus {
	switch strings.ToUpper(status) {
	case orderStatusOpen, orderStatusPending:
		return &gateway.TradeStatus{State: gateway.TradeStateActive}
	case orderStatusFilled:
		return &gateway.TradeStatus{State: gateway.TradeStateTerminated, Settled: true}
	case orderStatusCancelled, orderStatusExpired, orderStatusFailed:
		return &gateway.TradeStatus{
			State:        gateway.TradeStateTerminated,
			ErrorMessage: fmt.Sprintf("Order %s.", strings.ToLower(status)),
		}
	default:
		return &gateway.TradeStatus{State: strings.ToLower(status)}
	}
}
