package models

import (
	"context"
)

type settlementContextKey struct{}

// SettlementContext carries the settlement being driven through context so ledger
// backends can stamp it onto their records without widening every signature.
type SettlementContext struct {
	TransactionId string
	ConsumerId    string
	Stage         string
}

// WithSettlementContext attaches settlement data to a context.
func WithSettlementContext(ctx context.Context, sc *SettlementContext) context.Context {
	return context.WithValue(ctx, settlementContextKey{}, sc)
}

// GetSettlementContext retrieves settlement data from context, or nil if absent.
func GetSettlementContext(ctx context.Context) *SettlementContext {
	sc, _ := ctx.Value(settlementContextKey{}).(*SettlementContext)
	return sc
}
