package testutil

import (
	"context"
	"strings"
	"sync"

	"prime-conversion-go/internal/routing"

	"github.com/shopspring/decimal"
)

// FakeRouter routes at a fixed exchange rate and records every request.
// FakeRouterAddress is the contract FakeRouter routes withdrawals through.
const FakeRouterAddress = "0xrouter"

type FakeRouter struct {
	mu sync.Mutex

	Intermediary string
	Rate         decimal.Decimal
	Err          error
	Requests     []routing.RouteRequest
}

// NewFakeRouter returns a router converting intermediary units at rate.
func NewFakeRouter(intermediary string, rate decimal.Decimal) *FakeRouter {
	return &FakeRouter{Intermediary: strings.ToUpper(intermediary), Rate: rate}
}

func (r *FakeRouter) GetIntermediaryLeg() string {
	return r.Intermediary
}

func (r *FakeRouter) Route(_ context.Context, req routing.RouteRequest) (*routing.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = append(r.Requests, req)
	if r.Err != nil {
		return nil, r.Err
	}
	route := &routing.Route{
		AssetQuantity: req.SourceQuantity.Mul(r.Rate),
		ExchangeRate:  r.Rate,
	}
	if req.DestinationAddress != "" {
		route.SmartContractData = []byte("swap:" + req.TargetAsset + ":" + req.DestinationAddress)
		route.ContractAddress = FakeRouterAddress
	}
	return route, nil
}

var _ routing.Provider = (*FakeRouter)(nil)
