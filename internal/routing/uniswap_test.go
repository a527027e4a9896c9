package routing

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRouter = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	testUSDC   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testUNI    = common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
	testWallet = "0x00000000000000000000000000000000000000aa"
)

type fakeCaller struct {
	amountOut *big.Int
	err       error
	calls     []ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return nil, f.err
	}
	args, err := routerABI.Methods["getAmountsOut"].Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	amountIn := args[0].(*big.Int)
	return routerABI.Methods["getAmountsOut"].Outputs.Pack([]*big.Int{amountIn, f.amountOut})
}

func newTestRouter(t *testing.T, caller ContractCaller) *UniswapV2Router {
	t.Helper()
	r, err := NewUniswapV2Router(caller, UniswapV2Config{
		RouterAddress: testRouter,
		Intermediary:  Token{Symbol: "USDC", Address: testUSDC, Decimals: 6},
		Targets:       []Token{{Symbol: "UNI", Address: testUNI, Decimals: 18}},
		SlippageBps:   50,
		Deadline:      10 * time.Minute,
	})
	require.NoError(t, err)
	r.now = func() time.Time { return time.Unix(1700000000, 0) }
	return r
}

func TestRoutePricesWithoutCalldata(t *testing.T) {
	// 2.5 UNI out
	caller := &fakeCaller{amountOut: new(big.Int).Mul(big.NewInt(25), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil))}
	r := newTestRouter(t, caller)

	route, err := r.Route(context.Background(), RouteRequest{
		TargetAsset:    "uni",
		SourceQuantity: decimal.RequireFromString("20"),
	})
	require.NoError(t, err)
	assert.True(t, route.AssetQuantity.Equal(decimal.RequireFromString("2.5")), route.AssetQuantity.String())
	assert.True(t, route.ExchangeRate.Equal(decimal.RequireFromString("0.125")), route.ExchangeRate.String())
	assert.Nil(t, route.SmartContractData)
	assert.Empty(t, route.ContractAddress)

	require.Len(t, caller.calls, 1)
	assert.Equal(t, testRouter, *caller.calls[0].To)
	args, err := routerABI.Methods["getAmountsOut"].Inputs.Unpack(caller.calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(20_000_000), args[0].(*big.Int))
	assert.Equal(t, []common.Address{testUSDC, testUNI}, args[1].([]common.Address))
}

func TestRouteBuildsSwapCalldata(t *testing.T) {
	caller := &fakeCaller{amountOut: big.NewInt(1_000_000)}
	r := newTestRouter(t, caller)

	route, err := r.Route(context.Background(), RouteRequest{
		TargetAsset:        "UNI",
		SourceQuantity:     decimal.RequireFromString("1.5"),
		DestinationAddress: testWallet,
	})
	require.NoError(t, err)
	require.NotEmpty(t, route.SmartContractData)
	assert.Equal(t, testRouter.Hex(), route.ContractAddress)

	method := routerABI.Methods["swapExactTokensForTokens"]
	assert.Equal(t, method.ID, route.SmartContractData[:4])

	args, err := method.Inputs.Unpack(route.SmartContractData[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), args[0].(*big.Int))
	assert.Equal(t, big.NewInt(995_000), args[1].(*big.Int))
	assert.Equal(t, []common.Address{testUSDC, testUNI}, args[2].([]common.Address))
	assert.Equal(t, common.HexToAddress(testWallet), args[3].(common.Address))
	assert.Equal(t, big.NewInt(1700000000+600), args[4].(*big.Int))
}

func TestRouteErrors(t *testing.T) {
	tests := []struct {
		name    string
		caller  *fakeCaller
		req     RouteRequest
		wantErr error
	}{
		{
			name:    "unknown target",
			caller:  &fakeCaller{amountOut: big.NewInt(1)},
			req:     RouteRequest{TargetAsset: "DOGE", SourceQuantity: decimal.NewFromInt(1)},
			wantErr: ErrUnknownTarget,
		},
		{
			name:    "no liquidity",
			caller:  &fakeCaller{amountOut: big.NewInt(0)},
			req:     RouteRequest{TargetAsset: "UNI", SourceQuantity: decimal.NewFromInt(1)},
			wantErr: ErrNoLiquidity,
		},
		{
			name:   "rpc failure",
			caller: &fakeCaller{err: errors.New("connection refused")},
			req:    RouteRequest{TargetAsset: "UNI", SourceQuantity: decimal.NewFromInt(1)},
		},
		{
			name:   "non-positive quantity",
			caller: &fakeCaller{amountOut: big.NewInt(1)},
			req:    RouteRequest{TargetAsset: "UNI", SourceQuantity: decimal.Zero},
		},
		{
			name:   "bad destination",
			caller: &fakeCaller{amountOut: big.NewInt(1)},
			req:    RouteRequest{TargetAsset: "UNI", SourceQuantity: decimal.NewFromInt(1), DestinationAddress: "not-an-address"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.caller)
			_, err := r.Route(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewUniswapV2RouterValidation(t *testing.T) {
	caller := &fakeCaller{}
	_, err := NewUniswapV2Router(nil, UniswapV2Config{})
	assert.Error(t, err)

	_, err = NewUniswapV2Router(caller, UniswapV2Config{RouterAddress: testRouter})
	assert.Error(t, err)

	_, err = NewUniswapV2Router(caller, UniswapV2Config{
		RouterAddress: testRouter,
		Intermediary:  Token{Symbol: "USDC", Address: testUSDC, Decimals: 6},
		SlippageBps:   basisPoints,
	})
	assert.Error(t, err)

	r, err := NewUniswapV2Router(caller, UniswapV2Config{
		RouterAddress: testRouter,
		Intermediary:  Token{Symbol: "usdc", Address: testUSDC, Decimals: 6},
	})
	require.NoError(t, err)
	assert.Equal(t, "USDC", r.GetIntermediaryLeg())
}

func TestMinimumOut(t *testing.T) {
	assert.Equal(t, big.NewInt(9950), minimumOut(big.NewInt(10000), 50))
	assert.Equal(t, big.NewInt(10000), minimumOut(big.NewInt(10000), 0))
	assert.Equal(t, "1.234567", fromBaseUnits(big.NewInt(1234567), 6).String())
	assert.Equal(t, big.NewInt(1234567), toBaseUnits(decimal.RequireFromString("1.2345679"), 6))
}
