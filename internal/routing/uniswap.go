/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package routing

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const uniswapV2RouterABI = `[
{"constant":true,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"name":"getAmountsOut","outputs":[{"name":"amounts","type":"uint256[]"}],"type":"function"},
{"constant":false,"inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"name":"swapExactTokensForTokens","outputs":[{"name":"amounts","type":"uint256[]"}],"type":"function"}
]`

const basisPoints = 10000

var routerABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(uniswapV2RouterABI))
	if err != nil {
		panic(fmt.Sprintf("parse router ABI: %v", err))
	}
	routerABI = parsed
}

// ContractCaller is the subset of the Ethereum RPC used for read-only router calls.
// *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Token is an ERC-20 token the router can swap.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int32
}

// UniswapV2Config configures a UniswapV2Router.
type UniswapV2Config struct {
	RouterAddress common.Address
	Intermediary  Token
	Targets       []Token
	SlippageBps   int64
	Deadline      time.Duration
	CallTimeout   time.Duration
}

// UniswapV2Router prices swaps with getAmountsOut and builds swapExactTokensForTokens
// calldata for the intermediary token to be sent through the router.
type UniswapV2Router struct {
	caller       ContractCaller
	router       common.Address
	intermediary Token
	targets      map[string]Token
	slippageBps  int64
	deadline     time.Duration
	callTimeout  time.Duration
	now          func() time.Time
}

// NewUniswapV2Router validates the configuration and returns a router.
func NewUniswapV2Router(caller ContractCaller, cfg UniswapV2Config) (*UniswapV2Router, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller cannot be nil")
	}
	if (cfg.RouterAddress == common.Address{}) {
		return nil, fmt.Errorf("router address required")
	}
	if cfg.Intermediary.Symbol == "" || (cfg.Intermediary.Address == common.Address{}) {
		return nil, fmt.Errorf("intermediary token required")
	}
	if cfg.SlippageBps < 0 || cfg.SlippageBps >= basisPoints {
		return nil, fmt.Errorf("slippage must be between 0 and %d bps, got %d", basisPoints-1, cfg.SlippageBps)
	}

	targets := make(map[string]Token, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if (t.Address == common.Address{}) {
			return nil, fmt.Errorf("target %s missing token address", t.Symbol)
		}
		targets[strings.ToUpper(t.Symbol)] = t
	}

	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = 20 * time.Minute
	}

	return &UniswapV2Router{
		caller:       caller,
		router:       cfg.RouterAddress,
		intermediary: cfg.Intermediary,
		targets:      targets,
		slippageBps:  cfg.SlippageBps,
		deadline:     deadline,
		callTimeout:  cfg.CallTimeout,
		now:          time.Now,
	}, nil
}

func (r *UniswapV2Router) GetIntermediaryLeg() string {
	return strings.ToUpper(r.intermediary.Symbol)
}

// Route prices SourceQuantity of the intermediary through the router into the target
// token. When a destination address is given the returned route carries calldata that
// swaps with the configured slippage tolerance and delivers to that address.
func (r *UniswapV2Router) Route(ctx context.Context, req RouteRequest) (*Route, error) {
	target, ok := r.targets[strings.ToUpper(req.TargetAsset)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, req.TargetAsset)
	}
	if !req.SourceQuantity.IsPositive() {
		return nil, fmt.Errorf("source quantity must be positive, got %s", req.SourceQuantity)
	}

	amountIn := toBaseUnits(req.SourceQuantity, r.intermediary.Decimals)
	if amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("source quantity %s below token resolution", req.SourceQuantity)
	}
	path := []common.Address{r.intermediary.Address, target.Address}

	amountOut, err := r.getAmountsOut(ctx, amountIn, path)
	if err != nil {
		zap.L().Error("Failed to price swap route",
			zap.String("intermediary", r.intermediary.Symbol),
			zap.String("target", target.Symbol),
			zap.String("source_quantity", req.SourceQuantity.String()),
			zap.Error(err))
		return nil, err
	}

	quantity := fromBaseUnits(amountOut, target.Decimals)
	route := &Route{
		AssetQuantity: quantity,
		ExchangeRate:  quantity.Div(req.SourceQuantity),
	}

	if req.DestinationAddress != "" {
		if !common.IsHexAddress(req.DestinationAddress) {
			return nil, fmt.Errorf("invalid destination address %q", req.DestinationAddress)
		}
		minOut := minimumOut(amountOut, r.slippageBps)
		deadline := big.NewInt(r.now().Add(r.deadline).Unix())
		data, err := routerABI.Pack("swapExactTokensForTokens",
			amountIn, minOut, path, common.HexToAddress(req.DestinationAddress), deadline)
		if err != nil {
			return nil, fmt.Errorf("pack swap calldata: %w", err)
		}
		route.SmartContractData = data
		route.ContractAddress = r.router.Hex()
	}

	zap.L().Debug("Swap route priced",
		zap.String("intermediary", r.intermediary.Symbol),
		zap.String("target", target.Symbol),
		zap.String("source_quantity", req.SourceQuantity.String()),
		zap.String("asset_quantity", quantity.String()),
		zap.Bool("has_calldata", route.SmartContractData != nil))

	return route, nil
}

func (r *UniswapV2Router) getAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) (*big.Int, error) {
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	data, err := routerABI.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.router, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	out, err := routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return nil, fmt.Errorf("unpack getAmountsOut: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected getAmountsOut output count %d", len(out))
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) != len(path) {
		return nil, fmt.Errorf("unexpected getAmountsOut result shape")
	}

	last := amounts[len(amounts)-1]
	if last == nil || last.Sign() <= 0 {
		return nil, ErrNoLiquidity
	}
	return last, nil
}

func toBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

func fromBaseUnits(amount *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(amount, -decimals)
}

func minimumOut(amountOut *big.Int, slippageBps int64) *big.Int {
	minOut := new(big.Int).Mul(amountOut, big.NewInt(basisPoints-slippageBps))
	return minOut.Quo(minOut, big.NewInt(basisPoints))
}
