package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"prime-conversion-go/internal/gateway"

	"github.com/shopspring/decimal"
)

// Operation names used by FakeGateway for error injection and call counting.
const (
	OpEstimateNetworkFee = "EstimateNetworkFee"
	OpRequestQuote       = "RequestQuote"
	OpExecuteQuote       = "ExecuteQuote"
	OpExecuteTrade       = "ExecuteTrade"
	OpCheckTradeStatus   = "CheckTradeStatus"
	OpTransferAssets     = "TransferAssets"
	OpGetTransfer        = "GetTransfer"
	OpRequestWithdrawal  = "RequestWithdrawal"
	OpGetWithdrawal      = "GetWithdrawal"
	OpGetParticipant     = "GetParticipantByEmail"
	OpCreateParticipant  = "CreateParticipant"
)

// FakeGateway is an in-memory LiquidityProviderGateway. Creation calls are keyed by
// idempotency ID: repeating an ID returns the original handle without creating a
// second leg.
type FakeGateway struct {
	mu sync.Mutex

	Price       decimal.Decimal
	FeeInCrypto decimal.Decimal
	QuoteTTL    time.Duration
	Now         func() time.Time

	// ExecutedPair overrides the pair reported by ExecuteQuote, e.g. "BTC-USD".
	ExecutedPair string

	Errors map[string]error

	TradeStatuses map[string]*gateway.TradeStatus
	Transfers     map[string]*gateway.Transfer
	Withdrawals   map[string]*gateway.Withdrawal

	FiatQuoteRequests   []decimal.Decimal
	CryptoQuoteRequests []decimal.Decimal
	TradeRequests       []gateway.TradeRequest
	TransferRequests    []gateway.TransferRequest
	WithdrawalRequests  []gateway.WithdrawalRequest

	calls        map[string]int
	created      map[string]int
	quotes       map[string]*gateway.ProviderQuote
	quoteFills   map[string]decimal.Decimal
	executions   map[string]*gateway.TradeExecution
	idempotent   map[string]string
	participants map[string]*gateway.Participant
	seq          int
}

// NewFakeGateway returns a gateway quoting every asset at price.
func NewFakeGateway(price decimal.Decimal) *FakeGateway {
	return &FakeGateway{
		Price:         price,
		QuoteTTL:      5 * time.Minute,
		Now:           time.Now,
		Errors:        make(map[string]error),
		TradeStatuses: make(map[string]*gateway.TradeStatus),
		Transfers:     make(map[string]*gateway.Transfer),
		Withdrawals:   make(map[string]*gateway.Withdrawal),
		calls:         make(map[string]int),
		created:       make(map[string]int),
		quotes:        make(map[string]*gateway.ProviderQuote),
		quoteFills:    make(map[string]decimal.Decimal),
		executions:    make(map[string]*gateway.TradeExecution),
		idempotent:    make(map[string]string),
		participants:  make(map[string]*gateway.Participant),
	}
}

// Calls returns how many times op was invoked.
func (f *FakeGateway) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Created returns how many distinct legs op created.
func (f *FakeGateway) Created(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[op]
}

// AddParticipant registers an existing provider participant.
func (f *FakeGateway) AddParticipant(p gateway.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.participants[strings.ToLower(p.Email)] = &p
}

func (f *FakeGateway) begin(op string) error {
	f.calls[op]++
	return f.Errors[op]
}

func (f *FakeGateway) nextId(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

// once returns the handle already created for key, or creates one with create.
func (f *FakeGateway) once(op, key string, create func() string) string {
	k := op + ":" + key
	if id, ok := f.idempotent[k]; ok {
		return id
	}
	id := create()
	f.idempotent[k] = id
	f.created[op]++
	return id
}

func (f *FakeGateway) EstimateNetworkFee(_ context.Context, _, _ string) (*gateway.NetworkFee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpEstimateNetworkFee); err != nil {
		return nil, err
	}
	return &gateway.NetworkFee{
		FeeInCrypto: f.FeeInCrypto,
		FeeInFiat:   f.FeeInCrypto.Mul(f.Price),
	}, nil
}

func (f *FakeGateway) newQuote(crypto, fiat string, fill decimal.Decimal) *gateway.ProviderQuote {
	q := &gateway.ProviderQuote{
		QuoteId:        f.nextId("quote"),
		CryptoCurrency: strings.ToUpper(crypto),
		FiatCurrency:   strings.ToUpper(fiat),
		PerUnitPrice:   f.Price,
		ExpiresAt:      f.Now().Add(f.QuoteTTL),
	}
	f.quotes[q.QuoteId] = q
	f.quoteFills[q.QuoteId] = fill
	return q
}

func (f *FakeGateway) RequestQuoteFixedFiat(_ context.Context, crypto, fiat string, fiatAmount decimal.Decimal) (*gateway.ProviderQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpRequestQuote); err != nil {
		return nil, err
	}
	f.FiatQuoteRequests = append(f.FiatQuoteRequests, fiatAmount)
	return f.newQuote(crypto, fiat, fiatAmount.DivRound(f.Price, 8)), nil
}

func (f *FakeGateway) RequestQuoteFixedCrypto(_ context.Context, crypto, fiat string, cryptoQuantity decimal.Decimal) (*gateway.ProviderQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpRequestQuote); err != nil {
		return nil, err
	}
	f.CryptoQuoteRequests = append(f.CryptoQuoteRequests, cryptoQuantity)
	return f.newQuote(crypto, fiat, cryptoQuantity), nil
}

func (f *FakeGateway) ExecuteQuote(_ context.Context, quoteId, idempotencyId string) (*gateway.TradeExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpExecuteQuote); err != nil {
		return nil, err
	}
	if exec, ok := f.executions[idempotencyId]; ok {
		return exec, nil
	}
	q, ok := f.quotes[quoteId]
	if !ok || f.Now().After(q.ExpiresAt) {
		return nil, gateway.ErrQuoteNotFound
	}

	crypto, fiat := q.CryptoCurrency, q.FiatCurrency
	if f.ExecutedPair != "" {
		parts := strings.SplitN(f.ExecutedPair, "-", 2)
		crypto, fiat = parts[0], parts[1]
	}
	tradeId := f.once(OpExecuteQuote, idempotencyId, func() string { return f.nextId("trade") })
	exec := &gateway.TradeExecution{
		TradeId:        tradeId,
		CryptoCurrency: crypto,
		FiatCurrency:   fiat,
		TradePrice:     q.PerUnitPrice,
		CryptoReceived: f.quoteFills[quoteId],
	}
	f.executions[idempotencyId] = exec
	if _, ok := f.TradeStatuses[tradeId]; !ok {
		f.TradeStatuses[tradeId] = &gateway.TradeStatus{State: gateway.TradeStateAccepted}
	}
	return exec, nil
}

func (f *FakeGateway) ExecuteTrade(_ context.Context, req gateway.TradeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpExecuteTrade); err != nil {
		return "", err
	}
	return f.once(OpExecuteTrade, req.IdempotencyId, func() string {
		f.TradeRequests = append(f.TradeRequests, req)
		id := f.nextId("internal-trade")
		f.TradeStatuses[id] = &gateway.TradeStatus{State: gateway.TradeStateAccepted}
		return id
	}), nil
}

func (f *FakeGateway) CheckTradeStatus(_ context.Context, tradeId string) (*gateway.TradeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCheckTradeStatus); err != nil {
		return nil, err
	}
	s, ok := f.TradeStatuses[tradeId]
	if !ok {
		return nil, gateway.ErrTradeNotFound
	}
	copied := *s
	return &copied, nil
}

// SettleTrade marks a trade terminated and settled at the given time.
func (f *FakeGateway) SettleTrade(tradeId string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TradeStatuses[tradeId] = &gateway.TradeStatus{State: gateway.TradeStateTerminated, Settled: true, SettledAt: &at}
}

func (f *FakeGateway) TransferAssets(_ context.Context, req gateway.TransferRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpTransferAssets); err != nil {
		return "", err
	}
	return f.once(OpTransferAssets, req.IdempotencyId, func() string {
		f.TransferRequests = append(f.TransferRequests, req)
		id := f.nextId("transfer")
		f.Transfers[id] = &gateway.Transfer{Status: gateway.TransferStatusPending}
		return id
	}), nil
}

func (f *FakeGateway) GetTransfer(_ context.Context, transferId string) (*gateway.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpGetTransfer); err != nil {
		return nil, err
	}
	t, ok := f.Transfers[transferId]
	if !ok {
		return nil, gateway.ErrTransferNotFound
	}
	copied := *t
	return &copied, nil
}

// SetTransfer replaces the provider state of a transfer.
func (f *FakeGateway) SetTransfer(transferId string, t gateway.Transfer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Transfers[transferId] = &t
}

func (f *FakeGateway) RequestWithdrawal(_ context.Context, req gateway.WithdrawalRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpRequestWithdrawal); err != nil {
		return "", err
	}
	return f.once(OpRequestWithdrawal, req.IdempotencyId, func() string {
		f.WithdrawalRequests = append(f.WithdrawalRequests, req)
		id := f.nextId("withdrawal")
		f.Withdrawals[id] = &gateway.Withdrawal{
			WithdrawalStatus: gateway.WithdrawalStatusPending,
			RequestedAmount:  req.Amount,
		}
		return id
	}), nil
}

func (f *FakeGateway) GetWithdrawal(_ context.Context, withdrawalId string) (*gateway.Withdrawal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpGetWithdrawal); err != nil {
		return nil, err
	}
	w, ok := f.Withdrawals[withdrawalId]
	if !ok {
		return nil, gateway.ErrWithdrawalNotFound
	}
	copied := *w
	return &copied, nil
}

// SetWithdrawal replaces the provider state of a withdrawal.
func (f *FakeGateway) SetWithdrawal(withdrawalId string, w gateway.Withdrawal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Withdrawals[withdrawalId] = &w
}

func (f *FakeGateway) GetParticipantByEmail(_ context.Context, email string) (*gateway.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpGetParticipant); err != nil {
		return nil, err
	}
	p, ok := f.participants[strings.ToLower(email)]
	if !ok {
		return nil, gateway.ErrParticipantNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *FakeGateway) CreateParticipant(_ context.Context, req gateway.ParticipantRequest) (*gateway.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCreateParticipant); err != nil {
		return nil, err
	}
	key := strings.ToLower(req.Email)
	if _, ok := f.participants[key]; ok {
		return nil, gateway.ErrParticipantExists
	}
	p := &gateway.Participant{Id: f.nextId("participant"), Email: req.Email, Name: req.Name}
	f.participants[key] = p
	f.created[OpCreateParticipant]++
	copied := *p
	return &copied, nil
}

var _ gateway.LiquidityProviderGateway = (*FakeGateway)(nil)
