package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/shopspring/decimal"
)

// FakeLedger is an in-memory ConsumerLedger. Sellers may go negative; withdrawals
// may not.
type FakeLedger struct {
	mu sync.Mutex

	participants map[string]*models.Participant
	balances     map[string]map[string]decimal.Decimal
	trades       map[string]*models.LedgerTrade
	tradeKeys    map[string]string
	debits       map[string]store.DebitWithdrawalParams
	reversed     map[string]bool

	Debits    []store.DebitWithdrawalParams
	Reversals []string
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		participants: make(map[string]*models.Participant),
		balances:     make(map[string]map[string]decimal.Decimal),
		trades:       make(map[string]*models.LedgerTrade),
		tradeKeys:    make(map[string]string),
		debits:       make(map[string]store.DebitWithdrawalParams),
		reversed:     make(map[string]bool),
	}
}

// Credit adds to a participant's balance directly.
func (l *FakeLedger) Credit(participantId, asset string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.add(participantId, asset, amount)
}

func (l *FakeLedger) add(participantId, asset string, amount decimal.Decimal) {
	if l.balances[participantId] == nil {
		l.balances[participantId] = make(map[string]decimal.Decimal)
	}
	asset = strings.ToUpper(asset)
	l.balances[participantId][asset] = l.balances[participantId][asset].Add(amount)
}

func (l *FakeLedger) GetParticipants(_ context.Context) ([]models.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Participant, 0, len(l.participants))
	for _, p := range l.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (l *FakeLedger) GetParticipantById(_ context.Context, participantId string) (*models.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.participants[participantId]
	if !ok {
		return nil, store.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *FakeLedger) GetParticipantByEmail(_ context.Context, email string) (*models.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.participants {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrParticipantNotFound
}

func (l *FakeLedger) CreateParticipant(_ context.Context, participantId, name, email string) (*models.Participant, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.participants {
		if p.Id == participantId || strings.EqualFold(p.Email, email) {
			return nil, store.ErrParticipantExists
		}
	}
	now := time.Now()
	p := &models.Participant{Id: participantId, Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	l.participants[participantId] = p
	cp := *p
	return &cp, nil
}

func (l *FakeLedger) RecordTrade(_ context.Context, params store.RecordTradeParams) (*models.LedgerTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id, ok := l.tradeKeys[params.IdempotencyKey]; ok {
		cp := *l.trades[id]
		return &cp, nil
	}
	if _, ok := l.participants[params.BuyerId]; !ok {
		return nil, store.ErrParticipantNotFound
	}

	trade := &models.LedgerTrade{
		Id:             fmt.Sprintf("trade-%d", len(l.trades)+1),
		IdempotencyKey: params.IdempotencyKey,
		BuyerId:        params.BuyerId,
		SellerId:       params.SellerId,
		Asset:          strings.ToUpper(params.Asset),
		Amount:         params.Amount,
		QuoteCurrency:  params.QuoteCurrency,
		QuoteAmount:    params.QuoteAmount,
		Price:          params.Price,
		Status:         models.LedgerTradeSettled,
		CreatedAt:      time.Now(),
	}
	l.trades[trade.Id] = trade
	l.tradeKeys[params.IdempotencyKey] = trade.Id
	l.add(params.BuyerId, params.Asset, params.Amount)
	l.add(params.SellerId, params.Asset, params.Amount.Neg())

	cp := *trade
	return &cp, nil
}

func (l *FakeLedger) GetTrade(_ context.Context, tradeId string) (*models.LedgerTrade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	trade, ok := l.trades[tradeId]
	if !ok {
		return nil, store.ErrTradeNotFound
	}
	cp := *trade
	return &cp, nil
}

func (l *FakeLedger) DebitWithdrawal(_ context.Context, params store.DebitWithdrawalParams) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.debits[params.IdempotencyKey]; ok {
		return nil
	}
	if _, ok := l.participants[params.ParticipantId]; !ok {
		return store.ErrParticipantNotFound
	}
	balance := l.balances[params.ParticipantId][strings.ToUpper(params.Asset)]
	if balance.LessThan(params.Amount) {
		return store.ErrInsufficientBalance
	}

	l.add(params.ParticipantId, params.Asset, params.Amount.Neg())
	l.debits[params.IdempotencyKey] = params
	l.Debits = append(l.Debits, params)
	return nil
}

func (l *FakeLedger) ReverseWithdrawal(_ context.Context, idempotencyKey string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	debit, ok := l.debits[idempotencyKey]
	if !ok {
		return store.ErrWithdrawalNotFound
	}
	if l.reversed[idempotencyKey] {
		return nil
	}

	l.add(debit.ParticipantId, debit.Asset, debit.Amount)
	l.reversed[idempotencyKey] = true
	l.Reversals = append(l.Reversals, idempotencyKey)
	return nil
}

func (l *FakeLedger) GetBalance(_ context.Context, participantId, asset string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[participantId][strings.ToUpper(asset)], nil
}

func (l *FakeLedger) GetAllBalances(_ context.Context, participantId string) ([]models.AccountBalance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.AccountBalance, 0, len(l.balances[participantId]))
	for asset, balance := range l.balances[participantId] {
		out = append(out, models.AccountBalance{
			ParticipantId: participantId,
			Asset:         asset,
			Balance:       balance,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (l *FakeLedger) Close() {}

var _ store.ConsumerLedger = (*FakeLedger)(nil)
