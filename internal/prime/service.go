package prime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"prime-conversion-go/internal/cache"
	"prime-conversion-go/internal/currency"
	"prime-conversion-go/internal/gateway"
	"prime-conversion-go/internal/models"
	"prime-conversion-go/internal/store"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/orders"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ordersAPI is the slice of the Prime orders service used for RFQ trading.
type ordersAPI interface {
	CreateQuoteRequest(ctx context.Context, request *orders.CreateQuoteRequest) (*orders.CreateQuoteResponse, error)
	AcceptQuote(ctx context.Context, request *orders.AcceptQuoteRequest) (*orders.AcceptQuoteResponse, error)
	GetOrder(ctx context.Context, request *orders.GetOrderRequest) (*orders.GetOrderResponse, error)
	ListOrders(ctx context.Context, request *orders.ListOrdersRequest) (*orders.ListOrdersResponse, error)
}

// transactionsAPI is the slice of the Prime transactions service used for wallet movements.
type transactionsAPI interface {
	CreateWalletTransfer(ctx context.Context, request *transactions.CreateWalletTransferRequest) (*transactions.CreateWalletTransferResponse, error)
	CreateWalletWithdrawal(ctx context.Context, request *transactions.CreateWalletWithdrawalRequest) (*transactions.CreateWalletWithdrawalResponse, error)
	ListWalletTransactions(ctx context.Context, request *transactions.ListWalletTransactionsRequest) (*transactions.ListWalletTransactionsResponse, error)
}

// Service is a LiquidityProviderGateway over Coinbase Prime. Prime executes the
// operating-funds purchase and moves crypto between wallets; consumer participants,
// internal trades and custodial debits live in the consumer ledger.
type Service struct {
	client          client.RestClient
	portfoliosSvc   portfolios.PortfoliosService
	walletsSvc      wallets.WalletsService
	transactionsSvc transactionsAPI
	ordersSvc       ordersAPI

	ledger store.ConsumerLedger
	assets *currency.Registry
	quotes cache.Cache

	portfolioId    string
	quoteTTL       time.Duration
	lookbackWindow time.Duration
	now            func() time.Time
}

// Deps are the collaborators the Prime gateway records state in.
type Deps struct {
	Ledger store.ConsumerLedger
	Assets *currency.Registry
	Quotes cache.Cache
}

func NewService(creds *credentials.Credentials, cfg models.PrimeConfig, deps Deps) (*Service, error) {
	if deps.Ledger == nil || deps.Assets == nil || deps.Quotes == nil {
		return nil, fmt.Errorf("prime gateway requires a ledger, an asset registry and a quote cache")
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	restClient := client.NewRestClient(creds, httpClient)

	return &Service{
		client:          restClient,
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
		ordersSvc:       orders.NewOrdersService(restClient),
		ledger:          deps.Ledger,
		assets:          deps.Assets,
		quotes:          deps.Quotes,
		portfolioId:     cfg.PortfolioId,
		quoteTTL:        cfg.QuoteTTL,
		lookbackWindow:  cfg.LookbackWindow,
		now:             time.Now,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// PortfolioId returns the portfolio every call is scoped to.
func (s *Service) PortfolioId() string {
	return s.portfolioId
}

// ResolvePortfolio falls back to the default portfolio when none is configured.
func (s *Service) ResolvePortfolio(ctx context.Context) error {
	if s.portfolioId != "" {
		return nil
	}
	portfolio, err := s.FindDefaultPortfolio(ctx)
	if err != nil {
		return err
	}
	s.portfolioId = portfolio.Id
	zap.L().Info("Using default portfolio",
		zap.String("portfolio_id", portfolio.Id),
		zap.String("portfolio_name", portfolio.Name))
	return nil
}

func (s *Service) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	request := &portfolios.ListPortfoliosRequest{}

	response, err := s.portfoliosSvc.ListPortfolios(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list portfolios: %w", err)
	}

	portfolioList := make([]models.Portfolio, len(response.Portfolios))
	for i, p := range response.Portfolios {
		portfolioList[i] = models.Portfolio{
			Id:   p.Id,
			Name: p.Name,
		}
	}

	return portfolioList, nil
}

func (s *Service) FindDefaultPortfolio(ctx context.Context) (*models.Portfolio, error) {
	portfolioList, err := s.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}

	for _, portfolio := range portfolioList {
		if portfolio.Name == "Default Portfolio" {
			return &portfolio, nil
		}
	}

	return nil, fmt.Errorf("default portfolio not found")
}

func (s *Service) ListWallets(ctx context.Context, walletType string, symbols []string) ([]models.Wallet, error) {
	request := &wallets.ListWalletsRequest{
		PortfolioId: s.portfolioId,
		Type:        walletType,
		Symbols:     symbols,
	}

	response, err := s.walletsSvc.ListWallets(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}

	walletList := make([]models.Wallet, len(response.Wallets))
	for i, w := range response.Wallets {
		walletList[i] = models.Wallet{
			Id:     w.Id,
			Name:   w.Name,
			Symbol: w.Symbol,
			Type:   w.Type,
		}
	}

	return walletList, nil
}

func (s *Service) CreateWallet(ctx context.Context, name, symbol, walletType string) (*models.Wallet, error) {
	request := &wallets.CreateWalletRequest{
		PortfolioId:    s.portfolioId,
		Name:           name,
		Symbol:         symbol,
		Type:           walletType,
		IdempotencyKey: uuid.New().String(),
	}

	response, err := s.walletsSvc.CreateWallet(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to create wallet: %w", err)
	}

	return &models.Wallet{
		Id:     response.ActivityId,
		Name:   response.Name,
		Symbol: response.Symbol,
		Type:   response.Type,
	}, nil
}

const (
	// legClockSkew widens the listing start ahead of a leg's recorded creation time.
	legClockSkew = 5 * time.Minute
	listPageSize = 500
	maxListPages = 20
)

// findTransaction pages through the wallet's transactions from the leg's creation
// time looking for its idempotency key. A nil result means Prime has not listed it yet.
func (s *Service) findTransaction(ctx context.Context, l leg) (*model.Transaction, error) {
	since := s.now().UTC().Add(-s.lookbackWindow)
	if !l.createdAt.IsZero() {
		since = l.createdAt.Add(-legClockSkew)
	}

	zap.L().Debug("Making Prime API request",
		zap.String("portfolio_id", s.portfolioId),
		zap.String("wallet_id", l.walletId),
		zap.String("idempotency_key", l.idempotencyKey),
		zap.String("start_time_formatted", since.Format("2006-01-02T15:04:05Z")))

	cursor := ""
	for page := 0; page < maxListPages; page++ {
		response, err := s.transactionsSvc.ListWalletTransactions(ctx, &transactions.ListWalletTransactionsRequest{
			PortfolioId: s.portfolioId,
			WalletId:    l.walletId,
			Start:       since,
			Pagination: &model.PaginationParams{
				Cursor: cursor,
				Limit:  listPageSize,
			},
		})
		if err != nil {
			zap.L().Error("Failed to list wallet transactions",
				zap.String("wallet_id", l.walletId),
				zap.Int("page", page),
				zap.Error(err))
			return nil, fmt.Errorf("unable to list wallet transactions: %w", err)
		}

		for _, tx := range response.Transactions {
			if tx.IdempotencyKey == l.idempotencyKey {
				zap.L().Debug("Transaction details",
					zap.String("id", tx.Id),
					zap.String("type", tx.Type),
					zap.String("status", tx.Status),
					zap.String("symbol", tx.Symbol),
					zap.String("amount", tx.Amount))
				return tx, nil
			}
		}

		if response.Pagination == nil || !response.Pagination.HasNext || response.Pagination.NextCursor == "" {
			return nil, nil
		}
		cursor = response.Pagination.NextCursor
	}

	zap.L().Warn("Stopped paging wallet transactions",
		zap.String("wallet_id", l.walletId),
		zap.String("idempotency_key", l.idempotencyKey),
		zap.Int("pages", maxListPages))
	return nil, nil
}

// leg identifies a wallet movement so polls can find it again without local state.
type leg struct {
	walletId       string
	idempotencyKey string
	createdAt      time.Time
}

// legId encodes the source wallet, the creation time in unix seconds and the
// idempotency key as "<wallet>:<unix>:<key>".
func legId(walletId string, createdAt time.Time, idempotencyKey string) string {
	return walletId + ":" + strconv.FormatInt(createdAt.Unix(), 10) + ":" + idempotencyKey
}

// parseLegId also accepts the older "<wallet>:<key>" form, which carries no
// creation time.
func parseLegId(id string) (leg, error) {
	walletId, rest, ok := strings.Cut(id, ":")
	if !ok || walletId == "" || rest == "" {
		return leg{}, fmt.Errorf("malformed leg id %q", id)
	}

	l := leg{walletId: walletId, idempotencyKey: rest}
	if stamp, key, ok := strings.Cut(rest, ":"); ok && key != "" {
		if secs, err := strconv.ParseInt(stamp, 10, 64); err == nil && secs > 0 {
			l.idempotencyKey = key
			l.createdAt = time.Unix(secs, 0).UTC()
		}
	}
	return l, nil
}

var _ gateway.LiquidityProviderGateway = (*Service)(nil)
