package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database      DatabaseConfig
	Formance      FormanceConfig
	Prime         PrimeConfig
	Fees          FeeConfig
	Routing       RoutingConfig
	Cache         CacheConfig
	Workflow      WorkflowConfig
	LedgerBackend string
	AssetsFile    string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path                    string
	MaxOpenConns            int
	MaxIdleConns            int
	ConnMaxLifetime         time.Duration
	ConnMaxIdleTime         time.Duration
	PingTimeout             time.Duration
	CreateDummyParticipants bool
}

// FormanceConfig holds Formance Stack connection settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// PrimeConfig holds Coinbase Prime settings for the liquidity provider gateway
type PrimeConfig struct {
	PortfolioId           string
	PlatformParticipantId string
	AccountGroup          string
	QuoteTTL              time.Duration
	LookbackWindow        time.Duration
}

// FeeConfig holds the platform fee schedule applied by the quote calculator
type FeeConfig struct {
	SpreadPercentage               decimal.Decimal
	FlatFeeDollars                 decimal.Decimal
	DynamicCreditCardFeePercentage decimal.Decimal
	FixedCreditCardFee             decimal.Decimal
}

// RoutingConfig holds on-chain swap routing settings
type RoutingConfig struct {
	Enabled       bool
	RpcURL        string
	RouterAddress string
	SlippageBps   int64
	Deadline      time.Duration
	CallTimeout   time.Duration
}

// CacheConfig holds in-memory cache sizing
type CacheConfig struct {
	NumCounters    int64
	MaxCost        int64
	BufferItems    int64
	ParticipantTTL time.Duration
}

// WorkflowConfig holds settlement pipeline runner settings
type WorkflowConfig struct {
	PollingInterval time.Duration
	MaxLegAttempts  int
}
