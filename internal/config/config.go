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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	LedgerBackendSqlite   = "sqlite"
	LedgerBackendFormance = "formance"
)

func Load() (*models.Config, error) {
	durations := map[string]*durationSetting{
		"DB_CONN_MAX_LIFETIME":      {def: 5 * time.Minute},
		"DB_CONN_MAX_IDLE_TIME":     {def: 30 * time.Second},
		"DB_PING_TIMEOUT":           {def: 5 * time.Second},
		"PRIME_QUOTE_TTL":           {def: 30 * time.Second},
		"PRIME_LOOKBACK_WINDOW":     {def: 6 * time.Hour},
		"ROUTING_DEADLINE":          {def: 20 * time.Minute},
		"ROUTING_CALL_TIMEOUT":      {def: 10 * time.Second},
		"CACHE_PARTICIPANT_TTL":     {def: 10 * time.Minute},
		"WORKFLOW_POLLING_INTERVAL": {def: 5 * time.Second},
	}
	for key, setting := range durations {
		value, err := getEnvDuration(key, setting.def)
		if err != nil {
			return nil, err
		}
		setting.value = value
	}

	decimals := map[string]*decimalSetting{
		"SPREAD_PERCENTAGE":                  {def: decimal.RequireFromString("0.01")},
		"FLAT_FEE_DOLLARS":                   {def: decimal.Zero},
		"DYNAMIC_CREDIT_CARD_FEE_PERCENTAGE": {def: decimal.Zero},
		"FIXED_CREDIT_CARD_FEE":              {def: decimal.Zero},
	}
	for key, setting := range decimals {
		value, err := getEnvDecimal(key, setting.def)
		if err != nil {
			return nil, err
		}
		setting.value = value
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:                    getEnvString("DATABASE_PATH", "conversion.db"),
			MaxOpenConns:            getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:            getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:         durations["DB_CONN_MAX_LIFETIME"].value,
			ConnMaxIdleTime:         durations["DB_CONN_MAX_IDLE_TIME"].value,
			PingTimeout:             durations["DB_PING_TIMEOUT"].value,
			CreateDummyParticipants: getEnvBool("CREATE_DUMMY_PARTICIPANTS", false),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER_NAME", "prime-conversion"),
		},
		Prime: models.PrimeConfig{
			PortfolioId:           getEnvString("PRIME_PORTFOLIO_ID", ""),
			PlatformParticipantId: getEnvString("PLATFORM_PARTICIPANT_ID", "platform"),
			AccountGroup:          getEnvString("PRIME_ACCOUNT_GROUP", "consumers"),
			QuoteTTL:              durations["PRIME_QUOTE_TTL"].value,
			LookbackWindow:        durations["PRIME_LOOKBACK_WINDOW"].value,
		},
		Fees: models.FeeConfig{
			SpreadPercentage:               decimals["SPREAD_PERCENTAGE"].value,
			FlatFeeDollars:                 decimals["FLAT_FEE_DOLLARS"].value,
			DynamicCreditCardFeePercentage: decimals["DYNAMIC_CREDIT_CARD_FEE_PERCENTAGE"].value,
			FixedCreditCardFee:             decimals["FIXED_CREDIT_CARD_FEE"].value,
		},
		Routing: models.RoutingConfig{
			Enabled:       getEnvBool("ROUTING_ENABLED", false),
			RpcURL:        getEnvString("ROUTING_RPC_URL", ""),
			RouterAddress: getEnvString("ROUTING_ROUTER_ADDRESS", ""),
			SlippageBps:   int64(getEnvInt("ROUTING_SLIPPAGE_BPS", 50)),
			Deadline:      durations["ROUTING_DEADLINE"].value,
			CallTimeout:   durations["ROUTING_CALL_TIMEOUT"].value,
		},
		Cache: models.CacheConfig{
			NumCounters:    int64(getEnvInt("CACHE_NUM_COUNTERS", 100000)),
			MaxCost:        int64(getEnvInt("CACHE_MAX_COST", 10000)),
			BufferItems:    int64(getEnvInt("CACHE_BUFFER_ITEMS", 64)),
			ParticipantTTL: durations["CACHE_PARTICIPANT_TTL"].value,
		},
		Workflow: models.WorkflowConfig{
			PollingInterval: durations["WORKFLOW_POLLING_INTERVAL"].value,
			MaxLegAttempts:  getEnvInt("WORKFLOW_MAX_LEG_ATTEMPTS", 3),
		},
		LedgerBackend: strings.ToLower(getEnvString("LEDGER_BACKEND", LedgerBackendSqlite)),
		AssetsFile:    getEnvString("ASSETS_FILE", "assets.yaml"),
	}

	switch cfg.LedgerBackend {
	case LedgerBackendSqlite, LedgerBackendFormance:
	default:
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: must be %s or %s", cfg.LedgerBackend, LedgerBackendSqlite, LedgerBackendFormance)
	}

	return cfg, nil
}

type durationSetting struct {
	def   time.Duration
	value time.Duration
}

type decimalSetting struct {
	def   decimal.Decimal
	value decimal.Decimal
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q must not be negative", key, value)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
