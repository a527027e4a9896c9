package common

import (
	"fmt"
	"strings"

	"prime-conversion-go/internal/models"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// QuoteFlags are the raw command-line inputs describing a quote request.
type QuoteFlags struct {
	Crypto          string
	Fiat            string
	Side            string
	Amount          string
	TransactionType string
	Discount        string
}

// ParseQuoteRequest turns command-line inputs into a quote request. Discount is an
// optional JSON object such as {"spread_percent":"0.5"}.
func ParseQuoteRequest(f QuoteFlags) (models.QuoteRequest, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(f.Amount))
	if err != nil {
		return models.QuoteRequest{}, fmt.Errorf("invalid amount %q: %w", f.Amount, err)
	}

	req := models.QuoteRequest{
		CryptoCurrency:  strings.ToUpper(strings.TrimSpace(f.Crypto)),
		FiatCurrency:    strings.ToUpper(strings.TrimSpace(f.Fiat)),
		FixedSide:       models.FixedSide(strings.ToUpper(f.Side)),
		TransactionType: models.TransactionType(strings.ToUpper(f.TransactionType)),
	}

	switch req.FixedSide {
	case models.FixedSideFiat:
		req.FiatAmount = decimal.NewNullDecimal(amount)
	case models.FixedSideCrypto:
		req.CryptoQuantity = decimal.NewNullDecimal(amount)
	default:
		return models.QuoteRequest{}, fmt.Errorf("invalid side %q: must be %s or %s", f.Side, models.FixedSideFiat, models.FixedSideCrypto)
	}

	if f.Discount != "" {
		var d models.Discount
		if err := json.Unmarshal([]byte(f.Discount), &d); err != nil {
			return models.QuoteRequest{}, fmt.Errorf("invalid discount: %w", err)
		}
		req.Discount = &d
	}

	return req, nil
}

// PrintJSON writes v to stdout as indented JSON.
func PrintJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
