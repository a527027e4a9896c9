package pricing

import (
	"prime-conversion-go/internal/apperrors"
	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// effectiveDiscount validates the caller's discount vector and applies the
// wallet-to-wallet network fee waiver.
func effectiveDiscount(req models.QuoteRequest) (models.Discount, error) {
	var d models.Discount
	if req.Discount != nil {
		d = *req.Discount
	}

	percents := []struct {
		field string
		value decimal.Decimal
	}{
		{"discount.spread_percent", d.SpreadPercent},
		{"discount.platform_fee_percent", d.PlatformFeePercent},
		{"discount.processing_fee_percent", d.ProcessingFeePercent},
		{"discount.fixed_credit_card_fee_percent", d.FixedCreditCardFeePercent},
		{"discount.network_fee_percent", d.NetworkFeePercent},
	}
	for _, p := range percents {
		if p.value.IsNegative() || p.value.GreaterThan(one) {
			return models.Discount{}, apperrors.ErrValidation(p.field, "must be between 0 and 1")
		}
	}

	// Internal wallet-to-wallet movements never pay a network fee.
	if req.TransactionType == models.TransactionTypeWalletTransfer {
		d.NetworkFeePercent = one
	}

	return d, nil
}

func applyDiscount(full terms, d models.Discount) terms {
	return terms{
		networkFee:    round2(full.networkFee.Mul(one.Sub(d.NetworkFeePercent))),
		platformFee:   round2(full.platformFee.Mul(one.Sub(d.PlatformFeePercent))),
		dynamicCCRate: full.dynamicCCRate.Mul(one.Sub(d.ProcessingFeePercent)),
		fixedCCFee:    round2(full.fixedCCFee.Mul(one.Sub(d.FixedCreditCardFeePercent))),
		spread:        full.spread.Mul(one.Sub(d.SpreadPercent)),
	}
}
