package common

import (
	"fmt"
	"strings"

	"prime-conversion-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// PrintQuoteSummary prints the discounted quote next to the undiscounted one.
func PrintQuoteSummary(q *models.CombinedQuote) {
	rows := []struct {
		label      string
		quoted     decimal.Decimal
		undiscount decimal.Decimal
	}{
		{"Network fee", q.Quote.NetworkFeeInFiat, q.NonDiscountedQuote.NetworkFeeInFiat},
		{"Platform fee", q.Quote.PlatformFeeInFiat, q.NonDiscountedQuote.PlatformFeeInFiat},
		{"Processing fee", q.Quote.ProcessingFeeInFiat, q.NonDiscountedQuote.ProcessingFeeInFiat},
		{"Amount pre spread", q.Quote.AmountPreSpread, q.NonDiscountedQuote.AmountPreSpread},
		{"Price with spread", q.Quote.PerUnitPriceWithSpread, q.NonDiscountedQuote.PerUnitPriceWithSpread},
		{"Price", q.Quote.PerUnitPriceWithoutSpread, q.NonDiscountedQuote.PerUnitPriceWithoutSpread},
		{"Total " + q.Quote.FiatCurrency, q.Quote.TotalFiatAmount, q.NonDiscountedQuote.TotalFiatAmount},
		{"Total " + q.Quote.CryptoCurrency, q.Quote.TotalCryptoQuantity, q.NonDiscountedQuote.TotalCryptoQuantity},
	}

	fmt.Printf("Quote %s (expires %s)\n", q.Quote.QuoteId, q.Quote.ExpiresAt.Format("15:04:05 MST"))
	PrintBoxSeparator(DefaultWidth - 2)
	fmt.Printf("│  %-20s %24s %24s\n", "", "quoted", "without discount")
	for i, r := range rows {
		fmt.Printf("%s%-20s %24s %24s\n", BoxPrefix(i == len(rows)-1), r.label, r.quoted.String(), r.undiscount.String())
	}
	fmt.Printf("\nDiscounts given: %s %s\n", q.DiscountsGiven.Total().StringFixed(2), q.Quote.FiatCurrency)
}
