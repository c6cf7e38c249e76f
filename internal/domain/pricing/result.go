package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/cart"
)

// NoDiscountsMessage is the message of a Result without applied discounts.
const NoDiscountsMessage = "No discounts applied"

// AppliedDiscount records one rule application that lowered the price.
type AppliedDiscount struct {
	Rule        string
	Amount      decimal.Decimal
	Description string
}

// LineResult is the per-line price breakdown.
type LineResult struct {
	ProductID string
	Quantity  int
	Original  decimal.Decimal
	Final     decimal.Decimal
}

// Result is the outcome of one pipeline invocation.
type Result struct {
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	// Descriptions lists non-empty rule descriptions in application order.
	Descriptions []string
	Applied      []AppliedDiscount
	Lines        []LineResult
	Message      string
}

// Savings returns OriginalPrice - FinalPrice.
func (r *Result) Savings() decimal.Decimal {
	return r.OriginalPrice.Sub(r.FinalPrice)
}

func emptyResult() *Result {
	return &Result{
		OriginalPrice: decimal.Zero,
		FinalPrice:    decimal.Zero,
		Message:       NoDiscountsMessage,
	}
}

func newResult(
	items []cart.Item,
	lines []decimal.Decimal,
	original, final decimal.Decimal,
	applied []AppliedDiscount,
	currency string,
) *Result {
	res := &Result{
		OriginalPrice: original,
		FinalPrice:    final,
		Applied:       applied,
		Lines:         make([]LineResult, len(items)),
	}
	for i, item := range items {
		lineFinal := lines[i]
		if lineFinal.IsNegative() {
			lineFinal = decimal.Zero
		}
		res.Lines[i] = LineResult{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			Original:  item.LineTotal(),
			Final:     lineFinal,
		}
	}
	for _, a := range applied {
		if a.Description != "" {
			res.Descriptions = append(res.Descriptions, a.Description)
		}
	}
	res.Message = buildMessage(applied, currency)
	return res
}

// buildMessage renders the applied discounts in application order.
func buildMessage(applied []AppliedDiscount, currency string) string {
	if len(applied) == 0 {
		return NoDiscountsMessage
	}
	var b strings.Builder
	b.WriteString("Applied discounts:")
	for _, a := range applied {
		label := a.Description
		if label == "" {
			label = a.Rule
		}
		fmt.Fprintf(&b, "\n  - %s: %s%s", label, currency, a.Amount.StringFixed(2))
	}
	return b.String()
}
