package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/product"
)

// Item is a single cart line.
type Item struct {
	Product  *product.Product
	Quantity int
	Size     string
}

// LineTotal returns CurrentPrice * Quantity. It is computed on every call.
func (i Item) LineTotal() decimal.Decimal {
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.CurrentPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal returns the sum of line totals.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// TotalQuantity returns the sum of quantities across all items.
func TotalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// Customer is the profile of the customer making the purchase.
type Customer struct {
	ID   string
	Tier string
	// VoucherCode is used when the caller supplies no explicit code.
	VoucherCode string
}

// HasTier reports whether the customer belongs to the given loyalty tier.
func (c *Customer) HasTier(tier string) bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(c.Tier), strings.TrimSpace(tier))
}

// PaymentMethod enumerates supported payment methods.
type PaymentMethod string

const (
	MethodCard       PaymentMethod = "CARD"
	MethodUPI        PaymentMethod = "UPI"
	MethodCOD        PaymentMethod = "COD"
	MethodWallet     PaymentMethod = "WALLET"
	MethodNetBanking PaymentMethod = "NETBANKING"
)

// CardType distinguishes debit and credit cards.
type CardType string

const (
	CardDebit  CardType = "DEBIT"
	CardCredit CardType = "CREDIT"
)

// Payment describes how the customer pays.
type Payment struct {
	Method   PaymentMethod
	BankName string
	CardType CardType
}

// IsCard reports whether the payment is made with a card.
func (p *Payment) IsCard() bool {
	return p != nil && strings.EqualFold(string(p.Method), string(MethodCard))
}
