// Package fixture provides sample carts for exercising the discount pipeline.
package fixture

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/cart"
	"github.com/xenking/kart-discounts/internal/domain/product"
	"github.com/xenking/kart-discounts/internal/wire"
)

// Scenario is a named pricing request.
type Scenario struct {
	Name        string
	Description string
	wire.Quote
}

func pumaTShirt() *product.Product {
	return &product.Product{
		ID:           "prod_001",
		Brand:        "PUMA",
		BrandTier:    product.TierPremium,
		Category:     "T-shirts",
		BasePrice:    decimal.RequireFromString("1000.00"),
		CurrentPrice: decimal.RequireFromString("1000.00"),
	}
}

// CartScenario is a single PUMA T-shirt paid with an ICICI credit card. With
// the default catalogue it collects the brand, category and bank discounts.
func CartScenario() Scenario {
	return Scenario{
		Name:        "multiple-discounts",
		Description: "PUMA T-shirt with brand, category and ICICI bank offers",
		Quote: wire.Quote{
			Items: []cart.Item{{Product: pumaTShirt(), Quantity: 1, Size: "M"}},
			Customer: &cart.Customer{
				ID:   "cust_001",
				Tier: "regular",
			},
			Payment: &cart.Payment{
				Method:   cart.MethodCard,
				BankName: "ICICI",
				CardType: cart.CardCredit,
			},
		},
	}
}

// VoucherScenario is the same T-shirt bought by a customer holding the
// SUPER69 voucher and paying with an HDFC card.
func VoucherScenario() Scenario {
	return Scenario{
		Name:        "voucher",
		Description: "PUMA T-shirt with the SUPER69 voucher and an HDFC card",
		Quote: wire.Quote{
			Items: []cart.Item{{Product: pumaTShirt(), Quantity: 1, Size: "M"}},
			Customer: &cart.Customer{
				ID:          "cust_002",
				Tier:        "regular",
				VoucherCode: "SUPER69",
			},
			Payment: &cart.Payment{
				Method:   cart.MethodCard,
				BankName: "HDFC",
				CardType: cart.CardCredit,
			},
		},
	}
}

// Builtin returns every built-in scenario in a stable order.
func Builtin() []Scenario {
	return []Scenario{
		CartScenario(),
		VoucherScenario(),
		{
			Name:        "mixed-cart",
			Description: "Two lines where only the PUMA line matches brand offers",
			Quote: wire.Quote{
				Items: []cart.Item{
					{Product: pumaTShirt(), Quantity: 2, Size: "L"},
					{
						Product: &product.Product{
							ID:           "prod_002",
							Brand:        "NIKE",
							BrandTier:    product.TierPremium,
							Category:     "Shoes",
							BasePrice:    decimal.RequireFromString("2500.00"),
							CurrentPrice: decimal.RequireFromString("2250.00"),
						},
						Quantity: 1,
						Size:     "9",
					},
				},
				Customer: &cart.Customer{ID: "cust_003", Tier: "gold"},
				Payment: &cart.Payment{
					Method:   cart.MethodCard,
					BankName: "ICICI",
					CardType: cart.CardDebit,
				},
			},
		},
		{
			Name:        "upi",
			Description: "UPI payment never triggers card offers",
			Quote: wire.Quote{
				Items:    []cart.Item{{Product: pumaTShirt(), Quantity: 1, Size: "S"}},
				Customer: &cart.Customer{ID: "cust_004", Tier: "regular"},
				Payment:  &cart.Payment{Method: cart.MethodUPI},
			},
		},
		{
			Name:        "empty",
			Description: "Empty cart",
			Quote: wire.Quote{
				Customer: &cart.Customer{ID: "cust_005", Tier: "regular"},
			},
		},
	}
}
