package product

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// BrandTier is a coarse classification of a product's brand.
type BrandTier string

const (
	TierBudget  BrandTier = "BUDGET"
	TierMid     BrandTier = "MID"
	TierPremium BrandTier = "PREMIUM"
	TierLuxury  BrandTier = "LUXURY"
)

// ErrUnknownBrandTier is returned by ParseBrandTier for unrecognised values.
var ErrUnknownBrandTier = errors.New("unknown brand tier")

// ParseBrandTier parses a tier name case-insensitively. The legacy name
// "regular" maps to TierMid.
func ParseBrandTier(s string) (BrandTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUDGET":
		return TierBudget, nil
	case "MID", "REGULAR":
		return TierMid, nil
	case "PREMIUM":
		return TierPremium, nil
	case "LUXURY":
		return TierLuxury, nil
	default:
		return "", errors.Wrap(ErrUnknownBrandTier, s)
	}
}

// Product represents a catalog item as seen by the discount engine.
type Product struct {
	ID           string
	Brand        string
	BrandTier    BrandTier
	Category     string
	BasePrice    decimal.Decimal
	CurrentPrice decimal.Decimal
}

// PriceError describes a product whose prices violate
// 0 <= CurrentPrice <= BasePrice.
type PriceError struct {
	ProductID string
	Reason    string
}

func (e *PriceError) Error() string {
	return fmt.Sprintf("product %s: %s", e.ProductID, e.Reason)
}

// Validate checks the price invariants of the product.
func (p Product) Validate() error {
	switch {
	case p.BasePrice.IsNegative():
		return &PriceError{ProductID: p.ID, Reason: "base price is negative"}
	case p.CurrentPrice.IsNegative():
		return &PriceError{ProductID: p.ID, Reason: "current price is negative"}
	case p.CurrentPrice.GreaterThan(p.BasePrice):
		return &PriceError{ProductID: p.ID, Reason: "current price exceeds base price"}
	}
	return nil
}
