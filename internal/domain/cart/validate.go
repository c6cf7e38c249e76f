package cart

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-discounts/internal/domain/product"
)

// ErrInvalidCart matches every *InvalidCartError.
var ErrInvalidCart = errors.New("invalid cart")

// InvalidCartError indicates a structurally invalid cart line.
type InvalidCartError struct {
	Line      int
	ProductID string
	Reason    string
}

func (e *InvalidCartError) Error() string {
	if e.ProductID == "" {
		return fmt.Sprintf("invalid cart line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid cart line %d (product %s): %s", e.Line, e.ProductID, e.Reason)
}

func (e *InvalidCartError) Is(target error) bool {
	return target == ErrInvalidCart
}

// Validate checks quantities and product prices of every line. An empty cart
// is valid.
func Validate(items []Item) error {
	for i, item := range items {
		if item.Product == nil {
			return &InvalidCartError{Line: i, Reason: "product is missing"}
		}
		if item.Quantity <= 0 {
			return &InvalidCartError{Line: i, ProductID: item.Product.ID, Reason: "quantity must be greater than 0"}
		}
		if err := item.Product.Validate(); err != nil {
			var pe *product.PriceError
			if errors.As(err, &pe) {
				return &InvalidCartError{Line: i, ProductID: pe.ProductID, Reason: pe.Reason}
			}
			return errors.Wrapf(err, "validate line %d", i)
		}
	}
	return nil
}
