// Package wire encodes and decodes the JSON representation of carts and
// discount results.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/cart"
	"github.com/xenking/kart-discounts/internal/domain/product"
)

// Quote is a decoded pricing request.
type Quote struct {
	Items       []cart.Item
	Customer    *cart.Customer
	Payment     *cart.Payment
	VoucherCode string
}

// DecodeQuote decodes a quote object. Unknown fields are skipped.
func DecodeQuote(d *jx.Decoder) (Quote, error) {
	var q Quote
	err := d.Obj(func(d *jx.Decoder, key string) error {
		ok, err := DecodeQuoteField(d, key, &q)
		if err != nil {
			return err
		}
		if !ok {
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Quote{}, errors.Wrap(err, "decode quote")
	}
	return q, nil
}

// DecodeQuoteField decodes a single quote field into q. It reports false
// without consuming input when key is not a quote field, so callers can embed
// quotes in larger objects.
func DecodeQuoteField(d *jx.Decoder, key string, q *Quote) (bool, error) {
	switch key {
	case "items":
		items, err := decodeItems(d)
		if err != nil {
			return true, errors.Wrap(err, "items")
		}
		q.Items = items
	case "customer":
		c, err := decodeCustomer(d)
		if err != nil {
			return true, errors.Wrap(err, "customer")
		}
		q.Customer = c
	case "payment":
		p, err := decodePayment(d)
		if err != nil {
			return true, errors.Wrap(err, "payment")
		}
		q.Payment = p
	case "voucher_code":
		s, err := decodeOptString(d)
		if err != nil {
			return true, errors.Wrap(err, "voucher_code")
		}
		q.VoucherCode = s
	default:
		return false, nil
	}
	return true, nil
}

func decodeItems(d *jx.Decoder) ([]cart.Item, error) {
	var items []cart.Item
	err := d.Arr(func(d *jx.Decoder) error {
		var item cart.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "product":
				item.Product, err = decodeProduct(d)
			case "quantity":
				item.Quantity, err = d.Int()
			case "size":
				item.Size, err = decodeOptString(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "item %d", len(items))
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func decodeProduct(d *jx.Decoder) (*product.Product, error) {
	var (
		p          product.Product
		hasCurrent bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "brand":
			p.Brand, err = d.Str()
		case "brand_tier":
			var s string
			if s, err = decodeOptString(d); err == nil && s != "" {
				p.BrandTier, err = product.ParseBrandTier(s)
			}
		case "category":
			p.Category, err = d.Str()
		case "base_price":
			p.BasePrice, err = DecodeDecimal(d)
		case "current_price":
			p.CurrentPrice, err = DecodeDecimal(d)
			hasCurrent = true
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// A product listed at its base price may omit current_price.
	if !hasCurrent {
		p.CurrentPrice = p.BasePrice
	}
	return &p, nil
}

func decodeCustomer(d *jx.Decoder) (*cart.Customer, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var c cart.Customer
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			c.ID, err = d.Str()
		case "tier":
			c.Tier, err = decodeOptString(d)
		case "voucher_code":
			c.VoucherCode, err = decodeOptString(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func decodePayment(d *jx.Decoder) (*cart.Payment, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var p cart.Payment
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			s   string
			err error
		)
		switch key {
		case "method":
			s, err = d.Str()
			p.Method = cart.PaymentMethod(s)
		case "bank_name":
			p.BankName, err = decodeOptString(d)
		case "card_type":
			s, err = decodeOptString(d)
			p.CardType = cart.CardType(s)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Bounds on decoded amounts. Anything outside them is not a price.
const (
	maxDecimalLen = 32
	maxDigits     = 18
	maxExponent   = 12
	minExponent   = -8
)

// DecodeDecimal decodes a decimal written either as a JSON string or as a
// JSON number. Values with an implausible magnitude or precision are rejected.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = string(n)
	default:
		return decimal.Zero, errors.Errorf("expected decimal, got %s", d.Next())
	}
	if len(raw) > maxDecimalLen {
		return decimal.Zero, errors.Errorf("decimal too long: %d bytes", len(raw))
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse decimal %q", raw)
	}
	if exp := v.Exponent(); exp > maxExponent || exp < minExponent || v.NumDigits() > maxDigits {
		return decimal.Zero, errors.Errorf("decimal %q out of range", raw)
	}
	return v, nil
}

func decodeOptString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
