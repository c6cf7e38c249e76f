package discount

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/cart"
)

// Reasons a voucher code is not applied. They are returned by
// (*VoucherRule).Check; Apply treats all of them as "does not apply".
var (
	ErrNoVoucher            = errors.New("no voucher code supplied")
	ErrUnknownVoucher       = errors.New("unknown voucher code")
	ErrVoucherNotActive     = errors.New("voucher not active")
	ErrVoucherTier          = errors.New("voucher requires another customer tier")
	ErrVoucherBrandExcluded = errors.New("voucher excludes a brand in the cart")
	ErrVoucherCategory      = errors.New("voucher not valid for a category in the cart")
	ErrVoucherMinItems      = errors.New("voucher minimum item count not met")
)

// Voucher describes one voucher code.
type Voucher struct {
	Percent decimal.Decimal
	// ExcludedBrands disqualifies the voucher when any line has one of these
	// brands.
	ExcludedBrands []string
	// AllowedCategories, when set, requires every line to be in one of these
	// categories.
	AllowedCategories []string
	// RequiredTier, when set, restricts the voucher to one loyalty tier.
	RequiredTier string
	// MinItems is the minimum total quantity in the cart.
	MinItems int
	// MaxDiscount caps the reduction when positive.
	MaxDiscount decimal.Decimal
	ValidFrom   *time.Time
	ValidUntil  *time.Time
}

// VoucherConfig maps voucher codes to their definition.
type VoucherConfig struct {
	Vouchers map[string]Voucher
}

type voucherEntry struct {
	code     string
	voucher  Voucher
	excluded map[string]struct{}
	allowed  map[string]struct{}
}

// VoucherRule applies a percentage off the running price when the
// invocation carries a known, eligible voucher code.
type VoucherRule struct {
	vouchers map[string]voucherEntry
}

var _ Rule = (*VoucherRule)(nil)

// NewVoucherRule validates cfg and returns a VoucherRule. Codes match
// case-insensitively.
func NewVoucherRule(cfg VoucherConfig) (*VoucherRule, error) {
	vouchers := make(map[string]voucherEntry, len(cfg.Vouchers))
	for _, code := range slices.Sorted(maps.Keys(cfg.Vouchers)) {
		v := cfg.Vouchers[code]
		norm := normalizeKey(code)
		if norm == "" {
			return nil, &ConfigurationError{Rule: NameVoucher, Key: code, Reason: "empty key"}
		}
		if prev, ok := vouchers[norm]; ok {
			return nil, &ConfigurationError{Rule: NameVoucher, Key: code, Reason: fmt.Sprintf("duplicates %q", prev.code)}
		}
		if err := ValidatePercent(NameVoucher, code, v.Percent); err != nil {
			return nil, err
		}
		if v.MinItems < 0 {
			return nil, &ConfigurationError{Rule: NameVoucher, Key: code, Reason: "min items is negative"}
		}
		if v.MaxDiscount.IsNegative() {
			return nil, &ConfigurationError{Rule: NameVoucher, Key: code, Reason: "max discount is negative"}
		}
		if v.ValidFrom != nil && v.ValidUntil != nil && v.ValidUntil.Before(*v.ValidFrom) {
			return nil, &ConfigurationError{Rule: NameVoucher, Key: code, Reason: "valid until precedes valid from"}
		}
		vouchers[norm] = voucherEntry{
			code:     strings.TrimSpace(code),
			voucher:  v,
			excluded: keySet(v.ExcludedBrands),
			allowed:  keySet(v.AllowedCategories),
		}
	}
	return &VoucherRule{vouchers: vouchers}, nil
}

func keySet(keys []string) map[string]struct{} {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[normalizeKey(k)] = struct{}{}
	}
	return set
}

func (r *VoucherRule) Name() string { return NameVoucher }

// Check reports why the invocation's voucher code cannot be applied, or nil
// if it can.
func (r *VoucherRule) Check(in *Input) error {
	code := in.Voucher()
	if code == "" {
		return ErrNoVoucher
	}
	e, ok := r.vouchers[normalizeKey(code)]
	if !ok {
		return ErrUnknownVoucher
	}
	v := e.voucher

	if v.ValidFrom != nil && in.At.Before(*v.ValidFrom) {
		return ErrVoucherNotActive
	}
	if v.ValidUntil != nil && in.At.After(*v.ValidUntil) {
		return ErrVoucherNotActive
	}
	if v.RequiredTier != "" && !in.Customer.HasTier(v.RequiredTier) {
		return ErrVoucherTier
	}
	if v.MinItems > 0 && cart.TotalQuantity(in.Items) < v.MinItems {
		return ErrVoucherMinItems
	}
	for _, item := range in.Items {
		if item.Product == nil {
			continue
		}
		if _, excluded := e.excluded[normalizeKey(item.Product.Brand)]; excluded {
			return ErrVoucherBrandExcluded
		}
		if e.allowed != nil {
			if _, ok := e.allowed[normalizeKey(item.Product.Category)]; !ok {
				return ErrVoucherCategory
			}
		}
	}
	return nil
}

// Apply reduces the running price by the voucher percentage. The reduction
// is capped by MaxDiscount and by the running price itself.
func (r *VoucherRule) Apply(price decimal.Decimal, in *Input) (Adjustment, error) {
	if r.Check(in) != nil {
		return Adjustment{}, nil
	}
	e := r.vouchers[normalizeKey(in.Voucher())]

	amount := capAmount(PercentOf(price, e.voucher.Percent), e.voucher.MaxDiscount, price)
	if !amount.IsPositive() {
		return Adjustment{}, nil
	}
	return Adjustment{
		Amount:      amount,
		Description: fmt.Sprintf("Voucher %s: %s%% off", e.code, e.voucher.Percent),
	}, nil
}
