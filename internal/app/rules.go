package app

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/cart"
	"github.com/xenking/kart-discounts/internal/domain/discount"
	"github.com/xenking/kart-discounts/internal/domain/pricing"
	"github.com/xenking/kart-discounts/internal/domain/product"
)

// NewPricingService builds the rule catalogue described by cfg and returns a
// pipeline running it in the configured order.
func NewPricingService(cfg RulesConfig, opts ...pricing.Option) (*pricing.Service, error) {
	rules, err := BuildRules(cfg)
	if err != nil {
		return nil, err
	}
	return pricing.NewService(rules, opts...)
}

// BuildRules constructs one rule per entry of cfg.Order. An empty order
// selects pricing.DefaultOrder. Malformed values are reported as
// *discount.ConfigurationError.
func BuildRules(cfg RulesConfig) ([]discount.Rule, error) {
	order := cfg.Order
	if len(order) == 0 {
		order = pricing.DefaultOrder
	}

	seen := make(map[string]struct{}, len(order))
	rules := make([]discount.Rule, 0, len(order))
	for _, raw := range order {
		name := strings.ToLower(strings.TrimSpace(raw))
		if _, dup := seen[name]; dup {
			return nil, &discount.ConfigurationError{Rule: name, Reason: "listed twice in rule order"}
		}
		seen[name] = struct{}{}

		rule, err := buildRule(name, cfg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func buildRule(name string, cfg RulesConfig) (discount.Rule, error) {
	switch name {
	case discount.NameBrand:
		pcts, err := parsePercents(name, cfg.Brands)
		if err != nil {
			return nil, err
		}
		return discount.NewBrandRule(discount.BrandConfig{Discounts: pcts})
	case discount.NameCategory:
		pcts, err := parsePercents(name, cfg.Categories)
		if err != nil {
			return nil, err
		}
		return discount.NewCategoryRule(discount.CategoryConfig{Discounts: pcts})
	case discount.NameBrandTier:
		pcts, err := parsePercents(name, cfg.BrandTiers)
		if err != nil {
			return nil, err
		}
		tiers := make(map[product.BrandTier]decimal.Decimal, len(pcts))
		for k, v := range pcts {
			tier, err := product.ParseBrandTier(k)
			if err != nil {
				return nil, &discount.ConfigurationError{Rule: name, Key: k, Reason: err.Error()}
			}
			tiers[tier] = v
		}
		return discount.NewBrandTierRule(discount.BrandTierConfig{Discounts: tiers})
	case discount.NameTier:
		pcts, err := parsePercents(name, cfg.Tiers)
		if err != nil {
			return nil, err
		}
		return discount.NewTierRule(discount.TierConfig{Discounts: pcts})
	case discount.NameVoucher:
		vc, err := voucherConfig(cfg)
		if err != nil {
			return nil, err
		}
		return discount.NewVoucherRule(vc)
	case discount.NameBank:
		bc, err := bankConfig(cfg)
		if err != nil {
			return nil, err
		}
		return discount.NewBankOfferRule(bc)
	default:
		return nil, &discount.ConfigurationError{Rule: name, Reason: "unknown rule"}
	}
}

func voucherConfig(cfg RulesConfig) (discount.VoucherConfig, error) {
	const name = discount.NameVoucher

	pcts, err := parsePercents(name, cfg.Vouchers)
	if err != nil {
		return discount.VoucherConfig{}, err
	}
	vouchers := make(map[string]discount.Voucher, len(pcts))
	if err := checkFoldedKeys(name, pcts); err != nil {
		return discount.VoucherConfig{}, err
	}
	for code, pct := range pcts {
		vouchers[code] = discount.Voucher{Percent: pct}
	}

	// Restrictions are keyed by the same codes as the percent map.
	restrictions := []struct {
		values map[string]string
		apply  func(v *discount.Voucher, value string) error
	}{
		{cfg.VoucherExcludedBrands, func(v *discount.Voucher, value string) error {
			v.ExcludedBrands = splitList(value)
			return nil
		}},
		{cfg.VoucherCategories, func(v *discount.Voucher, value string) error {
			v.AllowedCategories = splitList(value)
			return nil
		}},
		{cfg.VoucherTiers, func(v *discount.Voucher, value string) error {
			v.RequiredTier = value
			return nil
		}},
		{cfg.VoucherMinItems, func(v *discount.Voucher, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return &discount.ConfigurationError{Rule: name, Key: value, Reason: "invalid minimum item count"}
			}
			v.MinItems = n
			return nil
		}},
		{cfg.VoucherMaxDiscount, func(v *discount.Voucher, value string) error {
			amount, err := parseAmount(name, value)
			if err != nil {
				return err
			}
			v.MaxDiscount = amount
			return nil
		}},
	}
	for _, r := range restrictions {
		if err := checkFoldedKeys(name, r.values); err != nil {
			return discount.VoucherConfig{}, err
		}
		for key, value := range r.values {
			code, v, ok := lookupVoucher(vouchers, key)
			if !ok {
				return discount.VoucherConfig{}, &discount.ConfigurationError{
					Rule: name, Key: key, Reason: "restriction for unknown voucher",
				}
			}
			if err := r.apply(&v, strings.TrimSpace(value)); err != nil {
				return discount.VoucherConfig{}, err
			}
			vouchers[code] = v
		}
	}
	return discount.VoucherConfig{Vouchers: vouchers}, nil
}

// checkFoldedKeys rejects maps holding two keys that differ only in case or
// surrounding space. Such keys would match the same voucher.
func checkFoldedKeys[V any](rule string, m map[string]V) error {
	keys := slices.Sorted(maps.Keys(m))
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		folded := strings.ToUpper(strings.TrimSpace(k))
		if prev, dup := seen[folded]; dup {
			return &discount.ConfigurationError{
				Rule: rule, Key: k, Reason: "duplicate of " + strconv.Quote(prev),
			}
		}
		seen[folded] = k
	}
	return nil
}

func lookupVoucher(vouchers map[string]discount.Voucher, key string) (string, discount.Voucher, bool) {
	for code, v := range vouchers {
		if strings.EqualFold(strings.TrimSpace(code), strings.TrimSpace(key)) {
			return code, v, true
		}
	}
	return "", discount.Voucher{}, false
}

func bankConfig(cfg RulesConfig) (discount.BankConfig, error) {
	const name = discount.NameBank

	offers, err := parsePercents(name, cfg.Banks)
	if err != nil {
		return discount.BankConfig{}, err
	}
	basis, err := discount.ParseBasis(cfg.BankBasis)
	if err != nil {
		return discount.BankConfig{}, err
	}
	bc := discount.BankConfig{Offers: offers, Basis: basis}
	for _, ct := range cfg.BankCardTypes {
		switch t := cart.CardType(strings.ToUpper(strings.TrimSpace(ct))); t {
		case cart.CardDebit, cart.CardCredit:
			bc.CardTypes = append(bc.CardTypes, t)
		default:
			return discount.BankConfig{}, &discount.ConfigurationError{Rule: name, Key: ct, Reason: "unknown card type"}
		}
	}
	if cfg.BankMaxDiscount != "" {
		if bc.MaxDiscount, err = parseAmount(name, cfg.BankMaxDiscount); err != nil {
			return discount.BankConfig{}, err
		}
	}
	return bc, nil
}

// parsePercents converts "key -> percent string" entries into decimals.
// Range checks are left to the rule constructors.
func parsePercents(rule string, in map[string]string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		pct, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, &discount.ConfigurationError{Rule: rule, Key: k, Reason: "invalid percent " + strconv.Quote(v)}
		}
		out[k] = pct
	}
	return out, nil
}

func parseAmount(rule, s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || amount.IsNegative() {
		return decimal.Zero, &discount.ConfigurationError{Rule: rule, Key: s, Reason: "invalid amount"}
	}
	return amount, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
