package discount

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// TierConfig maps customer loyalty tiers to a percentage off.
type TierConfig struct {
	Discounts map[string]decimal.Decimal
}

// TierRule grants a cart-wide loyalty discount on the running price.
type TierRule struct {
	tiers map[string]percentEntry
}

var _ Rule = (*TierRule)(nil)

// NewTierRule validates cfg and returns a TierRule.
func NewTierRule(cfg TierConfig) (*TierRule, error) {
	tiers, err := buildPercentTable(NameTier, cfg.Discounts)
	if err != nil {
		return nil, err
	}
	return &TierRule{tiers: tiers}, nil
}

func (r *TierRule) Name() string { return NameTier }

func (r *TierRule) Apply(price decimal.Decimal, in *Input) (Adjustment, error) {
	if in.Customer == nil {
		return Adjustment{}, nil
	}
	e, ok := r.tiers[normalizeKey(in.Customer.Tier)]
	if !ok {
		return Adjustment{}, nil
	}
	amount := capAmount(PercentOf(price, e.pct), zero, price)
	if !amount.IsPositive() {
		return Adjustment{}, nil
	}
	return Adjustment{
		Amount:      amount,
		Description: fmt.Sprintf("%s member: %s%% off", capitalize(e.label), e.pct),
	}, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
