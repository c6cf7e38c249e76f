// Package discount defines the discount rule abstraction and its variants.
//
// A Rule inspects a read-only snapshot of the cart and returns an Adjustment.
// Rules are configured once, validated in their constructors, and hold no
// per-invocation state, so a single instance may be shared by concurrent
// calculations.
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

// Rule names reported by the built-in variants.
const (
	NameBrand     = "brand"
	NameCategory  = "category"
	NameBrandTier = "brand_tier"
	NameVoucher   = "voucher"
	NameBank      = "bank"
	NameTier      = "tier"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Rule is a single discount policy.
//
// Apply receives the running price and the invocation snapshot and returns
// the reduction to make. A zero Adjustment means the rule does not apply;
// that is never reported as an error. A returned error signals a defect in
// the rule itself.
type Rule interface {
	Name() string
	Apply(price decimal.Decimal, in *Input) (Adjustment, error)
}

// Input is the read-only snapshot a rule is evaluated against.
type Input struct {
	Items    []cart.Item
	Customer *cart.Customer
	Payment  *cart.Payment
	// VoucherCode is the code supplied with the invocation.
	VoucherCode string
	// OriginalPrice is the sum of line totals before any rule ran.
	OriginalPrice decimal.Decimal
	// Lines holds the running total of each item, index-aligned with Items.
	Lines []decimal.Decimal
	// At is the evaluation instant.
	At time.Time
}

// LineTotal returns the running total of item i. Without running totals it
// falls back to the item's undiscounted line total.
func (in *Input) LineTotal(i int) decimal.Decimal {
	if len(in.Lines) == len(in.Items) {
		return in.Lines[i]
	}
	return in.Items[i].LineTotal()
}

// Voucher returns the voucher code for this invocation: the explicit code if
// set, otherwise the one carried on the customer profile.
func (in *Input) Voucher() string {
	if code := strings.TrimSpace(in.VoucherCode); code != "" {
		return code
	}
	if in.Customer != nil {
		return strings.TrimSpace(in.Customer.VoucherCode)
	}
	return ""
}

// Adjustment is the outcome of a single rule application.
type Adjustment struct {
	// Amount is the total reduction, rounded to 2 decimal places.
	Amount decimal.Decimal
	// Lines holds per-item reductions for line-scoped rules. Nil means the
	// reduction applies to the cart as a whole.
	Lines []decimal.Decimal
	// Description is a customer-facing explanation.
	Description string
}

// Applied reports whether the adjustment reduces the price.
func (a Adjustment) Applied() bool {
	return a.Amount.IsPositive()
}

// ErrConfiguration matches every *ConfigurationError.
var ErrConfiguration = errors.New("invalid discount configuration")

// ConfigurationError reports invalid rule configuration detected at
// construction time.
type ConfigurationError struct {
	Rule   string
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s rule: %s", e.Rule, e.Reason)
	}
	return fmt.Sprintf("%s rule: %q: %s", e.Rule, e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ValidatePercent reports whether pct lies in [0, 100].
func ValidatePercent(rule, key string, pct decimal.Decimal) error {
	if pct.IsNegative() {
		return &ConfigurationError{Rule: rule, Key: key, Reason: fmt.Sprintf("percentage %s is negative", pct)}
	}
	if pct.GreaterThan(hundred) {
		return &ConfigurationError{Rule: rule, Key: key, Reason: fmt.Sprintf("percentage %s exceeds 100", pct)}
	}
	return nil
}

// PercentOf returns the reduction that takes basis pct percent down. The
// reduced price is rounded half-up to 2 decimal places, so at an exact tie
// the price rounds up: 10% off 10.05 is 9.05 and the reduction is 1.00.
func PercentOf(basis, pct decimal.Decimal) decimal.Decimal {
	raw := basis.Mul(pct).Div(hundred)
	return basis.Sub(basis.Sub(raw).Round(2)).Round(2)
}

// normalizeKey folds configuration keys and lookups to a common form.
func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type percentEntry struct {
	label string
	pct   decimal.Decimal
}

// buildPercentTable validates a key -> percent mapping and indexes it by
// normalized key. Keys are visited in sorted order so the reported error is
// stable.
func buildPercentTable(rule string, in map[string]decimal.Decimal) (map[string]percentEntry, error) {
	table := make(map[string]percentEntry, len(in))
	for _, key := range slices.Sorted(maps.Keys(in)) {
		norm := normalizeKey(key)
		if norm == "" {
			return nil, &ConfigurationError{Rule: rule, Key: key, Reason: "empty key"}
		}
		if prev, ok := table[norm]; ok {
			return nil, &ConfigurationError{Rule: rule, Key: key, Reason: fmt.Sprintf("duplicates %q", prev.label)}
		}
		pct := in[key]
		if err := ValidatePercent(rule, key, pct); err != nil {
			return nil, err
		}
		table[norm] = percentEntry{label: strings.TrimSpace(key), pct: pct}
	}
	return table, nil
}

// capAmount limits amount to maxDiscount (when positive) and to price.
func capAmount(amount, maxDiscount, price decimal.Decimal) decimal.Decimal {
	if maxDiscount.IsPositive() {
		amount = decimal.Min(amount, maxDiscount)
	}
	amount = decimal.Min(amount, price)
	if amount.IsNegative() {
		return zero
	}
	return amount
}
