package pricing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/kart-discounts/internal/domain/cart"
	"github.com/xenking/kart-discounts/internal/domain/discount"
)

// DefaultOrder is the recommended rule order: catalog markdowns first, then
// vouchers, then payment offers. The Service itself runs rules in whatever
// order it is given.
var DefaultOrder = []string{
	discount.NameBrand,
	discount.NameCategory,
	discount.NameVoucher,
	discount.NameBank,
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for time-windowed rules.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCurrency sets the currency symbol used in result messages.
func WithCurrency(symbol string) Option {
	return func(s *Service) {
		s.currency = symbol
	}
}

// Service runs an ordered pipeline of discount rules over a cart.
//
// The rule list is fixed at construction and rules are stateless, so a
// Service is safe for concurrent use without locking.
type Service struct {
	rules    []discount.Rule
	now      func() time.Time
	currency string
}

// NewService creates a Service that applies rules in the given order.
func NewService(rules []discount.Rule, opts ...Option) (*Service, error) {
	for i, r := range rules {
		if r == nil {
			return nil, &discount.ConfigurationError{Rule: "pipeline", Reason: fmt.Sprintf("nil rule at position %d", i)}
		}
	}
	s := &Service{
		rules:    slices.Clone(rules),
		now:      time.Now,
		currency: "₹",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rules returns the names of the configured rules in application order.
func (s *Service) Rules() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Name()
	}
	return names
}

// CalculateCartDiscounts validates the cart, runs every rule in order against
// the running price and folds the adjustments into a Result.
//
// An empty cart yields a zero Result. A structurally invalid cart fails with
// *cart.InvalidCartError before any rule runs. An error returned by a rule
// aborts the calculation and is returned wrapped with the rule name.
func (s *Service) CalculateCartDiscounts(
	ctx context.Context,
	items []cart.Item,
	customer *cart.Customer,
	payment *cart.Payment,
	voucherCode string,
) (*Result, error) {
	if err := cart.Validate(items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return emptyResult(), nil
	}

	lg := zctx.From(ctx)

	original := cart.Subtotal(items)
	lines := make([]decimal.Decimal, len(items))
	for i, item := range items {
		lines[i] = item.LineTotal()
	}

	in := &discount.Input{
		Items:         slices.Clone(items),
		Customer:      customer,
		Payment:       payment,
		VoucherCode:   voucherCode,
		OriginalPrice: original,
		At:            s.now(),
	}

	running := original
	var applied []AppliedDiscount
	for _, rule := range s.rules {
		in.Lines = slices.Clone(lines)

		adj, err := rule.Apply(running, in)
		if err != nil {
			return nil, errors.Wrapf(err, "apply rule %q", rule.Name())
		}
		if !adj.Applied() {
			continue
		}

		var amount decimal.Decimal
		if adj.Lines != nil {
			if len(adj.Lines) != len(lines) {
				return nil, errors.Errorf("rule %q returned %d line adjustments for %d items",
					rule.Name(), len(adj.Lines), len(lines))
			}
			amount = reduceLines(lines, adj.Lines)
		} else {
			amount = decimal.Min(adj.Amount.Round(2), running)
			apportion(lines, amount, running)
		}
		if !amount.IsPositive() {
			continue
		}
		running = running.Sub(amount)

		applied = append(applied, AppliedDiscount{
			Rule:        rule.Name(),
			Amount:      amount,
			Description: adj.Description,
		})
		lg.Debug("Discount applied",
			zap.String("rule", rule.Name()),
			zap.String("amount", amount.StringFixed(2)),
			zap.String("running", running.StringFixed(2)),
		)
	}

	final := running
	if final.IsNegative() {
		final = decimal.Zero
	}

	return newResult(items, lines, original, final, applied, s.currency), nil
}

// reduceLines subtracts per-line reductions, never taking a line below zero,
// and returns the total actually removed.
func reduceLines(lines, reductions []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i, r := range reductions {
		if !r.IsPositive() {
			continue
		}
		r = decimal.Min(r, lines[i])
		lines[i] = lines[i].Sub(r)
		total = total.Add(r)
	}
	return total
}

// apportion spreads a cart-wide reduction across lines in proportion to their
// running totals. The last non-zero line absorbs the rounding remainder; any
// part it cannot take goes to the earlier lines that still have room, so the
// lines always sum to running minus amount.
func apportion(lines []decimal.Decimal, amount, running decimal.Decimal) {
	if !running.IsPositive() || !amount.IsPositive() {
		return
	}
	last := -1
	for i, l := range lines {
		if l.IsPositive() {
			last = i
		}
	}
	if last < 0 {
		return
	}

	remaining := amount
	for i, l := range lines {
		if !l.IsPositive() {
			continue
		}
		share := remaining
		if i != last {
			share = decimal.Min(amount.Mul(l).Div(running).Round(2), remaining)
		}
		share = decimal.Min(share, l)
		lines[i] = l.Sub(share)
		remaining = remaining.Sub(share)
	}
	for i := last; i >= 0 && remaining.IsPositive(); i-- {
		share := decimal.Min(remaining, lines[i])
		if !share.IsPositive() {
			continue
		}
		lines[i] = lines[i].Sub(share)
		remaining = remaining.Sub(share)
	}
}
