package pricing

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-discounts/internal/domain/cart"
	"github.com/xenking/kart-discounts/internal/domain/discount"
	"github.com/xenking/kart-discounts/internal/domain/product"
)

// --- Stub rules ---

type stubRule struct {
	name  string
	adj   discount.Adjustment
	err   error
	calls int
}

func (r *stubRule) Name() string { return r.name }

func (r *stubRule) Apply(_ decimal.Decimal, _ *discount.Input) (discount.Adjustment, error) {
	r.calls++
	return r.adj, r.err
}

// percentRule takes pct off the running price, cart-wide.
type percentRule struct {
	pct decimal.Decimal
}

func (r percentRule) Name() string { return "percent" }

func (r percentRule) Apply(price decimal.Decimal, _ *discount.Input) (discount.Adjustment, error) {
	return discount.Adjustment{
		Amount:      discount.PercentOf(price, r.pct),
		Description: r.pct.String() + "% off",
	}, nil
}

type panicRule struct{}

func (panicRule) Name() string { return "panic" }

func (panicRule) Apply(decimal.Decimal, *discount.Input) (discount.Adjustment, error) {
	panic("rule defect")
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newItem(id, brand, category, price string, qty int) cart.Item {
	return cart.Item{
		Product: &product.Product{
			ID:           id,
			Brand:        brand,
			BrandTier:    product.TierPremium,
			Category:     category,
			BasePrice:    d(price),
			CurrentPrice: d(price),
		},
		Quantity: qty,
		Size:     "M",
	}
}

func newService(t *testing.T, rules ...discount.Rule) *Service {
	t.Helper()
	svc, err := NewService(rules, WithClock(func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return svc
}

func scenarioRules(t *testing.T) (brand, category, voucher, bank discount.Rule) {
	t.Helper()
	var err error
	brand, err = discount.NewBrandRule(discount.BrandConfig{Discounts: map[string]decimal.Decimal{"PUMA": d("40")}})
	require.NoError(t, err)
	category, err = discount.NewCategoryRule(discount.CategoryConfig{Discounts: map[string]decimal.Decimal{"T-shirts": d("10")}})
	require.NoError(t, err)
	voucher, err = discount.NewVoucherRule(discount.VoucherConfig{Vouchers: map[string]discount.Voucher{"SUPER69": {Percent: d("69")}}})
	require.NoError(t, err)
	bank, err = discount.NewBankOfferRule(discount.BankConfig{Offers: map[string]decimal.Decimal{"ICICI": d("10")}})
	require.NoError(t, err)
	return brand, category, voucher, bank
}

// --- Tests ---

func TestCalculate_PumaScenario(t *testing.T) {
	brand, category, _, bank := scenarioRules(t)
	svc := newService(t, brand, category, bank)

	items := []cart.Item{newItem("prod_001", "PUMA", "T-shirts", "1000.00", 1)}
	customer := &cart.Customer{ID: "cust_001", Tier: "regular"}
	payment := &cart.Payment{Method: cart.MethodCard, BankName: "ICICI", CardType: cart.CardCredit}

	res, err := svc.CalculateCartDiscounts(context.Background(), items, customer, payment, "")
	require.NoError(t, err)

	assert.True(t, d("1000.00").Equal(res.OriginalPrice), "original %s", res.OriginalPrice)
	assert.True(t, d("440.00").Equal(res.FinalPrice), "final %s", res.FinalPrice)
	assert.True(t, d("560.00").Equal(res.Savings()))
	assert.Equal(t, []string{
		"Min 40% off on PUMA",
		"Extra 10% off on T-shirts",
		"ICICI bank offer: 10% instant discount",
	}, res.Descriptions)

	require.Len(t, res.Applied, 3)
	assert.Equal(t, discount.NameBrand, res.Applied[0].Rule)
	assert.True(t, d("400").Equal(res.Applied[0].Amount))
	assert.True(t, d("60").Equal(res.Applied[1].Amount))
	assert.True(t, d("100").Equal(res.Applied[2].Amount))

	require.Len(t, res.Lines, 1)
	assert.Equal(t, "prod_001", res.Lines[0].ProductID)
	assert.True(t, d("440").Equal(res.Lines[0].Final))

	assert.Equal(t, "Applied discounts:\n"+
		"  - Min 40% off on PUMA: ₹400.00\n"+
		"  - Extra 10% off on T-shirts: ₹60.00\n"+
		"  - ICICI bank offer: 10% instant discount: ₹100.00", res.Message)

	// Inputs are untouched.
	assert.True(t, d("1000.00").Equal(items[0].Product.CurrentPrice))
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCalculate_VoucherScenario(t *testing.T) {
	brand, category, voucher, bank := scenarioRules(t)
	svc := newService(t, brand, category, voucher, bank)

	items := []cart.Item{newItem("prod_001", "PUMA", "T-shirts", "1000.00", 1)}
	customer := &cart.Customer{ID: "cust_002", Tier: "regular", VoucherCode: "SUPER69"}
	payment := &cart.Payment{Method: cart.MethodCard, BankName: "HDFC", CardType: cart.CardCredit}

	res, err := svc.CalculateCartDiscounts(context.Background(), items, customer, payment, "")
	require.NoError(t, err)

	// 1000 -> 600 -> 540 -> 540 - 372.60 = 167.40; HDFC has no offer.
	assert.True(t, d("167.40").Equal(res.FinalPrice), "final %s", res.FinalPrice)
	assert.Equal(t, []string{
		"Min 40% off on PUMA",
		"Extra 10% off on T-shirts",
		"Voucher SUPER69: 69% off",
	}, res.Descriptions)
}

func TestCalculate_VoucherAbsent(t *testing.T) {
	brand, category, voucher, _ := scenarioRules(t)
	withVoucher := newService(t, brand, category, voucher)
	without := newService(t, brand, category)

	items := []cart.Item{newItem("p1", "PUMA", "T-shirts", "1000.00", 1)}
	customer := &cart.Customer{ID: "c1", Tier: "regular"}

	for _, code := range []string{"", "NOTACODE"} {
		got, err := withVoucher.CalculateCartDiscounts(context.Background(), items, customer, nil, code)
		require.NoError(t, err)
		want, err := without.CalculateCartDiscounts(context.Background(), items, customer, nil, code)
		require.NoError(t, err)

		assert.True(t, want.FinalPrice.Equal(got.FinalPrice))
		assert.Equal(t, want.Descriptions, got.Descriptions)
		assert.Equal(t, want.Message, got.Message)
	}
}

func TestCalculate_UnknownBank(t *testing.T) {
	_, _, _, bank := scenarioRules(t)
	svc := newService(t, bank)

	items := []cart.Item{newItem("p1", "PUMA", "T-shirts", "1000.00", 1)}
	payment := &cart.Payment{Method: cart.MethodCard, BankName: "HDFC", CardType: cart.CardCredit}

	res, err := svc.CalculateCartDiscounts(context.Background(), items, nil, payment, "")
	require.NoError(t, err)
	assert.True(t, d("1000.00").Equal(res.FinalPrice))
	assert.Empty(t, res.Descriptions)
	assert.Equal(t, NoDiscountsMessage, res.Message)
}

func TestCalculate_EmptyCart(t *testing.T) {
	brand, category, voucher, bank := scenarioRules(t)
	svc := newService(t, brand, category, voucher, bank)

	res, err := svc.CalculateCartDiscounts(context.Background(), nil, &cart.Customer{ID: "c1"}, nil, "SUPER69")
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(res.OriginalPrice))
	assert.True(t, decimal.Zero.Equal(res.FinalPrice))
	assert.Empty(t, res.Descriptions)
	assert.Empty(t, res.Applied)
	assert.Equal(t, NoDiscountsMessage, res.Message)
}

func TestCalculate_OrderSensitivity(t *testing.T) {
	r33 := percentRule{pct: d("33")}
	r10 := percentRule{pct: d("10")}
	items := []cart.Item{newItem("p1", "ACME", "Misc", "7.77", 1)}

	first, err := newService(t, r33, r10).CalculateCartDiscounts(context.Background(), items, nil, nil, "")
	require.NoError(t, err)
	second, err := newService(t, r10, r33).CalculateCartDiscounts(context.Background(), items, nil, nil, "")
	require.NoError(t, err)

	// 7.77 - 2.56 = 5.21, 5.21 - 0.52 = 4.69
	assert.True(t, d("4.69").Equal(first.FinalPrice), "got %s", first.FinalPrice)
	// 7.77 - 0.78 = 6.99, 6.99 - 2.31 = 4.68
	assert.True(t, d("4.68").Equal(second.FinalPrice), "got %s", second.FinalPrice)
}

func TestCalculate_NoOpRule(t *testing.T) {
	noop := &stubRule{name: "noop"}
	svc := newService(t, noop)

	items := []cart.Item{newItem("p1", "PUMA", "T-shirts", "99.99", 2)}
	res, err := svc.CalculateCartDiscounts(context.Background(), items, nil, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 1, noop.calls)
	assert.True(t, d("199.98").Equal(res.FinalPrice))
	assert.True(t, res.OriginalPrice.Equal(res.FinalPrice))
	assert.Empty(t, res.Descriptions)
}

func TestCalculate_InvalidCartAbortsBeforeRules(t *testing.T) {
	spy := &stubRule{name: "spy"}
	svc := newService(t, spy)

	items := []cart.Item{
		newItem("p1", "PUMA", "T-shirts", "10.00", 1),
		newItem("p2", "PUMA", "T-shirts", "10.00", -1),
	}
	_, err := svc.CalculateCartDiscounts(context.Background(), items, nil, nil, "")

	require.ErrorIs(t, err, cart.ErrInvalidCart)
	var ice *cart.InvalidCartError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "p2", ice.ProductID)
	assert.Zero(t, spy.calls)
}

func TestCalculate_RuleErrorPropagates(t *testing.T) {
	after := &stubRule{name: "after"}
	svc := newService(t, &stubRule{name: "broken", err: errors.New("lookup failed")}, after)

	res, err := svc.CalculateCartDiscounts(context.Background(),
		[]cart.Item{newItem("p1", "PUMA", "T-shirts", "10.00", 1)}, nil, nil, "")

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), `apply rule "broken"`)
	assert.Contains(t, err.Error(), "lookup failed")
	assert.Zero(t, after.calls)
}

func TestCalculate_RulePanicPropagates(t *testing.T) {
	svc := newService(t, panicRule{})
	assert.PanicsWithValue(t, "rule defect", func() {
		_, _ = svc.CalculateCartDiscounts(context.Background(),
			[]cart.Item{newItem("p1", "PUMA", "T-shirts", "10.00", 1)}, nil, nil, "")
	})
}

func TestCalculate_MismatchedLineAdjustments(t *testing.T) {
	bad := &stubRule{name: "bad", adj: discount.Adjustment{
		Amount: d("1"),
		Lines:  []decimal.Decimal{d("1"), d("0")},
	}}
	svc := newService(t, bad)

	_, err := svc.CalculateCartDiscounts(context.Background(),
		[]cart.Item{newItem("p1", "PUMA", "T-shirts", "10.00", 1)}, nil, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line adjustments")
}

func TestCalculate_FinalPriceFlooredAtZero(t *testing.T) {
	huge := &stubRule{name: "huge", adj: discount.Adjustment{Amount: d("999.00"), Description: "huge discount"}}
	svc := newService(t, huge)

	res, err := svc.CalculateCartDiscounts(context.Background(),
		[]cart.Item{newItem("p1", "PUMA", "T-shirts", "10.00", 1)}, nil, nil, "")
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(res.FinalPrice))
	assert.True(t, d("10").Equal(res.Applied[0].Amount))
}

func TestCalculate_CartWideDiscountApportionedAcrossLines(t *testing.T) {
	brand, _, voucher, _ := scenarioRules(t)
	svc := newService(t, voucher, brand)

	items := []cart.Item{
		newItem("p1", "PUMA", "T-shirts", "100.00", 1),
		newItem("p2", "NIKE", "Shoes", "200.00", 1),
	}
	res, err := svc.CalculateCartDiscounts(context.Background(), items, nil, nil, "SUPER69")
	require.NoError(t, err)

	// Voucher: 300 * 69% = 207 -> lines 31.00 / 62.00. Brand then takes 40%
	// of the PUMA line's running total: 12.40.
	assert.True(t, d("31.00").Sub(d("12.40")).Equal(res.Lines[0].Final), "got %s", res.Lines[0].Final)
	assert.True(t, d("62.00").Equal(res.Lines[1].Final), "got %s", res.Lines[1].Final)
	assert.True(t, d("80.60").Equal(res.FinalPrice), "got %s", res.FinalPrice)
}

func sumLines(res *Result) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range res.Lines {
		sum = sum.Add(l.Final)
	}
	return sum
}

func TestCalculate_ApportionRemainderKeepsLinesInSync(t *testing.T) {
	items := []cart.Item{
		newItem("p1", "PUMA", "T-shirts", "0.33", 1),
		newItem("p2", "PUMA", "T-shirts", "0.33", 1),
		newItem("p3", "PUMA", "T-shirts", "0.33", 1),
		newItem("p4", "PUMA", "T-shirts", "0.01", 1),
	}
	r98 := percentRule{pct: d("98")}

	res, err := newService(t, r98).CalculateCartDiscounts(context.Background(), items, nil, nil, "")
	require.NoError(t, err)
	assert.True(t, d("0.02").Equal(res.FinalPrice), "got %s", res.FinalPrice)
	assert.True(t, res.FinalPrice.Equal(sumLines(res)), "lines %s", sumLines(res))

	brand, err := discount.NewBrandRule(discount.BrandConfig{Discounts: map[string]decimal.Decimal{"PUMA": d("100")}})
	require.NoError(t, err)
	res, err = newService(t, r98, brand).CalculateCartDiscounts(context.Background(), items, nil, nil, "")
	require.NoError(t, err)
	require.Len(t, res.Applied, 2)
	assert.True(t, d("0.02").Equal(res.Applied[1].Amount), "got %s", res.Applied[1].Amount)
	assert.True(t, decimal.Zero.Equal(res.FinalPrice), "got %s", res.FinalPrice)
	assert.True(t, decimal.Zero.Equal(sumLines(res)))
}

func TestCalculate_EmptyDescriptionNotRecorded(t *testing.T) {
	silent := &stubRule{name: "silent", adj: discount.Adjustment{Amount: d("1.00")}}
	svc := newService(t, silent)

	res, err := svc.CalculateCartDiscounts(context.Background(),
		[]cart.Item{newItem("p1", "PUMA", "T-shirts", "10.00", 1)}, nil, nil, "")
	require.NoError(t, err)
	assert.True(t, d("9.00").Equal(res.FinalPrice))
	assert.Empty(t, res.Descriptions)
	assert.Equal(t, "Applied discounts:\n  - silent: ₹1.00", res.Message)
}

func TestNewService_NilRule(t *testing.T) {
	_, err := NewService([]discount.Rule{nil})
	require.ErrorIs(t, err, discount.ErrConfiguration)
}

func TestService_Rules(t *testing.T) {
	brand, category, voucher, bank := scenarioRules(t)
	svc := newService(t, brand, category, voucher, bank)
	assert.Equal(t, DefaultOrder, svc.Rules())
}

func TestCalculate_MonotonicAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	brands := []string{"PUMA", "NIKE", "ADIDAS"}
	categories := []string{"T-shirts", "Shoes"}

	brand, category, voucher, bank := scenarioRules(t)
	svc := newService(t, brand, category, voucher, bank, percentRule{pct: d("100")})
	partial := newService(t, bank, voucher, category, brand)

	for range 200 {
		n := 1 + rng.IntN(4)
		items := make([]cart.Item, n)
		for i := range items {
			price := decimal.New(rng.Int64N(500000), -2)
			items[i] = newItem("p", brands[rng.IntN(len(brands))], categories[rng.IntN(len(categories))], price.String(), 1+rng.IntN(3))
		}
		payment := &cart.Payment{Method: cart.MethodCard, BankName: "ICICI"}

		for _, s := range []*Service{svc, partial} {
			a, err := s.CalculateCartDiscounts(context.Background(), items, nil, payment, "SUPER69")
			require.NoError(t, err)
			b, err := s.CalculateCartDiscounts(context.Background(), items, nil, payment, "SUPER69")
			require.NoError(t, err)

			assert.False(t, a.FinalPrice.IsNegative())
			assert.True(t, a.FinalPrice.LessThanOrEqual(a.OriginalPrice))
			assert.True(t, a.FinalPrice.Equal(b.FinalPrice))
			assert.True(t, a.FinalPrice.Equal(sumLines(a)), "lines %s, final %s", sumLines(a), a.FinalPrice)
			assert.Equal(t, a.Message, b.Message)
		}
	}
}

func TestCalculate_ConcurrentUse(t *testing.T) {
	brand, category, voucher, bank := scenarioRules(t)
	svc := newService(t, brand, category, voucher, bank)

	items := []cart.Item{newItem("prod_001", "PUMA", "T-shirts", "1000.00", 1)}
	payment := &cart.Payment{Method: cart.MethodCard, BankName: "ICICI", CardType: cart.CardCredit}

	var wg sync.WaitGroup
	results := make([]*Result, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CalculateCartDiscounts(context.Background(), items, nil, payment, "")
			if err == nil {
				results[i] = res
			}
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.True(t, d("440.00").Equal(res.FinalPrice))
	}
}
