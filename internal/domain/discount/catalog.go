package discount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/product"
)

// BrandConfig maps brand names to a minimum percentage off.
type BrandConfig struct {
	Discounts map[string]decimal.Decimal
}

// CategoryConfig maps category names to a percentage off.
type CategoryConfig struct {
	Discounts map[string]decimal.Decimal
}

// BrandTierConfig maps brand tiers to a percentage off.
type BrandTierConfig struct {
	Discounts map[product.BrandTier]decimal.Decimal
}

// lineRule is a line-scoped rule: every cart line whose product matches a
// configured key is reduced by that key's percentage of the line's running
// total. Each matched line is rounded separately.
type lineRule struct {
	name     string
	table    map[string]percentEntry
	key      func(p *product.Product) string
	describe func(label string, pct decimal.Decimal) string
}

func (r *lineRule) Name() string { return r.name }

func (r *lineRule) Apply(_ decimal.Decimal, in *Input) (Adjustment, error) {
	var (
		lines []decimal.Decimal
		total = zero
		descs []string
		seen  = make(map[string]struct{})
	)
	for i, item := range in.Items {
		if item.Product == nil {
			continue
		}
		k := r.key(item.Product)
		e, ok := r.table[normalizeKey(k)]
		if !ok || e.pct.IsZero() {
			continue
		}
		amount := PercentOf(in.LineTotal(i), e.pct)
		if !amount.IsPositive() {
			continue
		}
		if lines == nil {
			lines = make([]decimal.Decimal, len(in.Items))
		}
		lines[i] = amount
		total = total.Add(amount)

		if _, dup := seen[normalizeKey(k)]; !dup {
			seen[normalizeKey(k)] = struct{}{}
			descs = append(descs, r.describe(strings.TrimSpace(k), e.pct))
		}
	}
	if !total.IsPositive() {
		return Adjustment{}, nil
	}
	return Adjustment{
		Amount:      total,
		Lines:       lines,
		Description: strings.Join(descs, "; "),
	}, nil
}

// NewBrandRule returns a rule that marks down lines of the configured brands.
// Brand names match case-insensitively.
func NewBrandRule(cfg BrandConfig) (Rule, error) {
	table, err := buildPercentTable(NameBrand, cfg.Discounts)
	if err != nil {
		return nil, err
	}
	return &lineRule{
		name:  NameBrand,
		table: table,
		key:   func(p *product.Product) string { return p.Brand },
		describe: func(brand string, pct decimal.Decimal) string {
			return fmt.Sprintf("Min %s%% off on %s", pct, brand)
		},
	}, nil
}

// NewCategoryRule returns a rule that marks down lines of the configured
// categories. It stacks on whatever ran before it in the pipeline.
func NewCategoryRule(cfg CategoryConfig) (Rule, error) {
	table, err := buildPercentTable(NameCategory, cfg.Discounts)
	if err != nil {
		return nil, err
	}
	return &lineRule{
		name:  NameCategory,
		table: table,
		key:   func(p *product.Product) string { return p.Category },
		describe: func(category string, pct decimal.Decimal) string {
			return fmt.Sprintf("Extra %s%% off on %s", pct, category)
		},
	}, nil
}

// NewBrandTierRule returns a rule that marks down lines by brand tier.
func NewBrandTierRule(cfg BrandTierConfig) (Rule, error) {
	in := make(map[string]decimal.Decimal, len(cfg.Discounts))
	for tier, pct := range cfg.Discounts {
		in[string(tier)] = pct
	}
	table, err := buildPercentTable(NameBrandTier, in)
	if err != nil {
		return nil, err
	}
	return &lineRule{
		name:  NameBrandTier,
		table: table,
		key:   func(p *product.Product) string { return string(p.BrandTier) },
		describe: func(tier string, pct decimal.Decimal) string {
			return fmt.Sprintf("%s%% off on %s brands", pct, strings.ToLower(tier))
		},
	}, nil
}
