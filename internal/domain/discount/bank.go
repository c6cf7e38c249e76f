package discount

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-discounts/internal/domain/cart"
)

// Basis selects the price a percentage is computed against.
type Basis int

const (
	// BasisOriginal computes the discount on the cart's original price.
	BasisOriginal Basis = iota
	// BasisRunning computes the discount on the price left by earlier rules.
	BasisRunning
)

func (b Basis) String() string {
	switch b {
	case BasisOriginal:
		return "original"
	case BasisRunning:
		return "running"
	default:
		return fmt.Sprintf("Basis(%d)", int(b))
	}
}

// ParseBasis parses "original" or "running".
func ParseBasis(s string) (Basis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "original":
		return BasisOriginal, nil
	case "running":
		return BasisRunning, nil
	default:
		return 0, &ConfigurationError{Rule: NameBank, Key: s, Reason: "unknown basis"}
	}
}

// BankConfig configures payment-method offers.
type BankConfig struct {
	// Offers maps bank names to a percentage off.
	Offers map[string]decimal.Decimal
	// Basis defaults to BasisOriginal: an instant card discount is computed on
	// the cart's original price regardless of earlier markdowns.
	Basis Basis
	// CardTypes limits the offer to these card types. Empty means any card.
	CardTypes []cart.CardType
	// MaxDiscount caps the reduction when positive.
	MaxDiscount decimal.Decimal
}

// BankOfferRule grants an instant discount to card payments from configured
// banks.
//
// With BasisOriginal (the default) the amount is pct of the original price,
// so a 10% ICICI offer on a 1000.00 cart is always 100.00 even after a brand
// markdown. The amount never exceeds the running price.
type BankOfferRule struct {
	offers      map[string]percentEntry
	basis       Basis
	cardTypes   map[string]struct{}
	maxDiscount decimal.Decimal
}

var _ Rule = (*BankOfferRule)(nil)

// NewBankOfferRule validates cfg and returns a BankOfferRule.
func NewBankOfferRule(cfg BankConfig) (*BankOfferRule, error) {
	offers, err := buildPercentTable(NameBank, cfg.Offers)
	if err != nil {
		return nil, err
	}
	if cfg.Basis != BasisOriginal && cfg.Basis != BasisRunning {
		return nil, &ConfigurationError{Rule: NameBank, Reason: fmt.Sprintf("unknown basis %d", int(cfg.Basis))}
	}
	if cfg.MaxDiscount.IsNegative() {
		return nil, &ConfigurationError{Rule: NameBank, Reason: "max discount is negative"}
	}
	var cardTypes map[string]struct{}
	for _, ct := range cfg.CardTypes {
		switch cart.CardType(normalizeKey(string(ct))) {
		case cart.CardDebit, cart.CardCredit:
		default:
			return nil, &ConfigurationError{Rule: NameBank, Key: string(ct), Reason: "unknown card type"}
		}
		if cardTypes == nil {
			cardTypes = make(map[string]struct{}, len(cfg.CardTypes))
		}
		cardTypes[normalizeKey(string(ct))] = struct{}{}
	}
	return &BankOfferRule{
		offers:      offers,
		basis:       cfg.Basis,
		cardTypes:   cardTypes,
		maxDiscount: cfg.MaxDiscount,
	}, nil
}

func (r *BankOfferRule) Name() string { return NameBank }

// Basis reports the price the offer is computed against.
func (r *BankOfferRule) Basis() Basis { return r.basis }

func (r *BankOfferRule) Apply(price decimal.Decimal, in *Input) (Adjustment, error) {
	if !in.Payment.IsCard() {
		return Adjustment{}, nil
	}
	e, ok := r.offers[normalizeKey(in.Payment.BankName)]
	if !ok || e.pct.IsZero() {
		return Adjustment{}, nil
	}
	if r.cardTypes != nil {
		if _, ok := r.cardTypes[normalizeKey(string(in.Payment.CardType))]; !ok {
			return Adjustment{}, nil
		}
	}

	basis := price
	if r.basis == BasisOriginal {
		basis = in.OriginalPrice
	}
	amount := capAmount(PercentOf(basis, e.pct), r.maxDiscount, price)
	if !amount.IsPositive() {
		return Adjustment{}, nil
	}
	return Adjustment{
		Amount:      amount,
		Description: fmt.Sprintf("%s bank offer: %s%% instant discount", e.label, e.pct),
	}, nil
}
