package domain

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Totals holds an order's monetary breakdown in minor currency units.
type Totals struct {
	Subtotal int64
	Shipping int64
	Tax      int64
	Total    int64
}

// MaxAmount is the largest order total the provider accepts for a single
// charge, in minor units.
const MaxAmount int64 = 99_999_999

var ErrAmountOutOfRange = errors.New("amount out of range")

// LineTotal returns quantity*unitPrice. Both must be non-negative.
func LineTotal(quantity int, unitPrice int64) (int64, error) {
	q := int64(quantity)
	if q < 0 || unitPrice < 0 {
		return 0, ErrAmountOutOfRange
	}
	if q != 0 && unitPrice > math.MaxInt64/q {
		return 0, ErrAmountOutOfRange
	}
	return q * unitPrice, nil
}

func addAmounts(a, b int64) (int64, error) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, ErrAmountOutOfRange
	}
	return a + b, nil
}

// ComputeTotals sums the line items plus shipping and tax. It fails with
// ErrAmountOutOfRange on negative inputs, int64 overflow, or a total above
// MaxAmount.
func ComputeTotals(items []LineItem, shipping, tax int64) (Totals, error) {
	var sub int64
	for _, it := range items {
		line, err := LineTotal(it.Quantity, it.UnitPrice)
		if err != nil {
			return Totals{}, err
		}
		if sub, err = addAmounts(sub, line); err != nil {
			return Totals{}, err
		}
	}
	total, err := addAmounts(sub, shipping)
	if err == nil {
		total, err = addAmounts(total, tax)
	}
	if err != nil {
		return Totals{}, err
	}
	if total > MaxAmount {
		return Totals{}, ErrAmountOutOfRange
	}
	return Totals{
		Subtotal: sub,
		Shipping: shipping,
		Tax:      tax,
		Total:    total,
	}, nil
}

// FeePolicy is the platform's cut: round(total*Rate) + Fixed.
type FeePolicy struct {
	Rate  decimal.Decimal
	Fixed int64
}

func DefaultFeePolicy() FeePolicy {
	return FeePolicy{Rate: decimal.RequireFromString("0.02"), Fixed: 30}
}

func ParseFeePolicy(rate string, fixed int64) (FeePolicy, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return FeePolicy{}, err
	}
	return FeePolicy{Rate: r, Fixed: fixed}, nil
}

// Fee returns the application fee for total. Half units round away from zero.
func (p FeePolicy) Fee(total int64) int64 {
	return decimal.NewFromInt(total).Mul(p.Rate).Round(0).IntPart() + p.Fixed
}

// Split returns the fee and the amount transferred to the seller.
func (p FeePolicy) Split(total int64) (fee, transfer int64) {
	fee = p.Fee(total)
	return fee, total - fee
}

// FormatMinor renders an amount in minor units as a major-unit string, e.g. 1350 -> "13.50".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
