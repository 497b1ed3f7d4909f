// Package core provides money parsing and handling utilities.
//
// Amounts cross the API as decimals and are stored as signed integer cents
// so that balance arithmetic in the database is exact.
package core

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount too large")
)

// MaxBalanceCents bounds every stored balance. The store refuses a balance
// update whose result would leave [-MaxBalanceCents, MaxBalanceCents].
const MaxBalanceCents int64 = 9_000_000_000_000_000_000

// maxMajorUnits bounds a single amount or manually set balance at 1e14 cents,
// five orders of magnitude below MaxBalanceCents.
var maxMajorUnits = decimal.New(1, 12)

var hundred = decimal.NewFromInt(100)

// Money is a signed amount in hundredths of the currency's major unit.
type Money struct {
	Cents int64
}

// MoneyFromDecimal rounds d half away from zero to two places.
//
// Examples:
//
//	MoneyFromDecimal(12.345)  -> {1235}
//	MoneyFromDecimal(-12.344) -> {-1234}
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.Abs().GreaterThan(maxMajorUnits) {
		return Money{}, ErrAmountTooLarge
	}
	return Money{Cents: d.Round(2).Mul(hundred).IntPart()}, nil
}

// ParseAmount parses a decimal string such as "50000", "12.34" or "12,34".
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Display formats the amount for humans in the given ISO currency, using the
// currency's own number of fractional digits. Unknown codes fall back to
// "<amount> <code>".
func (m Money) Display(currency string) string {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return m.String() + " " + currency
	}
	minor := m.Decimal().Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// Percent returns part as a percentage of total, rounded to two places.
// A zero total yields zero.
func Percent(part, total Money) float64 {
	if total.IsZero() {
		return 0
	}
	p := decimal.NewFromInt(part.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(total.Cents)).
		Round(2)
	return p.InexactFloat64()
}
