// Package money holds fixed-point monetary values.
//
// Amounts are int64 minor units (cents). Rates are basis points, so 19% is
// 1900. Arithmetic never touches floating point; decimal is used only to
// parse and format human-readable values.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in minor units
type Amount int64

// Rate is a percentage expressed in basis points
type Rate int64

const (
	minorDigits  = 2
	minorPerUnit = 100
	basisPoints  = 10000
)

// MaxRate is 100%
const MaxRate Rate = basisPoints

// ParseAmount parses a decimal string such as "2000.00" into minor units
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	scaled := d.Shift(minorDigits)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimals", s, minorDigits)
	}
	return Amount(scaled.IntPart()), nil
}

// String formats the amount with two decimals
func (a Amount) String() string {
	return decimal.New(int64(a), -minorDigits).StringFixed(minorDigits)
}

// ParseRate parses a percentage such as "19" or "7.25" into basis points
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	scaled := d.Shift(2)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("invalid rate %q: more than 2 decimals", s)
	}
	return Rate(scaled.IntPart()), nil
}

// String formats the rate as a percentage without trailing zeros
func (r Rate) String() string {
	return decimal.New(int64(r), -2).String()
}

// Valid reports whether the rate lies within 0% and 100%
func (r Rate) Valid() bool {
	return r >= 0 && r <= MaxRate
}

// Apply returns amount * rate rounded half away from zero
func (r Rate) Apply(a Amount) Amount {
	return Amount(DivRound(int64(a)*int64(r), basisPoints))
}

// ForDuration prices seconds of work at an hourly rate, rounded half away from zero
func ForDuration(seconds int64, hourly Amount) Amount {
	return Amount(DivRound(seconds*int64(hourly), 3600))
}

// DivRound divides num by den (den > 0) rounding half away from zero
func DivRound(num, den int64) int64 {
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}
