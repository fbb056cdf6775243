package auctionapi

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MaxRateDecimals is the finest commission rate precision accepted.
const MaxRateDecimals = 18

// ErrInvalidRate is returned by ParseRate.
var ErrInvalidRate = errors.New("invalid rate")

// ParseRate parses a non-negative decimal commission rate such as "0.1".
// Rates above 1 parse fine and are rejected by the auction on the first bid.
func ParseRate(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.Wrap(ErrInvalidRate, "empty rate")
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalidRate, "%q: %v", s, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.Wrapf(ErrInvalidRate, "%q is negative", s)
	}
	if !rate.Equal(rate.Truncate(MaxRateDecimals)) {
		return decimal.Zero, errors.Wrapf(ErrInvalidRate, "%q has more than %d decimal places", s, MaxRateDecimals)
	}
	return rate, nil
}
