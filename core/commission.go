package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// SplitCommission divides a contribution into the net amount credited to the
// bidder and the commission routed to the owner.
//
// Formula: commission = floor(amount * part), net = amount - commission
//
// The product is computed exactly with decimal arithmetic so results are
// identical across platforms.
func SplitCommission(amount uint64, part decimal.Decimal) (net, commission uint64, err error) {
	amountDecimal := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
	commissionDecimal := amountDecimal.Mul(part).Floor()

	if commissionDecimal.IsNegative() || commissionDecimal.GreaterThan(amountDecimal) {
		return 0, 0, ErrInvalidCommission
	}

	commission = commissionDecimal.BigInt().Uint64()
	return amount - commission, commission, nil
}

// addAmounts adds two amounts, failing instead of wrapping around.
func addAmounts(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}
