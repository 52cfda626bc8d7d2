package ledger

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// DefaultRentDecimals matches ether's 18 decimal places.
const DefaultRentDecimals int32 = 18

// RentToMinorUnits scales rent to the contract's smallest denomination.
// Amounts that would need more than decimals fractional digits are rejected
// rather than rounded.
func RentToMinorUnits(rent decimal.Decimal, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals %d", decimals)
	}
	if !rent.IsPositive() {
		return nil, fmt.Errorf("rent must be positive, got %s", rent)
	}
	scaled := rent.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("rent %s has more than %d decimal places", rent, decimals)
	}
	return scaled.BigInt(), nil
}
