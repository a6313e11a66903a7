package games

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// weiDecimals is the ether exponent of one wei.
const weiDecimals = 18

// StakeToEther converts a wei amount into ether.
func StakeToEther(wei *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei.ToBig(), -weiDecimals)
}

// FormatStake renders a wei amount as an ether string, e.g. "0.0015".
func FormatStake(wei *uint256.Int) string {
	return StakeToEther(wei).String()
}
