// ==============================================
// File: internal/pump/curve.go
// ==============================================
package pump

import (
	"errors"
	"math/big"
)

// Pricing error taxonomy. Callers branch on these; none of the math
// paths panic.
var (
	ErrReserveOverflow  = errors.New("reserve product overflows 128 bits")
	ErrDivideByZero     = errors.New("post-swap sol reserve is zero")
	ErrReserveUnderflow = errors.New("token output exceeds virtual reserves")
	ErrCurveComplete    = errors.New("bonding curve is complete")
)

var oneBig = big.NewInt(1)

// TokenAmount computes how many base token units a buy of `lamports`
// receives from a constant-product curve with the given virtual
// reserves. Intermediates are 128-bit; the quotient is rounded up by
// one unit, matching the on-chain program. When realToken is non-nil
// the result is clamped to the remaining real reserves.
func TokenAmount(virtualSol, virtualToken uint64, realToken *uint64, lamports uint64) (uint64, error) {
	vSol := new(big.Int).SetUint64(virtualSol)
	vToken := new(big.Int).SetUint64(virtualToken)

	product := new(big.Int).Mul(vSol, vToken)
	if product.BitLen() > 128 {
		return 0, ErrReserveOverflow
	}

	newSol := new(big.Int).Add(vSol, new(big.Int).SetUint64(lamports))
	if newSol.BitLen() > 128 {
		return 0, ErrReserveOverflow
	}
	if newSol.Sign() == 0 {
		return 0, ErrDivideByZero
	}

	newToken := new(big.Int).Add(new(big.Int).Quo(product, newSol), oneBig)
	if newToken.Cmp(vToken) > 0 {
		return 0, ErrReserveUnderflow
	}

	out := new(big.Int).Sub(vToken, newToken)
	amount := out.Uint64()

	if realToken != nil && amount > *realToken {
		amount = *realToken
	}
	return amount, nil
}

// SolAmount computes the lamports released by selling `tokens` base
// units back into the curve. Used to derive a minimum-output floor.
func SolAmount(virtualSol, virtualToken, tokens uint64) (uint64, error) {
	vSol := new(big.Int).SetUint64(virtualSol)
	vToken := new(big.Int).SetUint64(virtualToken)

	product := new(big.Int).Mul(vSol, vToken)
	if product.BitLen() > 128 {
		return 0, ErrReserveOverflow
	}

	newToken := new(big.Int).Add(vToken, new(big.Int).SetUint64(tokens))
	if newToken.Sign() == 0 {
		return 0, ErrDivideByZero
	}

	newSol := new(big.Int).Quo(product, newToken)
	if newSol.Cmp(vSol) > 0 {
		return 0, ErrReserveUnderflow
	}

	return new(big.Int).Sub(vSol, newSol).Uint64(), nil
}
