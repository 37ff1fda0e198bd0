// ==============================================
// File: internal/pump/accounts.go
// ==============================================
package pump

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// TradeAccounts are the mint-derived addresses every swap touches.
type TradeAccounts struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
}

// Derivation is deterministic per mint, so results are memoized.
var tradeAccountCache sync.Map // solana.PublicKey -> TradeAccounts

// DeriveTradeAccounts derives the bonding curve PDA and its associated
// token account for the given mint.
func DeriveTradeAccounts(mint solana.PublicKey) (TradeAccounts, error) {
	if cached, ok := tradeAccountCache.Load(mint); ok {
		return cached.(TradeAccounts), nil
	}

	bondingCurve, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(bondingCurveSeed), mint.Bytes()},
		ProgramID,
	)
	if err != nil {
		return TradeAccounts{}, fmt.Errorf("failed to derive bonding curve for %s: %w", mint.String(), err)
	}

	associated, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return TradeAccounts{}, fmt.Errorf("failed to derive associated bonding curve for %s: %w", mint.String(), err)
	}

	accounts := TradeAccounts{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associated,
	}
	tradeAccountCache.Store(mint, accounts)
	return accounts, nil
}
