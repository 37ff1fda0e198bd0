// ==============================================
// File: internal/feed/types.go
// ==============================================
package feed

// NewCoin is a token launch event, normalized across feed protocols.
// Reserve fields carry the curve's initial virtual reserves so the
// sniper can price a buy without an extra RPC round trip.
type NewCoin struct {
	Mint                   string  `json:"mint"`
	Name                   string  `json:"name"`
	Symbol                 string  `json:"symbol"`
	Creator                string  `json:"creator"`
	BondingCurve           string  `json:"bonding_curve"`
	AssociatedBondingCurve string  `json:"associated_bonding_curve"`
	Twitter                *string `json:"twitter"`
	Telegram               *string `json:"telegram"`
	Website                *string `json:"website"`
	CreatedTimestamp       int64   `json:"created_timestamp"`
	VirtualSolReserves     uint64  `json:"virtual_sol_reserves"`
	VirtualTokenReserves   uint64  `json:"virtual_token_reserves"`
}

// portalEvent is the pumpportal wire format. Reserves arrive as whole
// token / SOL floats instead of base units.
type portalEvent struct {
	Signature             string  `json:"signature"`
	Mint                  string  `json:"mint"`
	TraderPublicKey       string  `json:"traderPublicKey"`
	TxType                string  `json:"txType"`
	Name                  string  `json:"name"`
	Symbol                string  `json:"symbol"`
	URI                   string  `json:"uri"`
	VTokensInBondingCurve float64 `json:"vTokensInBondingCurve"`
	VSolInBondingCurve    float64 `json:"vSolInBondingCurve"`
	BondingCurveKey       string  `json:"bondingCurveKey"`
	Message               string  `json:"message"`
}
