// ==============================================
// File: internal/pump/constants.go
// ==============================================
package pump

import "github.com/gagliardetto/solana-go"

// TokenDecimals is the decimal count of every pump.fun mint.
const TokenDecimals = 6

// LamportsPerSOL mirrors solana.LAMPORTS_PER_SOL as a plain constant.
const LamportsPerSOL = 1_000_000_000

var (
	// ProgramID is the pump.fun bonding curve program.
	ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// GlobalAccount holds protocol-wide parameters.
	GlobalAccount = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")

	// FeeRecipient receives the protocol fee on every swap.
	FeeRecipient = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")

	// EventAuthority signs CPI event emissions.
	EventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	// MintAuthority mints every new pump.fun token.
	MintAuthority = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")
)

// Anchor method discriminators for the swap instructions.
var (
	buyDiscriminator  = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	sellDiscriminator = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

const bondingCurveSeed = "bonding-curve"
