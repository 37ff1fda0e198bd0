// ==============================================
// File: internal/pump/instructions.go
// ==============================================
package pump

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BuildBuyInstruction builds a bonding curve buy. The account list must
// be in the exact order expected by the program.
func BuildBuyInstruction(
	accounts TradeAccounts,
	owner solana.PublicKey,
	tokenAmount, maxSolCost uint64,
) (solana.Instruction, error) {
	data := make([]byte, 0, 24)
	data = append(data, buyDiscriminator...)
	data = binary.LittleEndian.AppendUint64(data, tokenAmount)
	data = binary.LittleEndian.AppendUint64(data, maxSolCost)

	userATA, _, err := solana.FindAssociatedTokenAddress(owner, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user token account: %w", err)
	}

	insAccounts := []*solana.AccountMeta{
		{PublicKey: GlobalAccount, IsSigner: false, IsWritable: false},
		{PublicKey: FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: userATA, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

// BuildSellInstruction builds a bonding curve sell. The sell account
// list swaps the rent sysvar for the associated token program.
func BuildSellInstruction(
	accounts TradeAccounts,
	owner solana.PublicKey,
	tokenAmount, minSolOutput uint64,
) (solana.Instruction, error) {
	data := make([]byte, 0, 24)
	data = append(data, sellDiscriminator...)
	data = binary.LittleEndian.AppendUint64(data, tokenAmount)
	data = binary.LittleEndian.AppendUint64(data, minSolOutput)

	userATA, _, err := solana.FindAssociatedTokenAddress(owner, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user token account: %w", err)
	}

	insAccounts := []*solana.AccountMeta{
		{PublicKey: GlobalAccount, IsSigner: false, IsWritable: false},
		{PublicKey: FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: userATA, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(ProgramID, insAccounts, data), nil
}

// BuildCreateATAInstruction builds an idempotent create for the owner's
// associated token account. The instruction succeeds even when the
// account already exists.
func BuildCreateATAInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	associatedAddress, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token address: %w", err)
	}

	keys := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: associatedAddress, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}

	// Discriminator 1 selects CreateIdempotent.
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		keys,
		[]byte{1},
	), nil
}
