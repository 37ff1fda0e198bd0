// ==============================================
// File: internal/trade/builder.go
// ==============================================
package trade

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"pumpsniper/internal/pump"
	"pumpsniper/internal/wallet"
)

// Builder assembles signed swap transactions ready for bundling.
type Builder struct {
	slippage         float64
	computeUnitLimit uint32
	computeUnitPrice uint64
	logger           *zap.Logger
}

// NewBuilder creates a builder. slippage multiplies the lamport ceiling
// of every buy; 1.05 tolerates the price moving 5% between pricing and
// execution.
func NewBuilder(slippage float64, computeUnitLimit uint32, computeUnitPrice uint64, logger *zap.Logger) *Builder {
	return &Builder{
		slippage:         slippage,
		computeUnitLimit: computeUnitLimit,
		computeUnitPrice: computeUnitPrice,
		logger:           logger.Named("trade-builder"),
	}
}

// BuyParams describes one buy attempt.
type BuyParams struct {
	Accounts    pump.TradeAccounts
	Owner       *wallet.Wallet
	TokenAmount uint64
	// Lamports is the intended spend before slippage.
	Lamports   uint64
	Tip        uint64
	TipAccount solana.PublicKey
	Blockhash  solana.Hash
	// Jitter is folded into the lamport amount so every signed variant
	// of the same buy differs by at least one byte. Relays deduplicate
	// identical signatures; jittered variants race as separate bundles.
	Jitter uint64
}

// BuildBuy assembles and signs a buy transaction: compute budget,
// idempotent ATA create, swap, tip.
func (b *Builder) BuildBuy(p BuyParams) (*solana.Transaction, error) {
	lamports := p.Lamports + p.Jitter
	maxSolCost := uint64(float64(lamports) * b.slippage)

	createATA, err := pump.BuildCreateATAInstruction(p.Owner.PublicKey, p.Owner.PublicKey, p.Accounts.Mint)
	if err != nil {
		return nil, err
	}
	buyIx, err := pump.BuildBuyInstruction(p.Accounts, p.Owner.PublicKey, p.TokenAmount, maxSolCost)
	if err != nil {
		return nil, err
	}

	ixs := b.budgetInstructions()
	ixs = append(ixs, createATA, buyIx)
	ixs = append(ixs, system.NewTransferInstruction(p.Tip, p.Owner.PublicKey, p.TipAccount).Build())

	tx, err := solana.NewTransaction(ixs, p.Blockhash, solana.TransactionPayer(p.Owner.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build buy transaction: %w", err)
	}
	if err := p.Owner.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign buy transaction: %w", err)
	}

	b.logger.Debug("Built buy transaction",
		zap.String("mint", p.Accounts.Mint.String()),
		zap.Uint64("token_amount", p.TokenAmount),
		zap.Uint64("max_sol_cost", maxSolCost),
		zap.Uint64("jitter", p.Jitter))

	return tx, nil
}

// SellParams describes one sell.
type SellParams struct {
	Accounts     pump.TradeAccounts
	Owner        *wallet.Wallet
	TokenAmount  uint64
	MinSolOutput uint64
	Tip          uint64
	TipAccount   solana.PublicKey
	Blockhash    solana.Hash
}

// BuildSell assembles and signs a sell transaction. The ATA must
// already exist, a sell without one has nothing to sell.
func (b *Builder) BuildSell(p SellParams) (*solana.Transaction, error) {
	sellIx, err := pump.BuildSellInstruction(p.Accounts, p.Owner.PublicKey, p.TokenAmount, p.MinSolOutput)
	if err != nil {
		return nil, err
	}

	ixs := b.budgetInstructions()
	ixs = append(ixs, sellIx)
	ixs = append(ixs, system.NewTransferInstruction(p.Tip, p.Owner.PublicKey, p.TipAccount).Build())

	tx, err := solana.NewTransaction(ixs, p.Blockhash, solana.TransactionPayer(p.Owner.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build sell transaction: %w", err)
	}
	if err := p.Owner.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign sell transaction: %w", err)
	}
	return tx, nil
}

func (b *Builder) budgetInstructions() []solana.Instruction {
	ixs := make([]solana.Instruction, 0, 2)
	if b.computeUnitPrice > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(b.computeUnitPrice).Build())
	}
	if b.computeUnitLimit > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstruction(b.computeUnitLimit).Build())
	}
	return ixs
}

// BuildDeadline assembles the deadline guard: a transaction invoking
// the slot checker program with the last acceptable slot. Bundled after
// the buy, it fails past the deadline and takes the whole bundle with
// it, so late buys never land at a worse price.
func BuildDeadline(program solana.PublicKey, slot uint64, owner *wallet.Wallet, blockhash solana.Hash) (*solana.Transaction, error) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, slot)

	ix := solana.NewInstruction(program, []*solana.AccountMeta{
		{PublicKey: owner.PublicKey, IsSigner: true, IsWritable: true},
	}, data)

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, blockhash, solana.TransactionPayer(owner.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build deadline transaction: %w", err)
	}
	if err := owner.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("failed to sign deadline transaction: %w", err)
	}
	return tx, nil
}
