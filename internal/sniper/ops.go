// ==============================================
// File: internal/sniper/ops.go
// ==============================================
package sniper

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"pumpsniper/internal/jito"
	"pumpsniper/internal/pump"
	"pumpsniper/internal/solbc"
	"pumpsniper/internal/trade"
	"pumpsniper/internal/wallet"
)

const (
	// singleBuyHaircut sizes a standalone buy against freshly read
	// reserves, which move less than event-embedded ones.
	singleBuyHaircut = 0.97
	// sellFloor is the fraction of the quoted proceeds a sell insists on.
	sellFloor = 0.95

	confirmTimeout = 45 * time.Second
)

// Trader executes single buys and sells against a live curve, the
// deliberate counterpart to the sniper's spray.
type Trader struct {
	client  *solbc.Client
	reader  *pump.CurveReader
	builder *trade.Builder
	relay   bundleSender
	tips    tipper
	owner   *wallet.Wallet
	logger  *zap.Logger
}

func NewTrader(
	client *solbc.Client,
	reader *pump.CurveReader,
	builder *trade.Builder,
	relay bundleSender,
	tips tipper,
	owner *wallet.Wallet,
	logger *zap.Logger,
) *Trader {
	return &Trader{
		client:  client,
		reader:  reader,
		builder: builder,
		relay:   relay,
		tips:    tips,
		owner:   owner,
		logger:  logger.Named("trader"),
	}
}

// Buy reads the curve on-chain, prices the spend and submits a single
// confirmed buy bundle.
func (t *Trader) Buy(ctx context.Context, mint solana.PublicKey, lamports uint64) error {
	accounts, err := pump.DeriveTradeAccounts(mint)
	if err != nil {
		return err
	}
	state, err := t.reader.Fetch(ctx, accounts.BondingCurve)
	if err != nil {
		return err
	}

	quoted, err := state.TokensForLamports(lamports)
	if err != nil {
		return err
	}
	tokenAmount := uint64(float64(quoted) * singleBuyHaircut)

	blockhash, err := t.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}

	tx, err := t.builder.BuildBuy(trade.BuyParams{
		Accounts:    accounts,
		Owner:       t.owner,
		TokenAmount: tokenAmount,
		Lamports:    lamports,
		Tip:         t.tips.Tip(),
		TipAccount:  jito.RandomTipAccount(),
		Blockhash:   blockhash,
	})
	if err != nil {
		return err
	}

	bundleID, err := t.relay.SendBundle(ctx, []*solana.Transaction{tx}, jito.WaitForConfirmation(confirmTimeout))
	if err != nil {
		return fmt.Errorf("buy bundle failed: %w", err)
	}

	t.logger.Info("Buy confirmed",
		zap.String("mint", mint.String()),
		zap.Uint64("token_amount", tokenAmount),
		zap.String("bundle_id", bundleID))
	return nil
}

// Sell liquidates the wallet's entire position in the mint. The amount
// comes from the on-chain token balance, never from a local cache.
func (t *Trader) Sell(ctx context.Context, mint solana.PublicKey) error {
	accounts, err := pump.DeriveTradeAccounts(mint)
	if err != nil {
		return err
	}

	ata, err := t.owner.GetATA(mint)
	if err != nil {
		return err
	}
	balance, err := t.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("failed to read token balance: %w", err)
	}
	if balance == nil || balance.Value == nil {
		return fmt.Errorf("no token account for %s", mint.String())
	}
	tokenAmount, err := strconv.ParseUint(balance.Value.Amount, 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse token amount %q: %w", balance.Value.Amount, err)
	}
	if tokenAmount == 0 {
		t.logger.Info("Nothing to sell", zap.String("mint", mint.String()))
		return nil
	}

	return t.sellAmount(ctx, accounts, tokenAmount)
}

func (t *Trader) sellAmount(ctx context.Context, accounts pump.TradeAccounts, tokenAmount uint64) error {
	state, err := t.reader.Fetch(ctx, accounts.BondingCurve)
	if err != nil {
		return err
	}
	quoted, err := pump.SolAmount(state.VirtualSolReserves, state.VirtualTokenReserves, tokenAmount)
	if err != nil {
		return err
	}
	minSolOutput := uint64(float64(quoted) * sellFloor)

	blockhash, err := t.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}

	tx, err := t.builder.BuildSell(trade.SellParams{
		Accounts:     accounts,
		Owner:        t.owner,
		TokenAmount:  tokenAmount,
		MinSolOutput: minSolOutput,
		Tip:          t.tips.Tip(),
		TipAccount:   jito.RandomTipAccount(),
		Blockhash:    blockhash,
	})
	if err != nil {
		return err
	}

	bundleID, err := t.relay.SendBundle(ctx, []*solana.Transaction{tx}, jito.WaitForConfirmation(confirmTimeout))
	if err != nil {
		return fmt.Errorf("sell bundle failed: %w", err)
	}

	t.logger.Info("Sell confirmed",
		zap.String("mint", accounts.Mint.String()),
		zap.Uint64("token_amount", tokenAmount),
		zap.Uint64("min_sol_output", minSolOutput),
		zap.String("bundle_id", bundleID))
	return nil
}

// Bump sends a paired buy and sell in one bundle to keep a coin on the
// activity boards.
func (t *Trader) Bump(ctx context.Context, mint solana.PublicKey, lamports uint64) error {
	accounts, err := pump.DeriveTradeAccounts(mint)
	if err != nil {
		return err
	}
	state, err := t.reader.Fetch(ctx, accounts.BondingCurve)
	if err != nil {
		return err
	}
	quoted, err := state.TokensForLamports(lamports)
	if err != nil {
		return err
	}
	tokenAmount := uint64(float64(quoted) * singleBuyHaircut)

	blockhash, err := t.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}

	tipAccount := jito.RandomTipAccount()
	buyTx, err := t.builder.BuildBuy(trade.BuyParams{
		Accounts:    accounts,
		Owner:       t.owner,
		TokenAmount: tokenAmount,
		Lamports:    lamports,
		Tip:         t.tips.Tip(),
		TipAccount:  tipAccount,
		Blockhash:   blockhash,
	})
	if err != nil {
		return err
	}
	sellTx, err := t.builder.BuildSell(trade.SellParams{
		Accounts:    accounts,
		Owner:       t.owner,
		TokenAmount: tokenAmount,
		Tip:         1_000,
		TipAccount:  tipAccount,
		Blockhash:   blockhash,
	})
	if err != nil {
		return err
	}

	bundleID, err := t.relay.SendBundle(ctx, []*solana.Transaction{buyTx, sellTx}, jito.WaitForConfirmation(confirmTimeout))
	if err != nil {
		return fmt.Errorf("bump bundle failed: %w", err)
	}

	t.logger.Info("Bump confirmed",
		zap.String("mint", mint.String()),
		zap.String("bundle_id", bundleID))
	return nil
}

// Position is a token balance the wallet holds.
type Position struct {
	Mint   solana.PublicKey
	Tokens uint64
}

// tokenAccountSize is the SPL token account layout: mint at 0, owner at
// 32, amount at 64.
const tokenAccountSize = 72

// Holdings lists every non-empty SPL token position of the wallet.
func (t *Trader) Holdings(ctx context.Context) ([]Position, error) {
	result, err := t.client.GetTokenAccountsByOwner(ctx, t.owner.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts: %w", err)
	}

	var positions []Position
	for _, account := range result.Value {
		data := account.Account.Data.GetBinary()
		if len(data) < tokenAccountSize {
			continue
		}
		amount := binary.LittleEndian.Uint64(data[64:72])
		if amount == 0 {
			continue
		}
		positions = append(positions, Position{
			Mint:   solana.PublicKeyFromBytes(data[:32]),
			Tokens: amount,
		})
	}
	return positions, nil
}

// Sweep liquidates every position the wallet holds. Positions that fail
// to sell, e.g. tokens that already migrated off their curve, are
// logged and skipped.
func (t *Trader) Sweep(ctx context.Context) error {
	positions, err := t.Holdings(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		t.logger.Info("No positions to sweep")
		return nil
	}

	for _, position := range positions {
		accounts, err := pump.DeriveTradeAccounts(position.Mint)
		if err != nil {
			t.logger.Warn("Skipping position",
				zap.String("mint", position.Mint.String()),
				zap.Error(err))
			continue
		}
		if err := t.sellAmount(ctx, accounts, position.Tokens); err != nil {
			t.logger.Warn("Failed to sweep position",
				zap.String("mint", position.Mint.String()),
				zap.Uint64("token_amount", position.Tokens),
				zap.Error(err))
		}
	}
	return nil
}

// RunBumpLoop bumps the mint on a fixed interval until ctx is done.
func (t *Trader) RunBumpLoop(ctx context.Context, mint solana.PublicKey, lamports uint64, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.Bump(ctx, mint, lamports); err != nil {
				t.logger.Warn("Bump failed", zap.Error(err))
			}
		}
	}
}
