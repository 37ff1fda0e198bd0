// ==============================================
// File: internal/volume/generator.go
// ==============================================

// Package volume drives organic-looking trade activity on a bonding
// curve by rotating buys and sells across a pool of funded wallets.
package volume

import (
	"context"
	"fmt"
	"math/rand"
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
	// buyHaircut shrinks the quoted token amount so the fill stays
	// within its entitlement after other trades move the curve.
	buyHaircut = 0.97
	// sellFloor is the fraction of the quoted proceeds a sell insists on.
	sellFloor = 0.90

	confirmTimeout = 45 * time.Second
)

type bundleSender interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction, mode jito.SubmitMode) (string, error)
}

type tipper interface {
	Tip() uint64
}

type stepKind int

const (
	stepBuy stepKind = iota
	stepSell
)

// Config shapes a volume run.
type Config struct {
	Mint solana.PublicKey
	// Steps is the total number of trades to attempt.
	Steps int
	// BuyRatio is the fraction of steps that buy; the rest sell.
	BuyRatio float64
	// MinLamports and MaxLamports bound the spend of each buy.
	MinLamports uint64
	MaxLamports uint64
	// MinWait and MaxWait bound the pause between steps.
	MinWait time.Duration
	MaxWait time.Duration
}

// Generator executes a shuffled buy/sell plan over the wallet pool.
type Generator struct {
	client  *solbc.Client
	reader  *pump.CurveReader
	builder *trade.Builder
	relay   bundleSender
	tips    tipper
	pool    *wallet.Pool
	rng     *rand.Rand
	logger  *zap.Logger
}

func NewGenerator(
	client *solbc.Client,
	reader *pump.CurveReader,
	builder *trade.Builder,
	relay bundleSender,
	tips tipper,
	pool *wallet.Pool,
	logger *zap.Logger,
) *Generator {
	return &Generator{
		client:  client,
		reader:  reader,
		builder: builder,
		relay:   relay,
		tips:    tips,
		pool:    pool,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.Named("volume"),
	}
}

// Run walks the plan until it is exhausted or ctx is done. Individual
// trade failures are logged and skipped; the run keeps going.
func (g *Generator) Run(ctx context.Context, cfg Config) error {
	if cfg.Steps <= 0 {
		return fmt.Errorf("volume run needs at least one step")
	}
	if cfg.MaxLamports < cfg.MinLamports {
		return fmt.Errorf("max lamports %d below min %d", cfg.MaxLamports, cfg.MinLamports)
	}

	// Every wallet will trade the same mint, derive the ATAs once
	// instead of on the hot path of each step.
	for _, w := range g.pool.Wallets() {
		if err := w.PrecomputeATAs([]solana.PublicKey{cfg.Mint}); err != nil {
			return err
		}
	}

	plan := buildPlan(cfg.Steps, cfg.BuyRatio, g.rng)
	g.logger.Info("Starting volume run",
		zap.String("mint", cfg.Mint.String()),
		zap.Int("steps", len(plan)),
		zap.Float64("buy_ratio", cfg.BuyRatio),
		zap.Int("wallets", g.pool.Size()))

	for i, step := range plan {
		if i > 0 {
			if err := g.wait(ctx, cfg); err != nil {
				return err
			}
		}

		var err error
		switch step {
		case stepBuy:
			err = g.buy(ctx, cfg)
		case stepSell:
			err = g.sell(ctx, cfg)
		}
		if err != nil {
			g.logger.Warn("Volume step failed",
				zap.Int("step", i),
				zap.Error(err))
		}
	}

	g.logger.Info("Volume run complete", zap.String("mint", cfg.Mint.String()))
	return nil
}

func (g *Generator) buy(ctx context.Context, cfg Config) error {
	w := g.pool.Next()
	lamports := g.spend(cfg)

	accounts, err := pump.DeriveTradeAccounts(cfg.Mint)
	if err != nil {
		return err
	}
	state, err := g.reader.Fetch(ctx, accounts.BondingCurve)
	if err != nil {
		return err
	}
	quoted, err := state.TokensForLamports(lamports)
	if err != nil {
		return err
	}
	tokenAmount := uint64(float64(quoted) * buyHaircut)

	blockhash, err := g.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}
	tx, err := g.builder.BuildBuy(trade.BuyParams{
		Accounts:    accounts,
		Owner:       w,
		TokenAmount: tokenAmount,
		Lamports:    lamports,
		Tip:         g.tips.Tip(),
		TipAccount:  jito.RandomTipAccount(),
		Blockhash:   blockhash,
	})
	if err != nil {
		return err
	}

	if _, err := g.relay.SendBundle(ctx, []*solana.Transaction{tx}, jito.WaitForConfirmation(confirmTimeout)); err != nil {
		return fmt.Errorf("volume buy failed: %w", err)
	}

	g.pool.RecordTokens(cfg.Mint, w.PublicKey, tokenAmount)
	g.logger.Info("Volume buy landed",
		zap.String("wallet", w.String()),
		zap.Uint64("lamports", lamports),
		zap.Uint64("token_amount", tokenAmount))
	return nil
}

func (g *Generator) sell(ctx context.Context, cfg Config) error {
	w := g.pool.Holder(cfg.Mint)
	if w == nil {
		g.logger.Debug("No holder to sell from, skipping step")
		return nil
	}
	tokenAmount, err := g.pool.ConfirmTokens(ctx, w, cfg.Mint)
	if err != nil {
		return err
	}
	if tokenAmount == 0 {
		return nil
	}

	accounts, err := pump.DeriveTradeAccounts(cfg.Mint)
	if err != nil {
		return err
	}
	state, err := g.reader.Fetch(ctx, accounts.BondingCurve)
	if err != nil {
		return err
	}
	quoted, err := pump.SolAmount(state.VirtualSolReserves, state.VirtualTokenReserves, tokenAmount)
	if err != nil {
		return err
	}
	minSolOutput := uint64(float64(quoted) * sellFloor)

	blockhash, err := g.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return err
	}
	tx, err := g.builder.BuildSell(trade.SellParams{
		Accounts:     accounts,
		Owner:        w,
		TokenAmount:  tokenAmount,
		MinSolOutput: minSolOutput,
		Tip:          g.tips.Tip(),
		TipAccount:   jito.RandomTipAccount(),
		Blockhash:    blockhash,
	})
	if err != nil {
		return err
	}

	if _, err := g.relay.SendBundle(ctx, []*solana.Transaction{tx}, jito.WaitForConfirmation(confirmTimeout)); err != nil {
		return fmt.Errorf("volume sell failed: %w", err)
	}

	// Re-read so the cache reflects what actually left the wallet.
	if _, err := g.pool.ConfirmTokens(ctx, w, cfg.Mint); err != nil {
		g.logger.Warn("Failed to refresh token cache after sell", zap.Error(err))
	}
	g.logger.Info("Volume sell landed",
		zap.String("wallet", w.String()),
		zap.Uint64("token_amount", tokenAmount))
	return nil
}

func (g *Generator) spend(cfg Config) uint64 {
	if cfg.MaxLamports == cfg.MinLamports {
		return cfg.MinLamports
	}
	return cfg.MinLamports + uint64(g.rng.Int63n(int64(cfg.MaxLamports-cfg.MinLamports)))
}

func (g *Generator) wait(ctx context.Context, cfg Config) error {
	pause := cfg.MinWait
	if cfg.MaxWait > cfg.MinWait {
		pause += time.Duration(g.rng.Int63n(int64(cfg.MaxWait - cfg.MinWait)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pause):
		return nil
	}
}

// buildPlan lays out the trade sequence: the configured share of buys,
// the rest sells, shuffled, with a buy forced first so there is always
// something to sell.
func buildPlan(steps int, buyRatio float64, rng *rand.Rand) []stepKind {
	if buyRatio < 0 {
		buyRatio = 0
	}
	if buyRatio > 1 {
		buyRatio = 1
	}
	buys := int(float64(steps)*buyRatio + 0.5)
	if buys < 1 {
		buys = 1
	}
	if buys > steps {
		buys = steps
	}

	plan := make([]stepKind, steps)
	for i := buys; i < steps; i++ {
		plan[i] = stepSell
	}
	rng.Shuffle(len(plan), func(i, j int) {
		plan[i], plan[j] = plan[j], plan[i]
	})

	for i, step := range plan {
		if step == stepBuy {
			plan[0], plan[i] = plan[i], plan[0]
			break
		}
	}
	return plan
}
