// ==============================================
// File: internal/sniper/sniper.go
// ==============================================
package sniper

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"pumpsniper/internal/feed"
	"pumpsniper/internal/jito"
	"pumpsniper/internal/pump"
	"pumpsniper/internal/trade"
	"pumpsniper/internal/wallet"
)

// buyHaircut shrinks the priced token amount. The program rounds in its
// own favor and the reserves move between the event and the fill; asking
// for slightly less than the quote keeps the buy within its entitlement.
const buyHaircut = 0.95

type bundleSender interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction, mode jito.SubmitMode) (string, error)
}

type tipper interface {
	Tip() uint64
}

// Config carries the snipe parameters.
type Config struct {
	// Lamports is the spend per snipe before slippage.
	Lamports uint64
	// NumTries is the number of jittered spray attempts per launch.
	NumTries int
	// JitterStep spaces the attempts; attempt i sleeps i*JitterStep.
	JitterStep time.Duration
	// Fanout submits each attempt to every relay region.
	Fanout bool
	// DeadlineSlots bounds how many slots past observation a buy may
	// land. Zero DeadlineProgram disables the guard.
	DeadlineSlots   uint64
	DeadlineProgram solana.PublicKey
	MaxCoinAge      time.Duration
	RequireSocials  bool
}

// Sniper turns eligible launch events into racing buy bundles.
type Sniper struct {
	cfg       Config
	owner     *wallet.Wallet
	builder   *trade.Builder
	relay     bundleSender
	tips      tipper
	blockhash *BlockhashCell
	slots     *SlotTracker
	filter    feed.Filter
	logger    *zap.Logger
}

func New(
	cfg Config,
	owner *wallet.Wallet,
	builder *trade.Builder,
	relay bundleSender,
	tips tipper,
	blockhash *BlockhashCell,
	slots *SlotTracker,
	logger *zap.Logger,
) *Sniper {
	return &Sniper{
		cfg:       cfg,
		owner:     owner,
		builder:   builder,
		relay:     relay,
		tips:      tips,
		blockhash: blockhash,
		slots:     slots,
		filter: feed.Filter{
			MaxAge:         cfg.MaxCoinAge,
			RequireSocials: cfg.RequireSocials,
		},
		logger: logger.Named("sniper"),
	}
}

// HandleLaunch is the feed handler: filter, then snipe.
func (s *Sniper) HandleLaunch(ctx context.Context, coin *feed.NewCoin) {
	if !s.filter.Eligible(coin, time.Now()) {
		s.logger.Debug("Skipping ineligible launch", zap.String("mint", coin.Mint))
		return
	}
	if err := s.Snipe(ctx, coin); err != nil {
		s.logger.Error("Snipe failed",
			zap.String("mint", coin.Mint),
			zap.Error(err))
	}
}

// Snipe prices the buy once from the event-embedded reserves and sprays
// numTries jittered variants at the relay. Every variant is its own
// fire-and-forget bundle; the relay race decides which one lands.
func (s *Sniper) Snipe(ctx context.Context, coin *feed.NewCoin) error {
	mint, err := solana.PublicKeyFromBase58(coin.Mint)
	if err != nil {
		return fmt.Errorf("invalid mint %q: %w", coin.Mint, err)
	}
	accounts, err := pump.DeriveTradeAccounts(mint)
	if err != nil {
		return err
	}

	tokenAmount, err := snipeSize(coin, s.cfg.Lamports)
	if err != nil {
		return fmt.Errorf("failed to price snipe for %s: %w", coin.Mint, err)
	}

	tip := s.tips.Tip()
	tipAccount := jito.RandomTipAccount()
	mode := jito.NoWait()
	if s.cfg.Fanout {
		mode = jito.MultiRegionFanout()
	}

	s.logger.Info("Sniping",
		zap.String("mint", coin.Mint),
		zap.Uint64("token_amount", tokenAmount),
		zap.Uint64("lamports", s.cfg.Lamports),
		zap.Uint64("tip", tip),
		zap.Int("tries", s.cfg.NumTries))

	for attempt := 0; attempt < s.cfg.NumTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.JitterStep):
			}
		}

		blockhash := s.blockhash.Get()
		tx, err := s.builder.BuildBuy(trade.BuyParams{
			Accounts:    accounts,
			Owner:       s.owner,
			TokenAmount: tokenAmount,
			Lamports:    s.cfg.Lamports,
			Tip:         tip,
			TipAccount:  tipAccount,
			Blockhash:   blockhash,
			Jitter:      uint64(attempt),
		})
		if err != nil {
			return err
		}

		txs := []*solana.Transaction{tx}
		if !s.cfg.DeadlineProgram.IsZero() {
			if slot := s.slots.Current(); slot > 0 {
				deadline, err := trade.BuildDeadline(s.cfg.DeadlineProgram, slot+s.cfg.DeadlineSlots, s.owner, blockhash)
				if err != nil {
					return err
				}
				txs = append(txs, deadline)
			}
		}

		go func(attempt int) {
			bundleID, err := s.relay.SendBundle(ctx, txs, mode)
			if err != nil {
				s.logger.Warn("Spray submit failed",
					zap.String("mint", coin.Mint),
					zap.Int("attempt", attempt),
					zap.Error(err))
				return
			}
			s.logger.Debug("Spray submitted",
				zap.String("mint", coin.Mint),
				zap.Int("attempt", attempt),
				zap.String("bundle_id", bundleID))
		}(attempt)
	}
	return nil
}

// snipeSize prices the buy from the launch event's reserves and applies
// the haircut.
func snipeSize(coin *feed.NewCoin, lamports uint64) (uint64, error) {
	amount, err := pump.TokenAmount(coin.VirtualSolReserves, coin.VirtualTokenReserves, nil, lamports)
	if err != nil {
		return 0, err
	}
	return uint64(float64(amount) * buyHaircut), nil
}
