// ==============================================
// File: internal/sniper/seller.go
// ==============================================
package sniper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"pumpsniper/internal/pump"
	"pumpsniper/internal/solbc"
	"pumpsniper/internal/wallet"
)

// Seller watches the wallet for landed buys and liquidates each
// position as soon as it appears. The sniper never knows which spray
// variant landed; the chain does.
type Seller struct {
	wsURL  string
	client *solbc.Client
	trader *Trader
	owner  *wallet.Wallet
	logger *zap.Logger

	// seen dedupes signatures across reconnects.
	seen map[solana.Signature]bool
}

func NewSeller(wsURL string, client *solbc.Client, trader *Trader, owner *wallet.Wallet, logger *zap.Logger) *Seller {
	return &Seller{
		wsURL:  wsURL,
		client: client,
		trader: trader,
		owner:  owner,
		logger: logger.Named("seller"),
		seen:   make(map[solana.Signature]bool),
	}
}

// Run follows the wallet's log subscription until ctx is done,
// reconnecting on failure.
func (s *Seller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.follow(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("Log subscription lost, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (s *Seller) follow(ctx context.Context) error {
	client, err := ws.Connect(ctx, s.wsURL)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.LogsSubscribeMentions(s.owner.PublicKey, rpc.CommitmentProcessed)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	s.logger.Info("Watching wallet for landed buys",
		zap.String("wallet", s.owner.PublicKey.String()))

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if msg == nil || msg.Value.Err != nil {
			continue
		}
		sig := msg.Value.Signature
		if s.seen[sig] {
			continue
		}
		s.seen[sig] = true
		go s.handleSignature(ctx, sig)
	}
}

// handleSignature inspects the transaction and sells whatever it bought.
func (s *Seller) handleSignature(ctx context.Context, sig solana.Signature) {
	result, err := s.fetchTransaction(ctx, sig)
	if err != nil {
		s.logger.Warn("Failed to fetch wallet transaction",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return
	}
	if result.Meta == nil || !isPumpBuy(result.Meta.LogMessages) {
		return
	}

	for _, position := range boughtPositions(result.Meta, s.owner.PublicKey) {
		s.logger.Info("Buy landed, selling",
			zap.String("mint", position.Mint.String()),
			zap.Uint64("token_amount", position.Tokens),
			zap.String("signature", sig.String()))

		accounts, err := pump.DeriveTradeAccounts(position.Mint)
		if err != nil {
			s.logger.Error("Failed to derive accounts for sell", zap.Error(err))
			continue
		}
		// Re-confirm on-chain; the balance in the fetched transaction
		// may already be stale.
		amount, err := s.confirmBalance(ctx, position.Mint)
		if err != nil {
			s.logger.Error("Failed to confirm token balance", zap.Error(err))
			continue
		}
		if amount == 0 {
			continue
		}
		if err := s.trader.sellAmount(ctx, accounts, amount); err != nil {
			s.logger.Error("Auto-sell failed",
				zap.String("mint", position.Mint.String()),
				zap.Error(err))
		}
	}
}

// fetchTransaction retries until the transaction is queryable; processed
// commitment races the confirmed index.
func (s *Seller) fetchTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	operation := func() (*rpc.GetTransactionResult, error) {
		result, err := s.client.GetTransaction(ctx, sig)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, fmt.Errorf("transaction %s not indexed yet", sig.String())
		}
		return result, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 400 * time.Millisecond

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(6),
	)
}

func (s *Seller) confirmBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	ata, err := s.owner.GetATA(mint)
	if err != nil {
		return 0, err
	}
	balance, err := s.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentProcessed)
	if err != nil {
		return 0, err
	}
	if balance == nil || balance.Value == nil {
		return 0, nil
	}
	return strconv.ParseUint(balance.Value.Amount, 10, 64)
}

func isPumpBuy(logs []string) bool {
	sawProgram := false
	sawBuy := false
	for _, line := range logs {
		if strings.Contains(line, pump.ProgramID.String()) {
			sawProgram = true
		}
		if strings.Contains(line, "Instruction: Buy") {
			sawBuy = true
		}
	}
	return sawProgram && sawBuy
}

// boughtPositions diffs pre and post token balances and returns the
// mints whose owner balance increased.
func boughtPositions(meta *rpc.TransactionMeta, owner solana.PublicKey) []Position {
	pre := make(map[solana.PublicKey]uint64)
	for _, balance := range meta.PreTokenBalances {
		if balance.Owner == nil || !balance.Owner.Equals(owner) {
			continue
		}
		if amount, err := strconv.ParseUint(balance.UiTokenAmount.Amount, 10, 64); err == nil {
			pre[balance.Mint] = amount
		}
	}

	var positions []Position
	for _, balance := range meta.PostTokenBalances {
		if balance.Owner == nil || !balance.Owner.Equals(owner) {
			continue
		}
		amount, err := strconv.ParseUint(balance.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		if amount > pre[balance.Mint] {
			positions = append(positions, Position{Mint: balance.Mint, Tokens: amount - pre[balance.Mint]})
		}
	}
	return positions
}
