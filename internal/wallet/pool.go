// ==================================
// File: internal/wallet/pool.go
// ==================================
package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pumpsniper/internal/jito"
)

// ErrPoolEmpty is the panic value when Next is called on an empty pool.
// An empty pool is an operator setup mistake, not a runtime condition.
var ErrPoolEmpty = errors.New("wallet pool is empty")

// drainChunkSize is the number of wallet transfers packed into one
// drain transaction.
const drainChunkSize = 5

// poolClient is the part of the RPC client the pool needs.
type poolClient interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, error)
}

// bundleSender submits transaction bundles to the relay.
type bundleSender interface {
	SendBundle(ctx context.Context, txs []*solana.Transaction, mode jito.SubmitMode) (string, error)
}

// Balance pairs a pool wallet with its lamport balance.
type Balance struct {
	Wallet   *Wallet
	Lamports uint64
}

// Pool manages a set of throwaway trading wallets funded from a single
// owner wallet.
type Pool struct {
	owner   *Wallet
	wallets []*Wallet
	client  poolClient
	relay   bundleSender
	logger  *zap.Logger

	mu  sync.Mutex
	idx int

	// tokens tracks base units bought per mint per wallet. The cache is
	// advisory; every sell re-confirms the balance on-chain.
	tokensMu sync.Mutex
	tokens   map[string]map[string]uint64
}

// NewPool creates a pool over an explicit wallet list.
func NewPool(owner *Wallet, wallets []*Wallet, client poolClient, relay bundleSender, logger *zap.Logger) *Pool {
	return &Pool{
		owner:   owner,
		wallets: wallets,
		client:  client,
		relay:   relay,
		logger:  logger.Named("wallet-pool"),
		tokens:  make(map[string]map[string]uint64),
	}
}

// LoadPool loads every *.json keygen file in dir, sorted by file name so
// the round robin order is stable across runs.
func LoadPool(owner *Wallet, dir string, client poolClient, relay bundleSender, logger *zap.Logger) (*Pool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	wallets := make([]*Wallet, 0, len(names))
	for _, name := range names {
		w, err := LoadKeypairFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load wallet %s: %w", name, err)
		}
		wallets = append(wallets, w)
	}

	logger.Info("Loaded wallet pool",
		zap.String("dir", dir),
		zap.Int("wallets", len(wallets)))

	return NewPool(owner, wallets, client, relay, logger), nil
}

// Owner returns the funding wallet.
func (p *Pool) Owner() *Wallet { return p.owner }

// Wallets returns the pool wallets in round robin order.
func (p *Pool) Wallets() []*Wallet { return p.wallets }

// Size returns the number of pool wallets.
func (p *Pool) Size() int { return len(p.wallets) }

// Next returns the next wallet in round robin order. Wraps around, so
// call N+1 with N wallets returns the same wallet as call 1.
func (p *Pool) Next() *Wallet {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.wallets) == 0 {
		panic(ErrPoolEmpty)
	}
	w := p.wallets[p.idx%len(p.wallets)]
	p.idx++
	return w
}

// Balances fetches the lamport balance of every pool wallet concurrently.
func (p *Pool) Balances(ctx context.Context) ([]Balance, error) {
	balances := make([]Balance, len(p.wallets))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range p.wallets {
		g.Go(func() error {
			lamports, err := p.client.GetBalance(gctx, w.PublicKey, rpc.CommitmentConfirmed)
			if err != nil {
				return fmt.Errorf("failed to get balance of %s: %w", w.PublicKey.String(), err)
			}
			balances[i] = Balance{Wallet: w, Lamports: lamports}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return balances, nil
}

// Fund sends `amount` lamports from the owner to every pool wallet in a
// single bundled transaction, then blocks until the first wallet's
// balance reflects the transfer.
func (p *Pool) Fund(ctx context.Context, amount, tip uint64) error {
	if len(p.wallets) == 0 {
		return ErrPoolEmpty
	}

	need := amount*uint64(len(p.wallets)) + tip
	have, err := p.client.GetBalance(ctx, p.owner.PublicKey, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("failed to get owner balance: %w", err)
	}
	if have < need {
		return fmt.Errorf("owner balance %d below required %d lamports", have, need)
	}

	blockhash, err := p.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := p.buildFundTransaction(blockhash, amount, tip, jito.RandomTipAccount())
	if err != nil {
		return err
	}
	if err := p.owner.SignTransaction(tx); err != nil {
		return fmt.Errorf("failed to sign fund transaction: %w", err)
	}

	if _, err := p.relay.SendBundle(ctx, []*solana.Transaction{tx}, jito.NoWait()); err != nil {
		return fmt.Errorf("failed to submit fund bundle: %w", err)
	}

	p.logger.Info("Funding pool wallets",
		zap.Uint64("amount", amount),
		zap.Int("wallets", len(p.wallets)))

	return p.waitBalanceAtLeast(ctx, p.wallets[0].PublicKey, amount)
}

func (p *Pool) buildFundTransaction(blockhash solana.Hash, amount, tip uint64, tipAccount solana.PublicKey) (*solana.Transaction, error) {
	ixs := make([]solana.Instruction, 0, len(p.wallets)+1)
	for _, w := range p.wallets {
		ixs = append(ixs, system.NewTransferInstruction(amount, p.owner.PublicKey, w.PublicKey).Build())
	}
	ixs = append(ixs, system.NewTransferInstruction(tip, p.owner.PublicKey, tipAccount).Build())

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(p.owner.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("failed to build fund transaction: %w", err)
	}
	return tx, nil
}

// Drain sweeps every wallet's full balance back to the owner. Transfers
// are packed five per transaction, each transaction carries its own tip
// paid by the owner, and the whole sweep goes out as one bundle.
func (p *Pool) Drain(ctx context.Context, tip uint64) error {
	if len(p.wallets) == 0 {
		return ErrPoolEmpty
	}

	balances, err := p.Balances(ctx)
	if err != nil {
		return err
	}

	blockhash, err := p.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("failed to get blockhash: %w", err)
	}

	txs, err := p.buildDrainTransactions(blockhash, balances, tip, jito.RandomTipAccount())
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		p.logger.Info("Nothing to drain, all wallets empty")
		return nil
	}

	if _, err := p.relay.SendBundle(ctx, txs, jito.NoWait()); err != nil {
		return fmt.Errorf("failed to submit drain bundle: %w", err)
	}

	p.logger.Info("Draining pool wallets",
		zap.Int("wallets", len(p.wallets)),
		zap.Int("transactions", len(txs)))

	return p.waitBalanceZero(ctx, p.wallets[0].PublicKey)
}

func (p *Pool) buildDrainTransactions(blockhash solana.Hash, balances []Balance, tip uint64, tipAccount solana.PublicKey) ([]*solana.Transaction, error) {
	var funded []Balance
	for _, b := range balances {
		if b.Lamports > 0 {
			funded = append(funded, b)
		}
	}

	var txs []*solana.Transaction
	for start := 0; start < len(funded); start += drainChunkSize {
		end := start + drainChunkSize
		if end > len(funded) {
			end = len(funded)
		}
		chunk := funded[start:end]

		ixs := make([]solana.Instruction, 0, len(chunk)+1)
		signers := make([]*Wallet, 0, len(chunk)+1)
		for _, b := range chunk {
			ixs = append(ixs, system.NewTransferInstruction(b.Lamports, b.Wallet.PublicKey, p.owner.PublicKey).Build())
			signers = append(signers, b.Wallet)
		}
		ixs = append(ixs, system.NewTransferInstruction(tip, p.owner.PublicKey, tipAccount).Build())
		signers = append(signers, p.owner)

		tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(p.owner.PublicKey))
		if err != nil {
			return nil, fmt.Errorf("failed to build drain transaction: %w", err)
		}
		if err := SignWith(tx, signers...); err != nil {
			return nil, fmt.Errorf("failed to sign drain transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (p *Pool) waitBalanceAtLeast(ctx context.Context, pubkey solana.PublicKey, target uint64) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			lamports, err := p.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
			if err != nil {
				p.logger.Warn("Balance poll failed", zap.Error(err))
				continue
			}
			if lamports >= target {
				return nil
			}
		}
	}
}

func (p *Pool) waitBalanceZero(ctx context.Context, pubkey solana.PublicKey) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			lamports, err := p.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
			if err != nil {
				p.logger.Warn("Balance poll failed", zap.Error(err))
				continue
			}
			if lamports == 0 {
				return nil
			}
		}
	}
}

// RecordTokens notes that a wallet acquired base units of a mint.
func (p *Pool) RecordTokens(mint solana.PublicKey, owner solana.PublicKey, amount uint64) {
	p.tokensMu.Lock()
	defer p.tokensMu.Unlock()
	mintKey := mint.String()
	if p.tokens[mintKey] == nil {
		p.tokens[mintKey] = make(map[string]uint64)
	}
	p.tokens[mintKey][owner.String()] += amount
}

// Holder returns a pool wallet recorded as holding the mint, or nil.
func (p *Pool) Holder(mint solana.PublicKey) *Wallet {
	p.tokensMu.Lock()
	defer p.tokensMu.Unlock()
	holders := p.tokens[mint.String()]
	for _, w := range p.wallets {
		if holders[w.PublicKey.String()] > 0 {
			return w
		}
	}
	return nil
}

// ConfirmTokens reads the wallet's token balance for the mint on-chain.
// The local cache is never trusted for sell sizing.
func (p *Pool) ConfirmTokens(ctx context.Context, w *Wallet, mint solana.PublicKey) (uint64, error) {
	ata, err := w.GetATA(mint)
	if err != nil {
		return 0, err
	}
	result, err := p.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get token balance: %w", err)
	}
	if result == nil || result.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token amount %q: %w", result.Value.Amount, err)
	}

	p.tokensMu.Lock()
	mintKey := mint.String()
	if p.tokens[mintKey] == nil {
		p.tokens[mintKey] = make(map[string]uint64)
	}
	p.tokens[mintKey][w.PublicKey.String()] = amount
	p.tokensMu.Unlock()

	return amount, nil
}
