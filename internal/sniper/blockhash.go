// ==============================================
// File: internal/sniper/blockhash.go
// ==============================================
package sniper

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

type blockhashClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, error)
}

// BlockhashCell keeps a recent blockhash warm so the spray loop never
// spends a round trip on one.
type BlockhashCell struct {
	client blockhashClient
	logger *zap.Logger

	mu   sync.RWMutex
	hash solana.Hash
}

func NewBlockhashCell(client blockhashClient, logger *zap.Logger) *BlockhashCell {
	return &BlockhashCell{
		client: client,
		logger: logger.Named("blockhash"),
	}
}

// Get returns the most recently fetched blockhash.
func (c *BlockhashCell) Get() solana.Hash {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hash
}

// Run refreshes the blockhash every second until ctx is done. A failed
// refresh keeps the previous hash; blockhashes stay valid for about two
// minutes so skipped ticks are harmless.
func (c *BlockhashCell) Run(ctx context.Context) {
	c.refresh(ctx)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *BlockhashCell) refresh(ctx context.Context) {
	hash, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		c.logger.Warn("Blockhash refresh failed", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.hash = hash
	c.mu.Unlock()
}
