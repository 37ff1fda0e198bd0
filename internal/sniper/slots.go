// ==============================================
// File: internal/sniper/slots.go
// ==============================================
package sniper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

// SlotTracker follows the chain tip over a websocket slot subscription.
type SlotTracker struct {
	wsURL  string
	slot   atomic.Uint64
	logger *zap.Logger
}

func NewSlotTracker(wsURL string, logger *zap.Logger) *SlotTracker {
	return &SlotTracker{
		wsURL:  wsURL,
		logger: logger.Named("slot-tracker"),
	}
}

// Current returns the last observed slot, zero before the first update.
func (t *SlotTracker) Current() uint64 {
	return t.slot.Load()
}

// Run follows slot updates until ctx is done, reconnecting on failure.
func (t *SlotTracker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := t.follow(ctx); err != nil && ctx.Err() == nil {
			t.logger.Warn("Slot subscription lost, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (t *SlotTracker) follow(ctx context.Context) error {
	client, err := ws.Connect(ctx, t.wsURL)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.SlotSubscribe()
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		msg, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if msg != nil {
			t.slot.Store(msg.Slot)
		}
	}
}
