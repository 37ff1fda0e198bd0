// ==============================================
// File: internal/jito/tipstream.go
// ==============================================
package jito

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultTipStreamURL is the public landed-tips percentile feed.
const DefaultTipStreamURL = "wss://bundles.jito.wtf/api/v1/bundles/tip_stream"

// tipPercentiles is one message from the tip stream. Values are in SOL.
type tipPercentiles struct {
	P25 float64 `json:"landed_tips_25th_percentile"`
	P50 float64 `json:"landed_tips_50th_percentile"`
	P75 float64 `json:"landed_tips_75th_percentile"`
	P95 float64 `json:"landed_tips_95th_percentile"`
	P99 float64 `json:"landed_tips_99th_percentile"`
}

// TipTracker keeps a running tip floor from the relay's landed-tips
// stream. Readers never block; before the first update the static
// fallback applies.
type TipTracker struct {
	url       string
	weightP75 float64
	weightP95 float64
	fallback  uint64
	tip       atomic.Uint64
	logger    *zap.Logger
}

func NewTipTracker(url string, weightP75, weightP95 float64, fallback uint64, logger *zap.Logger) *TipTracker {
	if url == "" {
		url = DefaultTipStreamURL
	}
	return &TipTracker{
		url:       url,
		weightP75: weightP75,
		weightP95: weightP95,
		fallback:  fallback,
		logger:    logger.Named("tip-tracker"),
	}
}

// Tip returns the current tip floor in lamports.
func (t *TipTracker) Tip() uint64 {
	if tip := t.tip.Load(); tip > 0 {
		return tip
	}
	return t.fallback
}

// Run consumes the tip stream until ctx is done, reconnecting on any
// read or dial failure.
func (t *TipTracker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := t.consume(ctx); err != nil && ctx.Err() == nil {
			t.logger.Warn("Tip stream disconnected, reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (t *TipTracker) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		t.handleMessage(data)
	}
}

func (t *TipTracker) handleMessage(data []byte) {
	var updates []tipPercentiles
	if err := json.Unmarshal(data, &updates); err != nil || len(updates) == 0 {
		t.logger.Debug("Skipping malformed tip stream message", zap.Error(err))
		return
	}
	latest := updates[len(updates)-1]
	tip := t.compute(latest.P75, latest.P95)
	if tip == 0 {
		return
	}
	t.tip.Store(tip)
	t.logger.Debug("Tip floor updated", zap.Uint64("lamports", tip))
}

// compute blends the percentiles and scales SOL to lamports.
func (t *TipTracker) compute(p75, p95 float64) uint64 {
	sol := t.weightP75*p75 + t.weightP95*p95
	if sol <= 0 {
		return 0
	}
	return uint64(sol * 1e9)
}
