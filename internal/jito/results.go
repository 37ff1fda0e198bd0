// ==============================================
// File: internal/jito/results.go
// ==============================================
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BundleStatus is the relay's view of a submitted bundle.
type BundleStatus string

const (
	StatusPending BundleStatus = "pending"
	StatusLanded  BundleStatus = "landed"
	StatusDropped BundleStatus = "dropped"
	StatusInvalid BundleStatus = "invalid"
	StatusExpired BundleStatus = "expired"
)

// Result is a terminal bundle outcome.
type Result struct {
	BundleID   string
	Status     BundleStatus
	LandedSlot uint64
	Reason     string
}

const (
	pollInterval = 500 * time.Millisecond
	// statusBatchSize is the relay's per-request id limit.
	statusBatchSize = 5
	// pendingTTL bounds how long an unresolved bundle stays tracked.
	pendingTTL = 2 * time.Minute
)

type pendingBundle struct {
	registered time.Time
	sub        chan Result
}

// Watcher polls inflight bundle statuses for every submitted bundle and
// emits terminal results. Late results are logged, never discarded.
type Watcher struct {
	client *Client
	logger *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingBundle

	resultCh chan Result
}

func newWatcher(client *Client, logger *zap.Logger) *Watcher {
	return &Watcher{
		client:   client,
		logger:   logger.Named("bundle-watcher"),
		pending:  make(map[string]*pendingBundle),
		resultCh: make(chan Result, 64),
	}
}

func (w *Watcher) results() <-chan Result { return w.resultCh }

// watch registers a bundle id and returns a one-shot result channel.
func (w *Watcher) watch(bundleID string) <-chan Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.pending[bundleID]; ok {
		return existing.sub
	}
	p := &pendingBundle{
		registered: time.Now(),
		sub:        make(chan Result, 1),
	}
	w.pending[bundleID] = p
	return p.sub
}

// run polls until ctx is done. Poll failures are logged and retried on
// the next tick; the watcher never exits on its own.
func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	ids := w.pendingIDs()
	if len(ids) == 0 {
		return
	}

	for start := 0; start < len(ids); start += statusBatchSize {
		end := start + statusBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		statuses, err := w.fetchStatuses(ctx, ids[start:end])
		if err != nil {
			w.logger.Warn("Bundle status poll failed", zap.Error(err))
			return
		}
		for _, status := range statuses {
			w.apply(status)
		}
	}

	w.expireStale()
}

func (w *Watcher) pendingIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	return ids
}

type inflightStatus struct {
	BundleID   string `json:"bundle_id"`
	Status     string `json:"status"`
	LandedSlot uint64 `json:"landed_slot"`
}

func (w *Watcher) fetchStatuses(ctx context.Context, ids []string) ([]inflightStatus, error) {
	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "getInflightBundleStatuses",
		Params:  []interface{}{ids},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.client.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}

	var parsed struct {
		Result struct {
			Value []inflightStatus `json:"value"`
		} `json:"result"`
		Error *rpcError `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("status request rejected: %d %s", parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result.Value, nil
}

func (w *Watcher) apply(status inflightStatus) {
	var result Result
	switch status.Status {
	case "Pending":
		return
	case "Landed":
		result = Result{BundleID: status.BundleID, Status: StatusLanded, LandedSlot: status.LandedSlot}
	case "Failed":
		result = Result{BundleID: status.BundleID, Status: StatusDropped, Reason: "dropped by relay"}
	case "Invalid":
		// The relay forgets ids quickly; invalid right after submit
		// usually means not yet indexed, so give it until the TTL.
		w.mu.Lock()
		p, ok := w.pending[status.BundleID]
		recent := ok && time.Since(p.registered) < 5*time.Second
		w.mu.Unlock()
		if recent {
			return
		}
		result = Result{BundleID: status.BundleID, Status: StatusInvalid, Reason: "unknown to relay"}
	default:
		result = Result{BundleID: status.BundleID, Status: StatusDropped, Reason: "unexpected status " + status.Status}
	}
	w.resolve(result)
}

func (w *Watcher) expireStale() {
	now := time.Now()
	w.mu.Lock()
	var expired []string
	for id, p := range w.pending {
		if now.Sub(p.registered) > pendingTTL {
			expired = append(expired, id)
		}
	}
	w.mu.Unlock()
	for _, id := range expired {
		w.resolve(Result{BundleID: id, Status: StatusExpired, Reason: "no terminal status before TTL"})
	}
}

func (w *Watcher) resolve(result Result) {
	w.mu.Lock()
	p, ok := w.pending[result.BundleID]
	if ok {
		delete(w.pending, result.BundleID)
	}
	w.mu.Unlock()

	if result.Status == StatusLanded {
		w.logger.Info("Bundle landed",
			zap.String("bundle_id", result.BundleID),
			zap.Uint64("slot", result.LandedSlot))
	} else {
		w.logger.Warn("Bundle did not land",
			zap.String("bundle_id", result.BundleID),
			zap.String("status", string(result.Status)),
			zap.String("reason", result.Reason))
	}

	if ok {
		p.sub <- result
	}
	select {
	case w.resultCh <- result:
	default:
		// Nobody draining the stream must not wedge the poller.
	}
}
