// ==============================================
// File: internal/jito/client.go
// ==============================================
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// DefaultEndpoint is the primary mainnet block engine bundles endpoint.
const DefaultEndpoint = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"

// fanoutTimeout bounds each regional submission. A slow region must
// never hold the submit path.
const fanoutTimeout = 2 * time.Second

// RegionEndpoints expands region names into bundle endpoints.
func RegionEndpoints(regions []string) []string {
	endpoints := make([]string, 0, len(regions))
	for _, region := range regions {
		endpoints = append(endpoints, fmt.Sprintf("https://%s.mainnet.block-engine.jito.wtf/api/v1/bundles", region))
	}
	return endpoints
}

type submitKind int

const (
	submitNoWait submitKind = iota
	submitWait
	submitFanout
)

// SubmitMode selects how SendBundle behaves after posting the bundle.
type SubmitMode struct {
	kind    submitKind
	timeout time.Duration
}

// NoWait submits to the primary endpoint and returns immediately.
func NoWait() SubmitMode { return SubmitMode{kind: submitNoWait} }

// WaitForConfirmation submits and blocks until the bundle reaches a
// terminal status or the timeout elapses.
func WaitForConfirmation(timeout time.Duration) SubmitMode {
	return SubmitMode{kind: submitWait, timeout: timeout}
}

// MultiRegionFanout submits the same bundle to every regional endpoint
// concurrently and returns the first accepted bundle id.
func MultiRegionFanout() SubmitMode { return SubmitMode{kind: submitFanout} }

// Client submits transaction bundles to the Jito block engine.
type Client struct {
	httpc           *http.Client
	endpoint        string
	regionEndpoints []string
	watcher         *Watcher
	logger          *zap.Logger
}

// NewClient creates a relay client. regionEndpoints may be empty, in
// which case fan-out degrades to a single-endpoint submit.
func NewClient(endpoint string, regionEndpoints []string, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		httpc:           &http.Client{Timeout: 10 * time.Second},
		endpoint:        endpoint,
		regionEndpoints: regionEndpoints,
		logger:          logger.Named("jito"),
	}
	c.watcher = newWatcher(c, logger)
	return c
}

// Run starts the bundle status watcher and blocks until ctx is done.
func (c *Client) Run(ctx context.Context) {
	c.watcher.run(ctx)
}

// Results exposes the stream of bundle results, late ones included.
func (c *Client) Results() <-chan Result {
	return c.watcher.results()
}

// SendBundle base64-encodes the signed transactions and submits them
// according to mode. The returned id identifies the bundle at the relay.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction, mode SubmitMode) (string, error) {
	if len(txs) == 0 {
		return "", fmt.Errorf("empty bundle")
	}

	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		b64, err := tx.ToBase64()
		if err != nil {
			return "", fmt.Errorf("failed to encode transaction: %w", err)
		}
		encoded = append(encoded, b64)
	}

	switch mode.kind {
	case submitFanout:
		return c.fanout(ctx, encoded)
	case submitWait:
		bundleID, err := c.post(ctx, c.endpoint, encoded)
		if err != nil {
			return "", err
		}
		sub := c.watcher.watch(bundleID)
		return bundleID, c.await(ctx, sub, mode.timeout)
	default:
		bundleID, err := c.post(ctx, c.endpoint, encoded)
		if err != nil {
			return "", err
		}
		c.watcher.watch(bundleID)
		return bundleID, nil
	}
}

func (c *Client) await(ctx context.Context, sub <-chan Result, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("bundle confirmation timeout after %s", timeout)
	case result := <-sub:
		if result.Status == StatusLanded {
			return nil
		}
		return fmt.Errorf("bundle %s not landed: %s %s", result.BundleID, result.Status, result.Reason)
	}
}

type regionResult struct {
	endpoint string
	bundleID string
	err      error
}

// fanout posts the same payload to every regional endpoint concurrently.
// The first successful response wins; every response is logged as it
// arrives, slow regions in the background.
func (c *Client) fanout(ctx context.Context, encoded []string) (string, error) {
	endpoints := c.regionEndpoints
	if len(endpoints) == 0 {
		endpoints = []string{c.endpoint}
	}

	firstOK := make(chan regionResult, 1)
	allDone := make(chan error, 1)
	resultCh := make(chan regionResult, len(endpoints))

	for _, endpoint := range endpoints {
		go func() {
			reqCtx, cancel := context.WithTimeout(ctx, fanoutTimeout)
			defer cancel()
			bundleID, err := c.post(reqCtx, endpoint, encoded)
			resultCh <- regionResult{endpoint: endpoint, bundleID: bundleID, err: err}
		}()
	}

	// Collector outlives the first success so late regions still get logged.
	go func() {
		var firstErr error
		for range endpoints {
			r := <-resultCh
			if r.err != nil {
				c.logger.Warn("Regional submit failed",
					zap.String("endpoint", r.endpoint),
					zap.Error(r.err))
				if firstErr == nil {
					firstErr = r.err
				}
				continue
			}
			c.logger.Debug("Regional submit accepted",
				zap.String("endpoint", r.endpoint),
				zap.String("bundle_id", r.bundleID))
			select {
			case firstOK <- r:
			default:
			}
		}
		allDone <- firstErr
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-firstOK:
		c.watcher.watch(r.bundleID)
		return r.bundleID, nil
	case err := <-allDone:
		// A success may land in the same instant the collector finishes.
		select {
		case r := <-firstOK:
			c.watcher.watch(r.bundleID)
			return r.bundleID, nil
		default:
		}
		return "", fmt.Errorf("all regional submits failed: %w", err)
	}
}

type rpcRequest struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// post submits a sendBundle JSON-RPC call to one endpoint.
func (c *Client) post(ctx context.Context, endpoint string, encoded []string) (string, error) {
	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params: []interface{}{
			encoded,
			map[string]string{"encoding": "base64"},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal sendBundle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build sendBundle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("sendBundle request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sendBundle response: %w", err)
	}

	var parsed struct {
		Result string    `json:"result"`
		Error  *rpcError `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode sendBundle response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("relay rejected bundle: %d %s", parsed.Error.Code, parsed.Error.Message)
	}
	if parsed.Result == "" {
		return "", fmt.Errorf("relay returned empty bundle id")
	}
	return parsed.Result, nil
}
