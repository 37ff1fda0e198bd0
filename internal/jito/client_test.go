package jito

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func signedTransfer(t *testing.T) *solana.Transaction {
	t.Helper()
	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer.PublicKey(), RandomTipAccount()).Build(),
		},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func bundleServer(t *testing.T, bundleID string, captured *rpcRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  bundleID,
		})
	}))
}

func TestSendBundle_NoWait(t *testing.T) {
	var captured rpcRequest
	srv := bundleServer(t, "bundle-1", &captured)
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	bundleID, err := client.SendBundle(context.Background(), []*solana.Transaction{signedTransfer(t)}, NoWait())
	require.NoError(t, err)

	assert.Equal(t, "bundle-1", bundleID)
	assert.Equal(t, "sendBundle", captured.Method)
	require.Len(t, captured.Params, 2)

	txs, ok := captured.Params[0].([]interface{})
	require.True(t, ok)
	assert.Len(t, txs, 1)
}

func TestSendBundle_RelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32600, "message": "bundle too large"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	_, err := client.SendBundle(context.Background(), []*solana.Transaction{signedTransfer(t)}, NoWait())
	assert.ErrorContains(t, err, "bundle too large")
}

func TestSendBundle_FanoutNotDelayedBySlowRegion(t *testing.T) {
	fast := bundleServer(t, "bundle-fast", nil)
	defer fast.Close()

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	client := NewClient(fast.URL, []string{slow.URL, fast.URL}, zap.NewNop())

	start := time.Now()
	bundleID, err := client.SendBundle(context.Background(), []*solana.Transaction{signedTransfer(t)}, MultiRegionFanout())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "bundle-fast", bundleID)
	assert.Less(t, elapsed, time.Second, "one hanging region must not delay the submit")
}

func TestSendBundle_FanoutAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, []string{srv.URL, srv.URL}, zap.NewNop())
	_, err := client.SendBundle(context.Background(), []*solana.Transaction{signedTransfer(t)}, MultiRegionFanout())
	assert.Error(t, err)
}

func TestSendBundle_EmptyBundle(t *testing.T) {
	client := NewClient("http://localhost", nil, zap.NewNop())
	_, err := client.SendBundle(context.Background(), nil, NoWait())
	assert.Error(t, err)
}

func TestRegionEndpoints(t *testing.T) {
	endpoints := RegionEndpoints([]string{"amsterdam", "tokyo"})
	assert.Equal(t, []string{
		"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles",
		"https://tokyo.mainnet.block-engine.jito.wtf/api/v1/bundles",
	}, endpoints)
}
