package jito

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func statusServer(t *testing.T, statuses map[string]inflightStatus) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "getInflightBundleStatuses", req.Method)

		ids, ok := req.Params[0].([]interface{})
		require.True(t, ok)
		require.LessOrEqual(t, len(ids), statusBatchSize)

		var value []inflightStatus
		for _, id := range ids {
			if status, found := statuses[id.(string)]; found {
				value = append(value, status)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]interface{}{"value": value},
		})
	}))
}

func TestWatcher_LandedBundleResolved(t *testing.T) {
	srv := statusServer(t, map[string]inflightStatus{
		"bundle-1": {BundleID: "bundle-1", Status: "Landed", LandedSlot: 333},
	})
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	sub := client.watcher.watch("bundle-1")

	client.watcher.poll(context.Background())

	select {
	case result := <-sub:
		assert.Equal(t, StatusLanded, result.Status)
		assert.Equal(t, uint64(333), result.LandedSlot)
	default:
		t.Fatal("expected a terminal result")
	}
}

func TestWatcher_FailedBundleDropped(t *testing.T) {
	srv := statusServer(t, map[string]inflightStatus{
		"bundle-2": {BundleID: "bundle-2", Status: "Failed"},
	})
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	sub := client.watcher.watch("bundle-2")

	client.watcher.poll(context.Background())

	select {
	case result := <-sub:
		assert.Equal(t, StatusDropped, result.Status)
	default:
		t.Fatal("expected a terminal result")
	}
}

func TestWatcher_PendingStaysTracked(t *testing.T) {
	srv := statusServer(t, map[string]inflightStatus{
		"bundle-3": {BundleID: "bundle-3", Status: "Pending"},
	})
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	sub := client.watcher.watch("bundle-3")

	client.watcher.poll(context.Background())

	select {
	case <-sub:
		t.Fatal("pending bundle must not resolve")
	default:
	}
	assert.Len(t, client.watcher.pendingIDs(), 1)
}

func TestWatcher_FreshInvalidNotResolved(t *testing.T) {
	// Right after submit the relay often reports Invalid because the
	// bundle is not indexed yet.
	srv := statusServer(t, map[string]inflightStatus{
		"bundle-4": {BundleID: "bundle-4", Status: "Invalid"},
	})
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	sub := client.watcher.watch("bundle-4")

	client.watcher.poll(context.Background())

	select {
	case <-sub:
		t.Fatal("freshly submitted invalid bundle must not resolve")
	default:
	}
}

func TestWatcher_StaleInvalidResolved(t *testing.T) {
	srv := statusServer(t, map[string]inflightStatus{
		"bundle-5": {BundleID: "bundle-5", Status: "Invalid"},
	})
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	sub := client.watcher.watch("bundle-5")
	client.watcher.mu.Lock()
	client.watcher.pending["bundle-5"].registered = time.Now().Add(-time.Minute)
	client.watcher.mu.Unlock()

	client.watcher.poll(context.Background())

	select {
	case result := <-sub:
		assert.Equal(t, StatusInvalid, result.Status)
	default:
		t.Fatal("expected a terminal result")
	}
}

func TestWatcher_ExpiresAfterTTL(t *testing.T) {
	srv := statusServer(t, nil)
	defer srv.Close()

	client := NewClient(srv.URL, nil, zap.NewNop())
	sub := client.watcher.watch("bundle-6")
	client.watcher.mu.Lock()
	client.watcher.pending["bundle-6"].registered = time.Now().Add(-3 * time.Minute)
	client.watcher.mu.Unlock()

	client.watcher.poll(context.Background())

	select {
	case result := <-sub:
		assert.Equal(t, StatusExpired, result.Status)
	default:
		t.Fatal("expected an expiry result")
	}
}
