// internal/solbc/client_test.go
package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func simulationServer(t *testing.T, units uint64, logs []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     interface{} `json:"id"`
			Method string      `json:"method"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "simulateTransaction", req.Method)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": 1},
				"value": map[string]interface{}{
					"err":           nil,
					"logs":          logs,
					"unitsConsumed": units,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestSimulateTransaction_DistillsResult(t *testing.T) {
	server := simulationServer(t, 150, []string{"Program 11111111111111111111111111111111 success"})
	defer server.Close()

	payer := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1, payer.PublicKey(), payer.PublicKey()).Build(),
		},
		solana.Hash{1},
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return &payer.PrivateKey
	})
	require.NoError(t, err)

	client := NewClient(server.URL, zap.NewNop())
	result, err := client.SimulateTransaction(context.Background(), tx)
	require.NoError(t, err)

	assert.Nil(t, result.Err)
	assert.Equal(t, uint64(150), result.UnitsConsumed)
	assert.Len(t, result.Logs, 1)
}

func TestIsAccountNotFoundError(t *testing.T) {
	assert.False(t, IsAccountNotFoundError(nil))
	assert.False(t, IsAccountNotFoundError(assert.AnError))
	assert.True(t, IsAccountNotFoundError(ErrAccountNotFound))
	assert.True(t, IsAccountNotFoundError(errors.New("Account Not Found")))
}
