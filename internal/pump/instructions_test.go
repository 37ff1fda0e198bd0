package pump

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTradeAccounts(t *testing.T) TradeAccounts {
	t.Helper()
	mint := solana.MustPublicKeyFromBase58("6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump")
	accounts, err := DeriveTradeAccounts(mint)
	require.NoError(t, err)
	return accounts
}

func TestBuildBuyInstruction_Encoding(t *testing.T) {
	accounts := testTradeAccounts(t)
	owner := solana.NewWallet().PublicKey()

	ix, err := BuildBuyInstruction(accounts, owner, 17_881_844_277, 525_000)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, buyDiscriminator, data[:8])
	assert.Equal(t, uint64(17_881_844_277), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(525_000), binary.LittleEndian.Uint64(data[16:24]))

	metas := ix.Accounts()
	require.Len(t, metas, 12)
	assert.Equal(t, GlobalAccount, metas[0].PublicKey)
	assert.Equal(t, accounts.BondingCurve, metas[3].PublicKey)
	assert.True(t, metas[3].IsWritable)
	assert.Equal(t, owner, metas[6].PublicKey)
	assert.True(t, metas[6].IsSigner)
	assert.Equal(t, solana.SysVarRentPubkey, metas[9].PublicKey)
	assert.Equal(t, ProgramID, ix.ProgramID())
}

func TestBuildSellInstruction_Encoding(t *testing.T) {
	accounts := testTradeAccounts(t)
	owner := solana.NewWallet().PublicKey()

	ix, err := BuildSellInstruction(accounts, owner, 17_881_844_277, 0)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, sellDiscriminator, data[:8])

	metas := ix.Accounts()
	require.Len(t, metas, 12)
	// Sells carry the associated token program where buys carry rent.
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, metas[8].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[9].PublicKey)
}

func TestBuildCreateATAInstruction_Idempotent(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58("6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump")

	ix, err := BuildCreateATAInstruction(owner, owner, mint)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())
}
