package trade

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pumpsniper/internal/jito"
	"pumpsniper/internal/pump"
	"pumpsniper/internal/wallet"
)

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

func testBuyParams(t *testing.T, owner *wallet.Wallet, jitter uint64) BuyParams {
	t.Helper()
	mint := solana.MustPublicKeyFromBase58("6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump")
	accounts, err := pump.DeriveTradeAccounts(mint)
	require.NoError(t, err)
	return BuyParams{
		Accounts:    accounts,
		Owner:       owner,
		TokenAmount: 17_881_844_277,
		Lamports:    500_000,
		Tip:         100_000,
		TipAccount:  jito.RandomTipAccount(),
		Blockhash:   solana.Hash{1},
		Jitter:      jitter,
	}
}

func TestBuildBuy_SlippageCeiling(t *testing.T) {
	b := NewBuilder(1.05, 100_000, 0, zap.NewNop())
	owner := testWallet(t)

	tx, err := b.BuildBuy(testBuyParams(t, owner, 0))
	require.NoError(t, err)
	require.NotEmpty(t, tx.Signatures)

	// Instruction order: budget limit, create ATA, buy, tip.
	require.Len(t, tx.Message.Instructions, 4)
	buyIx := tx.Message.Instructions[2]
	data := []byte(buyIx.Data)
	require.Len(t, data, 24)
	assert.Equal(t, uint64(17_881_844_277), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(525_000), binary.LittleEndian.Uint64(data[16:24]))
}

func TestBuildBuy_JitterChangesSignature(t *testing.T) {
	b := NewBuilder(1.05, 100_000, 0, zap.NewNop())
	owner := testWallet(t)

	base, err := b.BuildBuy(testBuyParams(t, owner, 0))
	require.NoError(t, err)
	jittered, err := b.BuildBuy(testBuyParams(t, owner, 1))
	require.NoError(t, err)

	require.NotEmpty(t, base.Signatures)
	require.NotEmpty(t, jittered.Signatures)
	assert.NotEqual(t, base.Signatures[0], jittered.Signatures[0],
		"jittered variants must produce distinct signatures")
}

func TestBuildBuy_ComputePriceOptional(t *testing.T) {
	owner := testWallet(t)

	withPrice := NewBuilder(1.05, 100_000, 1_000, zap.NewNop())
	tx, err := withPrice.BuildBuy(testBuyParams(t, owner, 0))
	require.NoError(t, err)
	assert.Len(t, tx.Message.Instructions, 5)

	withoutBudget := NewBuilder(1.05, 0, 0, zap.NewNop())
	tx, err = withoutBudget.BuildBuy(testBuyParams(t, owner, 0))
	require.NoError(t, err)
	assert.Len(t, tx.Message.Instructions, 3)
}

func TestBuildSell(t *testing.T) {
	b := NewBuilder(1.05, 100_000, 0, zap.NewNop())
	owner := testWallet(t)
	mint := solana.MustPublicKeyFromBase58("6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump")
	accounts, err := pump.DeriveTradeAccounts(mint)
	require.NoError(t, err)

	tx, err := b.BuildSell(SellParams{
		Accounts:     accounts,
		Owner:        owner,
		TokenAmount:  17_881_844_277,
		MinSolOutput: 450_000,
		Tip:          100_000,
		TipAccount:   jito.RandomTipAccount(),
		Blockhash:    solana.Hash{1},
	})
	require.NoError(t, err)

	// No ATA create on the sell path.
	require.Len(t, tx.Message.Instructions, 3)
	data := []byte(tx.Message.Instructions[1].Data)
	require.Len(t, data, 24)
	assert.Equal(t, uint64(450_000), binary.LittleEndian.Uint64(data[16:24]))
}

func TestBuildDeadline_SlotEncoding(t *testing.T) {
	owner := testWallet(t)
	program := solana.NewWallet().PublicKey()

	tx, err := BuildDeadline(program, 287_454_020, owner, solana.Hash{1})
	require.NoError(t, err)

	require.Len(t, tx.Message.Instructions, 1)
	data := []byte(tx.Message.Instructions[0].Data)
	require.Len(t, data, 8)
	assert.Equal(t, uint64(287_454_020), binary.LittleEndian.Uint64(data))
	require.NotEmpty(t, tx.Signatures)
}
