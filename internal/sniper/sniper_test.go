package sniper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pumpsniper/internal/feed"
	"pumpsniper/internal/jito"
	"pumpsniper/internal/trade"
	"pumpsniper/internal/wallet"
)

type fakeRelay struct {
	mu      sync.Mutex
	bundles [][]*solana.Transaction
	notify  chan struct{}
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{notify: make(chan struct{}, 64)}
}

func (r *fakeRelay) SendBundle(ctx context.Context, txs []*solana.Transaction, mode jito.SubmitMode) (string, error) {
	r.mu.Lock()
	r.bundles = append(r.bundles, txs)
	r.mu.Unlock()
	r.notify <- struct{}{}
	return "bundle-id", nil
}

func (r *fakeRelay) waitBundles(t *testing.T, n int) [][]*solana.Transaction {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for bundle %d of %d", i+1, n)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]*solana.Transaction(nil), r.bundles...)
}

type fakeTips struct{ tip uint64 }

func (f fakeTips) Tip() uint64 { return f.tip }

func testOwner(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

func launchCoin() *feed.NewCoin {
	return &feed.NewCoin{
		Mint:                 "6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump",
		Name:                 "test coin",
		Symbol:               "TEST",
		CreatedTimestamp:     time.Now().UnixMilli(),
		VirtualSolReserves:   30_000_999_057,
		VirtualTokenReserves: 1_072_964_268_463_317,
	}
}

func testSniper(cfg Config, relay *fakeRelay, owner *wallet.Wallet) *Sniper {
	builder := trade.NewBuilder(1.05, 100_000, 0, zap.NewNop())
	cell := &BlockhashCell{hash: solana.Hash{1}}
	slots := &SlotTracker{}
	return New(cfg, owner, builder, relay, fakeTips{tip: 50_000}, cell, slots, zap.NewNop())
}

func TestSnipeSize_AppliesHaircut(t *testing.T) {
	// 500k lamports against these reserves quotes 17_881_844_277
	// tokens; the haircut takes 5% off the ask.
	amount, err := snipeSize(launchCoin(), 500_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(16_987_752_063), amount)
}

func TestSnipe_SpraysJitteredVariants(t *testing.T) {
	relay := newFakeRelay()
	s := testSniper(Config{
		Lamports:   500_000,
		NumTries:   3,
		JitterStep: time.Millisecond,
	}, relay, testOwner(t))

	require.NoError(t, s.Snipe(context.Background(), launchCoin()))
	bundles := relay.waitBundles(t, 3)
	require.Len(t, bundles, 3)

	// Jitter is folded into the spend, so every variant signs
	// differently and the relay treats them as distinct bundles.
	seen := make(map[solana.Signature]bool)
	for _, txs := range bundles {
		require.Len(t, txs, 1)
		require.NotEmpty(t, txs[0].Signatures)
		seen[txs[0].Signatures[0]] = true
	}
	assert.Len(t, seen, 3)
}

func TestSnipe_AppendsDeadlineTransaction(t *testing.T) {
	relay := newFakeRelay()
	s := testSniper(Config{
		Lamports:        500_000,
		NumTries:        1,
		DeadlineSlots:   5,
		DeadlineProgram: solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"),
	}, relay, testOwner(t))
	s.slots.slot.Store(1_000)

	require.NoError(t, s.Snipe(context.Background(), launchCoin()))
	bundles := relay.waitBundles(t, 1)
	require.Len(t, bundles, 1)
	assert.Len(t, bundles[0], 2)
}

func TestSnipe_DeadlineSkippedBeforeFirstSlot(t *testing.T) {
	relay := newFakeRelay()
	s := testSniper(Config{
		Lamports:        500_000,
		NumTries:        1,
		DeadlineSlots:   5,
		DeadlineProgram: solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf"),
	}, relay, testOwner(t))

	require.NoError(t, s.Snipe(context.Background(), launchCoin()))
	bundles := relay.waitBundles(t, 1)
	require.Len(t, bundles, 1)
	assert.Len(t, bundles[0], 1)
}

func TestSnipe_RejectsBadMint(t *testing.T) {
	relay := newFakeRelay()
	s := testSniper(Config{Lamports: 500_000, NumTries: 1}, relay, testOwner(t))

	coin := launchCoin()
	coin.Mint = "not-a-pubkey"
	assert.Error(t, s.Snipe(context.Background(), coin))
}

func TestHandleLaunch_FiltersStaleCoins(t *testing.T) {
	relay := newFakeRelay()
	s := testSniper(Config{
		Lamports:   500_000,
		NumTries:   1,
		MaxCoinAge: 250 * time.Millisecond,
	}, relay, testOwner(t))

	coin := launchCoin()
	coin.CreatedTimestamp = time.Now().Add(-time.Second).UnixMilli()
	s.HandleLaunch(context.Background(), coin)

	select {
	case <-relay.notify:
		t.Fatal("stale launch must not reach the relay")
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeBlockhashClient struct {
	mu     sync.Mutex
	hashes []solana.Hash
	errs   []error
	calls  int
}

func (f *fakeBlockhashClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return solana.Hash{}, f.errs[i]
	}
	return f.hashes[i], nil
}

func TestBlockhashCell_RefreshAndKeepOnFailure(t *testing.T) {
	client := &fakeBlockhashClient{
		hashes: []solana.Hash{{7}, {}},
		errs:   []error{nil, errors.New("rpc down")},
	}
	cell := NewBlockhashCell(client, zap.NewNop())
	assert.Equal(t, solana.Hash{}, cell.Get())

	cell.refresh(context.Background())
	assert.Equal(t, solana.Hash{7}, cell.Get())

	// A failed refresh keeps the last good hash.
	cell.refresh(context.Background())
	assert.Equal(t, solana.Hash{7}, cell.Get())
}
