package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFrontend(t *testing.T) {
	cases := []struct {
		frame string
		want  FrameKind
	}{
		{"2", FrameHeartbeat},
		{`0{"sid":"abc","pingInterval":25000}`, FrameHandshake},
		{`40{"sid":"def"}`, FrameSubscribed},
		{`42["newCoinCreated",{"mint":"abc"}]`, FrameNewCoin},
		{`42["tradeCreated",{"mint":"abc"}]`, FrameUnknown},
		{"", FrameUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyFrontend([]byte(tc.frame)), "frame %q", tc.frame)
	}
}

func TestParseFrontendNewCoin(t *testing.T) {
	frame := `42["newCoinCreated",{
		"mint": "6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump",
		"name": "Example",
		"symbol": "EXA",
		"twitter": "https://x.com/example",
		"telegram": "https://t.me/example",
		"website": "https://example.com",
		"created_timestamp": 1724800000123,
		"virtual_sol_reserves": 30000000000,
		"virtual_token_reserves": 1073000000000000,
		"bonding_curve": "6TGz5VAFF6UpSmTSk9327utugSWJCyVeVVFXDtZnMtNp"
	}]`

	coin, err := ParseFrontendNewCoin([]byte(frame))
	require.NoError(t, err)

	assert.Equal(t, "6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump", coin.Mint)
	assert.Equal(t, int64(1724800000123), coin.CreatedTimestamp)
	assert.Equal(t, uint64(30_000_000_000), coin.VirtualSolReserves)
	require.NotNil(t, coin.Twitter)
	assert.Equal(t, "https://x.com/example", *coin.Twitter)
}

func TestParseFrontendNewCoin_MissingMint(t *testing.T) {
	_, err := ParseFrontendNewCoin([]byte(`42["newCoinCreated",{"name":"x"}]`))
	assert.Error(t, err)
}

func TestClassifyPortal(t *testing.T) {
	assert.Equal(t, FrameSubscribed, ClassifyPortal([]byte(`{"message":"Successfully subscribed to token creation events."}`)))
	assert.Equal(t, FrameNewCoin, ClassifyPortal([]byte(`{"txType":"create","mint":"abc"}`)))
	assert.Equal(t, FrameUnknown, ClassifyPortal([]byte(`{"txType":"buy","mint":"abc"}`)))
	assert.Equal(t, FrameUnknown, ClassifyPortal([]byte(`not json`)))
}

func TestParsePortalNewCoin_ScalesReserves(t *testing.T) {
	now := time.UnixMilli(1724800000500)
	coin, err := ParsePortalNewCoin([]byte(`{
		"txType": "create",
		"mint": "5KEDcNGebCcLptWzknqVmPRNLHfiHA9Mm2djVE26pump",
		"traderPublicKey": "8fW3oLf4QLuoLW9DtiQhNzSfZE6L6KPX9PdB7pMsPPUM",
		"name": "Example",
		"symbol": "EXA",
		"vSolInBondingCurve": 30.0,
		"vTokensInBondingCurve": 1073000000.0,
		"bondingCurveKey": "Drhj4djqLsPyiA9qK2YmBngteFba8XhhvuQoBToW6pMS"
	}`), now)
	require.NoError(t, err)

	assert.Equal(t, uint64(30_000_000_000), coin.VirtualSolReserves)
	assert.Equal(t, uint64(1_073_000_000_000_000), coin.VirtualTokenReserves)
	assert.Equal(t, now.UnixMilli(), coin.CreatedTimestamp)
	assert.Nil(t, coin.Twitter)
}
