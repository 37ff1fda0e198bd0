package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	mu     sync.Mutex
	frames []string
}

func (r *recordingWriter) WriteMessage(_ int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, string(data))
	return nil
}

func (r *recordingWriter) written() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.frames...)
}

func TestListener_HeartbeatAnswered(t *testing.T) {
	l := NewListener("", ProtocolFrontend, func(*NewCoin) {}, zap.NewNop())
	w := &recordingWriter{}

	require.NoError(t, l.handleFrame(w, []byte("2")))
	assert.Equal(t, []string{"3"}, w.written())
}

func TestListener_HandshakeJoinsNamespace(t *testing.T) {
	l := NewListener("", ProtocolFrontend, func(*NewCoin) {}, zap.NewNop())
	w := &recordingWriter{}

	require.NoError(t, l.handleFrame(w, []byte(`0{"sid":"abc"}`)))
	assert.Equal(t, []string{"40"}, w.written())
}

func TestListener_DispatchesNewCoin(t *testing.T) {
	coins := make(chan *NewCoin, 1)
	l := NewListener("", ProtocolFrontend, func(c *NewCoin) { coins <- c }, zap.NewNop())
	w := &recordingWriter{}

	frame := `42["newCoinCreated",{"mint":"6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump"}]`
	require.NoError(t, l.handleFrame(w, []byte(frame)))

	select {
	case coin := <-coins:
		assert.Equal(t, "6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump", coin.Mint)
	case <-time.After(time.Second):
		t.Fatal("launch event never dispatched")
	}
}

func TestListener_MalformedEventSkipped(t *testing.T) {
	called := false
	l := NewListener("", ProtocolFrontend, func(*NewCoin) { called = true }, zap.NewNop())
	w := &recordingWriter{}

	require.NoError(t, l.handleFrame(w, []byte(`42["newCoinCreated",{broken`)))
	assert.False(t, called)
	assert.Empty(t, w.written())
}

func TestListener_PortalSubscribed(t *testing.T) {
	l := NewListener("", ProtocolPortal, func(*NewCoin) {}, zap.NewNop())
	w := &recordingWriter{}

	require.NoError(t, l.subscribe(w))
	assert.Equal(t, []string{`{"method":"subscribeNewToken"}`}, w.written())

	require.NoError(t, l.handleFrame(w, []byte(`{"message":"Successfully subscribed to token creation events."}`)))
	assert.Len(t, w.written(), 1)
}
