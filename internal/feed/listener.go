// ==============================================
// File: internal/feed/listener.go
// ==============================================
package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler receives every parsed launch event.
type Handler func(coin *NewCoin)

// frameWriter is the write half of a feed connection.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Listener consumes a token launch feed and dispatches events. The feed
// is the bot's lifeline: any transport failure reconnects and
// resubscribes, the listener itself never gives up.
type Listener struct {
	url      string
	protocol Protocol
	handler  Handler
	dialer   *websocket.Dialer
	logger   *zap.Logger
}

func NewListener(url string, protocol Protocol, handler Handler, logger *zap.Logger) *Listener {
	return &Listener{
		url:      url,
		protocol: protocol,
		handler:  handler,
		dialer:   websocket.DefaultDialer,
		logger:   logger.Named("feed"),
	}
}

// Run consumes the feed until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := l.consume(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn("Feed disconnected, reconnecting",
				zap.String("url", l.url),
				zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (l *Listener) consume(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if err := l.subscribe(conn); err != nil {
		return err
	}

	l.logger.Info("Feed connected", zap.String("url", l.url))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := l.handleFrame(conn, data); err != nil {
			return err
		}
	}
}

// subscribe sends the protocol's subscription request. The frontend
// feed subscribes by joining the default namespace after the open
// frame, handled in handleFrame.
func (l *Listener) subscribe(w frameWriter) error {
	if l.protocol == ProtocolPortal {
		return w.WriteMessage(websocket.TextMessage, []byte(portalSubscribe))
	}
	return nil
}

// handleFrame processes one raw frame. Heartbeats are answered
// immediately so the server keeps the connection alive; malformed
// payloads are logged and skipped; each launch event is dispatched on
// its own goroutine so a slow handler never blocks the read loop.
func (l *Listener) handleFrame(w frameWriter, data []byte) error {
	switch l.classify(data) {
	case FrameHeartbeat:
		return w.WriteMessage(websocket.TextMessage, []byte(frontendHeartbeatAck))
	case FrameHandshake:
		return w.WriteMessage(websocket.TextMessage, []byte(frontendConnect))
	case FrameSubscribed:
		l.logger.Debug("Feed subscription confirmed")
		return nil
	case FrameNewCoin:
		coin, err := l.parse(data)
		if err != nil {
			l.logger.Warn("Skipping malformed launch event", zap.Error(err))
			return nil
		}
		l.logger.Info("New token",
			zap.String("mint", coin.Mint),
			zap.String("name", coin.Name))
		go l.handler(coin)
		return nil
	default:
		l.logger.Debug("Ignoring feed frame", zap.ByteString("frame", data))
		return nil
	}
}

func (l *Listener) classify(data []byte) FrameKind {
	if l.protocol == ProtocolPortal {
		return ClassifyPortal(data)
	}
	return ClassifyFrontend(data)
}

func (l *Listener) parse(data []byte) (*NewCoin, error) {
	if l.protocol == ProtocolPortal {
		return ParsePortalNewCoin(data, time.Now())
	}
	return ParseFrontendNewCoin(data)
}
