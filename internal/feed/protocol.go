// ==============================================
// File: internal/feed/protocol.go
// ==============================================
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Protocol selects the wire format of a launch feed.
type Protocol int

const (
	// ProtocolFrontend is the pump.fun socket.io-flavored feed.
	ProtocolFrontend Protocol = iota
	// ProtocolPortal is the pumpportal plain-JSON feed.
	ProtocolPortal
)

// FrameKind classifies a raw feed frame.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameHandshake
	FrameHeartbeat
	FrameSubscribed
	FrameNewCoin
)

// socket.io protocol bytes. The feed speaks engine.io v4 over a raw
// websocket: "0" open, "2" ping, "3" pong, "40" namespace connect.
const (
	frontendOpenPrefix    = "0"
	frontendHeartbeat     = "2"
	frontendHeartbeatAck  = "3"
	frontendConnect       = "40"
	frontendNewCoinPrefix = `42["newCoinCreated",`
)

// portalSubscribe is the pumpportal subscription request.
const portalSubscribe = `{"method":"subscribeNewToken"}`

// ClassifyFrontend classifies a frame from the pump.fun feed.
func ClassifyFrontend(data []byte) FrameKind {
	s := string(data)
	switch {
	case s == frontendHeartbeat:
		return FrameHeartbeat
	case strings.HasPrefix(s, frontendNewCoinPrefix):
		return FrameNewCoin
	case strings.HasPrefix(s, frontendConnect):
		return FrameSubscribed
	case strings.HasPrefix(s, frontendOpenPrefix):
		return FrameHandshake
	default:
		return FrameUnknown
	}
}

// ParseFrontendNewCoin decodes the payload of a newCoinCreated frame.
func ParseFrontendNewCoin(data []byte) (*NewCoin, error) {
	trimmed := bytes.TrimPrefix(data, []byte(frontendNewCoinPrefix))
	trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("]"))

	var coin NewCoin
	if err := json.Unmarshal(trimmed, &coin); err != nil {
		return nil, fmt.Errorf("failed to decode newCoinCreated payload: %w", err)
	}
	if coin.Mint == "" {
		return nil, fmt.Errorf("newCoinCreated payload missing mint")
	}
	return &coin, nil
}

// ClassifyPortal classifies a frame from the pumpportal feed.
func ClassifyPortal(data []byte) FrameKind {
	var event portalEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return FrameUnknown
	}
	switch {
	case strings.Contains(event.Message, "Successfully subscribed"):
		return FrameSubscribed
	case event.TxType == "create":
		return FrameNewCoin
	default:
		return FrameUnknown
	}
}

// ParsePortalNewCoin decodes a pumpportal create event. Portal reserves
// arrive as whole-unit floats and are scaled to base units; the feed
// carries no creation timestamp, so receipt time stands in for it.
func ParsePortalNewCoin(data []byte, now time.Time) (*NewCoin, error) {
	var event portalEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode portal event: %w", err)
	}
	if event.Mint == "" {
		return nil, fmt.Errorf("portal event missing mint")
	}

	return &NewCoin{
		Mint:                 event.Mint,
		Name:                 event.Name,
		Symbol:               event.Symbol,
		Creator:              event.TraderPublicKey,
		BondingCurve:         event.BondingCurveKey,
		CreatedTimestamp:     now.UnixMilli(),
		VirtualSolReserves:   uint64(event.VSolInBondingCurve * 1e9),
		VirtualTokenReserves: uint64(event.VTokensInBondingCurve * 1e6),
	}, nil
}
