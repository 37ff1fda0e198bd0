// ==============================================
// File: internal/pump/state.go
// ==============================================
package pump

import (
	"encoding/binary"
	"fmt"
)

// curveAccountSize is the serialized size of a bonding curve account:
// 8-byte discriminator, five u64 fields, one completion flag.
const curveAccountSize = 49

// CurveState is the deserialized bonding curve account.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// ParseCurveState decodes the raw bonding curve account data.
// The account is exactly curveAccountSize bytes, any other length is a
// decode failure, not a transient condition.
func ParseCurveState(data []byte) (*CurveState, error) {
	if len(data) != curveAccountSize {
		return nil, fmt.Errorf("bonding curve account is %d bytes, want %d", len(data), curveAccountSize)
	}

	return &CurveState{
		VirtualTokenReserves: binary.LittleEndian.Uint64(data[8:16]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(data[16:24]),
		RealTokenReserves:    binary.LittleEndian.Uint64(data[24:32]),
		RealSolReserves:      binary.LittleEndian.Uint64(data[32:40]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(data[40:48]),
		Complete:             data[48] != 0,
	}, nil
}

// TokensForLamports prices a buy against this state, clamping the output
// to the remaining real token reserves.
func (s *CurveState) TokensForLamports(lamports uint64) (uint64, error) {
	if s.Complete {
		return 0, ErrCurveComplete
	}
	real := s.RealTokenReserves
	return TokenAmount(s.VirtualSolReserves, s.VirtualTokenReserves, &real, lamports)
}
