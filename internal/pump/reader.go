// ==============================================
// File: internal/pump/reader.go
// ==============================================
package pump

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ErrAccountNotFound is returned when the bonding curve account is still
// missing after all fetch retries.
var ErrAccountNotFound = errors.New("bonding curve account not found")

// accountFetcher is the part of the RPC client the reader needs.
type accountFetcher interface {
	GetAccountInfoProcessed(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// CurveReader fetches and decodes bonding curve state. A fresh curve may
// not be visible at processed commitment yet, so missing accounts are
// retried before giving up.
type CurveReader struct {
	client accountFetcher
	logger *zap.Logger
}

func NewCurveReader(client accountFetcher, logger *zap.Logger) *CurveReader {
	return &CurveReader{
		client: client,
		logger: logger.Named("curve-reader"),
	}
}

// Fetch reads the bonding curve account and decodes its state, retrying
// transient failures with exponential backoff.
func (r *CurveReader) Fetch(ctx context.Context, bondingCurve solana.PublicKey) (*CurveState, error) {
	operation := func() (*CurveState, error) {
		info, err := r.client.GetAccountInfoProcessed(ctx, bondingCurve)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, bondingCurve.String())
			}
			return nil, fmt.Errorf("failed to fetch bonding curve: %w", err)
		}
		if info == nil || info.Value == nil {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, bondingCurve.String())
		}

		state, err := ParseCurveState(info.Value.Data.GetBinary())
		if err != nil {
			// Malformed data will not improve on retry.
			return nil, backoff.Permanent(err)
		}
		return state, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	state, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(5),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger.Debug("Retrying bonding curve fetch",
				zap.String("bonding_curve", bondingCurve.String()),
				zap.Duration("backoff", d),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func isNotFound(err error) bool {
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
