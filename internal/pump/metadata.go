// ==============================================
// File: internal/pump/metadata.go
// ==============================================
package pump

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// DefaultFrontendURL is the pump.fun coin metadata endpoint.
const DefaultFrontendURL = "https://frontend-api.pump.fun"

// Metadata is the coin record served by the pump.fun frontend API.
type Metadata struct {
	Mint             string  `json:"mint"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Description      string  `json:"description"`
	ImageURI         string  `json:"image_uri"`
	Twitter          *string `json:"twitter"`
	Telegram         *string `json:"telegram"`
	Website          *string `json:"website"`
	Creator          string  `json:"creator"`
	CreatedTimestamp int64   `json:"created_timestamp"`
	UsdMarketCap     float64 `json:"usd_market_cap"`
	Complete         bool    `json:"complete"`
}

// MetadataClient fetches coin metadata from the frontend API. The
// frontend lags chain state by a few hundred milliseconds for fresh
// mints, so lookups retry.
type MetadataClient struct {
	httpc   *http.Client
	baseURL string
	logger  *zap.Logger
}

func NewMetadataClient(baseURL string, logger *zap.Logger) *MetadataClient {
	if baseURL == "" {
		baseURL = DefaultFrontendURL
	}
	return &MetadataClient{
		httpc:   &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		logger:  logger.Named("metadata"),
	}
}

// Fetch retrieves metadata for the given mint, retrying while the
// frontend has not indexed it yet.
func (m *MetadataClient) Fetch(ctx context.Context, mint string) (*Metadata, error) {
	operation := func() (*Metadata, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/coins/"+mint, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := m.httpc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("metadata request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("metadata request returned %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata response: %w", err)
		}

		var meta Metadata
		if err := json.Unmarshal(body, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		return &meta, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond

	meta, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(4),
		backoff.WithNotify(func(err error, d time.Duration) {
			m.logger.Debug("Retrying metadata fetch",
				zap.String("mint", mint),
				zap.Duration("backoff", d),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

type signatureLister interface {
	GetSignaturesForAddress(ctx context.Context, address solana.PublicKey) ([]*rpc.TransactionSignature, error)
}

// CreationSlot returns the slot of the oldest transaction mentioning the
// mint, i.e. the slot the token was created in.
func CreationSlot(ctx context.Context, client signatureLister, mint solana.PublicKey) (uint64, error) {
	sigs, err := client.GetSignaturesForAddress(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to list signatures for %s: %w", mint.String(), err)
	}
	if len(sigs) == 0 {
		return 0, fmt.Errorf("no transactions found for %s", mint.String())
	}
	// Signatures are returned newest first.
	return sigs[len(sigs)-1].Slot, nil
}
