// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet wraps a Solana keypair with an ATA cache. Derivation is
// deterministic per mint, so results are memoized; the cache is safe
// for concurrent use, the seller resolves ATAs from one goroutine per
// landed signature.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	ataCache sync.Map // solana.PublicKey -> solana.PublicKey
}

// NewWallet creates a wallet from a base58-encoded private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return newWallet(privateKey), nil
}

// LoadKeypairFile creates a wallet from a solana-keygen JSON file.
func LoadKeypairFile(path string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return newWallet(privateKey), nil
}

// Generate creates a wallet with a fresh random keypair.
func Generate() *Wallet {
	return newWallet(solana.NewWallet().PrivateKey)
}

// SaveKeypairFile writes the private key in solana-keygen JSON format,
// readable by LoadKeypairFile and the solana CLI.
func (w *Wallet) SaveKeypairFile(path string) error {
	raw := make([]int, len(w.PrivateKey))
	for i, b := range w.PrivateKey {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write keypair file: %w", err)
	}
	return nil
}

func newWallet(privateKey solana.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}
}

// SignTransaction signs the transaction with this wallet's key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// SignWith signs a transaction that requires several of the given wallets.
func SignWith(tx *solana.Transaction, wallets ...*Wallet) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for _, w := range wallets {
			if key.Equals(w.PublicKey) {
				return &w.PrivateKey
			}
		}
		return nil
	})
	return err
}

// GetATA returns the associated token account address for the given
// mint, computed once and cached.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	if cached, ok := w.ataCache.Load(mint); ok {
		return cached.(solana.PublicKey), nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache.Store(mint, ata)
	return ata, nil
}

// PrecomputeATAs computes and caches the ATA for each mint up front.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.GetATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
