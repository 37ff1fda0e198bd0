// ==============================================
// File: cmd/sniper/wallet_commands.go
// ==============================================
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v2"

	"pumpsniper/internal/pump"
	"pumpsniper/internal/wallet"
)

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Wallet pool management",
		Subcommands: []*cli.Command{
			walletCreateCommand(),
			walletFundCommand(),
			walletDrainCommand(),
			walletBalancesCommand(),
		},
	}
}

func (rt *runtime) loadPool() (*wallet.Pool, error) {
	if rt.cfg.WalletDir == "" {
		return nil, fmt.Errorf("wallet_dir is not configured")
	}
	return wallet.LoadPool(rt.owner, rt.cfg.WalletDir, rt.client, rt.relay, rt.log.Logger)
}

func walletCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Generate pool wallet keypairs into the wallet directory",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 5, Usage: "Number of wallets to create"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			if rt.cfg.WalletDir == "" {
				return fmt.Errorf("wallet_dir is not configured")
			}
			if err := os.MkdirAll(rt.cfg.WalletDir, 0o700); err != nil {
				return fmt.Errorf("failed to create wallet directory: %w", err)
			}

			for i := 0; i < c.Int("count"); i++ {
				w := wallet.Generate()
				path := filepath.Join(rt.cfg.WalletDir, fmt.Sprintf("wallet-%s.json", w.PublicKey))
				if err := w.SaveKeypairFile(path); err != nil {
					return err
				}
				fmt.Println(w.PublicKey)
			}
			return nil
		},
	}
}

func walletFundCommand() *cli.Command {
	return &cli.Command{
		Name:  "fund",
		Usage: "Send SOL from the owner wallet to every pool wallet",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "sol", Usage: "Amount per wallet in SOL", Required: true},
			&cli.Float64Flag{Name: "tip-sol", Value: 0.0001, Usage: "Bundle tip in SOL"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			pool, err := rt.loadPool()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			return pool.Fund(ctx, solToLamports(c.Float64("sol")), solToLamports(c.Float64("tip-sol")))
		},
	}
}

func walletDrainCommand() *cli.Command {
	return &cli.Command{
		Name:  "drain",
		Usage: "Sweep every pool wallet's balance back to the owner",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "tip-sol", Value: 0.0001, Usage: "Bundle tip in SOL"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			pool, err := rt.loadPool()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			return pool.Drain(ctx, solToLamports(c.Float64("tip-sol")))
		},
	}
}

func walletBalancesCommand() *cli.Command {
	return &cli.Command{
		Name:  "balances",
		Usage: "Print the SOL balance of the owner and every pool wallet",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			pool, err := rt.loadPool()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			balances, err := pool.Balances(ctx)
			if err != nil {
				return err
			}

			ownerBalance, err := rt.client.GetBalance(ctx, rt.owner.PublicKey, rpc.CommitmentConfirmed)
			if err != nil {
				return err
			}
			fmt.Printf("owner  %s  %.9f SOL\n", rt.owner.PublicKey, float64(ownerBalance)/pump.LamportsPerSOL)
			for _, b := range balances {
				fmt.Printf("pool   %s  %.9f SOL\n", b.Wallet.PublicKey, float64(b.Lamports)/pump.LamportsPerSOL)
			}
			return nil
		},
	}
}
