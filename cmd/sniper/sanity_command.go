// ==============================================
// File: cmd/sniper/sanity_command.go
// ==============================================
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/urfave/cli/v2"
)

func sanityCommand() *cli.Command {
	return &cli.Command{
		Name:  "sanity",
		Usage: "Check configuration, keypair and RPC connectivity",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			fmt.Printf("keypair        %s\n", rt.owner.PublicKey)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			blockhash, err := rt.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
			if err != nil {
				return fmt.Errorf("rpc unreachable: %w", err)
			}
			fmt.Printf("rpc            ok (blockhash %s)\n", blockhash)

			balance, err := rt.client.GetBalance(ctx, rt.owner.PublicKey, rpc.CommitmentConfirmed)
			if err != nil {
				return fmt.Errorf("balance lookup failed: %w", err)
			}
			fmt.Printf("balance        %.9f SOL\n", float64(balance)/1e9)

			if rt.cfg.WalletDir != "" {
				pool, err := rt.loadPool()
				if err != nil {
					return fmt.Errorf("wallet pool unreadable: %w", err)
				}
				fmt.Printf("wallet pool    %d wallets\n", pool.Size())
			}

			tx, err := solana.NewTransaction(
				[]solana.Instruction{
					system.NewTransferInstruction(1, rt.owner.PublicKey, rt.owner.PublicKey).Build(),
				},
				blockhash,
				solana.TransactionPayer(rt.owner.PublicKey),
			)
			if err != nil {
				return fmt.Errorf("building self transfer: %w", err)
			}
			if err := rt.owner.SignTransaction(tx); err != nil {
				return fmt.Errorf("signing self transfer: %w", err)
			}
			sim, err := rt.client.SimulateTransaction(ctx, tx)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}
			if sim.Err != nil {
				return fmt.Errorf("simulated self transfer rejected: %v", sim.Err)
			}
			fmt.Printf("simulation     ok (%d compute units)\n", sim.UnitsConsumed)

			fmt.Printf("relay tip      %d lamports (static fallback)\n", rt.tips.Tip())
			return nil
		},
	}
}
