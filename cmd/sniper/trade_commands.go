// ==============================================
// File: cmd/sniper/trade_commands.go
// ==============================================
package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"pumpsniper/internal/volume"
	"pumpsniper/internal/wallet"
)

func buyCommand() *cli.Command {
	return &cli.Command{
		Name:  "buy",
		Usage: "Buy a token from its bonding curve",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mint", Usage: "Token mint address", Required: true},
			&cli.Float64Flag{Name: "sol", Usage: "Spend in SOL", Required: true},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			defer rt.log.TrackPerformance("buy")()
			return rt.trader("buy").Buy(ctx, mint, solToLamports(c.Float64("sol")))
		},
	}
}

func sellCommand() *cli.Command {
	return &cli.Command{
		Name:  "sell",
		Usage: "Sell the wallet's entire position in a token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mint", Usage: "Token mint address", Required: true},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			defer rt.log.TrackPerformance("sell")()
			return rt.trader("sell").Sell(ctx, mint)
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Liquidate every token position the owner wallet holds",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			return rt.trader("sweep").Sweep(ctx)
		},
	}
}

func bumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "bump",
		Usage: "Keep a token visible with paired buy and sell bundles",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mint", Usage: "Token mint address", Required: true},
			&cli.Float64Flag{Name: "sol", Value: 0.011, Usage: "Spend per bump in SOL"},
			&cli.DurationFlag{Name: "interval", Value: 10 * time.Second, Usage: "Pause between bumps, 0 bumps once"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			lamports := solToLamports(c.Float64("sol"))
			if interval := c.Duration("interval"); interval > 0 {
				return rt.trader("bump").RunBumpLoop(ctx, mint, lamports, interval)
			}
			return rt.trader("bump").Bump(ctx, mint, lamports)
		},
	}
}

func volumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "volume",
		Usage: "Generate trade volume on a token across the wallet pool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mint", Usage: "Token mint address", Required: true},
			&cli.IntFlag{Name: "steps", Value: 20, Usage: "Number of trades to attempt"},
			&cli.Float64Flag{Name: "buy-ratio", Value: 0.6, Usage: "Fraction of steps that buy"},
			&cli.Float64Flag{Name: "min-sol", Value: 0.005, Usage: "Smallest buy in SOL"},
			&cli.Float64Flag{Name: "max-sol", Value: 0.05, Usage: "Largest buy in SOL"},
			&cli.DurationFlag{Name: "min-wait", Value: 2 * time.Second, Usage: "Shortest pause between trades"},
			&cli.DurationFlag{Name: "max-wait", Value: 15 * time.Second, Usage: "Longest pause between trades"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			mint, err := mintArg(c)
			if err != nil {
				return err
			}
			if rt.cfg.WalletDir == "" {
				return fmt.Errorf("volume generation needs wallet_dir in the config")
			}

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			pool, err := wallet.LoadPool(rt.owner, rt.cfg.WalletDir, rt.client, rt.relay, rt.log.Logger)
			if err != nil {
				return err
			}

			gen := volume.NewGenerator(rt.client, rt.reader(), rt.builder(), rt.relay, rt.tips, pool, rt.log.Logger)
			return gen.Run(ctx, volume.Config{
				Mint:        mint,
				Steps:       c.Int("steps"),
				BuyRatio:    c.Float64("buy-ratio"),
				MinLamports: solToLamports(c.Float64("min-sol")),
				MaxLamports: solToLamports(c.Float64("max-sol")),
				MinWait:     c.Duration("min-wait"),
				MaxWait:     c.Duration("max-wait"),
			})
		},
	}
}
