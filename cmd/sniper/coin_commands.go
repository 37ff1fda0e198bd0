// ==============================================
// File: cmd/sniper/coin_commands.go
// ==============================================
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"pumpsniper/internal/pump"
)

func coinCommands() *cli.Command {
	return &cli.Command{
		Name:  "coin",
		Usage: "Inspect a pump.fun token",
		Subcommands: []*cli.Command{
			coinInfoCommand(),
			coinCurveCommand(),
		},
	}
}

func coinInfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Print frontend metadata and the creation slot of a token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mint", Usage: "Token mint address", Required: true},
			&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
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

			meta, err := pump.NewMetadataClient(pump.DefaultFrontendURL, rt.log.Logger).Fetch(ctx, mint.String())
			if err != nil {
				return err
			}
			slot, err := pump.CreationSlot(ctx, rt.client, mint)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"metadata":      meta,
					"creation_slot": slot,
				})
			}

			fmt.Printf("%s (%s)\n", meta.Name, meta.Symbol)
			fmt.Printf("mint           %s\n", meta.Mint)
			fmt.Printf("creator        %s\n", meta.Creator)
			fmt.Printf("created        %d\n", meta.CreatedTimestamp)
			fmt.Printf("creation slot  %d\n", slot)
			fmt.Printf("market cap     $%.2f\n", meta.UsdMarketCap)
			fmt.Printf("complete       %v\n", meta.Complete)
			return nil
		},
	}
}

func coinCurveCommand() *cli.Command {
	return &cli.Command{
		Name:  "curve",
		Usage: "Print the live bonding curve state of a token",
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
			accounts, err := pump.DeriveTradeAccounts(mint)
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			state, err := rt.reader().Fetch(ctx, accounts.BondingCurve)
			if err != nil {
				return err
			}

			fmt.Printf("bonding curve    %s\n", accounts.BondingCurve)
			fmt.Printf("virtual sol      %d\n", state.VirtualSolReserves)
			fmt.Printf("virtual tokens   %d\n", state.VirtualTokenReserves)
			fmt.Printf("real sol         %d\n", state.RealSolReserves)
			fmt.Printf("real tokens      %d\n", state.RealTokenReserves)
			fmt.Printf("complete         %v\n", state.Complete)
			return nil
		},
	}
}
