// ==============================================
// File: cmd/sniper/main.go
// ==============================================
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "pumpsniper",
		Usage: "pump.fun launch sniper and curve trading toolkit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to the configuration file",
				EnvVars: []string{"PUMPSNIPER_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			snipeCommand(),
			sellerCommand(),
			buyCommand(),
			sellCommand(),
			sweepCommand(),
			bumpCommand(),
			volumeCommand(),
			walletCommands(),
			coinCommands(),
			sanityCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
