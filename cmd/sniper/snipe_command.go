// ==============================================
// File: cmd/sniper/snipe_command.go
// ==============================================
package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"pumpsniper/internal/config"
	"pumpsniper/internal/feed"
	"pumpsniper/internal/sniper"
)

func snipeCommand() *cli.Command {
	return &cli.Command{
		Name:  "snipe",
		Usage: "Listen for launches and race buy bundles at them",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "portal",
				Usage: "Listen to the pumpportal feed as well as the frontend feed",
			},
			&cli.BoolFlag{
				Name:  "fanout",
				Usage: "Submit every spray attempt to all relay regions",
			},
			&cli.BoolFlag{
				Name:  "auto-sell",
				Value: true,
				Usage: "Liquidate positions as soon as a buy lands",
			},
			&cli.Float64Flag{
				Name:  "sol",
				Usage: "Spend per snipe in SOL, overrides the configured amount",
			},
		},
		Action: runSnipe,
	}
}

func sellerCommand() *cli.Command {
	return &cli.Command{
		Name:  "seller",
		Usage: "Watch the wallet and liquidate positions as buys land",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, stop := signalContext()
			defer stop()
			rt.startRelay(ctx)

			seller := sniper.NewSeller(rt.cfg.WebSocketURL, rt.client, rt.trader("auto-sell"), rt.owner, rt.log.Logger)
			seller.Run(ctx)
			return nil
		},
	}
}

func runSnipe(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signalContext()
	defer stop()

	lamports := rt.cfg.SnipeLamports
	if c.IsSet("sol") {
		lamports = solToLamports(c.Float64("sol"))
	}
	deadlineProgram, err := rt.deadlineProgram()
	if err != nil {
		return err
	}

	rt.startRelay(ctx)

	blockhash := sniper.NewBlockhashCell(rt.client, rt.log.Logger)
	go blockhash.Run(ctx)
	slots := sniper.NewSlotTracker(rt.cfg.WebSocketURL, rt.log.Logger)
	go slots.Run(ctx)

	s := sniper.New(sniper.Config{
		Lamports:        lamports,
		NumTries:        rt.cfg.NumTries,
		JitterStep:      rt.jitterStep(),
		Fanout:          rt.cfg.Fanout || c.Bool("fanout"),
		DeadlineSlots:   rt.cfg.DeadlineSlots,
		DeadlineProgram: deadlineProgram,
		MaxCoinAge:      time.Duration(rt.cfg.MaxCoinAgeMs) * time.Millisecond,
		RequireSocials:  rt.cfg.RequireSocials,
	}, rt.owner, rt.builder(), rt.relay, rt.tips, blockhash, slots, rt.log.Logger)

	if c.Bool("auto-sell") {
		seller := sniper.NewSeller(rt.cfg.WebSocketURL, rt.client, rt.trader("auto-sell"), rt.owner, rt.log.Logger)
		go seller.Run(ctx)
	}

	// Worker cap so a burst of launches cannot stack unbounded snipes.
	workers := rt.cfg.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers
	}
	sem := make(chan struct{}, workers)
	handler := func(coin *feed.NewCoin) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-sem }()
		defer rt.log.TrackPerformance("snipe")()
		rt.log.WithMint(coin.Mint).Info("Launch picked up", zap.String("symbol", coin.Symbol))
		s.HandleLaunch(ctx, coin)
	}

	listener := feed.NewListener(rt.cfg.FeedURL, feed.ProtocolFrontend, handler, rt.log.Logger)
	go listener.Run(ctx)
	if c.Bool("portal") {
		portal := feed.NewListener(rt.cfg.PortalFeedURL, feed.ProtocolPortal, handler, rt.log.Logger)
		go portal.Run(ctx)
	}

	go drainResults(ctx, rt)

	rt.log.Info("Sniper armed",
		zap.Uint64("lamports", lamports),
		zap.Int("tries", rt.cfg.NumTries),
		zap.Bool("portal", c.Bool("portal")),
		zap.Bool("fanout", rt.cfg.Fanout || c.Bool("fanout")))

	<-ctx.Done()
	rt.log.Info("Shutting down")
	return nil
}

// drainResults logs bundle outcomes the fire-and-forget path never
// waits for.
func drainResults(ctx context.Context, rt *runtime) {
	for {
		select {
		case <-ctx.Done():
			return
		case result := <-rt.relay.Results():
			rt.log.Info("Bundle resolved",
				zap.String("bundle_id", result.BundleID),
				zap.String("status", string(result.Status)),
				zap.Uint64("landed_slot", result.LandedSlot))
		}
	}
}
