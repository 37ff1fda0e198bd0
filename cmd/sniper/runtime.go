// ==============================================
// File: cmd/sniper/runtime.go
// ==============================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"

	"pumpsniper/internal/config"
	"pumpsniper/internal/jito"
	"pumpsniper/internal/logger"
	"pumpsniper/internal/pump"
	"pumpsniper/internal/sniper"
	"pumpsniper/internal/solbc"
	"pumpsniper/internal/trade"
	"pumpsniper/internal/wallet"
)

// runtime holds the long-lived pieces every command composes from.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	client *solbc.Client
	relay  *jito.Client
	tips   *jito.TipTracker
	owner  *wallet.Wallet
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	owner, err := wallet.LoadKeypairFile(cfg.KeypairPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", cfg.KeypairPath, err)
	}

	return &runtime{
		cfg:    cfg,
		log:    log,
		client: solbc.NewClient(cfg.RPCURL, log.Logger),
		relay:  jito.NewClient(cfg.BlockEngineURL, jito.RegionEndpoints(cfg.RelayRegions), log.Logger),
		tips:   jito.NewTipTracker(cfg.TipStreamURL, cfg.TipWeightP75, cfg.TipWeightP95, cfg.StaticTip, log.Logger),
		owner:  owner,
	}, nil
}

func (rt *runtime) close() {
	_ = rt.log.Sync()
}

func (rt *runtime) builder() *trade.Builder {
	return trade.NewBuilder(rt.cfg.Slippage, rt.cfg.ComputeLimit, rt.cfg.ComputePrice, rt.log.Logger)
}

func (rt *runtime) reader() *pump.CurveReader {
	return pump.NewCurveReader(rt.client, rt.log.Logger)
}

// trader builds a Trader whose log entries carry the operation name and
// a correlation id, so one CLI invocation is traceable in the log file.
func (rt *runtime) trader(operation string) *sniper.Trader {
	return sniper.NewTrader(rt.client, rt.reader(), rt.builder(), rt.relay, rt.tips, rt.owner, rt.log.WithOperation(operation))
}

// startRelay runs the bundle status watcher and tip stream for the
// lifetime of ctx.
func (rt *runtime) startRelay(ctx context.Context) {
	go rt.relay.Run(ctx)
	go rt.tips.Run(ctx)
}

func (rt *runtime) jitterStep() time.Duration {
	return time.Duration(rt.cfg.JitterStepMs) * time.Millisecond
}

func (rt *runtime) deadlineProgram() (solana.PublicKey, error) {
	if rt.cfg.DeadlineProgram == "" {
		return solana.PublicKey{}, nil
	}
	return solana.PublicKeyFromBase58(rt.cfg.DeadlineProgram)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func mintArg(c *cli.Context) (solana.PublicKey, error) {
	raw := c.String("mint")
	if raw == "" {
		return solana.PublicKey{}, fmt.Errorf("--mint is required")
	}
	mint, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint %q: %w", raw, err)
	}
	return mint, nil
}

func solToLamports(sol float64) uint64 {
	return uint64(sol * pump.LamportsPerSOL)
}
