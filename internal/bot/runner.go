// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/base-sniper-bot/internal/blockchain"
	"github.com/rovshanmuradov/base-sniper-bot/internal/config"
	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/license"
	"github.com/rovshanmuradov/base-sniper-bot/internal/storage"
	"github.com/rovshanmuradov/base-sniper-bot/internal/telegram"
	"github.com/rovshanmuradov/base-sniper-bot/internal/trading"
	"github.com/rovshanmuradov/base-sniper-bot/internal/wallet"
	"github.com/rovshanmuradov/base-sniper-bot/internal/watcher"
)

const eventBufferSize = 128

// Runner wires the whole bot together and owns its lifecycle.
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger

	chain    *blockchain.Client
	accounts []trading.Account
	names    []string
	bus      *events.Bus
}

func NewRunner(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run brings every component up and blocks until SIGINT/SIGTERM or a fatal
// component error.
func (r *Runner) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := license.NewGate(r.cfg.License, r.logger).Verify(ctx); err != nil {
		return fmt.Errorf("license check failed: %w", err)
	}

	wallets, err := wallet.Load(r.cfg.WalletsFile, r.logger)
	if err != nil {
		return fmt.Errorf("failed to load wallets: %w", err)
	}
	if len(wallets) == 0 {
		return fmt.Errorf("no usable wallets in %s", r.cfg.WalletsFile)
	}

	r.chain, err = blockchain.Dial(ctx, r.cfg.RPCURL, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to chain: %w", err)
	}
	defer r.chain.Close()

	for _, w := range wallets {
		r.accounts = append(r.accounts, w.Bind(r.chain))
		r.names = append(r.names, w.Name())
	}
	r.logger.Info("Accounts ready",
		zap.Int("count", len(r.accounts)),
		zap.String("primary", r.accounts[0].Address().Hex()))

	r.bus = events.NewBus(r.logger, eventBufferSize)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = r.bus.Shutdown(shutdownCtx)
	}()

	routerV2 := common.HexToAddress(r.cfg.RouterV2Address)
	routerV3 := common.HexToAddress(r.cfg.RouterV3Address)
	weth := common.HexToAddress(r.cfg.WETHAddress)

	submitter := trading.NewSubmitter(r.chain, r.logger)
	seller := trading.NewSeller(r.chain, submitter, routerV2, weth, r.cfg.GasLimit, r.logger)
	orchestrator := trading.NewOrchestrator(r.chain, seller, submitter, r.accounts, routerV2, r.cfg.GasLimit, r.bus, r.logger)
	buyer := trading.NewBuyer(r.chain, submitter, routerV3, weth, r.cfg.GasLimit, r.logger)
	holdings := trading.NewHoldingsReporter(r.chain, r.accounts, r.names, r.logger)

	store, err := storage.OpenTokenStore(r.cfg.TokensFile, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}

	feed, err := watcher.NewFeedClient(r.cfg.FeedURL, r.cfg.ProxyURL, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build feed client: %w", err)
	}

	feedWatcher := watcher.New(feed, store, r.chain, buyer, r.accounts[0], r.bus, watcher.Config{
		Interval:  time.Duration(r.cfg.ScanInterval) * time.Millisecond,
		Autobuy:   r.cfg.Autobuy,
		BuyAmount: ethToWei(r.cfg.BuyAmountETH),
	}, r.logger)

	chat, err := telegram.NewService(
		r.cfg.TelegramToken, r.cfg.AllowedChatIDs,
		orchestrator, holdings, buyer, r.chain, r.accounts[0],
		r.bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start telegram service: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return feedWatcher.Run(gCtx) })
	g.Go(func() error { return chat.Run(gCtx) })

	r.logger.Info("Bot is up",
		zap.Bool("autobuy", r.cfg.Autobuy),
		zap.Uint64("chain_id", r.chain.ChainID().Uint64()))

	err = g.Wait()
	if err != nil && ctx.Err() != nil {
		r.logger.Info("Shutting down on signal")
		return nil
	}
	return err
}

// Shutdown flushes the logger. Stdout sync errors on Linux terminals are
// expected noise.
func (r *Runner) Shutdown() {
	if err := r.logger.Sync(); err != nil && !os.IsNotExist(err) {
		if err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: inappropriate ioctl for device" {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}
}

func ethToWei(amount float64) *big.Int {
	return decimal.NewFromFloat(amount).Mul(decimal.New(1, 18)).BigInt()
}
