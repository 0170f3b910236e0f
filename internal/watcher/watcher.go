// internal/watcher/watcher.go
package watcher

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/storage"
	"github.com/rovshanmuradov/base-sniper-bot/internal/trading"
)

// freshnessWindow: a listing older than this is stale inventory, not a launch.
const freshnessWindow = time.Minute

// Feed is the listing source the watcher polls.
type Feed interface {
	Fetch(ctx context.Context) ([]Listing, error)
}

// Buyer executes the autobuy leg.
type Buyer interface {
	BuyWithNative(ctx context.Context, token common.Address, amountWei *big.Int, account trading.Account) (common.Hash, error)
}

// ChainReader is the chain access the watcher needs for autobuy prechecks and
// confirmation.
type ChainReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Publisher pushes watcher events toward the front end.
type Publisher interface {
	Publish(event events.Event) error
}

// Config carries the watcher's behavior knobs.
type Config struct {
	Interval  time.Duration
	Autobuy   bool
	BuyAmount *big.Int // wei, used only when Autobuy is set
}

// Watcher polls the launch feed, announces fresh listings once, and
// optionally buys them from the primary account.
type Watcher struct {
	feed    Feed
	store   *storage.TokenStore
	chain   ChainReader
	buyer   Buyer
	account trading.Account
	bus     Publisher
	cfg     Config
	logger  *zap.Logger
}

func New(feed Feed, store *storage.TokenStore, chain ChainReader, buyer Buyer, account trading.Account, bus Publisher, cfg Config, logger *zap.Logger) *Watcher {
	return &Watcher{
		feed:    feed,
		store:   store,
		chain:   chain,
		buyer:   buyer,
		account: account,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.Named("watcher"),
	}
}

// Run polls until ctx is cancelled. Scan failures are logged and the loop
// keeps going; the feed going away for a while must not kill the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Watcher started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Bool("autobuy", w.cfg.Autobuy))

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := w.scan(ctx); err != nil {
				w.logger.Warn("Scan failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) scan(ctx context.Context) error {
	listings, err := w.feed.Fetch(ctx)
	if err != nil {
		return err
	}

	for _, listing := range listings {
		if !w.isFresh(listing) {
			continue
		}

		w.logger.Info("New token listed",
			zap.String("name", listing.Name),
			zap.String("symbol", listing.Symbol),
			zap.String("contract", listing.ContractAddress),
			zap.String("type", listing.Type))

		_ = w.bus.Publish(events.NewTokenListed(
			listing.Name, listing.Symbol,
			listing.ContractAddress, listing.PoolAddress,
			listing.ImgURL, listing.Type, listing.CreatedAt))

		if err := w.store.MarkSeen(listing.ContractAddress, listing.Symbol); err != nil {
			w.logger.Warn("Failed to persist seen token",
				zap.String("contract", listing.ContractAddress),
				zap.Error(err))
		}

		if w.cfg.Autobuy {
			w.autobuy(ctx, listing)
		}
	}
	return nil
}

// isFresh filters to announceable listings: a usable contract address,
// created inside the freshness window, and not seen before.
func (w *Watcher) isFresh(listing Listing) bool {
	if !common.IsHexAddress(listing.ContractAddress) {
		return false
	}
	if time.Since(listing.CreatedAt) > freshnessWindow {
		return false
	}
	return !w.store.Seen(listing.ContractAddress)
}

func (w *Watcher) autobuy(ctx context.Context, listing Listing) {
	token := common.HexToAddress(listing.ContractAddress)
	req := events.Requester{}

	balance, err := w.chain.NativeBalance(ctx, w.account.Address())
	if err != nil {
		w.logger.Warn("Autobuy balance check failed", zap.Error(err))
		_ = w.bus.Publish(events.NewBuyFailed(req, token, err.Error()))
		return
	}
	if balance.Cmp(w.cfg.BuyAmount) <= 0 {
		w.logger.Warn("Autobuy skipped, balance below buy amount",
			zap.String("balance", balance.String()),
			zap.String("buy_amount", w.cfg.BuyAmount.String()))
		_ = w.bus.Publish(events.NewBuyFailed(req, token, "insufficient native balance"))
		return
	}

	hash, err := w.buyer.BuyWithNative(ctx, token, w.cfg.BuyAmount, w.account)
	if err != nil {
		w.logger.Error("Autobuy failed",
			zap.String("contract", listing.ContractAddress),
			zap.Error(err))
		_ = w.bus.Publish(events.NewBuyFailed(req, token, err.Error()))
		return
	}

	if _, err := w.chain.WaitForConfirmation(ctx, hash); err != nil {
		w.logger.Error("Autobuy confirmation failed",
			zap.String("tx_hash", hash.Hex()),
			zap.Error(err))
		_ = w.bus.Publish(events.NewBuyFailed(req, token, err.Error()))
		return
	}

	w.logger.Info("Autobuy confirmed",
		zap.String("symbol", listing.Symbol),
		zap.String("contract", listing.ContractAddress),
		zap.String("tx_hash", hash.Hex()))
	_ = w.bus.Publish(events.NewBuyCompleted(req, token, hash, w.cfg.BuyAmount))
}
