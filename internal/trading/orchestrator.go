// internal/trading/orchestrator.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/base-sniper-bot/internal/blockchain"
	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/wallet"
)

// ErrInsufficientHoldings: the requested percentage of total supply exceeds
// what the accounts hold in aggregate.
var ErrInsufficientHoldings = errors.New("insufficient holdings")

const (
	defaultSellAttempts  = 3
	defaultSellRetryWait = 5 * time.Second
	basisPointsDenom     = 10_000
)

// Orchestrator drives a sell across the whole account pool: parallel
// snapshotting and approvals, then a strictly sequential selling phase with
// partial-failure accounting.
type Orchestrator struct {
	chain     ChainClient
	seller    *Seller
	submitter *Submitter
	accounts  []Account
	router    common.Address
	gasLimit  uint64
	bus       Publisher
	logger    *zap.Logger

	sellAttempts  int
	sellRetryWait time.Duration
}

func NewOrchestrator(
	chain ChainClient,
	seller *Seller,
	submitter *Submitter,
	accounts []Account,
	router common.Address,
	gasLimit uint64,
	bus Publisher,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		chain:         chain,
		seller:        seller,
		submitter:     submitter,
		accounts:      accounts,
		router:        router,
		gasLimit:      gasLimit,
		bus:           bus,
		logger:        logger.Named("orchestrator"),
		sellAttempts:  defaultSellAttempts,
		sellRetryWait: defaultSellRetryWait,
	}
}

// ExecuteSell liquidates percent of total supply of token across the account
// pool. percent must already be validated to (0, 100].
//
// Snapshot reads that fail are fatal: without a complete view of holdings no
// safe target can be computed. Everything after that tolerates per-account
// failure.
func (o *Orchestrator) ExecuteSell(ctx context.Context, token common.Address, percent float64, req events.Requester) (*SellProgress, error) {
	snapshots, totalHeld, err := o.snapshotAccounts(ctx, token)
	if err != nil {
		return nil, err
	}

	target, err := o.sellTarget(percent, totalHeld)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Starting sell run",
		zap.String("token", token.Hex()),
		zap.Float64("percent", percent),
		zap.String("target", target.String()),
		zap.Int("accounts", len(snapshots)))

	o.fixApprovals(ctx, token, snapshots, req)

	progress := o.sellSequentially(ctx, token, snapshots, target, req)

	percentHeld := o.reportFinalHoldings(ctx, token, req)
	o.logger.Info("Sell run completed",
		zap.String("token", token.Hex()),
		zap.String("sold", progress.TotalSold().String()),
		zap.String("remaining", progress.Remaining.String()),
		zap.String("percent_held", percentHeld))

	return progress, nil
}

// snapshotAccounts reads balance and allowance for every account in parallel
// and returns the non-zero-balance snapshots in configured account order,
// along with the summed balance.
func (o *Orchestrator) snapshotAccounts(ctx context.Context, token common.Address) ([]*snapshot, *big.Int, error) {
	results := make([]*snapshot, len(o.accounts))

	g, gCtx := errgroup.WithContext(ctx)
	for i, account := range o.accounts {
		g.Go(func() error {
			balance, err := o.chain.TokenBalance(gCtx, token, account.Address())
			if err != nil {
				return fmt.Errorf("snapshot of %s: %w", account.Address().Hex(), err)
			}
			allowance, err := o.chain.Allowance(gCtx, token, account.Address(), o.router)
			if err != nil {
				return fmt.Errorf("snapshot of %s: %w", account.Address().Hex(), err)
			}
			results[i] = &snapshot{account: account, balance: balance, allowance: allowance}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	totalHeld := new(big.Int)
	snapshots := make([]*snapshot, 0, len(results))
	for _, snap := range results {
		if snap.balance.Sign() == 0 {
			continue
		}
		totalHeld.Add(totalHeld, snap.balance)
		snapshots = append(snapshots, snap)
	}
	return snapshots, totalHeld, nil
}

// sellTarget computes the global amount to sell. Full liquidation uses the
// summed balance exactly, so no basis-point rounding dust survives a
// "sell all"; anything else goes through integer basis-point math.
func (o *Orchestrator) sellTarget(percent float64, totalHeld *big.Int) (*big.Int, error) {
	var target *big.Int
	if percent == 100 {
		target = new(big.Int).Set(totalHeld)
	} else {
		bps := big.NewInt(int64(math.Floor(percent * 100)))
		target = new(big.Int).Mul(TotalSupply, bps)
		target.Div(target, big.NewInt(basisPointsDenom))
	}

	if target.Cmp(totalHeld) > 0 {
		return nil, fmt.Errorf("%w: requested %.2f%% of total supply, holding only %s%%",
			ErrInsufficientHoldings, percent, percentOfSupply(totalHeld))
	}
	return target, nil
}

// fixApprovals submits an approval for exactly the account's balance wherever
// the snapshot allowance is short, in parallel, and waits for confirmations.
// A failed approval is logged and left for the per-account sell to self-heal.
func (o *Orchestrator) fixApprovals(ctx context.Context, token common.Address, snapshots []*snapshot, req events.Requester) {
	g, gCtx := errgroup.WithContext(ctx)
	for _, snap := range snapshots {
		if snap.allowance.Cmp(snap.balance) >= 0 {
			continue
		}
		g.Go(func() error {
			if err := o.approveBalance(gCtx, token, snap, req); err != nil {
				o.logger.Warn("Approval failed, deferring to sell-time self-heal",
					zap.String("account", snap.account.Address().Hex()),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) approveBalance(ctx context.Context, token common.Address, snap *snapshot, req events.Requester) error {
	account := snap.account
	hash, err := o.submitter.Submit(ctx, account, func(nonce uint64) (common.Hash, error) {
		gasPrice, err := o.chain.GasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		return account.SignAndSubmit(ctx, wallet.TxRequest{
			To:       token,
			Value:    big.NewInt(0),
			Data:     blockchain.PackApprove(o.router, snap.balance),
			GasLimit: o.gasLimit,
			GasPrice: gasPrice,
			Nonce:    nonce,
		})
	})
	if err != nil {
		return err
	}

	if _, err := o.chain.WaitForConfirmation(ctx, hash); err != nil {
		return err
	}

	_ = o.bus.Publish(events.NewApprovalSubmitted(req, token, account.Address(), hash))
	return nil
}

// sellSequentially walks the snapshots in order, selling
// min(balance, remaining) from each. Success is defined only by an observed
// balance decrease after confirmation; the remaining target shrinks by that
// observed delta, never by the requested amount.
func (o *Orchestrator) sellSequentially(ctx context.Context, token common.Address, snapshots []*snapshot, target *big.Int, req events.Requester) *SellProgress {
	progress := &SellProgress{
		Token:     token,
		Target:    target,
		Remaining: new(big.Int).Set(target),
		Outcomes:  make([]AccountOutcome, 0, len(snapshots)),
	}

	for _, snap := range snapshots {
		if progress.Remaining.Sign() <= 0 || ctx.Err() != nil {
			progress.Outcomes = append(progress.Outcomes, AccountOutcome{
				Account: snap.account.Address(), Attempted: false,
			})
			continue
		}

		amount := new(big.Int).Set(snap.balance)
		if amount.Cmp(progress.Remaining) > 0 {
			amount.Set(progress.Remaining)
		}

		outcome := o.sellWithRetries(ctx, token, snap, amount, req)
		if outcome.Success {
			progress.Remaining.Sub(progress.Remaining, outcome.AmountSold)
		}
		progress.Outcomes = append(progress.Outcomes, outcome)
	}

	return progress
}

func (o *Orchestrator) sellWithRetries(ctx context.Context, token common.Address, snap *snapshot, amount *big.Int, req events.Requester) AccountOutcome {
	account := snap.account
	outcome := AccountOutcome{Account: account.Address(), Attempted: true}

	var lastErr error
	for attempt := 1; attempt <= o.sellAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				outcome.Err = ctx.Err()
				return outcome
			case <-time.After(o.sellRetryWait):
			}
		}

		hash, err := o.seller.SellFromAccount(ctx, token, amount, account)
		if err != nil {
			lastErr = err
			o.logger.Warn("Sell attempt failed",
				zap.String("account", account.Address().Hex()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if errors.Is(err, ErrInsufficientNativeBalance) || errors.Is(err, ErrInsufficientTokenBalance) {
				// Validation failures will not heal on retry.
				break
			}
			continue
		}

		if _, err := o.chain.WaitForConfirmation(ctx, hash); err != nil {
			lastErr = err
			o.logger.Warn("Sell confirmation failed",
				zap.String("account", account.Address().Hex()),
				zap.String("tx_hash", hash.Hex()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		newBalance, err := o.chain.TokenBalance(ctx, token, account.Address())
		if err != nil {
			lastErr = err
			continue
		}

		// Mined is not enough: a reverted swap still has a receipt. Only an
		// observed balance decrease counts as a fill.
		if newBalance.Cmp(snap.balance) < 0 {
			delta := new(big.Int).Sub(snap.balance, newBalance)
			outcome.Success = true
			outcome.TxHash = hash
			outcome.AmountSold = delta
			_ = o.bus.Publish(events.NewSellSubmitted(req, token, account.Address(), hash, delta))
			o.logger.Info("Sell confirmed",
				zap.String("account", account.Address().Hex()),
				zap.String("tx_hash", hash.Hex()),
				zap.String("sold", delta.String()))
			return outcome
		}

		lastErr = fmt.Errorf("transaction %s mined without balance decrease", hash.Hex())
		o.logger.Warn("Sell mined but ineffective, retrying",
			zap.String("account", account.Address().Hex()),
			zap.String("tx_hash", hash.Hex()),
			zap.Int("attempt", attempt))
	}

	outcome.Err = lastErr
	reason := "unknown"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	_ = o.bus.Publish(events.NewSellAccountFailed(req, token, account.Address(), o.sellAttempts, reason))
	return outcome
}

func (o *Orchestrator) reportFinalHoldings(ctx context.Context, token common.Address, req events.Requester) string {
	total := new(big.Int)
	for _, account := range o.accounts {
		balance, err := o.chain.TokenBalance(ctx, token, account.Address())
		if err != nil {
			o.logger.Warn("Final balance read failed",
				zap.String("account", account.Address().Hex()),
				zap.Error(err))
			continue
		}
		total.Add(total, balance)
	}

	percentHeld := percentOfSupply(total)
	_ = o.bus.Publish(events.NewSellCompleted(req, token, percentHeld))
	return percentHeld
}
