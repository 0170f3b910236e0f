// internal/trading/seller.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/base-sniper-bot/internal/blockchain"
	"github.com/rovshanmuradov/base-sniper-bot/internal/wallet"
)

var (
	// ErrInsufficientNativeBalance: the account cannot pay for gas. Not
	// transient, never retried.
	ErrInsufficientNativeBalance = errors.New("insufficient native balance for gas")
	// ErrInsufficientTokenBalance: the account holds less than the requested
	// sell amount.
	ErrInsufficientTokenBalance = errors.New("insufficient token balance")
	// ErrApprovalFailed: the approval confirmed on-chain but the re-checked
	// allowance is still below the requested amount.
	ErrApprovalFailed = errors.New("approval failed")
)

const (
	swapDeadline = 20 * time.Minute
	// gasBumpPercent is the linear gas price bump applied per construction
	// attempt within one submission.
	gasBumpPercent = 10
)

// Seller executes a sell for a single account: allowance self-healing,
// then the router swap. Confirmation is the caller's responsibility.
type Seller struct {
	chain     ChainClient
	submitter *Submitter
	router    common.Address
	weth      common.Address
	gasLimit  uint64
	logger    *zap.Logger
}

func NewSeller(chain ChainClient, submitter *Submitter, router, weth common.Address, gasLimit uint64, logger *zap.Logger) *Seller {
	return &Seller{
		chain:     chain,
		submitter: submitter,
		router:    router,
		weth:      weth,
		gasLimit:  gasLimit,
		logger:    logger.Named("seller"),
	}
}

// SellFromAccount sells amount of token from account through the V2 router
// and returns the swap transaction hash without waiting for it to be mined.
func (s *Seller) SellFromAccount(ctx context.Context, token common.Address, amount *big.Int, account Account) (common.Hash, error) {
	owner := account.Address()

	nativeBalance, err := s.chain.NativeBalance(ctx, owner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read native balance: %w", err)
	}
	if nativeBalance.Sign() == 0 {
		return common.Hash{}, fmt.Errorf("%w: account %s", ErrInsufficientNativeBalance, owner.Hex())
	}

	tokenBalance, err := s.chain.TokenBalance(ctx, token, owner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read token balance: %w", err)
	}
	if tokenBalance.Cmp(amount) < 0 {
		return common.Hash{}, fmt.Errorf("%w: available %s, requested %s",
			ErrInsufficientTokenBalance, tokenBalance.String(), amount.String())
	}

	if err := s.ensureAllowance(ctx, token, amount, account); err != nil {
		return common.Hash{}, err
	}

	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())
	path := []common.Address{token, s.weth}
	// amountOutMinimum of 1 accepts any non-zero output; slippage economics
	// are a product decision here, not a safety rail.
	amountOutMin := big.NewInt(1)

	attempt := 0
	hash, err := s.submitter.Submit(ctx, account, func(nonce uint64) (common.Hash, error) {
		gasPrice, err := s.chain.GasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		return account.SignAndSubmit(ctx, wallet.TxRequest{
			To:       s.router,
			Value:    big.NewInt(0),
			Data:     blockchain.PackSwapExactTokensForETH(amount, amountOutMin, path, owner, deadline),
			GasLimit: s.gasLimit,
			GasPrice: bumpGasPrice(gasPrice, attemptAndInc(&attempt)),
			Nonce:    nonce,
		})
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to submit sell for %s: %w", owner.Hex(), err)
	}

	s.logger.Info("Sell transaction submitted",
		zap.String("account", owner.Hex()),
		zap.String("token", token.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx_hash", hash.Hex()))

	return hash, nil
}

// ensureAllowance grants the router an unlimited approval when the current
// allowance is below amount, waits for it to confirm, and re-checks. The
// re-check guards against an external consumer spending the allowance between
// submission and confirmation.
func (s *Seller) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int, account Account) error {
	owner := account.Address()

	allowance, err := s.chain.Allowance(ctx, token, owner, s.router)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	approveTx, err := s.submitter.Submit(ctx, account, func(nonce uint64) (common.Hash, error) {
		gasPrice, err := s.chain.GasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		return account.SignAndSubmit(ctx, wallet.TxRequest{
			To:       token,
			Value:    big.NewInt(0),
			Data:     blockchain.PackApprove(s.router, blockchain.MaxUint256),
			GasLimit: s.gasLimit,
			GasPrice: gasPrice,
			Nonce:    nonce,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to submit approval: %w", err)
	}

	receipt, err := s.chain.WaitForConfirmation(ctx, approveTx)
	if err != nil {
		return fmt.Errorf("approval confirmation failed: %w", err)
	}
	s.logger.Info("Approval confirmed",
		zap.String("account", owner.Hex()),
		zap.String("tx_hash", approveTx.Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()))

	allowance, err = s.chain.Allowance(ctx, token, owner, s.router)
	if err != nil {
		return fmt.Errorf("failed to re-check allowance: %w", err)
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: allowance %s, required %s",
			ErrApprovalFailed, allowance.String(), amount.String())
	}
	return nil
}

// bumpGasPrice applies the fixed linear bump: base * (100 + 10*attempt) / 100.
func bumpGasPrice(base *big.Int, attempt int) *big.Int {
	bumped := new(big.Int).Mul(base, big.NewInt(int64(100+gasBumpPercent*attempt)))
	return bumped.Div(bumped, big.NewInt(100))
}

func attemptAndInc(attempt *int) int {
	current := *attempt
	*attempt++
	return current
}
