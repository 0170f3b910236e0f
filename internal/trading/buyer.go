// internal/trading/buyer.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/base-sniper-bot/internal/blockchain"
	"github.com/rovshanmuradov/base-sniper-bot/internal/wallet"
)

// ErrInsufficientBuyFunds: the account cannot cover the buy amount plus gas.
var ErrInsufficientBuyFunds = errors.New("insufficient funds for buy")

// poolFee is the 1% fee tier every clanker pool is launched on.
var poolFee = big.NewInt(10_000)

// Buyer swaps native currency into a token through the V3 router's
// exactInputSingle, wrapping on the way in.
type Buyer struct {
	chain     ChainClient
	submitter *Submitter
	router    common.Address
	weth      common.Address
	gasLimit  uint64
	logger    *zap.Logger
}

func NewBuyer(chain ChainClient, submitter *Submitter, router, weth common.Address, gasLimit uint64, logger *zap.Logger) *Buyer {
	return &Buyer{
		chain:     chain,
		submitter: submitter,
		router:    router,
		weth:      weth,
		gasLimit:  gasLimit,
		logger:    logger.Named("buyer"),
	}
}

// BuyWithNative spends amountWei of native currency on token from account and
// returns the swap transaction hash without waiting for it to be mined.
func (b *Buyer) BuyWithNative(ctx context.Context, token common.Address, amountWei *big.Int, account Account) (common.Hash, error) {
	owner := account.Address()

	balance, err := b.chain.NativeBalance(ctx, owner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to read native balance: %w", err)
	}
	if balance.Cmp(amountWei) <= 0 {
		return common.Hash{}, fmt.Errorf("%w: balance %s, buy amount %s",
			ErrInsufficientBuyFunds, balance.String(), amountWei.String())
	}

	// Fresh launches have no price history to bound slippage against, so the
	// buy accepts whatever the pool gives.
	params := blockchain.ExactInputSingleParams{
		TokenIn:           b.weth,
		TokenOut:          token,
		Fee:               poolFee,
		Recipient:         owner,
		AmountIn:          amountWei,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	}

	hash, err := b.submitter.Submit(ctx, account, func(nonce uint64) (common.Hash, error) {
		gasPrice, err := b.chain.GasPrice(ctx)
		if err != nil {
			return common.Hash{}, err
		}
		return account.SignAndSubmit(ctx, wallet.TxRequest{
			To:       b.router,
			Value:    amountWei,
			Data:     blockchain.PackExactInputSingle(params),
			GasLimit: b.gasLimit,
			GasPrice: gasPrice,
			Nonce:    nonce,
		})
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to submit buy for %s: %w", owner.Hex(), err)
	}

	b.logger.Info("Buy transaction submitted",
		zap.String("account", owner.Hex()),
		zap.String("token", token.Hex()),
		zap.String("amount_wei", amountWei.String()),
		zap.String("tx_hash", hash.Hex()))

	return hash, nil
}
