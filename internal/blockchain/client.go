// internal/blockchain/client.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

const (
	// receiptPollInterval is how often WaitForConfirmation asks for the receipt.
	receiptPollInterval = 2 * time.Second
	// confirmTimeout bounds a single confirmation wait.
	confirmTimeout = 3 * time.Minute
)

// Client wraps a single JSON-RPC endpoint with the read and write operations
// the rest of the bot needs.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	logger  *zap.Logger
}

// Dial connects to the endpoint and caches the chain id for signing.
func Dial(ctx context.Context, rawURL string, logger *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	return &Client{
		eth:     eth,
		chainID: chainID,
		logger:  logger.Named("chain"),
	}, nil
}

func (c *Client) Close() { c.eth.Close() }

// ChainID returns the cached chain id.
func (c *Client) ChainID() *big.Int { return c.chainID }

// NativeBalance returns the account's gas-currency balance.
func (c *Client) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read native balance of %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// TokenBalance returns the ERC-20 balance of owner.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	output, err := c.call(ctx, token, PackBalanceOf(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to read token balance: %w", err)
	}
	return unpackBigInt("balanceOf", output)
}

// Allowance returns how much of owner's tokens spender may move.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	output, err := c.call(ctx, token, PackAllowance(owner, spender))
	if err != nil {
		return nil, fmt.Errorf("failed to read allowance: %w", err)
	}
	return unpackBigInt("allowance", output)
}

// TokenName returns the token's display name.
func (c *Client) TokenName(ctx context.Context, token common.Address) (string, error) {
	output, err := c.call(ctx, token, PackName())
	if err != nil {
		return "", fmt.Errorf("failed to read token name: %w", err)
	}
	return unpackString("name", output)
}

// TokenSymbol returns the token's ticker symbol.
func (c *Client) TokenSymbol(ctx context.Context, token common.Address) (string, error) {
	output, err := c.call(ctx, token, PackSymbol())
	if err != nil {
		return "", fmt.Errorf("failed to read token symbol: %w", err)
	}
	return unpackString("symbol", output)
}

// PendingNonce returns the account's next nonce including pending transactions.
func (c *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch nonce for %s: %w", account.Hex(), err)
	}
	return nonce, nil
}

// GasPrice returns the node's suggested gas price.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}
	return price, nil
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.eth.SendTransaction(ctx, tx)
}

// WaitForConfirmation polls until the transaction is mined (one confirmation)
// or the wait times out.
func (c *Client) WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			c.logger.Debug("Transaction confirmed",
				zap.String("tx_hash", txHash.Hex()),
				zap.Uint64("block", receipt.BlockNumber.Uint64()))
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("confirmation wait for %s: %w", txHash.Hex(), waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}
