// internal/trading/types.go
package trading

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/wallet"
)

// TotalSupply is the fixed supply every clanker launch mints: one billion
// tokens with 18 decimals. Percentage targets are computed against it.
var TotalSupply = new(big.Int).Mul(
	big.NewInt(1_000_000_000),
	new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
)

// ChainClient is the read/wait capability the trading core consumes. It is
// satisfied by *blockchain.Client and by test mocks.
type ChainClient interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TokenName(ctx context.Context, token common.Address) (string, error)
}

// Account is a signing identity: an address plus the ability to sign and
// broadcast a transaction. Satisfied by *wallet.Account.
type Account interface {
	Address() common.Address
	SignAndSubmit(ctx context.Context, req wallet.TxRequest) (common.Hash, error)
}

// Publisher is the notification seam; the orchestrator emits progress through
// it. Satisfied by *events.Bus.
type Publisher interface {
	Publish(event events.Event) error
}

// AccountOutcome records what happened to one account during a sell run.
// Accounts skipped because the target was already met have Attempted false.
type AccountOutcome struct {
	Account    common.Address
	TxHash     common.Hash
	AmountSold *big.Int
	Attempted  bool
	Success    bool
	Err        error
}

// SellProgress is the result of one orchestration run. Remaining only ever
// decreases, and only by observed balance deltas.
type SellProgress struct {
	Token     common.Address
	Target    *big.Int
	Remaining *big.Int
	Outcomes  []AccountOutcome
}

// TotalSold sums the observed deltas across all successful accounts.
func (p *SellProgress) TotalSold() *big.Int {
	total := new(big.Int)
	for _, outcome := range p.Outcomes {
		if outcome.Success && outcome.AmountSold != nil {
			total.Add(total, outcome.AmountSold)
		}
	}
	return total
}

// snapshot is one account's balance and allowance, captured at the start of a
// run. Snapshots are best-effort parallel reads and are not required to be
// mutually consistent.
type snapshot struct {
	account   Account
	balance   *big.Int
	allowance *big.Int
}
