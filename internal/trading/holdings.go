// internal/trading/holdings.go
package trading

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// unknownTokenName is reported when the token contract does not expose a
// readable name.
const unknownTokenName = "Unknown Token"

// AccountHolding is one account's balance of a token.
type AccountHolding struct {
	Account common.Address
	Name    string
	Balance *big.Int
}

// HoldingsReport aggregates per-account balances of one token.
type HoldingsReport struct {
	Token       common.Address
	TokenName   string
	Holdings    []AccountHolding
	Total       *big.Int
	PercentHeld string
}

// HoldingsReporter reads balances across the account pool. Reads are
// sequential so the per-account rows come out in configured order and a slow
// RPC does not burst.
type HoldingsReporter struct {
	chain    ChainClient
	accounts []Account
	names    []string
	logger   *zap.Logger
}

// NewHoldingsReporter builds a reporter over the account pool. names holds the
// display label for each account, index-aligned with accounts.
func NewHoldingsReporter(chain ChainClient, accounts []Account, names []string, logger *zap.Logger) *HoldingsReporter {
	return &HoldingsReporter{
		chain:    chain,
		accounts: accounts,
		names:    names,
		logger:   logger.Named("holdings"),
	}
}

// Report reads every account's balance of token and the token's name. A
// failed balance read aborts the report; a failed name read falls back to
// "Unknown Token".
func (r *HoldingsReporter) Report(ctx context.Context, token common.Address) (*HoldingsReport, error) {
	report := &HoldingsReport{
		Token:    token,
		Holdings: make([]AccountHolding, 0, len(r.accounts)),
		Total:    new(big.Int),
	}

	name, err := r.chain.TokenName(ctx, token)
	if err != nil {
		r.logger.Warn("Token name read failed",
			zap.String("token", token.Hex()),
			zap.Error(err))
		name = unknownTokenName
	}
	report.TokenName = name

	for i, account := range r.accounts {
		balance, err := r.chain.TokenBalance(ctx, token, account.Address())
		if err != nil {
			return nil, err
		}
		label := account.Address().Hex()
		if i < len(r.names) && r.names[i] != "" {
			label = r.names[i]
		}
		report.Holdings = append(report.Holdings, AccountHolding{
			Account: account.Address(),
			Name:    label,
			Balance: balance,
		})
		report.Total.Add(report.Total, balance)
	}

	report.PercentHeld = percentOfSupply(report.Total)
	return report, nil
}

// percentOfSupply formats amount as a decimal percentage of the fixed total
// supply, e.g. "1.2345".
func percentOfSupply(amount *big.Int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	held := decimal.NewFromBigInt(amount, 0)
	supply := decimal.NewFromBigInt(TotalSupply, 0)
	return held.Mul(decimal.NewFromInt(100)).Div(supply).String()
}
