// internal/telegram/format.go
package telegram

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/trading"
)

const tokenDecimals = 18

// formatUnits renders a wei-scale amount as a human decimal string.
func formatUnits(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -tokenDecimals).StringFixed(4)
}

func formatListing(e events.TokenListedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 New token: %s (%s)\n", e.Name, e.Symbol)
	fmt.Fprintf(&b, "Contract: %s\n", e.ContractAddress)
	if e.PoolAddress != "" {
		fmt.Fprintf(&b, "Pool: %s\n", e.PoolAddress)
	}
	fmt.Fprintf(&b, "Type: %s\n", e.ListingType)
	fmt.Fprintf(&b, "Listed at: %s", e.CreatedAt.Format("15:04:05 MST"))
	return b.String()
}

func formatSellProgress(progress *trading.SellProgress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sell run for %s\n", progress.Token.Hex())
	fmt.Fprintf(&b, "Target: %s, sold: %s\n", formatUnits(progress.Target), formatUnits(progress.TotalSold()))

	succeeded, failed, skipped := 0, 0, 0
	for _, outcome := range progress.Outcomes {
		switch {
		case outcome.Success:
			succeeded++
		case !outcome.Attempted:
			skipped++
		default:
			failed++
		}
	}
	fmt.Fprintf(&b, "Accounts: %d sold, %d failed, %d skipped", succeeded, failed, skipped)
	if progress.Remaining.Sign() > 0 {
		fmt.Fprintf(&b, "\n⚠️ Outstanding: %s", formatUnits(progress.Remaining))
	}
	return b.String()
}

func formatHoldings(report *trading.HoldingsReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 %s (%s)\n", report.TokenName, report.Token.Hex())
	for _, holding := range report.Holdings {
		fmt.Fprintf(&b, "%s: %s\n", holding.Name, formatUnits(holding.Balance))
	}
	fmt.Fprintf(&b, "Total: %s (%s%% of supply)", formatUnits(report.Total), report.PercentHeld)
	return b.String()
}

func formatBuyCompleted(e events.BuyCompletedEvent) string {
	return fmt.Sprintf("✅ Bought %s for %s ETH\nTx: %s",
		e.Token.Hex(), formatUnits(e.AmountWei), e.TxHash.Hex())
}

func formatBuyFailed(e events.BuyFailedEvent) string {
	return fmt.Sprintf("❌ Buy of %s failed: %s", e.Token.Hex(), e.Reason)
}

func formatApprovalSubmitted(e events.ApprovalSubmittedEvent) string {
	return fmt.Sprintf("🔏 Approval confirmed for %s\nTx: %s",
		shortAddress(e.Account.Hex()), e.TxHash.Hex())
}

func formatSellSubmitted(e events.SellSubmittedEvent) string {
	return fmt.Sprintf("💸 Sold %s from %s\nTx: %s",
		formatUnits(e.AmountSold), shortAddress(e.Account.Hex()), e.TxHash.Hex())
}

func formatSellCompleted(e events.SellCompletedEvent) string {
	return fmt.Sprintf("🏁 Sell run for %s finished. Pool now holds %s%% of supply.",
		e.Token.Hex(), e.PercentHeld)
}

func formatAccountFailed(e events.SellAccountFailedEvent) string {
	return fmt.Sprintf("⚠️ Account %s failed after %d attempts: %s",
		shortAddress(e.Account.Hex()), e.Attempts, e.Reason)
}

func shortAddress(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + "…" + hex[len(hex)-4:]
}

// listingCallbacks builds the callback payloads for a listing's inline
// keyboard, matching the buy_<amount>_<contract> wire format the dispatcher
// parses back.
func listingCallbacks(contract string, buyAmounts []string, sellPercents []string) ([][2]string, [][2]string) {
	buys := make([][2]string, 0, len(buyAmounts))
	for _, amount := range buyAmounts {
		buys = append(buys, [2]string{
			fmt.Sprintf("Buy %s ETH", amount),
			fmt.Sprintf("buy_%s_%s", amount, contract),
		})
	}
	sells := make([][2]string, 0, len(sellPercents)+1)
	for _, percent := range sellPercents {
		sells = append(sells, [2]string{
			fmt.Sprintf("Sell %s%%", percent),
			fmt.Sprintf("sell_%s_%s", percent, contract),
		})
	}
	sells = append(sells, [2]string{"Balance", fmt.Sprintf("balance_0_%s", contract)})
	return buys, sells
}
