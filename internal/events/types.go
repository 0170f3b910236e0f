// internal/events/types.go
package events

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType represents the type of event.
type EventType string

const (
	// Feed events
	TokenListed EventType = "feed.token_listed"

	// Sell lifecycle events
	ApprovalSubmitted EventType = "sell.approval_submitted"
	SellSubmitted     EventType = "sell.submitted"
	SellAccountFailed EventType = "sell.account_failed"
	SellCompleted     EventType = "sell.completed"

	// Buy lifecycle events
	BuyCompleted EventType = "buy.completed"
	BuyFailed    EventType = "buy.failed"
)

// Requester identifies the chat user an operation is running for. Progress
// events carry it so the front end can address replies.
type Requester struct {
	ChatID   int64
	Username string
}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// TokenListedEvent is emitted when the watcher sees a fresh listing.
type TokenListedEvent struct {
	BaseEvent
	Name            string
	Symbol          string
	ContractAddress string
	PoolAddress     string
	ImageURL        string
	ListingType     string
	CreatedAt       time.Time
}

func NewTokenListed(name, symbol, contract, pool, imageURL, listingType string, createdAt time.Time) TokenListedEvent {
	return TokenListedEvent{
		BaseEvent:       newBase(TokenListed),
		Name:            name,
		Symbol:          symbol,
		ContractAddress: contract,
		PoolAddress:     pool,
		ImageURL:        imageURL,
		ListingType:     listingType,
		CreatedAt:       createdAt,
	}
}

// ApprovalSubmittedEvent is emitted when an account's router approval lands.
type ApprovalSubmittedEvent struct {
	BaseEvent
	Requester Requester
	Token     common.Address
	Account   common.Address
	TxHash    common.Hash
}

func NewApprovalSubmitted(req Requester, token, account common.Address, txHash common.Hash) ApprovalSubmittedEvent {
	return ApprovalSubmittedEvent{
		BaseEvent: newBase(ApprovalSubmitted),
		Requester: req,
		Token:     token,
		Account:   account,
		TxHash:    txHash,
	}
}

// SellSubmittedEvent is emitted after a confirmed, effective per-account sell.
type SellSubmittedEvent struct {
	BaseEvent
	Requester  Requester
	Token      common.Address
	Account    common.Address
	TxHash     common.Hash
	AmountSold *big.Int
}

func NewSellSubmitted(req Requester, token, account common.Address, txHash common.Hash, amountSold *big.Int) SellSubmittedEvent {
	return SellSubmittedEvent{
		BaseEvent:  newBase(SellSubmitted),
		Requester:  req,
		Token:      token,
		Account:    account,
		TxHash:     txHash,
		AmountSold: amountSold,
	}
}

// SellAccountFailedEvent is emitted after an account exhausts its sell retries.
type SellAccountFailedEvent struct {
	BaseEvent
	Requester Requester
	Token     common.Address
	Account   common.Address
	Attempts  int
	Reason    string
}

func NewSellAccountFailed(req Requester, token, account common.Address, attempts int, reason string) SellAccountFailedEvent {
	return SellAccountFailedEvent{
		BaseEvent: newBase(SellAccountFailed),
		Requester: req,
		Token:     token,
		Account:   account,
		Attempts:  attempts,
		Reason:    reason,
	}
}

// SellCompletedEvent is the final summary of a sell run.
type SellCompletedEvent struct {
	BaseEvent
	Requester   Requester
	Token       common.Address
	PercentHeld string // formatted, e.g. "1.2345"
}

func NewSellCompleted(req Requester, token common.Address, percentHeld string) SellCompletedEvent {
	return SellCompletedEvent{
		BaseEvent:   newBase(SellCompleted),
		Requester:   req,
		Token:       token,
		PercentHeld: percentHeld,
	}
}

// BuyCompletedEvent is emitted after a confirmed buy.
type BuyCompletedEvent struct {
	BaseEvent
	Requester Requester
	Token     common.Address
	TxHash    common.Hash
	AmountWei *big.Int
}

func NewBuyCompleted(req Requester, token common.Address, txHash common.Hash, amountWei *big.Int) BuyCompletedEvent {
	return BuyCompletedEvent{
		BaseEvent: newBase(BuyCompleted),
		Requester: req,
		Token:     token,
		TxHash:    txHash,
		AmountWei: amountWei,
	}
}

// BuyFailedEvent is emitted when a buy attempt fails.
type BuyFailedEvent struct {
	BaseEvent
	Requester Requester
	Token     common.Address
	Reason    string
}

func NewBuyFailed(req Requester, token common.Address, reason string) BuyFailedEvent {
	return BuyFailedEvent{
		BaseEvent: newBase(BuyFailed),
		Requester: req,
		Token:     token,
		Reason:    reason,
	}
}
