// internal/telegram/service_test.go
package telegram

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/trading"
)

const (
	testChatID   = int64(10)
	testContract = "0x2222222222222222222222222222222222222222"
)

// fakeSender records outgoing messages instead of talking to the API.
type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.mu.Lock()
		f.sent = append(f.sent, msg)
		f.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, msg := range f.sent {
		if msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeSender) contains(chatID int64, substr string) bool {
	for _, text := range f.texts(chatID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

// blockingTrader holds every sell open until its context is cancelled.
type blockingTrader struct {
	mu      sync.Mutex
	ctxs    []context.Context
	started chan struct{}
}

func (b *blockingTrader) ExecuteSell(ctx context.Context, _ common.Address, _ float64, _ events.Requester) (*trading.SellProgress, error) {
	b.mu.Lock()
	b.ctxs = append(b.ctxs, ctx)
	b.mu.Unlock()
	b.started <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingTrader) ctx(i int) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctxs[i]
}

func newTestService(t *testing.T, out sender, bus Subscriber, trader Trader) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return &Service{
		out:      out,
		trader:   trader,
		bus:      bus,
		allowed:  map[int64]struct{}{testChatID: {}},
		registry: NewRegistry(logger),
		logger:   logger,
	}
}

func sellCallback(percent string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    "sell_" + percent + "_" + testContract,
		From:    &tgbotapi.User{UserName: "operator"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}},
	}
}

func TestService_SellProgressEventsReachRequester(t *testing.T) {
	out := &fakeSender{}
	bus := events.NewBus(zaptest.NewLogger(t), 16)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, bus.Shutdown(ctx))
	}()

	s := newTestService(t, out, bus, &blockingTrader{started: make(chan struct{}, 1)})
	s.subscribeEvents()

	req := events.Requester{ChatID: testChatID, Username: "operator"}
	token := common.HexToAddress(testContract)
	account := common.HexToAddress("0x3333333333333333333333333333333333333333")
	approveTx := common.HexToHash("0xa1")
	sellTx := common.HexToHash("0xb2")

	require.NoError(t, bus.Publish(events.NewApprovalSubmitted(req, token, account, approveTx)))
	require.NoError(t, bus.Publish(events.NewSellSubmitted(req, token, account, sellTx, big.NewInt(5e18))))
	require.NoError(t, bus.Publish(events.NewSellAccountFailed(req, token, account, 3, "execution reverted")))
	require.NoError(t, bus.Publish(events.NewSellCompleted(req, token, "1.25")))

	assert.Eventually(t, func() bool {
		return out.contains(testChatID, approveTx.Hex()) &&
			out.contains(testChatID, sellTx.Hex()) &&
			out.contains(testChatID, "execution reverted") &&
			out.contains(testChatID, "1.25")
	}, time.Second, 5*time.Millisecond, "every sell progress event must land in the requester's chat")

	assert.True(t, out.contains(testChatID, "5.0000"), "the sold amount is rendered in token units")
}

func TestService_SellButtonsShareTheConversationSlot(t *testing.T) {
	out := &fakeSender{}
	trader := &blockingTrader{started: make(chan struct{}, 2)}
	s := newTestService(t, out, nil, trader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.handleCallback(ctx, sellCallback("50"))
	<-trader.started

	s.handleCallback(ctx, sellCallback("25"))
	<-trader.started

	// The second press must have cancelled the first sell synchronously.
	require.Eventually(t, func() bool {
		return trader.ctx(0).Err() != nil
	}, time.Second, 5*time.Millisecond, "first button sell keeps running after a second press")
	assert.NoError(t, trader.ctx(1).Err(), "the newest sell owns the chat")

	require.Eventually(t, func() bool {
		return out.contains(testChatID, "Sell failed")
	}, time.Second, 5*time.Millisecond)
}

func TestService_SellButtonYieldsToNewSellCommandConversation(t *testing.T) {
	out := &fakeSender{}
	trader := &blockingTrader{started: make(chan struct{}, 1)}
	s := newTestService(t, out, nil, trader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.handleCallback(ctx, sellCallback("100"))
	<-trader.started

	// A fresh command conversation claims the chat the same way.
	s.registry.Begin(ctx, testChatID)

	require.Eventually(t, func() bool {
		return trader.ctx(0).Err() != nil
	}, time.Second, 5*time.Millisecond)
}
