// internal/telegram/service.go
package telegram

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/trading"
)

var (
	quickBuyAmounts = []string{"0.1", "0.2", "0.5"}
	quickSellSplits = []string{"25", "50", "100"}
	weiPerEther     = decimal.New(1, 18)
)

// Trader runs pool-wide sells.
type Trader interface {
	ExecuteSell(ctx context.Context, token common.Address, percent float64, req events.Requester) (*trading.SellProgress, error)
}

// Reporter reads pool-wide holdings.
type Reporter interface {
	Report(ctx context.Context, token common.Address) (*trading.HoldingsReport, error)
}

// Buyer executes manual buys from the primary account.
type Buyer interface {
	BuyWithNative(ctx context.Context, token common.Address, amountWei *big.Int, account trading.Account) (common.Hash, error)
}

// Confirmer waits out a submitted transaction.
type Confirmer interface {
	WaitForConfirmation(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Subscriber is the event-bus side the service listens on.
type Subscriber interface {
	Subscribe(eventType events.EventType, handler events.Handler) *events.Subscription
}

// sender is the outgoing half of the bot API.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the chat front end: commands and inline buttons in, progress
// events out. All trading goes through the injected core interfaces.
type Service struct {
	api        *tgbotapi.BotAPI
	out        sender
	trader     Trader
	reporter   Reporter
	buyer      Buyer
	chain      Confirmer
	buyAccount trading.Account
	bus        Subscriber
	allowed    map[int64]struct{}
	registry   *Registry
	logger     *zap.Logger
}

func NewService(
	botToken string,
	allowedChatIDs []int64,
	trader Trader,
	reporter Reporter,
	buyer Buyer,
	chain Confirmer,
	buyAccount trading.Account,
	bus Subscriber,
	logger *zap.Logger,
) (*Service, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	allowed := make(map[int64]struct{}, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = struct{}{}
	}

	return &Service{
		api:        api,
		out:        api,
		trader:     trader,
		reporter:   reporter,
		buyer:      buyer,
		chain:      chain,
		buyAccount: buyAccount,
		bus:        bus,
		allowed:    allowed,
		registry:   NewRegistry(logger),
		logger:     logger.Named("telegram"),
	}, nil
}

// Run subscribes to progress events and processes chat updates until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.subscribeEvents()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := s.api.GetUpdatesChan(updateConfig)

	s.logger.Info("Telegram service started",
		zap.String("bot", s.api.Self.UserName),
		zap.Int("allowed_chats", len(s.allowed)))

	for {
		select {
		case <-ctx.Done():
			s.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			s.handleUpdate(ctx, update)
		}
	}
}

func (s *Service) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		s.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		s.handleMessage(ctx, update.Message)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !s.isAllowed(chatID) {
		s.logger.Warn("Message from unauthorized chat", zap.Int64("chat_id", chatID))
		return
	}

	if !msg.IsCommand() {
		if !s.registry.HandleMessage(chatID, msg.Text) {
			s.send(chatID, "Use /sell, /sellall or /balance.")
		}
		return
	}

	req := events.Requester{ChatID: chatID, Username: msg.From.UserName}
	switch msg.Command() {
	case "start", "help":
		s.send(chatID, "Commands:\n/sell — sell a percentage of supply across all accounts\n/sellall — liquidate a token completely\n/balance — show pool holdings of a token")
	case "sell":
		go s.runSell(ctx, req, 0, false)
	case "sellall":
		go s.runSell(ctx, req, 100, true)
	case "balance":
		go s.runBalance(ctx, req)
	default:
		s.send(chatID, "Unknown command, try /help.")
	}
}

// runSell drives the /sell and /sellall conversations. fixedPercent is used
// when confirm is set; otherwise the percentage is asked for.
func (s *Service) runSell(ctx context.Context, req events.Requester, fixedPercent float64, confirm bool) {
	convCtx := s.registry.Begin(ctx, req.ChatID)
	defer s.registry.End(req.ChatID, convCtx)

	token, ok := s.askForToken(convCtx, req.ChatID)
	if !ok {
		return
	}

	percent := fixedPercent
	if confirm {
		s.send(req.ChatID, fmt.Sprintf("Sell the entire position in %s? (yes/no)", token.Hex()))
		answer, err := s.registry.AwaitInput(convCtx, req.ChatID, InputConfirmation)
		if err != nil {
			s.reportInputError(req.ChatID, err)
			return
		}
		if !IsAffirmative(answer) {
			s.send(req.ChatID, "Cancelled.")
			return
		}
	} else {
		s.send(req.ChatID, "Percentage of total supply to sell (0-100):")
		answer, err := s.registry.AwaitInput(convCtx, req.ChatID, InputPercentage)
		if err != nil {
			s.reportInputError(req.ChatID, err)
			return
		}
		percent, err = ParsePercentage(answer)
		if err != nil {
			s.send(req.ChatID, "That is not a valid percentage, aborting.")
			return
		}
	}

	s.send(req.ChatID, fmt.Sprintf("Selling %.2f%% of %s across all accounts...", percent, token.Hex()))

	progress, err := s.trader.ExecuteSell(convCtx, token, percent, req)
	if err != nil {
		s.send(req.ChatID, fmt.Sprintf("Sell failed: %s", err))
		return
	}
	s.send(req.ChatID, formatSellProgress(progress))
}

func (s *Service) runBalance(ctx context.Context, req events.Requester) {
	convCtx := s.registry.Begin(ctx, req.ChatID)
	defer s.registry.End(req.ChatID, convCtx)

	token, ok := s.askForToken(convCtx, req.ChatID)
	if !ok {
		return
	}
	s.sendBalanceReport(convCtx, req.ChatID, token)
}

func (s *Service) askForToken(convCtx context.Context, chatID int64) (common.Address, bool) {
	s.send(chatID, "Token contract address:")
	answer, err := s.registry.AwaitInput(convCtx, chatID, InputTokenAddress)
	if err != nil {
		s.reportInputError(chatID, err)
		return common.Address{}, false
	}
	token, err := ParseTokenAddress(answer)
	if err != nil {
		s.send(chatID, "That does not look like a token address, aborting.")
		return common.Address{}, false
	}
	return token, true
}

func (s *Service) sendBalanceReport(ctx context.Context, chatID int64, token common.Address) {
	report, err := s.reporter.Report(ctx, token)
	if err != nil {
		s.send(chatID, fmt.Sprintf("Balance check failed: %s", err))
		return
	}
	s.send(chatID, formatHoldings(report))
}

// handleCallback dispatches inline-keyboard presses. Payloads are
// action_value_contract, e.g. buy_0.1_0xabc or sell_50_0xabc.
func (s *Service) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	if !s.isAllowed(chatID) {
		return
	}

	if _, err := s.out.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		s.logger.Warn("Callback ack failed", zap.Error(err))
	}

	parts := strings.SplitN(query.Data, "_", 3)
	if len(parts) != 3 {
		s.logger.Warn("Malformed callback payload", zap.String("data", query.Data))
		return
	}
	action, value, contract := parts[0], parts[1], parts[2]

	token, err := ParseTokenAddress(contract)
	if err != nil {
		s.logger.Warn("Callback with bad contract", zap.String("data", query.Data))
		return
	}
	req := events.Requester{ChatID: chatID, Username: query.From.UserName}

	switch action {
	case "buy":
		go s.runQuickBuy(ctx, req, token, value)
	case "sell":
		percent, err := ParsePercentage(value)
		if err != nil {
			s.send(chatID, "Bad sell percentage on that button.")
			return
		}
		// Button sells claim the chat's conversation slot like /sell does,
		// so a second press cancels the one in flight instead of racing it.
		go func() {
			convCtx := s.registry.Begin(ctx, req.ChatID)
			defer s.registry.End(req.ChatID, convCtx)

			progress, err := s.trader.ExecuteSell(convCtx, token, percent, req)
			if err != nil {
				s.send(chatID, fmt.Sprintf("Sell failed: %s", err))
				return
			}
			s.send(chatID, formatSellProgress(progress))
		}()
	case "balance":
		go s.sendBalanceReport(ctx, chatID, token)
	default:
		s.logger.Warn("Unknown callback action", zap.String("action", action))
	}
}

func (s *Service) runQuickBuy(ctx context.Context, req events.Requester, token common.Address, amountETH string) {
	amount, err := decimal.NewFromString(amountETH)
	if err != nil || amount.Sign() <= 0 {
		s.send(req.ChatID, "Bad buy amount on that button.")
		return
	}
	amountWei := amount.Mul(weiPerEther).BigInt()

	s.send(req.ChatID, fmt.Sprintf("Buying %s ETH of %s...", amountETH, token.Hex()))

	hash, err := s.buyer.BuyWithNative(ctx, token, amountWei, s.buyAccount)
	if err != nil {
		s.send(req.ChatID, fmt.Sprintf("Buy failed: %s", err))
		return
	}
	if _, err := s.chain.WaitForConfirmation(ctx, hash); err != nil {
		s.send(req.ChatID, fmt.Sprintf("Buy %s not confirmed: %s", hash.Hex(), err))
		return
	}
	s.send(req.ChatID, formatBuyCompleted(events.NewBuyCompleted(req, token, hash, amountWei)))
}

// subscribeEvents wires bus events to chat messages. Events carrying a
// requester go to that chat; the rest are broadcast to every allowed chat.
func (s *Service) subscribeEvents() {
	s.bus.Subscribe(events.TokenListed, func(_ context.Context, event events.Event) error {
		listed, ok := event.(events.TokenListedEvent)
		if !ok {
			return nil
		}
		s.broadcastListing(listed)
		return nil
	})

	s.bus.Subscribe(events.ApprovalSubmitted, func(_ context.Context, event events.Event) error {
		approved, ok := event.(events.ApprovalSubmittedEvent)
		if !ok {
			return nil
		}
		s.routed(approved.Requester, formatApprovalSubmitted(approved))
		return nil
	})

	s.bus.Subscribe(events.SellSubmitted, func(_ context.Context, event events.Event) error {
		sold, ok := event.(events.SellSubmittedEvent)
		if !ok {
			return nil
		}
		s.routed(sold.Requester, formatSellSubmitted(sold))
		return nil
	})

	s.bus.Subscribe(events.SellAccountFailed, func(_ context.Context, event events.Event) error {
		failed, ok := event.(events.SellAccountFailedEvent)
		if !ok {
			return nil
		}
		s.routed(failed.Requester, formatAccountFailed(failed))
		return nil
	})

	s.bus.Subscribe(events.SellCompleted, func(_ context.Context, event events.Event) error {
		done, ok := event.(events.SellCompletedEvent)
		if !ok {
			return nil
		}
		s.routed(done.Requester, formatSellCompleted(done))
		return nil
	})

	s.bus.Subscribe(events.BuyCompleted, func(_ context.Context, event events.Event) error {
		done, ok := event.(events.BuyCompletedEvent)
		if !ok {
			return nil
		}
		if done.Requester.ChatID == 0 {
			// Watcher-triggered autobuy, announce everywhere.
			s.broadcast(formatBuyCompleted(done))
		}
		return nil
	})

	s.bus.Subscribe(events.BuyFailed, func(_ context.Context, event events.Event) error {
		failed, ok := event.(events.BuyFailedEvent)
		if !ok {
			return nil
		}
		s.routed(failed.Requester, formatBuyFailed(failed))
		return nil
	})
}

func (s *Service) broadcastListing(listed events.TokenListedEvent) {
	buys, sells := listingCallbacks(listed.ContractAddress, quickBuyAmounts, quickSellSplits)

	buyRow := make([]tgbotapi.InlineKeyboardButton, 0, len(buys))
	for _, button := range buys {
		buyRow = append(buyRow, tgbotapi.NewInlineKeyboardButtonData(button[0], button[1]))
	}
	sellRow := make([]tgbotapi.InlineKeyboardButton, 0, len(sells))
	for _, button := range sells {
		sellRow = append(sellRow, tgbotapi.NewInlineKeyboardButtonData(button[0], button[1]))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(buyRow, sellRow)

	for chatID := range s.allowed {
		msg := tgbotapi.NewMessage(chatID, formatListing(listed))
		msg.ReplyMarkup = keyboard
		if _, err := s.out.Send(msg); err != nil {
			s.logger.Warn("Failed to send listing", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (s *Service) routed(req events.Requester, text string) {
	if req.ChatID != 0 {
		s.send(req.ChatID, text)
		return
	}
	s.broadcast(text)
}

func (s *Service) broadcast(text string) {
	for chatID := range s.allowed {
		s.send(chatID, text)
	}
}

func (s *Service) send(chatID int64, text string) {
	if _, err := s.out.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		s.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *Service) reportInputError(chatID int64, err error) {
	switch {
	case err == ErrInputTimeout:
		s.send(chatID, "Timed out waiting for a reply, aborting.")
	case err == ErrConversationReplaced:
		// The newer command already owns the chat, stay quiet.
	default:
		s.send(chatID, fmt.Sprintf("Aborted: %s", err))
	}
}

func (s *Service) isAllowed(chatID int64) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[chatID]
	return ok
}
