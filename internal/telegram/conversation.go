// internal/telegram/conversation.go
package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInputTimeout is returned when the user never answers a prompt.
var ErrInputTimeout = errors.New("timed out waiting for input")

// ErrConversationReplaced is returned to a waiter when a newer command takes
// over its chat.
var ErrConversationReplaced = errors.New("superseded by a newer command")

const defaultInputTimeout = 2 * time.Minute

// InputKind labels what a pending prompt is waiting for.
type InputKind string

const (
	InputTokenAddress InputKind = "token_address"
	InputPercentage   InputKind = "percentage"
	InputConfirmation InputKind = "confirmation"
)

// pendingPrompt is one outstanding question in a chat. Replies land on the
// channel; exactly one send happens per prompt.
type pendingPrompt struct {
	kind  InputKind
	reply chan string
}

// conversation is the per-chat state: the context of the chat's in-flight
// operation and at most one pending prompt.
type conversation struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pending *pendingPrompt
}

// Registry tracks one conversation per chat. Starting a new one cancels and
// replaces whatever that chat had in flight, so a user can always type a new
// command to bail out.
type Registry struct {
	mu     sync.Mutex
	chats  map[int64]*conversation
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		chats:  make(map[int64]*conversation),
		logger: logger.Named("conversations"),
	}
}

// Begin opens a new conversation for the chat, cancelling any previous one.
// The returned context is cancelled when the conversation is replaced or
// ended.
func (r *Registry) Begin(parent context.Context, chatID int64) context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.chats[chatID]; ok {
		r.logger.Debug("Replacing in-flight conversation", zap.Int64("chat_id", chatID))
		prev.cancel()
		if prev.pending != nil {
			close(prev.pending.reply)
			prev.pending = nil
		}
	}

	ctx, cancel := context.WithCancel(parent)
	r.chats[chatID] = &conversation{ctx: ctx, cancel: cancel}
	return ctx
}

// End closes the chat's conversation if conversationCtx is still the current
// one. A conversation that was already replaced is left alone.
func (r *Registry) End(chatID int64, conversationCtx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.chats[chatID]
	if !ok || current.ctx != conversationCtx {
		return
	}
	current.cancel()
	delete(r.chats, chatID)
}

// AwaitInput blocks until the chat's next message arrives, the prompt times
// out, or the conversation is cancelled. Only one prompt may be outstanding
// per chat.
func (r *Registry) AwaitInput(conversationCtx context.Context, chatID int64, kind InputKind) (string, error) {
	r.mu.Lock()
	current, ok := r.chats[chatID]
	if !ok || current.ctx != conversationCtx {
		r.mu.Unlock()
		return "", ErrConversationReplaced
	}
	prompt := &pendingPrompt{kind: kind, reply: make(chan string, 1)}
	current.pending = prompt
	r.mu.Unlock()

	timer := time.NewTimer(defaultInputTimeout)
	defer timer.Stop()

	select {
	case text, open := <-prompt.reply:
		if !open {
			return "", ErrConversationReplaced
		}
		return text, nil
	case <-timer.C:
		r.clearPending(chatID, prompt)
		return "", ErrInputTimeout
	case <-conversationCtx.Done():
		r.clearPending(chatID, prompt)
		return "", ErrConversationReplaced
	}
}

// HandleMessage routes a plain chat message to the chat's pending prompt.
// It reports whether the message was consumed.
func (r *Registry) HandleMessage(chatID int64, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.chats[chatID]
	if !ok || current.pending == nil {
		return false
	}

	current.pending.reply <- text
	current.pending = nil
	return true
}

func (r *Registry) clearPending(chatID int64, prompt *pendingPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.chats[chatID]; ok && current.pending == prompt {
		current.pending = nil
	}
}
