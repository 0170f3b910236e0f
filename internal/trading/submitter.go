// internal/trading/submitter.go
package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/base-sniper-bot/internal/blockchain"
)

// ErrSubmissionExhausted is returned when the retry budget runs out.
var ErrSubmissionExhausted = errors.New("transaction submission attempts exhausted")

const (
	defaultMaxAttempts = 10
	defaultRetryDelay  = 2 * time.Second

	// conflictsPerNonceBump: the first two conflicts on a nonce are assumed
	// to be RPC propagation lag; the third means the nonce was genuinely
	// consumed elsewhere.
	conflictsPerNonceBump = 3
)

// BuildTxFunc constructs, signs and broadcasts a transaction under the given
// nonce, returning its hash.
type BuildTxFunc func(nonce uint64) (common.Hash, error)

// Submitter drives a transaction-construction closure through nonce
// acquisition and a bounded retry loop. Only nonce-conflict failures are
// retried here; everything else propagates to the caller.
type Submitter struct {
	chain       ChainClient
	logger      *zap.Logger
	maxAttempts int
	retryDelay  time.Duration
}

func NewSubmitter(chain ChainClient, logger *zap.Logger) *Submitter {
	return &Submitter{
		chain:       chain,
		logger:      logger.Named("submitter"),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Submit runs buildTx under a managed nonce for account.
//
// The working nonce is fetched lazily and cached across attempts. A
// nonce-conflict failure keeps the nonce until the third consecutive conflict
// on it, then bumps it by one. A nonce-fetch failure discards the cache so
// the next attempt re-fetches. Any other buildTx failure is returned
// immediately.
func (s *Submitter) Submit(ctx context.Context, account Account, buildTx BuildTxFunc) (common.Hash, error) {
	var (
		nonce     uint64
		haveNonce bool
		conflicts int
		lastErr   error
	)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return common.Hash{}, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		if !haveNonce {
			fetched, err := s.chain.PendingNonce(ctx, account.Address())
			if err != nil {
				lastErr = err
				s.logger.Warn("Nonce fetch failed",
					zap.String("account", account.Address().Hex()),
					zap.Int("attempt", attempt),
					zap.Error(err))
				continue
			}
			nonce = fetched
			haveNonce = true
			conflicts = 0
		}

		s.logger.Debug("Attempting transaction",
			zap.String("account", account.Address().Hex()),
			zap.Uint64("nonce", nonce),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxAttempts))

		hash, err := buildTx(nonce)
		if err == nil {
			s.logger.Info("Transaction sent",
				zap.String("account", account.Address().Hex()),
				zap.String("tx_hash", hash.Hex()),
				zap.Uint64("nonce", nonce))
			return hash, nil
		}

		if !blockchain.IsNonceConflict(err) {
			return common.Hash{}, err
		}

		lastErr = err
		conflicts++
		s.logger.Warn("Nonce conflict",
			zap.String("account", account.Address().Hex()),
			zap.Uint64("nonce", nonce),
			zap.Int("consecutive", conflicts),
			zap.Error(err))

		if conflicts >= conflictsPerNonceBump {
			nonce++
			conflicts = 0
			s.logger.Info("Incrementing nonce", zap.Uint64("nonce", nonce))
		}
	}

	return common.Hash{}, fmt.Errorf("%w after %d attempts: %v", ErrSubmissionExhausted, s.maxAttempts, lastErr)
}
