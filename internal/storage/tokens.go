// internal/storage/tokens.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxEntries bounds the seen set. New launches matter for about a minute, so
// the set is cleared rather than evicted entry by entry.
const maxEntries = 1000

// SeenToken is one persisted dedup record.
type SeenToken struct {
	ContractAddress string    `json:"contract_address"`
	Symbol          string    `json:"symbol,omitempty"`
	FirstSeen       time.Time `json:"first_seen"`
}

// TokenStore is a file-backed dedup set of token contract addresses the
// watcher has already announced. It survives restarts so a relaunch does not
// re-announce (or re-buy) the same listings.
type TokenStore struct {
	mu     sync.Mutex
	path   string
	seen   map[string]SeenToken
	logger *zap.Logger
}

// OpenTokenStore loads the store from path, creating the parent directory and
// starting empty when the file does not exist. A corrupt file is discarded
// with a warning rather than blocking startup.
func OpenTokenStore(path string, logger *zap.Logger) (*TokenStore, error) {
	store := &TokenStore{
		path:   path,
		seen:   make(map[string]SeenToken),
		logger: logger.Named("token_store"),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create token store directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}

	var records []SeenToken
	if err := json.Unmarshal(data, &records); err != nil {
		store.logger.Warn("Token store file is corrupt, starting fresh",
			zap.String("path", path),
			zap.Error(err))
		return store, nil
	}

	for _, record := range records {
		store.seen[normalize(record.ContractAddress)] = record
	}
	store.logger.Info("Token store loaded",
		zap.String("path", path),
		zap.Int("entries", len(store.seen)))
	return store, nil
}

// Seen reports whether the contract address was already recorded.
func (s *TokenStore) Seen(contractAddress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[normalize(contractAddress)]
	return ok
}

// MarkSeen records the address and persists the set. When the set grows past
// its bound it is cleared first; everything old enough to be evicted is also
// old enough to fail the freshness check anyway.
func (s *TokenStore) MarkSeen(contractAddress, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seen) >= maxEntries {
		s.logger.Info("Seen set full, clearing", zap.Int("entries", len(s.seen)))
		s.seen = make(map[string]SeenToken)
	}

	key := normalize(contractAddress)
	s.seen[key] = SeenToken{
		ContractAddress: contractAddress,
		Symbol:          symbol,
		FirstSeen:       time.Now(),
	}
	return s.persist()
}

// Len returns the current number of recorded addresses.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// persist writes the set atomically via a temp file rename. Caller holds the
// lock.
func (s *TokenStore) persist() error {
	records := make([]SeenToken, 0, len(s.seen))
	for _, record := range s.seen {
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token store: %w", err)
	}
	return nil
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
