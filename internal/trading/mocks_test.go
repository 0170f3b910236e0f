// internal/trading/mocks_test.go
package trading

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rovshanmuradov/base-sniper-bot/internal/events"
	"github.com/rovshanmuradov/base-sniper-bot/internal/wallet"
)

// mockChain implements ChainClient with per-method hooks. Unset hooks return
// benign defaults.
type mockChain struct {
	nativeBalanceFn func(account common.Address) (*big.Int, error)
	tokenBalanceFn  func(token, owner common.Address) (*big.Int, error)
	allowanceFn     func(token, owner, spender common.Address) (*big.Int, error)
	pendingNonceFn  func(account common.Address) (uint64, error)
	gasPriceFn      func() (*big.Int, error)
	waitConfirmFn   func(txHash common.Hash) (*types.Receipt, error)
	tokenNameFn     func(token common.Address) (string, error)
}

func (m *mockChain) NativeBalance(_ context.Context, account common.Address) (*big.Int, error) {
	if m.nativeBalanceFn != nil {
		return m.nativeBalanceFn(account)
	}
	return big.NewInt(1_000_000_000_000_000_000), nil
}

func (m *mockChain) TokenBalance(_ context.Context, token, owner common.Address) (*big.Int, error) {
	if m.tokenBalanceFn != nil {
		return m.tokenBalanceFn(token, owner)
	}
	return big.NewInt(0), nil
}

func (m *mockChain) Allowance(_ context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if m.allowanceFn != nil {
		return m.allowanceFn(token, owner, spender)
	}
	return new(big.Int).Set(MaxAllowance), nil
}

func (m *mockChain) PendingNonce(_ context.Context, account common.Address) (uint64, error) {
	if m.pendingNonceFn != nil {
		return m.pendingNonceFn(account)
	}
	return 0, nil
}

func (m *mockChain) GasPrice(_ context.Context) (*big.Int, error) {
	if m.gasPriceFn != nil {
		return m.gasPriceFn()
	}
	return big.NewInt(1_000_000_000), nil
}

func (m *mockChain) WaitForConfirmation(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	if m.waitConfirmFn != nil {
		return m.waitConfirmFn(txHash)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1), TxHash: txHash}, nil
}

func (m *mockChain) TokenName(_ context.Context, token common.Address) (string, error) {
	if m.tokenNameFn != nil {
		return m.tokenNameFn(token)
	}
	return "Mock Token", nil
}

// MaxAllowance mirrors an unlimited grant for mock defaults.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// mockAccount implements Account. The signAndSubmitFn hook sees every signed
// request, so tests can assert on nonce and payload.
type mockAccount struct {
	addr            common.Address
	signAndSubmitFn func(req wallet.TxRequest) (common.Hash, error)
}

func newMockAccount(lastByte byte) *mockAccount {
	var addr common.Address
	addr[common.AddressLength-1] = lastByte
	return &mockAccount{addr: addr}
}

func (m *mockAccount) Address() common.Address { return m.addr }

func (m *mockAccount) SignAndSubmit(_ context.Context, req wallet.TxRequest) (common.Hash, error) {
	if m.signAndSubmitFn != nil {
		return m.signAndSubmitFn(req)
	}
	return common.BytesToHash(m.addr.Bytes()), nil
}

// mockBus records published events.
type mockBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *mockBus) Publish(event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockBus) published() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockBus) countByType(t events.EventType) int {
	n := 0
	for _, e := range m.published() {
		if e.Type() == t {
			n++
		}
	}
	return n
}
