// internal/wallet/wallet_test.go
package wallet

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	keyOne = "0000000000000000000000000000000000000000000000000000000000000001"
	keyTwo = "0000000000000000000000000000000000000000000000000000000000000002"

	// Address derived from keyOne.
	addrOne = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

func TestNew_DerivesAddress(t *testing.T) {
	w, err := New("main", keyOne)
	require.NoError(t, err)
	assert.Equal(t, addrOne, w.Address().Hex())
	assert.Equal(t, "main", w.Name())
}

func TestNew_AcceptsPrefixedAndMixedCaseKeys(t *testing.T) {
	w, err := New("main", "0x"+keyOne)
	require.NoError(t, err)
	assert.Equal(t, addrOne, w.Address().Hex())

	_, err = New("main", " "+keyOne+" ")
	require.NoError(t, err)
}

func TestNew_RejectsMalformedKeys(t *testing.T) {
	for _, bad := range []string{"", "abc", keyOne + "00", "zz" + keyOne[2:]} {
		_, err := New("main", bad)
		assert.Error(t, err, "key %q", bad)
	}
}

func TestLoad_PreservesOrderAndSkipsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wallets:
  - name: main
    private_key: "`+keyOne+`"
  - name: broken
    private_key: "not-a-key"
  - name: ""
    private_key: "`+keyTwo+`"
  - name: side
    private_key: "`+keyTwo+`"
`), 0o644))

	wallets, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Len(t, wallets, 2)
	assert.Equal(t, "main", wallets[0].Name())
	assert.Equal(t, "side", wallets[1].Name())
}

func TestLoad_FailsWhenNothingUsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wallets:
  - name: broken
    private_key: "nope"
`), 0o644))

	_, err := Load(path, zaptest.NewLogger(t))
	require.Error(t, err)
}

type fakeBroadcaster struct {
	sent *types.Transaction
}

func (f *fakeBroadcaster) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = tx
	return nil
}

func (f *fakeBroadcaster) ChainID() *big.Int { return big.NewInt(8453) }

func TestAccount_SignAndSubmit(t *testing.T) {
	w, err := New("main", keyOne)
	require.NoError(t, err)

	broadcaster := &fakeBroadcaster{}
	account := w.Bind(broadcaster)

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	hash, err := account.SignAndSubmit(context.Background(), TxRequest{
		To:       to,
		Value:    big.NewInt(1),
		Data:     []byte{0xde, 0xad},
		GasLimit: 21_000,
		GasPrice: big.NewInt(1_000_000_000),
		Nonce:    7,
	})
	require.NoError(t, err)

	require.NotNil(t, broadcaster.sent)
	assert.Equal(t, broadcaster.sent.Hash(), hash)
	assert.Equal(t, uint64(7), broadcaster.sent.Nonce())
	assert.Equal(t, to, *broadcaster.sent.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(8453)), broadcaster.sent)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), sender)
}
