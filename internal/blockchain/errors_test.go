// internal/blockchain/errors_test.go
package blockchain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNonceConflict(t *testing.T) {
	assert.True(t, IsNonceConflict(errors.New("replacement transaction underpriced")))
	assert.True(t, IsNonceConflict(errors.New("nonce too low")))
	assert.True(t, IsNonceConflict(fmt.Errorf("rpc error: Nonce Too Low")))
	assert.True(t, IsNonceConflict(fmt.Errorf("send failed: %w", errors.New("replacement transaction underpriced"))))

	assert.False(t, IsNonceConflict(nil))
	assert.False(t, IsNonceConflict(errors.New("insufficient funds for gas * price + value")))
	assert.False(t, IsNonceConflict(errors.New("execution reverted")))
}
