// internal/blockchain/errors.go
package blockchain

import "strings"

// Nonce-conflict failures only ever reach us as RPC error strings, so
// classification is by message substring, matching what the node returns.
var nonceConflictMarkers = []string{
	"replacement transaction underpriced",
	"nonce too low",
}

// IsNonceConflict reports whether err indicates the working nonce raced with
// another transaction (already used, or an underpriced replacement).
func IsNonceConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonceConflictMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
