// internal/telegram/input.go
package telegram

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidAddress    = errors.New("invalid token address")
	ErrInvalidPercentage = errors.New("percentage must be a number in (0, 100]")
)

// ParseTokenAddress validates a user-supplied 0x address.
func ParseTokenAddress(input string) (common.Address, error) {
	trimmed := strings.TrimSpace(input)
	if !common.IsHexAddress(trimmed) || !strings.HasPrefix(strings.ToLower(trimmed), "0x") {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(trimmed), nil
}

// ParsePercentage validates a user-supplied sell percentage.
func ParsePercentage(input string) (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(input), "%")
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, ErrInvalidPercentage
	}
	if value <= 0 || value > 100 {
		return 0, ErrInvalidPercentage
	}
	return value, nil
}

// IsAffirmative matches the confirmations accepted for destructive commands.
func IsAffirmative(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y", "да":
		return true
	}
	return false
}
