// internal/blockchain/codec.go
package blockchain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
  {"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"remaining","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]},
  {"name":"name","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const routerV2ABIJSON = `[
  {"name":"swapExactTokensForETHSupportingFeeOnTransferTokens","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
   "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const routerV3ABIJSON = `[
  {"name":"exactInputSingle","type":"function","stateMutability":"payable",
   "inputs":[{"components":[
     {"name":"tokenIn","type":"address"},
     {"name":"tokenOut","type":"address"},
     {"name":"fee","type":"uint24"},
     {"name":"recipient","type":"address"},
     {"name":"amountIn","type":"uint256"},
     {"name":"amountOutMinimum","type":"uint256"},
     {"name":"sqrtPriceLimitX96","type":"uint160"}],
    "name":"params","type":"tuple"}],
   "outputs":[{"name":"amountOut","type":"uint256"}]}
]`

var (
	erc20ABI    abi.ABI
	routerV2ABI abi.ABI
	routerV3ABI abi.ABI

	// MaxUint256 is the unlimited-approval amount.
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

func init() {
	erc20ABI = mustParseABI(erc20ABIJSON)
	routerV2ABI = mustParseABI(routerV2ABIJSON)
	routerV3ABI = mustParseABI(routerV3ABIJSON)
}

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

func PackBalanceOf(owner common.Address) []byte {
	data, _ := erc20ABI.Pack("balanceOf", owner)
	return data
}

func PackAllowance(owner, spender common.Address) []byte {
	data, _ := erc20ABI.Pack("allowance", owner, spender)
	return data
}

func PackApprove(spender common.Address, amount *big.Int) []byte {
	data, _ := erc20ABI.Pack("approve", spender, amount)
	return data
}

func PackName() []byte {
	data, _ := erc20ABI.Pack("name")
	return data
}

func PackSymbol() []byte {
	data, _ := erc20ABI.Pack("symbol")
	return data
}

// PackSwapExactTokensForETH encodes the fee-on-transfer-tolerant V2 sell.
func PackSwapExactTokensForETH(amountIn, amountOutMin *big.Int, path []common.Address, to common.Address, deadline *big.Int) []byte {
	data, _ := routerV2ABI.Pack("swapExactTokensForETHSupportingFeeOnTransferTokens",
		amountIn, amountOutMin, path, to, deadline)
	return data
}

// ExactInputSingleParams mirrors the V3 router's exactInputSingle tuple.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

func PackExactInputSingle(params ExactInputSingleParams) []byte {
	data, _ := routerV3ABI.Pack("exactInputSingle", params)
	return data
}

func unpackBigInt(method string, output []byte) (*big.Int, error) {
	if len(output) == 0 {
		return big.NewInt(0), nil
	}
	values, err := erc20ABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	result, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type", method)
	}
	return result, nil
}

func unpackString(method string, output []byte) (string, error) {
	values, err := erc20ABI.Unpack(method, output)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	result, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected %s result type", method)
	}
	return result, nil
}
