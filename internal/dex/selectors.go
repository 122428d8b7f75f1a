package dex

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector is a 4-byte function identifier. Selectors are protocol constants:
// a single wrong byte does not produce a decode error, it produces a silent
// revert on chain, so every selector here is derived from the canonical
// signature string rather than typed in by hand.
type Selector [4]byte

// Bytes returns the selector as a slice for calldata assembly.
func (s Selector) Bytes() []byte { return s[:] }

// SelectorOf derives the 4-byte selector from a canonical signature.
func SelectorOf(signature string) Selector {
	hash := crypto.Keccak256([]byte(signature))
	var sel Selector
	copy(sel[:], hash[:4])
	return sel
}

// Operation classifies the router and token functions the engine encodes.
type Operation int

const (
	OpUnknown Operation = iota

	// Exact-input swaps
	OpSwapExactETHForTokens
	OpSwapExactTokensForETH
	OpSwapExactTokensForTokens

	// Exact-output swaps
	OpSwapETHForExactTokens
	OpSwapTokensForExactETH
	OpSwapTokensForExactTokens

	// Fee-on-transfer variants
	OpSwapExactETHForTokensSupportingFee
	OpSwapExactTokensForETHSupportingFee
	OpSwapExactTokensForTokensSupportingFee

	// Liquidity management
	OpAddLiquidity
	OpAddLiquidityETH
	OpRemoveLiquidity
	OpRemoveLiquidityETH
)

// ERC-20 and pair/factory read selectors.
var (
	SelGetPair     = SelectorOf("getPair(address,address)")
	SelGetReserves = SelectorOf("getReserves()")
	SelToken0      = SelectorOf("token0()")
	SelToken1      = SelectorOf("token1()")

	SelBalanceOf   = SelectorOf("balanceOf(address)")
	SelAllowance   = SelectorOf("allowance(address,address)")
	SelApprove     = SelectorOf("approve(address,uint256)")
	SelTransfer    = SelectorOf("transfer(address,uint256)")
	SelDecimals    = SelectorOf("decimals()")
	SelSymbol      = SelectorOf("symbol()")
	SelName        = SelectorOf("name()")
	SelTotalSupply = SelectorOf("totalSupply()")

	SelGetAmountsOut = SelectorOf("getAmountsOut(uint256,address[])")
	SelGetAmountsIn  = SelectorOf("getAmountsIn(uint256,address[])")
)

// operationSignatures maps each encodable operation to its canonical router
// signature.
var operationSignatures = map[Operation]string{
	OpSwapExactETHForTokens:    "swapExactETHForTokens(uint256,address[],address,uint256)",
	OpSwapExactTokensForETH:    "swapExactTokensForETH(uint256,uint256,address[],address,uint256)",
	OpSwapExactTokensForTokens: "swapExactTokensForTokens(uint256,uint256,address[],address,uint256)",

	OpSwapETHForExactTokens:    "swapETHForExactTokens(uint256,address[],address,uint256)",
	OpSwapTokensForExactETH:    "swapTokensForExactETH(uint256,uint256,address[],address,uint256)",
	OpSwapTokensForExactTokens: "swapTokensForExactTokens(uint256,uint256,address[],address,uint256)",

	OpSwapExactETHForTokensSupportingFee:    "swapExactETHForTokensSupportingFeeOnTransferTokens(uint256,address[],address,uint256)",
	OpSwapExactTokensForETHSupportingFee:    "swapExactTokensForETHSupportingFeeOnTransferTokens(uint256,uint256,address[],address,uint256)",
	OpSwapExactTokensForTokensSupportingFee: "swapExactTokensForTokensSupportingFeeOnTransferTokens(uint256,uint256,address[],address,uint256)",

	OpAddLiquidity:       "addLiquidity(address,address,uint256,uint256,uint256,uint256,address,uint256)",
	OpAddLiquidityETH:    "addLiquidityETH(address,uint256,uint256,uint256,address,uint256)",
	OpRemoveLiquidity:    "removeLiquidity(address,address,uint256,uint256,uint256,address,uint256)",
	OpRemoveLiquidityETH: "removeLiquidityETH(address,uint256,uint256,uint256,address,uint256)",
}

var operationSelectors map[Operation]Selector

func init() {
	operationSelectors = make(map[Operation]Selector, len(operationSignatures))
	for op, sig := range operationSignatures {
		operationSelectors[op] = SelectorOf(sig)
	}
}

// OperationSelector returns the selector for an encodable operation.
func OperationSelector(op Operation) (Selector, bool) {
	sel, ok := operationSelectors[op]
	return sel, ok
}

// OperationName returns the router function name for logging.
func OperationName(op Operation) string {
	sig, ok := operationSignatures[op]
	if !ok {
		return "unknown"
	}
	for i := 0; i < len(sig); i++ {
		if sig[i] == '(' {
			return sig[:i]
		}
	}
	return sig
}
