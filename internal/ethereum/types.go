package ethereum

import "math/big"

// Transaction represents a transaction as returned by eth_getTransactionByHash.
type Transaction struct {
	Hash     string
	From     string
	To       string // empty for contract creations
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
	Nonce    uint64
	// BlockHash is empty while the transaction is still pending.
	BlockHash string
}

// Pending reports whether the transaction has not yet been included in a block.
func (t *Transaction) Pending() bool {
	return t.BlockHash == ""
}
