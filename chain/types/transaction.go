package types

import (
	"github.com/gagliardetto/solana-go"
)

// Transaction is an ordered list of instructions applied atomically. Signers lists the keys
// whose signatures were verified by the submitter.
type Transaction struct {
	Instructions []solana.Instruction
	Signers      []solana.PublicKey
}

func (tx *Transaction) IsSigner(k solana.PublicKey) bool {
	for _, s := range tx.Signers {
		if s == k {
			return true
		}
	}
	return false
}
