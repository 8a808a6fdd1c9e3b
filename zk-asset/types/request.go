package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TransactionRequest is one recipient row of a transfer.
// NumberOfOutputNotes of zero means "use the default count".
type TransactionRequest struct {
	Amount              *uint256.Int
	To                  common.Address
	NumberOfOutputNotes int
}

// OutputSplit is either NoOutputSplit or ExplicitSplit.
type OutputSplit interface {
	isOutputSplit()
}

// NoOutputSplit spends a plain amount; only a remainder note is minted and the
// rest leaves the confidential pool as public value.
type NoOutputSplit struct{}

// ExplicitSplit pays each transaction to its recipient.
type ExplicitSplit struct {
	Transactions []TransactionRequest
}

func (NoOutputSplit) isOutputSplit() {}
func (ExplicitSplit) isOutputSplit() {}

// TransactionsOf returns the rows of an explicit split, or nil.
func TransactionsOf(split OutputSplit) []TransactionRequest {
	switch s := split.(type) {
	case ExplicitSplit:
		return s.Transactions
	case *ExplicitSplit:
		if s != nil {
			return s.Transactions
		}
	}
	return nil
}

// BalanceRequest asks for a join-split spending notes of Owner.
type BalanceRequest struct {
	Asset       common.Address
	Owner       common.Address
	Sender      common.Address
	PublicOwner common.Address

	// Amount is optional when Split carries transactions; their sum wins.
	Amount *uint256.Int
	Split  OutputSplit

	// UserAccess are extra accounts granted viewing access to every
	// recipient note.
	UserAccess []*AccessGrant

	// NumberOfInputNotes is a hint for the note store; zero lets it decide.
	NumberOfInputNotes int

	// NumberOfOutputNotes overrides the configured default count; nil keeps it.
	NumberOfOutputNotes *int
}
