// internal/blockchain/types.go
package blockchain

import "time"

// SignatureInfo is one entry from a signature listing, most-recent-first.
// BlockTime is nil when the node did not report one.
type SignatureInfo struct {
	Signature string
	BlockTime *time.Time
	Failed    bool
}

// InstructionRecord is a flattened view of one instruction: the address of
// the program that executed it plus the addresses it referenced, in
// instruction order.
type InstructionRecord struct {
	ProgramID string
	Accounts  []string
}

// TransactionRecord is the parsed transaction view the extraction engine
// works on. PreBalances and PostBalances are lamport amounts indexed
// identically to AccountKeys.
type TransactionRecord struct {
	Signature    string
	AccountKeys  []string
	Instructions []InstructionRecord
	PreBalances  []uint64
	PostBalances []uint64
	Fee          uint64
	BlockTime    *time.Time
}
