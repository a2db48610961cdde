// internal/monitor/types.go
package monitor

import (
	"context"
	"time"

	"github.com/ataxdi-dev/solana-token-monitor/internal/blockchain"
)

// SignatureSource lists recent transaction signatures for the watched
// program, most-recent-first. It may return fewer entries than requested.
type SignatureSource interface {
	RecentSignatures(ctx context.Context, limit int) ([]blockchain.SignatureInfo, error)
}

// TransactionFetcher loads the parsed body of one transaction.
// (nil, nil) means the node does not (yet) know the transaction.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*blockchain.TransactionRecord, error)
}

// AttributedTransaction is one observation recorded against a tracked mint.
type AttributedTransaction struct {
	Signature  string    `json:"signature"`
	AmountSOL  float64   `json:"amount_sol"`
	ObservedAt time.Time `json:"observed_at"`
}

// TrackedToken is the live aggregation state for one candidate mint.
// AccumulatedSOL always equals the sum of Transactions amounts; the tracker
// is the sole writer.
type TrackedToken struct {
	Mint           string
	FirstSeen      time.Time
	LastChecked    time.Time
	AccumulatedSOL float64
	Transactions   []AttributedTransaction
}

// TokenLaunch is the immutable confirmed-launch snapshot handed to
// listeners and sinks.
type TokenLaunch struct {
	Mint             string    `json:"mint"`
	DetectedAt       time.Time `json:"detected_at"`
	AccumulatedSOL   float64   `json:"accumulated_sol"`
	TransactionCount int       `json:"transaction_count"`
	Source           string    `json:"source"`
}

// LaunchListener receives confirmed launches synchronously.
type LaunchListener func(launch TokenLaunch)
